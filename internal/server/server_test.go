package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/durablenotes/durablenotes/internal/actor"
	"github.com/durablenotes/durablenotes/internal/aggregate"
	"github.com/durablenotes/durablenotes/internal/config"
	"github.com/durablenotes/durablenotes/internal/note"
	"github.com/durablenotes/durablenotes/internal/store"
)

type testEnv struct {
	srv  *Server
	db   *store.DB
	sink *aggregate.StoreSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sink := aggregate.NewStoreSink(db)
	dir := actor.NewDirectory(db, sink, actor.Options{
		Thresholds: note.DefaultThresholds(),
		IdleAfter:  time.Hour,
	})
	t.Cleanup(dir.Close)

	cfg := config.Default()
	cfg.Admin.IDs = []string{"admin-1"}

	return &testEnv{
		srv:  New(db, dir, cfg, "test-version"),
		db:   db,
		sink: sink,
	}
}

func (e *testEnv) request(t *testing.T, method, path, token, body string, extra map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "GET", "/api/health", "", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := decode[map[string]any](t, w)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
}

func TestNotesRequireIdentity(t *testing.T) {
	e := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/notes"},
		{"POST", "/api/notes"},
		{"PATCH", "/api/notes/n1"},
		{"PATCH", "/api/notes/n1/archive"},
		{"GET", "/api/spaces"},
	} {
		w := e.request(t, tc.method, tc.path, "", "{}", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", tc.method, tc.path, w.Code)
		}
	}
}

func TestCreateAndListFlow(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "POST", "/api/notes", "u1",
		`{"id":"n1","space":"main","content":"<p>hi</p>","intent":"thinking"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	created := decode[note.Note](t, w)
	if created.ID != "n1" || created.Status != note.StatusWarming || created.UserID != "u1" {
		t.Errorf("created = %+v", created)
	}

	w = e.request(t, "GET", "/api/notes?space=main", "u1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	listed := decode[map[string][]note.Note](t, w)
	if len(listed["notes"]) != 1 || listed["notes"][0].Content != "<p>hi</p>" {
		t.Errorf("notes = %+v", listed["notes"])
	}

	// Another identity sees nothing.
	w = e.request(t, "GET", "/api/notes", "u2", "", nil)
	other := decode[map[string][]note.Note](t, w)
	if len(other["notes"]) != 0 {
		t.Errorf("u2 notes = %+v, want empty", other["notes"])
	}
}

func TestCreateValidation(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "POST", "/api/notes", "u1", `{"content":""}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty content: status = %d, want 400", w.Code)
	}

	w = e.request(t, "POST", "/api/notes", "u1", `{"content":"x","intent":"pondering"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad intent: status = %d, want 400", w.Code)
	}
}

func TestUpdateFlow(t *testing.T) {
	e := newTestEnv(t)

	e.request(t, "POST", "/api/notes", "u1", `{"id":"n1","content":"old","intent":"writing"}`, nil)

	w := e.request(t, "PATCH", "/api/notes/n1", "u1", `{"content":"new"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}
	updated := decode[note.Note](t, w)
	if updated.Content != "new" {
		t.Errorf("content = %q, want new", updated.Content)
	}
	if updated.UpdatedAt < updated.CreatedAt {
		t.Errorf("updatedAt %f < createdAt %f", updated.UpdatedAt, updated.CreatedAt)
	}

	w = e.request(t, "PATCH", "/api/notes/ghost", "u1", `{"content":"x"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note: status = %d, want 404", w.Code)
	}
}

func TestArchiveFlow(t *testing.T) {
	e := newTestEnv(t)

	e.request(t, "POST", "/api/notes", "u1", `{"id":"n1","content":"x","intent":"shared"}`, nil)

	w := e.request(t, "PATCH", "/api/notes/n1/archive", "u1", `{"summary":"done"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archive status = %d: %s", w.Code, w.Body.String())
	}
	archived := decode[note.Note](t, w)
	if archived.Status != note.StatusArchived || archived.Summary != "done" {
		t.Errorf("archived = %+v", archived)
	}

	// Mutating an archived note is a conflict, not a transient failure.
	w = e.request(t, "PATCH", "/api/notes/n1", "u1", `{"content":"x"}`, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("update archived: status = %d, want 409", w.Code)
	}

	// Archive is idempotent over HTTP too.
	w = e.request(t, "PATCH", "/api/notes/n1/archive", "u1", `{"summary":"other"}`, nil)
	if w.Code != http.StatusOK {
		t.Errorf("re-archive: status = %d, want 200", w.Code)
	}
	again := decode[note.Note](t, w)
	if again.Summary != "done" {
		t.Errorf("summary = %q, want done (fixed at archive time)", again.Summary)
	}

	w = e.request(t, "PATCH", "/api/notes/ghost/archive", "u1", `{}`, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("archive missing: status = %d, want 404", w.Code)
	}
}

func TestSpacesEndpoints(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "GET", "/api/spaces", "u1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list spaces status = %d", w.Code)
	}
	listed := decode[map[string][]map[string]any](t, w)
	if len(listed["spaces"]) != 1 {
		t.Fatalf("spaces = %+v, want the main default", listed["spaces"])
	}

	w = e.request(t, "POST", "/api/spaces", "u1", `{"label":"Work","icon":"briefcase"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("add space status = %d: %s", w.Code, w.Body.String())
	}

	w = e.request(t, "POST", "/api/spaces", "u1", `{"label":""}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank label: status = %d, want 400", w.Code)
	}
}

func TestAdminRoutesGated(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "GET", "/api/admin/stats", "u1", "", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("non-admin stats: status = %d, want 403", w.Code)
	}

	w = e.request(t, "GET", "/api/admin/stats", "admin-1", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("admin stats: status = %d, want 200", w.Code)
	}
}

func TestAdminStatsCountNotes(t *testing.T) {
	e := newTestEnv(t)

	e.request(t, "POST", "/api/notes", "u1", `{"id":"n1","content":"x","intent":"thinking"}`, nil)
	e.request(t, "POST", "/api/notes", "u1", `{"id":"n2","content":"y","intent":"thinking"}`, nil)
	e.request(t, "PATCH", "/api/notes/n1/archive", "u1", `{}`, nil)

	// Drain the best-effort sink before reading counters.
	e.sink.Close()

	w := e.request(t, "GET", "/api/admin/stats", "admin-1", "", nil)
	stats := decode[map[string]any](t, w)
	if stats["totalNotes"] != float64(2) {
		t.Errorf("totalNotes = %v, want 2", stats["totalNotes"])
	}
	if stats["archivedNotes"] != float64(1) {
		t.Errorf("archivedNotes = %v, want 1", stats["archivedNotes"])
	}
}

func TestImpersonation(t *testing.T) {
	e := newTestEnv(t)

	e.request(t, "POST", "/api/notes", "target-user", `{"id":"n1","content":"theirs","intent":"thinking"}`, nil)

	// Admin acting as target-user sees their notes.
	w := e.request(t, "GET", "/api/notes", "admin-1", "", map[string]string{"X-Impersonate-ID": "target-user"})
	if w.Code != http.StatusOK {
		t.Fatalf("impersonated list: status = %d", w.Code)
	}
	listed := decode[map[string][]note.Note](t, w)
	if len(listed["notes"]) != 1 || listed["notes"][0].UserID != "target-user" {
		t.Errorf("impersonated notes = %+v", listed["notes"])
	}

	// Non-admin impersonation is rejected.
	w = e.request(t, "GET", "/api/notes", "u1", "", map[string]string{"X-Impersonate-ID": "target-user"})
	if w.Code != http.StatusForbidden {
		t.Errorf("non-admin impersonation: status = %d, want 403", w.Code)
	}
}

func TestAdminSettingsRoundTrip(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "POST", "/api/admin/settings", "admin-1",
		`{"site_title":"Embers","logo_url":"/logo.png","ignored_key":"x"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("settings post: status = %d: %s", w.Code, w.Body.String())
	}

	// Branding is public, read pre-login with no token.
	w = e.request(t, "GET", "/api/settings", "", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("settings get: status = %d", w.Code)
	}
	settings := decode[map[string]string](t, w)
	if settings["site_title"] != "Embers" {
		t.Errorf("site_title = %q, want Embers", settings["site_title"])
	}
	if _, ok := settings["ignored_key"]; ok {
		t.Error("unknown settings key was persisted")
	}
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/durablenotes/durablenotes/internal/actor"
	"github.com/durablenotes/durablenotes/internal/note"
)

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.dir.List(r.Context(), userID(r), r.URL.Query().Get("space"))
	if err != nil {
		writeNoteError(w, err)
		return
	}
	if notes == nil {
		notes = []note.Note{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"notes": notes})
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      string `json:"id"`
		Space   string `json:"space"`
		Content string `json:"content"`
		Intent  string `json:"intent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, `{"error":"content required"}`, http.StatusBadRequest)
		return
	}
	if req.Intent == "" {
		req.Intent = string(note.IntentThinking)
	}
	if !note.ValidIntent(req.Intent) {
		http.Error(w, `{"error":"unknown intent"}`, http.StatusBadRequest)
		return
	}

	created, err := s.dir.Create(r.Context(), userID(r), actor.CreateRequest{
		Space:    req.Space,
		Content:  req.Content,
		Intent:   note.Intent(req.Intent),
		ClientID: req.ID,
	})
	if err != nil {
		writeNoteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	updated, err := s.dir.Update(r.Context(), userID(r), noteID, req.Content)
	if err != nil {
		writeNoteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

func (s *Server) handleArchiveNote(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")

	var req struct {
		Summary string `json:"summary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	archived, err := s.dir.Archive(r.Context(), userID(r), noteID, req.Summary)
	if err != nil {
		writeNoteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(archived)
}

func (s *Server) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"spaces": s.spaces.List(userID(r)),
	})
}

func (s *Server) handleAddSpace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
		Icon  string `json:"icon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	created, ok := s.spaces.Add(userID(r), req.Label, req.Icon)
	if !ok {
		http.Error(w, `{"error":"label required"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// writeNoteError maps actor outcomes onto HTTP statuses. Entity-level
// rejections stay distinguishable from transient storage failures so
// clients know whether a retry can help.
func writeNoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, note.ErrNotFound):
		http.Error(w, `{"error":"note not found"}`, http.StatusNotFound)
	case errors.Is(err, note.ErrArchived):
		http.Error(w, `{"error":"note is archived"}`, http.StatusConflict)
	default:
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
	}
}

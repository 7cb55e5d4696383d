package server

import (
	"encoding/json"
	"net/http"

	"github.com/durablenotes/durablenotes/internal/store"
)

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	userCount, err := s.db.CountUsers()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	// Counters are advisory, fed best-effort by the aggregate sink.
	totalNotes, err := s.db.GetStat(store.StatTotalNotes)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	archivedNotes, err := s.db.GetStat(store.StatArchivedNotes)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"totalUsers":    userCount,
		"totalNotes":    totalNotes,
		"archivedNotes": archivedNotes,
		"activeActors":  s.dir.ActiveActors(),
	})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.db.ListUsers(100)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []store.User{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"users": users})
}

func (s *Server) handleAdminSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	for _, key := range store.KnownSettings {
		value, ok := req[key]
		if !ok || value == "" {
			continue
		}
		if err := s.db.SetSetting(key, value); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amishk599/bankradar/internal/model"
)

type preferencesBody struct {
	Notifications model.SubscriberPreference `json:"notifications"`
}

func (s *Server) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sub, err := s.deps.Directory.Get(r.Context(), id)
	switch {
	case errors.Is(err, model.ErrSubscriberNotFound):
		writeJSON(w, http.StatusOK, preferencesBody{Notifications: model.DefaultPreference()})
	case err != nil:
		s.logger.Error("loading preferences", "subscriber", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch preferences")
	default:
		writeJSON(w, http.StatusOK, preferencesBody{Notifications: sub.Preferences.Normalize()})
	}
}

// handleSaveNotifications replaces the caller's preferences wholesale.
func (s *Server) handleSaveNotifications(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var prefs model.SubscriberPreference
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid preferences body")
		return
	}
	prefs = prefs.Normalize()

	if err := s.deps.Directory.SavePreferences(r.Context(), id, prefs); err != nil {
		s.logger.Error("saving preferences", "subscriber", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save preferences")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "notifications": prefs})
}

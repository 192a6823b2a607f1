package http

import (
	"net/http"
	"strings"
)

// Preferences are stored in one shared file; keys are namespaced per user
// so devices of different users never see each other's settings.
func prefKey(userID, key string) string {
	return userID + ":" + key
}

func (s *Server) handleListPrefs(w http.ResponseWriter, r *http.Request) {
	prefix := session(r).UserID + ":"

	out := make(map[string]string)
	for _, key := range s.prefs.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if v, ok := s.prefs.Get(key); ok {
			out[strings.TrimPrefix(key, prefix)] = v
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type prefRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleSetPref(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing preference key")
		return
	}

	var in prefRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := session(r).UserID
	var err error
	if in.Value == "" {
		err = s.prefs.Delete(prefKey(userID, key))
	} else {
		err = s.prefs.Set(prefKey(userID, key), in.Value)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

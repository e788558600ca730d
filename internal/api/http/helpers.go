package http

import (
	"encoding/json"
	"net/http"

	"github.com/fe-learning/felearn/internal/auth"
	"github.com/fe-learning/felearn/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sessionOf resolves the caller's session from the JWT subject.
func sessionOf(r *http.Request, mgr *session.Manager) (*session.Session, bool) {
	name, ok := auth.UserName(r.Context())
	if !ok || name == "" {
		return nil, false
	}
	return mgr.Get(name), true
}

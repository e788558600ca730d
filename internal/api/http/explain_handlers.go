package http

import (
	"encoding/json"
	"net/http"

	"github.com/fe-learning/felearn/internal/auth"
	"github.com/fe-learning/felearn/internal/catalog"
	"github.com/fe-learning/felearn/internal/explain"
)

// ExplainHandler serves (and caches) one explanation. The question payload
// comes from the review page the user is looking at, so the answer text is
// available even when the catalog has since changed.
func ExplainHandler(svc *explain.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := auth.UserName(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		var req struct {
			CourseID string           `json:"course_id"`
			QuizSet  string           `json:"quiz_set"`
			Question catalog.Question `json:"question"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.Question.Question == "" {
			writeError(w, http.StatusBadRequest, "question required")
			return
		}
		text, err := svc.Explain(r.Context(), name, req.CourseID, req.QuizSet, req.Question)
		if err != nil {
			writeError(w, http.StatusBadGateway, "could not generate explanation: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"explanation_key": explain.Key(req.CourseID, req.QuizSet, req.Question.ID),
			"explanation":     text,
		})
	}
}

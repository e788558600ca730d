package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fe-learning/felearn/internal/auth"
	"github.com/fe-learning/felearn/internal/catalog"
	"github.com/fe-learning/felearn/internal/session"
)

// LoginHandler names the user, queues the deferred user-creation write and
// hands back a token. The user row is only inserted on the next render pass.
func LoginHandler(a *auth.AuthService, mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserName string `json:"user_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.UserName == "" {
			writeError(w, http.StatusBadRequest, "user_name required")
			return
		}
		s := mgr.Get(req.UserName)
		mgr.Login(s, req.UserName)
		tok, err := a.IssueJWT(req.UserName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "issue token")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": tok,
			"route":        s.CurrentRoute(),
		})
	}
}

// RenderHandler is the render checkpoint: it drains the pending-action slot
// exactly once, then reports the page state for the resolved route.
func RenderHandler(mgr *session.Manager, bank *catalog.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionOf(r, mgr)
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		view, effectErr := mgr.Render(r.Context(), s)

		page := map[string]any{"route": view.Route, "user_name": view.UserName}
		if effectErr != nil {
			page["warning"] = effectErr.Error()
		}

		switch view.Route {
		case session.RouteQuiz:
			cat := bank.Snapshot()
			courses := make([]string, 0, len(cat.Courses))
			for _, c := range cat.Courses {
				courses = append(courses, c.ID)
			}
			page["courses"] = courses
			page["current_course"] = view.CurrentCourse
			page["current_quiz_set"] = view.CurrentQuizSet
			page["questions"] = publicQuestions(view.Questions)
			if bank.Empty() {
				page["notice"] = "No quiz data found. Please upload a quiz data file."
			}
		case session.RouteResult:
			page["course_id"] = view.CurrentCourse
			page["quiz_set"] = view.CurrentQuizSet
			page["score"] = view.Score
			page["questions"] = view.Questions
			page["user_answers"] = view.UserAnswers
		case session.RouteHistory:
			page["history"] = summaries(view.HistoryCache)
		case session.RouteHistoryView:
			page["entry"] = view.HistoryCache[view.HistoryViewIdx]
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func StartQuizHandler(mgr *session.Manager, bank *catalog.Bank, now nowFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionOf(r, mgr)
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		var req struct {
			CourseID string `json:"course_id"`
			QuizSet  string `json:"quiz_set"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		course, ok := bank.Snapshot().Course(req.CourseID)
		if !ok {
			writeError(w, http.StatusNotFound, "course data not found")
			return
		}
		set, ok := course.QuizSet(catalog.SetID(req.QuizSet))
		if !ok {
			writeError(w, http.StatusNotFound, "quiz data not found")
			return
		}
		s.StartQuiz(req.CourseID, req.QuizSet, set.Questions, now())
		writeJSON(w, http.StatusOK, map[string]any{
			"route":     s.CurrentRoute(),
			"questions": publicQuestions(set.Questions),
		})
	}
}

// SaveAnswersHandler records choices keyed by question id. Keys arrive as
// text because that is how they are stored in history entries.
func SaveAnswersHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionOf(r, mgr)
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		var req struct {
			Answers map[string][]string `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		for idText, keys := range req.Answers {
			id, err := strconv.Atoi(idText)
			if err != nil {
				continue
			}
			s.RecordAnswer(id, keys)
		}
		writeJSON(w, http.StatusOK, map[string]any{"route": s.CurrentRoute()})
	}
}

func SubmitQuizHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionOf(r, mgr)
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		queued := s.SubmitQuiz()
		writeJSON(w, http.StatusOK, map[string]any{"route": s.CurrentRoute(), "queued": queued})
	}
}

func RetakeHandler(mgr *session.Manager, now nowFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionOf(r, mgr)
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		s.Retake(now())
		writeJSON(w, http.StatusOK, map[string]any{"route": s.CurrentRoute()})
	}
}

func ClearHistoryHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionOf(r, mgr)
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		queued := s.ClearHistory()
		writeJSON(w, http.StatusOK, map[string]any{"route": s.CurrentRoute(), "queued": queued})
	}
}

func ViewHistoryHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionOf(r, mgr)
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		var req struct {
			Index int `json:"index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		s.ViewHistory(req.Index)
		writeJSON(w, http.StatusOK, map[string]any{"route": s.CurrentRoute()})
	}
}

func BackToHistoryHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionOf(r, mgr)
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		s.BackToHistory()
		writeJSON(w, http.StatusOK, map[string]any{"route": s.CurrentRoute()})
	}
}

func NavigateHandler(mgr *session.Manager) http.HandlerFunc {
	valid := map[session.Route]bool{
		session.RouteQuiz:    true,
		session.RouteHistory: true,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionOf(r, mgr)
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		var req struct {
			Route session.Route `json:"route"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if !valid[req.Route] {
			writeError(w, http.StatusBadRequest, "invalid route")
			return
		}
		s.Navigate(req.Route)
		writeJSON(w, http.StatusOK, map[string]any{"route": s.CurrentRoute()})
	}
}

// publicQuestions strips answer keys before serving a live quiz, the same
// way the attempt snapshot keeps them for review afterwards.
func publicQuestions(qs []catalog.Question) []catalog.Question {
	out := append([]catalog.Question(nil), qs...)
	for i := range out {
		out[i].Answer = ""
		out[i].AnswerNumber = nil
	}
	return out
}

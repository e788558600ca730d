package http

import (
	"net/http"
	"time"

	"github.com/fe-learning/felearn/internal/history"
	"github.com/fe-learning/felearn/internal/session"
)

type historySummary struct {
	Index    int     `json:"index"`
	UserName string  `json:"user_name"`
	CourseID string  `json:"course_id"`
	QuizSet  string  `json:"quiz_set"`
	Score    float64 `json:"score"`
	DateTime string  `json:"date_time"`
	Duration string  `json:"duration"`
}

func summaries(entries []history.Entry) []historySummary {
	out := make([]historySummary, 0, len(entries))
	for i, e := range entries {
		out = append(out, historySummary{
			Index:    i,
			UserName: e.UserName,
			CourseID: e.CourseID,
			QuizSet:  e.QuizSet,
			Score:    e.Score,
			DateTime: e.DateTime.Format(time.DateTime),
			Duration: e.Duration,
		})
	}
	return out
}

// ListHistoryHandler reloads fresh rows from the store. The list spans all
// users on purpose; filters narrow it per query.
func ListHistoryHandler(mgr *session.Manager, store history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionOf(r, mgr)
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		f := history.Filter{
			UserName: r.URL.Query().Get("user"),
			CourseID: r.URL.Query().Get("course"),
			QuizSet:  r.URL.Query().Get("quiz_set"),
		}
		entries, err := store.Search(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "history unavailable: "+err.Error())
			return
		}
		// An unfiltered reload refreshes the session's view-index base.
		if f == (history.Filter{}) {
			s.SetHistoryCache(entries)
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": summaries(entries)})
	}
}

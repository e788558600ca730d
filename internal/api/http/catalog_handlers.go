package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fe-learning/felearn/internal/catalog"
	"github.com/fe-learning/felearn/internal/importer"
)

// GetCatalogHandler lists the course tree without question bodies.
func GetCatalogHandler(bank *catalog.Bank) http.HandlerFunc {
	type setInfo struct {
		QuizSet       string `json:"quiz_set"`
		QuestionCount int    `json:"question_count"`
	}
	type courseInfo struct {
		CourseID string    `json:"course_ID"`
		QuizSets []setInfo `json:"quiz_sets"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		cat := bank.Snapshot()
		out := make([]courseInfo, 0, len(cat.Courses))
		for _, c := range cat.Courses {
			ci := courseInfo{CourseID: c.ID, QuizSets: []setInfo{}}
			for _, qs := range c.QuizSets {
				ci.QuizSets = append(ci.QuizSets, setInfo{
					QuizSet:       qs.Name.String(),
					QuestionCount: len(qs.Questions),
				})
			}
			out = append(out, ci)
		}
		writeJSON(w, http.StatusOK, map[string]any{"course_ID": out})
	}
}

// UploadCatalogHandler replaces the whole data file with the documented
// envelope. Anything unparseable is rejected with no state change.
func UploadCatalogHandler(bank *catalog.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body")
			return
		}
		var cat catalog.Catalog
		if err := json.Unmarshal(buf, &cat); err != nil {
			writeError(w, http.StatusBadRequest, "invalid catalog document: "+err.Error())
			return
		}
		if err := bank.Replace(&cat); err != nil {
			writeError(w, http.StatusInternalServerError, "save catalog: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"courses": len(cat.Courses)})
	}
}

// ImportQuestionsHandler runs the best-effort normalizer against an uploaded
// document and appends whatever it accepts to one quiz set.
func ImportQuestionsHandler(bank *catalog.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		quizSet := chi.URLParam(r, "quizSet")
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body")
			return
		}
		imported := 0
		err = bank.Update(func(c *catalog.Catalog) error {
			course, ok := c.Course(courseID)
			if !ok {
				return catalog.ErrCourseNotFound
			}
			set, ok := course.QuizSet(catalog.SetID(quizSet))
			if !ok {
				return catalog.ErrSetNotFound
			}
			n, err := importer.ImportQuestions(buf, set)
			imported = n
			return err
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
	}
}

// ImportCoursesHandler appends whole course records verbatim.
func ImportCoursesHandler(bank *catalog.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body")
			return
		}
		imported := 0
		err = bank.Update(func(c *catalog.Catalog) error {
			n, err := importer.ImportCourses(buf, c)
			imported = n
			return err
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
	}
}

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// OptionKeys is the full set of option labels a question may carry.
var OptionKeys = []string{"A", "B", "C", "D"}

var (
	ErrCourseExists   = errors.New("course already exists")
	ErrCourseNotFound = errors.New("course not found")
	ErrSetNotFound    = errors.New("quiz set not found")
)

type Question struct {
	ID       int               `json:"id"`
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Answer   string            `json:"answer"`
	// AnswerNumber holds the option keys of the correct answer(s).
	AnswerNumber []string `json:"answer_number"`
}

// QuizSet keeps its identifier as raw JSON so both string and numeric set
// names round-trip unchanged through the data file.
type QuizSet struct {
	Name      SetID      `json:"quiz_set"`
	Questions []Question `json:"questions"`
}

type Course struct {
	ID       string    `json:"course_ID"`
	QuizSets []QuizSet `json:"quiz_sets"`
}

type Catalog struct {
	Courses []Course `json:"course_ID"`
}

// SetID is a quiz-set identifier: a JSON string or number.
type SetID string

func (s SetID) String() string { return string(s) }

func (s *SetID) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		*s = SetID(x)
	case float64:
		if x == float64(int64(x)) {
			*s = SetID(fmt.Sprintf("%d", int64(x)))
		} else {
			*s = SetID(fmt.Sprintf("%g", x))
		}
	default:
		return fmt.Errorf("quiz_set: unsupported identifier %T", v)
	}
	return nil
}

func (s SetID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// Load reads the catalog file. A missing file is not an error: callers get an
// empty catalog and degrade to the "no data" state.
func Load(path string) (*Catalog, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{}, nil
		}
		return &Catalog{}, err
	}
	var c Catalog
	if err := json.Unmarshal(buf, &c); err != nil {
		return &Catalog{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

func Save(path string, c *Catalog) error {
	buf, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(buf, '\n'), 0o644)
}

func (c *Catalog) Course(id string) (*Course, bool) {
	for i := range c.Courses {
		if c.Courses[i].ID == id {
			return &c.Courses[i], true
		}
	}
	return nil, false
}

func (c *Catalog) AddCourse(id string) (*Course, error) {
	if id == "" {
		return nil, errors.New("course id required")
	}
	if _, ok := c.Course(id); ok {
		return nil, ErrCourseExists
	}
	c.Courses = append(c.Courses, Course{ID: id, QuizSets: []QuizSet{}})
	return &c.Courses[len(c.Courses)-1], nil
}

func (c *Catalog) RenameCourse(oldID, newID string) error {
	if newID == "" {
		return errors.New("course id required")
	}
	if oldID != newID {
		if _, ok := c.Course(newID); ok {
			return ErrCourseExists
		}
	}
	co, ok := c.Course(oldID)
	if !ok {
		return ErrCourseNotFound
	}
	co.ID = newID
	return nil
}

func (c *Catalog) DeleteCourse(id string) error {
	for i := range c.Courses {
		if c.Courses[i].ID == id {
			c.Courses = append(c.Courses[:i], c.Courses[i+1:]...)
			return nil
		}
	}
	return ErrCourseNotFound
}

func (co *Course) QuizSet(name SetID) (*QuizSet, bool) {
	for i := range co.QuizSets {
		if co.QuizSets[i].Name == name {
			return &co.QuizSets[i], true
		}
	}
	return nil, false
}

func (co *Course) AddQuizSet(name SetID) (*QuizSet, error) {
	if name == "" {
		return nil, errors.New("quiz set name required")
	}
	if _, ok := co.QuizSet(name); ok {
		return nil, fmt.Errorf("quiz set %q already exists", name)
	}
	co.QuizSets = append(co.QuizSets, QuizSet{Name: name, Questions: []Question{}})
	return &co.QuizSets[len(co.QuizSets)-1], nil
}

func (co *Course) DeleteQuizSet(name SetID) error {
	for i := range co.QuizSets {
		if co.QuizSets[i].Name == name {
			co.QuizSets = append(co.QuizSets[:i], co.QuizSets[i+1:]...)
			return nil
		}
	}
	return ErrSetNotFound
}

// NextQuestionID returns max(id)+1 across the set, never below 1.
func (qs *QuizSet) NextQuestionID() int {
	next := 1
	for _, q := range qs.Questions {
		if q.ID >= next {
			next = q.ID + 1
		}
	}
	return next
}

func (qs *QuizSet) Question(id int) (*Question, bool) {
	for i := range qs.Questions {
		if qs.Questions[i].ID == id {
			return &qs.Questions[i], true
		}
	}
	return nil, false
}

func (qs *QuizSet) AddQuestion(q Question) error {
	if err := ValidateQuestion(q); err != nil {
		return err
	}
	if _, ok := qs.Question(q.ID); ok {
		return fmt.Errorf("question id %d already exists", q.ID)
	}
	qs.Questions = append(qs.Questions, q)
	return nil
}

func (qs *QuizSet) ReplaceQuestion(id int, q Question) error {
	if err := ValidateQuestion(q); err != nil {
		return err
	}
	if q.ID != id {
		if _, ok := qs.Question(q.ID); ok {
			return fmt.Errorf("question id %d already exists", q.ID)
		}
	}
	old, ok := qs.Question(id)
	if !ok {
		return fmt.Errorf("question %d not found", id)
	}
	*old = q
	return nil
}

func (qs *QuizSet) DeleteQuestion(id int) error {
	for i := range qs.Questions {
		if qs.Questions[i].ID == id {
			qs.Questions = append(qs.Questions[:i], qs.Questions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("question %d not found", id)
}

// ValidateQuestion enforces the manual-edit invariants. The importer is
// deliberately looser; see the importer package.
func ValidateQuestion(q Question) error {
	if q.ID <= 0 {
		return errors.New("question id must be positive")
	}
	if q.Question == "" {
		return errors.New("question text required")
	}
	if len(q.Options) == 0 {
		return errors.New("at least one option required")
	}
	for k := range q.Options {
		if !validOptionKey(k) {
			return fmt.Errorf("invalid option key %q", k)
		}
	}
	if len(q.AnswerNumber) == 0 {
		return errors.New("at least one answer letter required")
	}
	for _, k := range q.AnswerNumber {
		if _, ok := q.Options[k]; !ok {
			return fmt.Errorf("answer letter %q has no option", k)
		}
	}
	return nil
}

func validOptionKey(k string) bool {
	for _, v := range OptionKeys {
		if v == k {
			return true
		}
	}
	return false
}

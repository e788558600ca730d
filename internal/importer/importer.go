// Package importer converts loosely-structured question JSON into the
// canonical catalog shape. It is best-effort by design: a question that
// cannot be coerced is skipped, never fatal.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fe-learning/felearn/internal/catalog"
)

var (
	ErrNoQuestions = errors.New("no valid questions found")
	ErrNoCourses   = errors.New("no valid course data found")
)

// probe pulls one field of the canonical question out of a raw record,
// reporting whether it applied. Probes run in order; first success wins.
type probe func(raw map[string]any, q *catalog.Question) bool

var questionTextProbes = []probe{
	textField("question"),
	textField("text"),
	textField("title"),
	textField("prompt"),
}

func textField(name string) probe {
	return func(raw map[string]any, q *catalog.Question) bool {
		s, ok := stringValue(raw[name])
		if !ok || s == "" {
			return false
		}
		q.Question = s
		return true
	}
}

// Normalize coerces one externally-supplied record into a canonical question.
// nextID is used when the record carries no usable id of its own; the second
// return value reports whether the record was accepted at all.
func Normalize(raw map[string]any, nextID int) (catalog.Question, bool) {
	var q catalog.Question

	if !runProbes(questionTextProbes, raw, &q) {
		return catalog.Question{}, false
	}

	// An id field that is present but not a number invalidates the whole
	// record; only an absent id falls back to the assigned one.
	q.ID = nextID
	if v, ok := raw["id"]; ok {
		n, ok := intValue(v)
		if !ok {
			return catalog.Question{}, false
		}
		q.ID = n
	}

	q.Options = extractOptions(raw)
	if len(q.Options) == 0 {
		return catalog.Question{}, false
	}

	answer, ok := extractAnswer(raw, q.Options)
	if !ok {
		return catalog.Question{}, false
	}
	q.Answer = answer

	q.AnswerNumber = extractAnswerKeys(raw, q.Options, q.Answer)
	return q, true
}

func runProbes(ps []probe, raw map[string]any, q *catalog.Question) bool {
	for _, p := range ps {
		if p(raw, q) {
			return true
		}
	}
	return false
}

func extractOptions(raw map[string]any) map[string]string {
	opts := map[string]string{}
	switch v := raw["options"].(type) {
	case map[string]any:
		for _, key := range catalog.OptionKeys {
			if o, ok := v[key]; ok {
				opts[key], _ = stringValue(o)
			}
		}
	case []any:
		for i, o := range v {
			if i >= len(catalog.OptionKeys) {
				break
			}
			key := catalog.OptionKeys[i]
			if m, ok := o.(map[string]any); ok {
				if t, ok := stringValue(m["text"]); ok {
					opts[key] = t
					continue
				}
			}
			opts[key], _ = stringValue(o)
		}
	default:
		for _, key := range catalog.OptionKeys {
			if o, ok := raw["option_"+strings.ToLower(key)]; ok {
				opts[key], _ = stringValue(o)
			}
		}
	}
	return opts
}

func extractAnswer(raw map[string]any, opts map[string]string) (string, bool) {
	for _, field := range []string{"answer", "correct_answer", "solution", "correct"} {
		if v, ok := raw[field]; ok {
			s, _ := stringValue(v)
			return s, true
		}
	}
	// No answer text anywhere: derive one from an answer-key field. The
	// canonical answer_number resolves to the keyed option's text; the
	// letter-flavored foreign fields only name a letter, so the answer
	// becomes "Option <key>".
	if v, ok := raw["answer_number"]; ok {
		key, ok := firstKey(v)
		if !ok {
			return "", false
		}
		if text, ok := opts[key]; ok {
			return text, true
		}
		return "Option " + key, true
	}
	for _, field := range []string{"correct_option", "correct_letter", "answer_key"} {
		v, ok := raw[field]
		if !ok {
			continue
		}
		key, ok := firstKey(v)
		if !ok {
			return "", false
		}
		return "Option " + key, true
	}
	return "", false
}

func extractAnswerKeys(raw map[string]any, opts map[string]string, answer string) []string {
	for _, field := range []string{"answer_number", "correct_option", "correct_letter", "answer_key"} {
		if v, ok := raw[field]; ok {
			if keys := keyList(v); len(keys) > 0 {
				return keys
			}
		}
	}
	// Match the resolved answer text against option texts; first hit wins.
	for _, key := range catalog.OptionKeys {
		if text, ok := opts[key]; ok && text == answer {
			return []string{key}
		}
	}
	return []string{"A"}
}

// ImportQuestions appends every recognizable question in data to dst,
// assigning ids after the set's current maximum. It accepts a bare array,
// a {"questions": [...]} wrapper, a full nested catalog, or a single
// question object. Only the accepted count is reported; individual rejects
// are silent.
func ImportQuestions(data []byte, dst *catalog.QuizSet) (int, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse import file: %w", err)
	}

	var records []map[string]any
	switch v := root.(type) {
	case []any:
		records = objectsOf(v)
	case map[string]any:
		if qs, ok := v["questions"].([]any); ok {
			records = objectsOf(qs)
		} else if _, ok := v["course_ID"]; ok {
			records = nestedQuestions(v)
			if len(records) == 0 {
				return 0, ErrNoQuestions
			}
		} else {
			records = []map[string]any{v}
		}
	default:
		return 0, errors.New("unsupported import document")
	}

	nextID := dst.NextQuestionID()
	imported := 0
	for _, rec := range records {
		q, ok := Normalize(rec, nextID)
		if !ok {
			continue
		}
		// An explicit id that collides with a question already in the set
		// gets the next free id instead of producing a duplicate.
		if q.ID != nextID {
			if _, taken := dst.Question(q.ID); taken {
				q.ID = nextID
			}
		}
		dst.Questions = append(dst.Questions, q)
		if q.ID == nextID {
			nextID++
			for {
				if _, taken := dst.Question(nextID); !taken {
					break
				}
				nextID++
			}
		}
		imported++
	}
	if imported == 0 {
		return 0, ErrNoQuestions
	}
	return imported, nil
}

// ImportCourses appends whole course records verbatim. No per-question
// normalization happens in this mode; a course only needs an identifier and
// a quiz-set list to qualify.
func ImportCourses(data []byte, dst *catalog.Catalog) (int, error) {
	var doc struct {
		Courses []json.RawMessage `json:"course_ID"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse import file: %w", err)
	}
	if doc.Courses == nil {
		return 0, ErrNoCourses
	}
	imported := 0
	for _, rawCourse := range doc.Courses {
		var probe map[string]any
		if err := json.Unmarshal(rawCourse, &probe); err != nil {
			continue
		}
		if _, ok := probe["course_ID"]; !ok {
			continue
		}
		if _, ok := probe["quiz_sets"]; !ok {
			continue
		}
		var course catalog.Course
		if err := json.Unmarshal(rawCourse, &course); err != nil {
			continue
		}
		dst.Courses = append(dst.Courses, course)
		imported++
	}
	if imported == 0 {
		return 0, ErrNoCourses
	}
	return imported, nil
}

func nestedQuestions(doc map[string]any) []map[string]any {
	var out []map[string]any
	courses, _ := doc["course_ID"].([]any)
	for _, c := range courses {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		sets, _ := cm["quiz_sets"].([]any)
		for _, s := range sets {
			sm, ok := s.(map[string]any)
			if !ok {
				continue
			}
			qs, _ := sm["questions"].([]any)
			out = append(out, objectsOf(qs)...)
		}
	}
	return out
}

func objectsOf(v []any) []map[string]any {
	out := make([]map[string]any, 0, len(v))
	for _, e := range v {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return fmt.Sprintf("%v", x), true
	}
}

func intValue(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// firstKey extracts the first option key from a scalar or list value.
func firstKey(v any) (string, bool) {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return "", false
		}
		v = list[0]
	}
	s, ok := stringValue(v)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func keyList(v any) []string {
	if list, ok := v.([]any); ok {
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := stringValue(e); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := stringValue(v); ok && s != "" {
		return []string{s}
	}
	return nil
}

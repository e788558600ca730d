package importer

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/fe-learning/felearn/internal/catalog"
)

func record(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("bad test record: %v", err)
	}
	return m
}

func TestNormalizeOptionListWithCorrectOption(t *testing.T) {
	q, ok := Normalize(record(t, `{"question":"2+2?","options":["3","4","5","6"],"correct_option":"B"}`), 7)
	if !ok {
		t.Fatalf("expected record to be accepted")
	}
	if q.ID != 7 {
		t.Fatalf("expected assigned id 7, got %d", q.ID)
	}
	if q.Question != "2+2?" {
		t.Fatalf("unexpected question text %q", q.Question)
	}
	wantOpts := map[string]string{"A": "3", "B": "4", "C": "5", "D": "6"}
	if !reflect.DeepEqual(q.Options, wantOpts) {
		t.Fatalf("unexpected options %v", q.Options)
	}
	if q.Answer != "Option B" {
		t.Fatalf("expected answer %q, got %q", "Option B", q.Answer)
	}
	if !reflect.DeepEqual(q.AnswerNumber, []string{"B"}) {
		t.Fatalf("unexpected answer keys %v", q.AnswerNumber)
	}
}

func TestNormalizeFlatOptionFieldsWithAnswerKey(t *testing.T) {
	q, ok := Normalize(record(t, `{"text":"Capital of France","option_a":"Paris","option_b":"Lyon","answer_key":"A"}`), 1)
	if !ok {
		t.Fatalf("expected record to be accepted")
	}
	if q.Question != "Capital of France" {
		t.Fatalf("text field not used, got %q", q.Question)
	}
	wantOpts := map[string]string{"A": "Paris", "B": "Lyon"}
	if !reflect.DeepEqual(q.Options, wantOpts) {
		t.Fatalf("unexpected options %v", q.Options)
	}
	if q.Answer != "Option A" {
		t.Fatalf("expected answer %q, got %q", "Option A", q.Answer)
	}
	if !reflect.DeepEqual(q.AnswerNumber, []string{"A"}) {
		t.Fatalf("unexpected answer keys %v", q.AnswerNumber)
	}
}

func TestNormalizeAnswerFallbackOptionText(t *testing.T) {
	q, ok := Normalize(record(t, `{"prompt":"Pick","options":{"A":"left","B":"right"},"answer_number":["B"]}`), 1)
	if !ok {
		t.Fatalf("expected record to be accepted")
	}
	if q.Answer != "right" {
		t.Fatalf("expected answer text from keyed option, got %q", q.Answer)
	}
	if !reflect.DeepEqual(q.AnswerNumber, []string{"B"}) {
		t.Fatalf("unexpected answer keys %v", q.AnswerNumber)
	}
}

func TestNormalizeAnswerKeyMissingFromOptions(t *testing.T) {
	q, ok := Normalize(record(t, `{"question":"x","options":{"A":"one"},"correct_option":"C"}`), 1)
	if !ok {
		t.Fatalf("expected record to be accepted")
	}
	if q.Answer != "Option C" {
		t.Fatalf("expected literal fallback, got %q", q.Answer)
	}
}

func TestNormalizeMatchesAnswerTextToOption(t *testing.T) {
	q, ok := Normalize(record(t, `{"question":"q","options":{"A":"cat","B":"dog"},"answer":"dog"}`), 1)
	if !ok {
		t.Fatalf("expected record to be accepted")
	}
	if !reflect.DeepEqual(q.AnswerNumber, []string{"B"}) {
		t.Fatalf("expected key matched from answer text, got %v", q.AnswerNumber)
	}
}

func TestNormalizeDefaultsToA(t *testing.T) {
	q, ok := Normalize(record(t, `{"question":"q","options":{"A":"cat","B":"dog"},"answer":"fish"}`), 1)
	if !ok {
		t.Fatalf("expected record to be accepted")
	}
	if !reflect.DeepEqual(q.AnswerNumber, []string{"A"}) {
		t.Fatalf("expected default [A], got %v", q.AnswerNumber)
	}
}

func TestNormalizeRejections(t *testing.T) {
	cases := map[string]string{
		"no question text": `{"options":{"A":"x"},"answer":"x"}`,
		"no options":       `{"question":"q","answer":"x"}`,
		"no answer at all": `{"question":"q","options":{"A":"x"}}`,
	}
	for name, raw := range cases {
		if _, ok := Normalize(record(t, raw), 1); ok {
			t.Errorf("%s: expected rejection", name)
		}
	}
}

func TestNormalizeScalarKeyAndExplicitID(t *testing.T) {
	q, ok := Normalize(record(t, `{"id":"42","title":"t","options":{"A":"x"},"answer":"x","answer_number":"A"}`), 5)
	if !ok {
		t.Fatalf("expected record to be accepted")
	}
	if q.ID != 42 {
		t.Fatalf("expected id coerced to 42, got %d", q.ID)
	}
	if !reflect.DeepEqual(q.AnswerNumber, []string{"A"}) {
		t.Fatalf("scalar key not normalized to list: %v", q.AnswerNumber)
	}
}

func TestNormalizeSameRecordTwiceDiffersOnlyInID(t *testing.T) {
	raw := record(t, `{"question":"q","options":{"A":"x","B":"y"},"answer":"y"}`)
	q1, ok1 := Normalize(raw, 1)
	q2, ok2 := Normalize(raw, 2)
	if !ok1 || !ok2 {
		t.Fatalf("expected both records to be accepted")
	}
	q2.ID = q1.ID
	if !reflect.DeepEqual(q1, q2) {
		t.Fatalf("records differ beyond id: %+v vs %+v", q1, q2)
	}
}

func TestImportQuestionsBareArraySkipsBadRecords(t *testing.T) {
	set := &catalog.QuizSet{Name: "1"}
	data := []byte(`[
		{"question":"good one","options":{"A":"x"},"answer":"x"},
		{"options":{"A":"x"},"answer":"x"},
		{"question":"good two","options":["a","b"],"correct_option":"A"}
	]`)
	n, err := ImportQuestions(data, set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported, got %d", n)
	}
	if len(set.Questions) != 2 {
		t.Fatalf("expected 2 questions appended, got %d", len(set.Questions))
	}
	if set.Questions[0].ID != 1 || set.Questions[1].ID != 2 {
		t.Fatalf("unexpected assigned ids %d, %d", set.Questions[0].ID, set.Questions[1].ID)
	}
}

func TestImportQuestionsWrapperAndNestedEnvelopes(t *testing.T) {
	wrapper := []byte(`{"questions":[{"question":"w","options":{"A":"x"},"answer":"x"}]}`)
	nested := []byte(`{"course_ID":[{"course_ID":"C1","quiz_sets":[{"quiz_set":1,"questions":[
		{"question":"n1","options":{"A":"x"},"answer":"x"},
		{"question":"n2","options":{"A":"x"},"answer":"x"}
	]}]}]}`)

	set := &catalog.QuizSet{Name: "1"}
	if n, err := ImportQuestions(wrapper, set); err != nil || n != 1 {
		t.Fatalf("wrapper import: n=%d err=%v", n, err)
	}
	if n, err := ImportQuestions(nested, set); err != nil || n != 2 {
		t.Fatalf("nested import: n=%d err=%v", n, err)
	}
	if len(set.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(set.Questions))
	}
}

func TestImportQuestionsSingleObject(t *testing.T) {
	set := &catalog.QuizSet{Name: "1"}
	n, err := ImportQuestions([]byte(`{"question":"solo","options":{"A":"x"},"answer":"x"}`), set)
	if err != nil || n != 1 {
		t.Fatalf("single import: n=%d err=%v", n, err)
	}
}

func TestImportQuestionsExplicitIDDoesNotAdvanceCounter(t *testing.T) {
	set := &catalog.QuizSet{Name: "1"}
	data := []byte(`[
		{"id":100,"question":"a","options":{"A":"x"},"answer":"x"},
		{"question":"b","options":{"A":"x"},"answer":"x"}
	]`)
	if _, err := ImportQuestions(data, set); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Questions[0].ID != 100 {
		t.Fatalf("explicit id lost: %d", set.Questions[0].ID)
	}
	// The counter was not consumed by the explicit id.
	if set.Questions[1].ID != 1 {
		t.Fatalf("expected next free id 1, got %d", set.Questions[1].ID)
	}
}

func TestNormalizeRejectsNonNumericID(t *testing.T) {
	if _, ok := Normalize(record(t, `{"id":"abc","question":"q","options":{"A":"x"},"answer":"x"}`), 1); ok {
		t.Fatalf("expected rejection for non-numeric id")
	}
}

func TestImportQuestionsSkipsRecordWithBadID(t *testing.T) {
	set := &catalog.QuizSet{Name: "1"}
	data := []byte(`[
		{"id":"abc","question":"bad id","options":{"A":"x"},"answer":"x"},
		{"question":"good","options":{"A":"x"},"answer":"x"}
	]`)
	n, err := ImportQuestions(data, set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || len(set.Questions) != 1 || set.Questions[0].Question != "good" {
		t.Fatalf("bad-id record not skipped: n=%d %+v", n, set.Questions)
	}
}

func TestImportQuestionsReassignsConflictingID(t *testing.T) {
	set := &catalog.QuizSet{Name: "1", Questions: []catalog.Question{
		{ID: 1, Question: "existing", Options: map[string]string{"A": "x"}, Answer: "x", AnswerNumber: []string{"A"}},
	}}
	data := []byte(`[{"id":1,"question":"clash","options":{"A":"x"},"answer":"x"}]`)
	if _, err := ImportQuestions(data, set); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(set.Questions))
	}
	if set.Questions[1].ID != 2 {
		t.Fatalf("conflicting id not reassigned to next free, got %d", set.Questions[1].ID)
	}
	seen := map[int]bool{}
	for _, q := range set.Questions {
		if seen[q.ID] {
			t.Fatalf("duplicate id %d in set", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestImportQuestionsCounterSkipsExplicitIDs(t *testing.T) {
	set := &catalog.QuizSet{Name: "1"}
	data := []byte(`[
		{"id":2,"question":"explicit","options":{"A":"x"},"answer":"x"},
		{"question":"auto one","options":{"A":"x"},"answer":"x"},
		{"question":"auto two","options":{"A":"x"},"answer":"x"}
	]`)
	if _, err := ImportQuestions(data, set); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := []int{set.Questions[0].ID, set.Questions[1].ID, set.Questions[2].ID}
	// The auto counter steps over the explicitly-claimed id 2.
	if ids[0] != 2 || ids[1] != 1 || ids[2] != 3 {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestImportQuestionsMalformedDocument(t *testing.T) {
	set := &catalog.QuizSet{Name: "1"}
	if _, err := ImportQuestions([]byte(`{nope`), set); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ImportQuestions([]byte(`[{"options":{"A":"x"}}]`), set); err == nil {
		t.Fatalf("expected no-questions error")
	}
	if len(set.Questions) != 0 {
		t.Fatalf("failed import mutated the set")
	}
}

func TestImportCoursesVerbatim(t *testing.T) {
	cat := &catalog.Catalog{}
	data := []byte(`{"course_ID":[
		{"course_ID":"CPV301","quiz_sets":[{"quiz_set":1,"questions":[]}]},
		{"course_ID":"missing sets"},
		{"quiz_sets":[]}
	]}`)
	n, err := ImportCourses(data, cat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 course, got %d", n)
	}
	if cat.Courses[0].ID != "CPV301" {
		t.Fatalf("unexpected course %q", cat.Courses[0].ID)
	}
}

func TestImportCoursesRejectsNonCatalog(t *testing.T) {
	cat := &catalog.Catalog{}
	if _, err := ImportCourses([]byte(`{"questions":[]}`), cat); err == nil {
		t.Fatalf("expected error for document without course data")
	}
}

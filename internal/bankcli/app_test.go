package bankcli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fe-learning/felearn/internal/catalog"
)

func runScript(t *testing.T, dataPath string, lines ...string) string {
	t.Helper()
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	app, err := New(dataPath, in, &out)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestScriptedCourseAndQuestionEditing(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "data.json")

	out := runScript(t, dataPath,
		"add-course CPV301",
		"add-set CPV301 1",
		"add-question CPV301 1",
		"",        // keep suggested id 1
		"2+2?",    // question text
		"3",       // option A
		"4",       // option B
		"",        // no option C
		"",        // no option D
		"B",       // answer letters
		"",        // answer text defaults from the selected option
		"save",
		"quit",
	)
	if !strings.Contains(out, "question added") {
		t.Fatalf("question was not added:\n%s", out)
	}

	cat, err := catalog.Load(dataPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	course, ok := cat.Course("CPV301")
	if !ok {
		t.Fatalf("course not persisted")
	}
	set, ok := course.QuizSet("1")
	if !ok {
		t.Fatalf("quiz set not persisted")
	}
	if len(set.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(set.Questions))
	}
	q := set.Questions[0]
	if q.ID != 1 || q.Question != "2+2?" {
		t.Fatalf("unexpected question %+v", q)
	}
	if q.Answer != "4" {
		t.Fatalf("answer text not defaulted from selected option: %q", q.Answer)
	}
	if len(q.AnswerNumber) != 1 || q.AnswerNumber[0] != "B" {
		t.Fatalf("unexpected answer letters %v", q.AnswerNumber)
	}
}

func TestScriptedImport(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.json")
	importPath := filepath.Join(dir, "incoming.json")
	importJSON := `[
		{"question":"good","options":{"A":"x"},"answer":"x"},
		{"options":{"A":"x"},"answer":"x"}
	]`
	if err := os.WriteFile(importPath, []byte(importJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, dataPath,
		"add-course C1",
		"add-set C1 1",
		"import C1 1 "+importPath,
		"save",
		"quit",
	)
	if !strings.Contains(out, "imported 1 questions") {
		t.Fatalf("import summary missing:\n%s", out)
	}

	cat, err := catalog.Load(dataPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	course, _ := cat.Course("C1")
	set, _ := course.QuizSet("1")
	if len(set.Questions) != 1 || set.Questions[0].Question != "good" {
		t.Fatalf("imported question not persisted: %+v", set.Questions)
	}
}

func TestQuitWithoutSavingDiscardsChanges(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "data.json")
	runScript(t, dataPath,
		"add-course C1",
		"quit",
		"n", // decline the save-before-exit prompt
	)
	if _, err := os.Stat(dataPath); !os.IsNotExist(err) {
		t.Fatalf("declined save still wrote the file")
	}
}

func TestUnknownCommandIsReported(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "data.json")
	out := runScript(t, dataPath, "frobnicate", "quit")
	if !strings.Contains(out, `unknown command "frobnicate"`) {
		t.Fatalf("missing unknown-command notice:\n%s", out)
	}
}

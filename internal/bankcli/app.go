// Package bankcli is the maintainer's question-bank manager: a terminal
// front end over the catalog model for hand-editing courses, quiz sets and
// questions, and for running the loose-format importer.
package bankcli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fe-learning/felearn/internal/catalog"
	"github.com/fe-learning/felearn/internal/importer"
)

type App struct {
	path string
	cat  *catalog.Catalog
	in   *bufio.Reader
	out  io.Writer

	dirty bool
}

func New(path string, in io.Reader, out io.Writer) (*App, error) {
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	return &App{path: path, cat: cat, in: bufio.NewReader(in), out: out}, nil
}

func (a *App) Run() error {
	fmt.Fprintf(a.out, "Question bank manager — %s\n", a.path)
	a.printTree()
	for {
		fmt.Fprint(a.out, "\n> ")
		line, err := a.in.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return a.confirmExit()
			}
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "help":
			a.printHelp()
		case "tree", "ls":
			a.printTree()
		case "add-course":
			a.addCourse(args)
		case "rename-course":
			a.renameCourse(args)
		case "del-course":
			a.deleteCourse(args)
		case "add-set":
			a.addQuizSet(args)
		case "del-set":
			a.deleteQuizSet(args)
		case "add-question":
			a.addQuestion(args)
		case "edit-question":
			a.editQuestion(args)
		case "del-question":
			a.deleteQuestion(args)
		case "import":
			a.importQuestions(args)
		case "import-courses":
			a.importCourses(args)
		case "save":
			a.save()
		case "quit", "exit":
			return a.confirmExit()
		default:
			fmt.Fprintf(a.out, "unknown command %q (try help)\n", cmd)
		}
	}
}

func (a *App) printHelp() {
	fmt.Fprint(a.out, `commands:
  tree                                  show the course tree
  add-course <id>                       add a course
  rename-course <old> <new>             rename a course
  del-course <id>                       delete a course
  add-set <course> <name>               add a quiz set
  del-set <course> <name>               delete a quiz set
  add-question <course> <set>           add a question (prompts follow)
  edit-question <course> <set> <id>     edit a question (prompts follow)
  del-question <course> <set> <id>      delete a question
  import <course> <set> <file>          import questions (best effort)
  import-courses <file>                 import whole courses
  save                                  write the data file
  quit                                  exit
`)
}

func (a *App) printTree() {
	if len(a.cat.Courses) == 0 {
		fmt.Fprintln(a.out, "(no data)")
		return
	}
	for _, c := range a.cat.Courses {
		fmt.Fprintf(a.out, "%s\n", c.ID)
		for _, qs := range c.QuizSets {
			fmt.Fprintf(a.out, "  %s (%d questions)\n", qs.Name, len(qs.Questions))
		}
	}
}

func (a *App) addCourse(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: add-course <id>")
		return
	}
	if _, err := a.cat.AddCourse(args[0]); err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	a.dirty = true
	fmt.Fprintln(a.out, "course added")
}

func (a *App) renameCourse(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "usage: rename-course <old> <new>")
		return
	}
	if err := a.cat.RenameCourse(args[0], args[1]); err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	a.dirty = true
	fmt.Fprintln(a.out, "course renamed")
}

func (a *App) deleteCourse(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: del-course <id>")
		return
	}
	if !a.confirm(fmt.Sprintf("delete course %s?", args[0])) {
		return
	}
	if err := a.cat.DeleteCourse(args[0]); err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	a.dirty = true
	fmt.Fprintln(a.out, "course deleted")
}

func (a *App) addQuizSet(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "usage: add-set <course> <name>")
		return
	}
	course, ok := a.cat.Course(args[0])
	if !ok {
		fmt.Fprintln(a.out, "error: course not found")
		return
	}
	if _, err := course.AddQuizSet(catalog.SetID(args[1])); err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	a.dirty = true
	fmt.Fprintln(a.out, "quiz set added")
}

func (a *App) deleteQuizSet(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "usage: del-set <course> <name>")
		return
	}
	course, ok := a.cat.Course(args[0])
	if !ok {
		fmt.Fprintln(a.out, "error: course not found")
		return
	}
	if !a.confirm(fmt.Sprintf("delete quiz set %s?", args[1])) {
		return
	}
	if err := course.DeleteQuizSet(catalog.SetID(args[1])); err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	a.dirty = true
	fmt.Fprintln(a.out, "quiz set deleted")
}

func (a *App) findSet(courseID, setName string) (*catalog.QuizSet, bool) {
	course, ok := a.cat.Course(courseID)
	if !ok {
		fmt.Fprintln(a.out, "error: course not found")
		return nil, false
	}
	set, ok := course.QuizSet(catalog.SetID(setName))
	if !ok {
		fmt.Fprintln(a.out, "error: quiz set not found")
		return nil, false
	}
	return set, true
}

func (a *App) addQuestion(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "usage: add-question <course> <set>")
		return
	}
	set, ok := a.findSet(args[0], args[1])
	if !ok {
		return
	}
	q, ok := a.promptQuestion(catalog.Question{ID: set.NextQuestionID()})
	if !ok {
		return
	}
	if err := set.AddQuestion(q); err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	a.dirty = true
	fmt.Fprintln(a.out, "question added")
}

func (a *App) editQuestion(args []string) {
	if len(args) != 3 {
		fmt.Fprintln(a.out, "usage: edit-question <course> <set> <id>")
		return
	}
	set, ok := a.findSet(args[0], args[1])
	if !ok {
		return
	}
	id, err := strconv.Atoi(args[2])
	if err != nil {
		fmt.Fprintln(a.out, "error: id must be a number")
		return
	}
	existing, ok := set.Question(id)
	if !ok {
		fmt.Fprintln(a.out, "error: question not found")
		return
	}
	q, ok := a.promptQuestion(*existing)
	if !ok {
		return
	}
	if err := set.ReplaceQuestion(id, q); err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	a.dirty = true
	fmt.Fprintln(a.out, "question updated")
}

func (a *App) deleteQuestion(args []string) {
	if len(args) != 3 {
		fmt.Fprintln(a.out, "usage: del-question <course> <set> <id>")
		return
	}
	set, ok := a.findSet(args[0], args[1])
	if !ok {
		return
	}
	id, err := strconv.Atoi(args[2])
	if err != nil {
		fmt.Fprintln(a.out, "error: id must be a number")
		return
	}
	if !a.confirm(fmt.Sprintf("delete question %d?", id)) {
		return
	}
	if err := set.DeleteQuestion(id); err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	a.dirty = true
	fmt.Fprintln(a.out, "question deleted")
}

// promptQuestion walks the per-field prompts. Empty input keeps the shown
// current value.
func (a *App) promptQuestion(base catalog.Question) (catalog.Question, bool) {
	q := base
	if q.Options == nil {
		q.Options = map[string]string{}
	}

	if v := a.prompt(fmt.Sprintf("id [%d]", q.ID)); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			fmt.Fprintln(a.out, "error: id must be a number")
			return catalog.Question{}, false
		}
		q.ID = id
	}
	if v := a.prompt(fmt.Sprintf("question [%s]", q.Question)); v != "" {
		q.Question = v
	}
	for _, key := range catalog.OptionKeys {
		if v := a.prompt(fmt.Sprintf("option %s [%s]", key, q.Options[key])); v != "" {
			q.Options[key] = v
		}
	}
	if v := a.prompt(fmt.Sprintf("answer letters, comma separated [%s]", strings.Join(q.AnswerNumber, ","))); v != "" {
		q.AnswerNumber = nil
		for _, part := range strings.Split(v, ",") {
			if s := strings.ToUpper(strings.TrimSpace(part)); s != "" {
				q.AnswerNumber = append(q.AnswerNumber, s)
			}
		}
	}
	// Default the answer text from the chosen options, as the editor's
	// "sync from selected" button does.
	def := q.Answer
	if def == "" {
		texts := make([]string, 0, len(q.AnswerNumber))
		for _, key := range q.AnswerNumber {
			texts = append(texts, q.Options[key])
		}
		def = strings.Join(texts, " / ")
	}
	if v := a.prompt(fmt.Sprintf("answer text [%s]", def)); v != "" {
		q.Answer = v
	} else {
		q.Answer = def
	}

	if err := catalog.ValidateQuestion(q); err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return catalog.Question{}, false
	}
	return q, true
}

func (a *App) importQuestions(args []string) {
	if len(args) != 3 {
		fmt.Fprintln(a.out, "usage: import <course> <set> <file>")
		return
	}
	set, ok := a.findSet(args[0], args[1])
	if !ok {
		return
	}
	buf, err := os.ReadFile(args[2])
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	n, err := importer.ImportQuestions(buf, set)
	if err != nil {
		fmt.Fprintf(a.out, "import failed: %v\n", err)
		return
	}
	a.dirty = true
	fmt.Fprintf(a.out, "imported %d questions\n", n)
}

func (a *App) importCourses(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: import-courses <file>")
		return
	}
	buf, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	n, err := importer.ImportCourses(buf, a.cat)
	if err != nil {
		fmt.Fprintf(a.out, "import failed: %v\n", err)
		return
	}
	a.dirty = true
	fmt.Fprintf(a.out, "imported %d courses\n", n)
}

func (a *App) save() {
	if err := catalog.Save(a.path, a.cat); err != nil {
		fmt.Fprintf(a.out, "save failed: %v\n", err)
		return
	}
	a.dirty = false
	fmt.Fprintln(a.out, "saved")
}

func (a *App) confirmExit() error {
	if a.dirty && a.confirm("unsaved changes, save before exit?") {
		a.save()
	}
	return nil
}

func (a *App) prompt(label string) string {
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func (a *App) confirm(label string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

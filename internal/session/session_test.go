package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fe-learning/felearn/internal/catalog"
	"github.com/fe-learning/felearn/internal/history"
)

type fakeUsers struct {
	ensured []string
}

func (f *fakeUsers) Ensure(_ context.Context, name string) error {
	f.ensured = append(f.ensured, name)
	return nil
}

func threeQuestions() []catalog.Question {
	return []catalog.Question{
		{ID: 1, Question: "q1", Options: map[string]string{"A": "x", "B": "y"}, Answer: "x", AnswerNumber: []string{"A"}},
		{ID: 2, Question: "q2", Options: map[string]string{"A": "x", "B": "y"}, Answer: "x / y", AnswerNumber: []string{"A", "B"}},
		{ID: 3, Question: "q3", Options: map[string]string{"A": "x", "B": "y"}, Answer: "y", AnswerNumber: []string{"B"}},
	}
}

func newTestManager() (*Manager, *fakeUsers, history.Store) {
	hist := history.NewInMemoryStore()
	us := &fakeUsers{}
	m := NewManager(hist, us)
	return m, us, hist
}

func TestScoreOrderInsensitiveAndRounded(t *testing.T) {
	qs := threeQuestions()
	answers := map[int][]string{
		1: {"A"},
		2: {"B", "A"}, // reversed order still correct
		// question 3 unanswered
	}
	got := Score(qs, answers)
	if got != 66.67 {
		t.Fatalf("expected score 66.67, got %v", got)
	}
}

func TestScoreEmptyQuiz(t *testing.T) {
	if got := Score(nil, nil); got != 0 {
		t.Fatalf("expected 0 for empty quiz, got %v", got)
	}
}

func TestScoreWrongSubsetNotCounted(t *testing.T) {
	qs := threeQuestions()
	// Choosing only one key of a multi-answer question is wrong.
	got := Score(qs, map[int][]string{2: {"A"}})
	if got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestSubmitQuizAtMostOnce(t *testing.T) {
	m, _, hist := newTestManager()
	s := m.Get("alice")
	m.Login(s, "alice")
	if _, err := m.Render(context.Background(), s); err != nil {
		t.Fatalf("render after login: %v", err)
	}

	s.StartQuiz("CPV301", "1", threeQuestions(), time.Now())
	s.RecordAnswer(1, []string{"A"})

	// Two rapid gestures before the checkpoint runs.
	if !s.SubmitQuiz() {
		t.Fatalf("first submit should queue")
	}
	if s.SubmitQuiz() {
		t.Fatalf("second submit must be dropped while slot is occupied")
	}

	v, err := m.Render(context.Background(), s)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if v.Route != RouteResult {
		t.Fatalf("expected result route, got %q", v.Route)
	}

	entries, _ := hist.List(context.Background())
	if len(entries) != 1 {
		t.Fatalf("expected exactly one history record, got %d", len(entries))
	}
	e := entries[0]
	if e.UserName != "alice" || e.CourseID != "CPV301" || e.QuizSet != "1" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Score != 33.33 {
		t.Fatalf("expected score 33.33, got %v", e.Score)
	}
	if e.TotalQuestions != 3 {
		t.Fatalf("expected 3 questions, got %d", e.TotalQuestions)
	}
	if len(e.Questions) != 3 {
		t.Fatalf("expected denormalized question copy, got %d", len(e.Questions))
	}
	if got := e.UserAnswers["1"]; len(got) != 1 || got[0] != "A" {
		t.Fatalf("answers not keyed by id text: %v", e.UserAnswers)
	}
}

func TestLoginDefersUserCreation(t *testing.T) {
	m, us, _ := newTestManager()
	s := m.Get("bob")
	if !m.Login(s, "bob") {
		t.Fatalf("login should queue user creation")
	}
	if len(us.ensured) != 0 {
		t.Fatalf("user creation ran before the render checkpoint")
	}
	if _, err := m.Render(context.Background(), s); err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(us.ensured) != 1 || us.ensured[0] != "bob" {
		t.Fatalf("expected one deferred creation for bob, got %v", us.ensured)
	}
	// A second render pass must not repeat the effect.
	if _, err := m.Render(context.Background(), s); err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(us.ensured) != 1 {
		t.Fatalf("effect ran twice: %v", us.ensured)
	}
}

func TestClearHistoryOnlyOwnUser(t *testing.T) {
	m, _, hist := newTestManager()
	ctx := context.Background()
	seed := func(user string) {
		_ = hist.Add(ctx, history.Entry{UserName: user, CourseID: "C", QuizSet: "1", DateTime: time.Now()})
	}
	seed("alice")
	seed("bob")
	seed("alice")

	s := m.Get("alice")
	m.Login(s, "alice")
	if _, err := m.Render(ctx, s); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !s.ClearHistory() {
		t.Fatalf("clear should queue")
	}
	if _, err := m.Render(ctx, s); err != nil {
		t.Fatalf("render: %v", err)
	}

	entries, _ := hist.List(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected only bob's entry to remain, got %d", len(entries))
	}
	if entries[0].UserName != "bob" {
		t.Fatalf("bob's history was touched: %+v", entries[0])
	}
}

func TestHistoryViewOutOfRangeRedirects(t *testing.T) {
	m, _, _ := newTestManager()
	s := m.Get("alice")
	m.Login(s, "alice")
	if _, err := m.Render(context.Background(), s); err != nil {
		t.Fatalf("render: %v", err)
	}

	s.ViewHistory(5) // nothing loaded yet
	v, err := m.Render(context.Background(), s)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if v.Route != RouteHistory {
		t.Fatalf("expected redirect to history, got %q", v.Route)
	}
}

func TestRetakeResetsAttemptState(t *testing.T) {
	m, _, _ := newTestManager()
	s := m.Get("alice")
	m.Login(s, "alice")
	s.StartQuiz("C", "1", threeQuestions(), time.Unix(100, 0))
	s.RecordAnswer(1, []string{"A"})

	s.Retake(time.Unix(200, 0))
	if len(s.UserAnswers) != 0 {
		t.Fatalf("answers not cleared")
	}
	if !s.QuizStart.Equal(time.Unix(200, 0)) {
		t.Fatalf("start time not reset")
	}
	if s.Route != RouteQuiz {
		t.Fatalf("expected quiz route, got %q", s.Route)
	}
}

// Meant for the race detector: concurrent requests from the same user must
// not corrupt session state or crash on the shared answers map.
func TestConcurrentSessionAccess(t *testing.T) {
	m, _, _ := newTestManager()
	ctx := context.Background()
	s := m.Get("alice")
	m.Login(s, "alice")
	if _, err := m.Render(ctx, s); err != nil {
		t.Fatalf("render: %v", err)
	}
	s.StartQuiz("C", "1", threeQuestions(), time.Now())

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.RecordAnswer(1, []string{"A"})
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				if v, _ := m.Render(ctx, s); v.Route == "" {
					t.Error("render produced empty route")
					return
				}
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.SubmitQuiz()
				s.Retake(time.Now())
			}
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestQueueDropsSecondActionUnderContention(t *testing.T) {
	s := &Session{}
	var wg sync.WaitGroup
	queued := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queued <- s.Queue(PendingAction{Kind: ActionClearHistory})
		}()
	}
	wg.Wait()
	close(queued)
	wins := 0
	for ok := range queued {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one gesture to claim the slot, got %d", wins)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{0, "0s"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.in); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

// Package session holds the per-user quiz state machine. Side-effecting
// gestures never run inline: handlers queue a pending action and the effect
// executes once at the start of the next render pass.
package session

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/fe-learning/felearn/internal/catalog"
	"github.com/fe-learning/felearn/internal/history"
)

type Route string

const (
	RouteLogin       Route = "login"
	RouteQuiz        Route = "quiz"
	RouteResult      Route = "result"
	RouteHistory     Route = "history"
	RouteHistoryView Route = "history_view"
)

type ActionKind string

const (
	ActionCreateUser   ActionKind = "create_user"
	ActionSubmitQuiz   ActionKind = "submit_quiz"
	ActionClearHistory ActionKind = "clear_history"
)

// PendingAction is the deferred side effect queued by a gesture handler.
type PendingAction struct {
	Kind ActionKind

	// submit_quiz payload
	Questions []catalog.Question
	CourseID  string
	QuizSet   string
}

// UserStore is the slice of the user registry the state machine needs.
type UserStore interface {
	Ensure(ctx context.Context, name string) error
}

// Session is one user's state. Concurrent requests carrying the same token
// land on the same session, so every method takes the session lock; direct
// field access is only safe single-threaded (tests).
type Session struct {
	mu sync.Mutex

	Route         Route
	UserName      string
	Authenticated bool

	CurrentCourse  string
	CurrentQuizSet string
	Questions      []catalog.Question
	UserAnswers    map[int][]string
	QuizStart      time.Time

	Score          float64
	HistoryCache   []history.Entry
	HistoryViewIdx int // -1 when unset

	pending *PendingAction
}

// View is a detached copy of session state taken at the render checkpoint.
// Handlers read it freely while later requests keep mutating the session.
type View struct {
	Route          Route
	UserName       string
	CurrentCourse  string
	CurrentQuizSet string
	Questions      []catalog.Question
	UserAnswers    map[int][]string
	Score          float64
	HistoryCache   []history.Entry
	HistoryViewIdx int
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	history history.Store
	users   UserStore
	now     func() time.Time
}

func NewManager(hist history.Store, users UserStore) *Manager {
	return &Manager{
		sessions: map[string]*Session{},
		history:  hist,
		users:    users,
		now:      time.Now,
	}
}

// Get returns the session for a token subject, creating it at the login route.
func (m *Manager) Get(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		s = &Session{
			Route:          RouteLogin,
			UserAnswers:    map[int][]string{},
			HistoryViewIdx: -1,
			QuizStart:      m.now(),
		}
		m.sessions[key] = s
	}
	return s
}

// Queue places an action into the single pending slot. A second gesture
// arriving before the next render pass is dropped: the slot guarantees
// at-most-once execution per user intent.
func (s *Session) Queue(a PendingAction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue(a)
}

func (s *Session) queue(a PendingAction) bool {
	if s.pending != nil {
		return false
	}
	s.pending = &a
	return true
}

func (s *Session) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

func (s *Session) CurrentRoute() Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Route
}

// SetHistoryCache replaces the view-index base after an explicit reload.
func (s *Session) SetHistoryCache(entries []history.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HistoryCache = entries
}

// Render runs one render pass: drain the pending slot first, then resolve
// the route and snapshot the page state. Effect failures are reported but
// never abort the pass; prior state stays intact and the user may repeat
// the gesture. The session lock is held for the whole pass, so a pass and
// its effect are atomic with respect to other requests.
func (m *Manager) Render(ctx context.Context, s *Session) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var effectErr error
	if s.pending != nil {
		a := *s.pending
		s.pending = nil
		effectErr = m.execute(ctx, s, a)
		if effectErr != nil {
			log.Printf("session: %s failed: %v", a.Kind, effectErr)
		}
	}

	if s.Route == RouteHistoryView {
		if s.HistoryViewIdx < 0 || s.HistoryViewIdx >= len(s.HistoryCache) {
			s.Route = RouteHistory
		}
	}
	return s.view(), effectErr
}

// view builds the detached copy. Caller holds the lock. The answers map is
// copied because RecordAnswer keeps writing to the live one; slices are only
// ever replaced wholesale, so sharing their backing arrays is safe.
func (s *Session) view() View {
	answers := make(map[int][]string, len(s.UserAnswers))
	for id, keys := range s.UserAnswers {
		answers[id] = keys
	}
	return View{
		Route:          s.Route,
		UserName:       s.UserName,
		CurrentCourse:  s.CurrentCourse,
		CurrentQuizSet: s.CurrentQuizSet,
		Questions:      s.Questions,
		UserAnswers:    answers,
		Score:          s.Score,
		HistoryCache:   s.HistoryCache,
		HistoryViewIdx: s.HistoryViewIdx,
	}
}

func (m *Manager) execute(ctx context.Context, s *Session, a PendingAction) error {
	switch a.Kind {
	case ActionCreateUser:
		return m.users.Ensure(ctx, s.UserName)
	case ActionSubmitQuiz:
		return m.submitQuiz(ctx, s, a)
	case ActionClearHistory:
		if err := m.history.ClearUser(ctx, s.UserName); err != nil {
			return err
		}
		return m.reloadHistory(ctx, s)
	default:
		return fmt.Errorf("unknown pending action %q", a.Kind)
	}
}

func (m *Manager) submitQuiz(ctx context.Context, s *Session, a PendingAction) error {
	now := m.now()
	score := Score(a.Questions, s.UserAnswers)
	s.Score = score

	answers := make(map[string][]string, len(s.UserAnswers))
	for id, keys := range s.UserAnswers {
		answers[fmt.Sprintf("%d", id)] = keys
	}

	entry := history.Entry{
		UserName:       s.UserName,
		CourseID:       a.CourseID,
		QuizSet:        a.QuizSet,
		Score:          score,
		TotalQuestions: len(a.Questions),
		DateTime:       now,
		Duration:       FormatDuration(now.Sub(s.QuizStart)),
		UserAnswers:    answers,
		Questions:      a.Questions,
	}
	if err := m.history.Add(ctx, entry); err != nil {
		return err
	}
	return m.reloadHistory(ctx, s)
}

func (m *Manager) reloadHistory(ctx context.Context, s *Session) error {
	entries, err := m.history.List(ctx)
	if err != nil {
		return err
	}
	s.HistoryCache = entries
	return nil
}

// Login records the user and queues the deferred user-creation write.
func (m *Manager) Login(s *Session, name string) bool {
	if name == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserName = name
	s.Authenticated = true
	s.Route = RouteQuiz
	return s.queue(PendingAction{Kind: ActionCreateUser})
}

// StartQuiz binds a course/quiz-set pair and resets per-attempt state.
func (s *Session) StartQuiz(courseID, quizSet string, questions []catalog.Question, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentCourse = courseID
	s.CurrentQuizSet = quizSet
	s.Questions = questions
	s.UserAnswers = map[int][]string{}
	s.QuizStart = now
	s.Route = RouteQuiz
}

func (s *Session) RecordAnswer(questionID int, keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserAnswers[questionID] = keys
}

// SubmitQuiz queues the submission effect and routes to result. The write
// itself happens on the next render pass.
func (s *Session) SubmitQuiz() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.queue(PendingAction{
		Kind:      ActionSubmitQuiz,
		Questions: s.Questions,
		CourseID:  s.CurrentCourse,
		QuizSet:   s.CurrentQuizSet,
	})
	if ok {
		s.Route = RouteResult
	}
	return ok
}

func (s *Session) ClearHistory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.queue(PendingAction{Kind: ActionClearHistory})
	if ok {
		s.Route = RouteHistory
	}
	return ok
}

func (s *Session) ViewHistory(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HistoryViewIdx = index
	s.Route = RouteHistoryView
}

func (s *Session) BackToHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HistoryViewIdx = -1
	s.Route = RouteHistory
}

// Retake clears the attempt state and reopens the quiz.
func (s *Session) Retake(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserAnswers = map[int][]string{}
	s.QuizStart = now
	s.Route = RouteQuiz
}

func (s *Session) Navigate(r Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Route = r
}

// Score computes the percentage of questions whose chosen key set equals the
// answer key set, order-insensitive, rounded to two decimals. Zero questions
// score zero.
func Score(questions []catalog.Question, answers map[int][]string) float64 {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for _, q := range questions {
		if keysMatch(answers[q.ID], q.AnswerNumber) {
			correct++
		}
	}
	return round2(100 * float64(correct) / float64(len(questions)))
}

func keysMatch(chosen, key []string) bool {
	if len(chosen) == 0 || len(chosen) != len(key) {
		return false
	}
	a := append([]string(nil), chosen...)
	b := append([]string(nil), key...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatDuration renders an elapsed time as "1h 2m 3s", dropping leading
// zero units.
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	h := total / 3600
	mnt := (total % 3600) / 60
	sec := total % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, mnt, sec)
	case mnt > 0:
		return fmt.Sprintf("%dm %ds", mnt, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

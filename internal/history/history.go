// Package history records completed quiz attempts. Entries are immutable
// once written and carry a denormalized copy of the questions asked, so
// review stays reproducible even if the catalog changes later.
package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fe-learning/felearn/internal/catalog"
)

type Entry struct {
	ID             string              `json:"id,omitempty"`
	UserName       string              `json:"user_name"`
	CourseID       string              `json:"course_id"`
	QuizSet        string              `json:"quiz_set"`
	Score          float64             `json:"score"`
	TotalQuestions int                 `json:"total_questions"`
	DateTime       time.Time           `json:"date_time"`
	Duration       string              `json:"duration"`
	UserAnswers    map[string][]string `json:"user_answers"`
	Questions      []catalog.Question  `json:"questions"`
}

// Filter narrows a history listing. Empty fields match everything; the
// history list itself is shared across users by design.
type Filter struct {
	UserName string
	CourseID string
	QuizSet  string
}

func (f Filter) matches(e Entry) bool {
	if f.UserName != "" && e.UserName != f.UserName {
		return false
	}
	if f.CourseID != "" && e.CourseID != f.CourseID {
		return false
	}
	if f.QuizSet != "" && e.QuizSet != f.QuizSet {
		return false
	}
	return true
}

type Store interface {
	Add(ctx context.Context, e Entry) error
	// List returns every user's entries, newest first.
	List(ctx context.Context) ([]Entry, error)
	Search(ctx context.Context, f Filter) ([]Entry, error)
	// ClearUser deletes only the named user's entries.
	ClearUser(ctx context.Context, userName string) error
}

type memoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() Store { return &memoryStore{} }

func (m *memoryStore) Add(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryStore) List(ctx context.Context) ([]Entry, error) {
	return m.Search(ctx, Filter{})
}

func (m *memoryStore) Search(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateTime.After(out[j].DateTime) })
	return out, nil
}

func (m *memoryStore) ClearUser(_ context.Context, userName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.UserName != userName {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

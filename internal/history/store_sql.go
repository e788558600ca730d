package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SQLStore persists history rows in the quiz_history table with the answers
// and question snapshot JSON-encoded, same for sqlite and postgres.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Add(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	aj, err := json.Marshal(e.UserAnswers)
	if err != nil {
		return err
	}
	qj, err := json.Marshal(e.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quiz_history
		(id,user_name,course_id,quiz_set,score,total_questions,date_time,duration,user_answers,questions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.UserName, e.CourseID, e.QuizSet, e.Score, e.TotalQuestions,
		e.DateTime.UTC().Format(time.RFC3339), e.Duration, string(aj), string(qj))
	return err
}

func (s *SQLStore) List(ctx context.Context) ([]Entry, error) {
	return s.Search(ctx, Filter{})
}

func (s *SQLStore) Search(ctx context.Context, f Filter) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,user_name,course_id,quiz_set,score,total_questions,date_time,duration,user_answers,questions
		FROM quiz_history
		WHERE ($1 = '' OR user_name = $1)
		  AND ($2 = '' OR course_id = $2)
		  AND ($3 = '' OR quiz_set = $3)
		ORDER BY date_time DESC`,
		f.UserName, f.CourseID, f.QuizSet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var ts, aj, qj string
		if err := rows.Scan(&e.ID, &e.UserName, &e.CourseID, &e.QuizSet, &e.Score,
			&e.TotalQuestions, &ts, &e.Duration, &aj, &qj); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.DateTime = t
		}
		if err := json.Unmarshal([]byte(aj), &e.UserAnswers); err != nil {
			e.UserAnswers = map[string][]string{}
		}
		if err := json.Unmarshal([]byte(qj), &e.Questions); err != nil {
			e.Questions = nil
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) ClearUser(ctx context.Context, userName string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quiz_history WHERE user_name=$1`, userName)
	return err
}

package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:felearn.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/felearn?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_name TEXT NOT NULL UNIQUE,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_history (
  id TEXT PRIMARY KEY,
  user_name TEXT NOT NULL,
  course_id TEXT NOT NULL,
  quiz_set TEXT NOT NULL,
  score REAL NOT NULL,
  total_questions INTEGER NOT NULL,
  date_time TEXT NOT NULL,
  duration TEXT NOT NULL DEFAULT '',
  user_answers TEXT NOT NULL,
  questions TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS explanations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_name TEXT NOT NULL,
  explanation_key TEXT NOT NULL,
  explanation_text TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE(user_name, explanation_key)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  user_name TEXT NOT NULL UNIQUE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_history (
  id TEXT PRIMARY KEY,
  user_name TEXT NOT NULL,
  course_id TEXT NOT NULL,
  quiz_set TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  total_questions INTEGER NOT NULL,
  date_time TEXT NOT NULL,
  duration TEXT NOT NULL DEFAULT '',
  user_answers TEXT NOT NULL,
  questions TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS explanations (
  id BIGSERIAL PRIMARY KEY,
  user_name TEXT NOT NULL,
  explanation_key TEXT NOT NULL,
  explanation_text TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  UNIQUE(user_name, explanation_key)
);
`

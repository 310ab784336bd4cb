// Package progress keeps a history of Correct/Incorrect presses so a parent
// or tutor can see which sight words a learner struggles with.
package progress

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

type Attempt struct {
	SessionID string
	Word      string
	Outcome   Outcome
	At        time.Time
}

// Tally is the per-word attempt count.
type Tally struct {
	Word      string `json:"word"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
}

// Recorder stores attempts and reports tallies.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
	Tallies(ctx context.Context) ([]Tally, error)
	Close() error
}

// Store is the SQLite-backed Recorder.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate progress db: %w", err)
	}
	return &Store{db: db}, nil
}

// runMigrations applies the embedded migrations. The migrate instance is not
// closed because that would close db as well.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *Store) Record(ctx context.Context, a Attempt) error {
	switch a.Outcome {
	case OutcomeCorrect, OutcomeIncorrect:
	default:
		return fmt.Errorf("unknown outcome %q", a.Outcome)
	}
	if a.At.IsZero() {
		a.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (session_id, word, outcome, created_at) VALUES (?, ?, ?, ?)`,
		a.SessionID, a.Word, string(a.Outcome), a.At.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) Tallies(ctx context.Context) ([]Tally, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT word,
		       SUM(CASE WHEN outcome = 'correct' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN outcome = 'incorrect' THEN 1 ELSE 0 END)
		FROM attempts
		GROUP BY word
		ORDER BY word`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Tally{}
	for rows.Next() {
		var t Tally
		if err := rows.Scan(&t.Word, &t.Correct, &t.Incorrect); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Nop discards attempts. It is used when no progress database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Attempt) error { return nil }
func (Nop) Tallies(context.Context) ([]Tally, error) { return []Tally{}, nil }
func (Nop) Close() error { return nil }

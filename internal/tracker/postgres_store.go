package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresStore persists the prediction log in a table keyed by
// (symbol, date), for deployments where several instances must share one
// durable history.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS prediction_log (
	symbol      TEXT             NOT NULL,
	date        TEXT             NOT NULL,
	predicted   DOUBLE PRECISION NOT NULL,
	actual      DOUBLE PRECISION,
	target_date TEXT,
	verified    BOOLEAN          NOT NULL DEFAULT FALSE,
	PRIMARY KEY (symbol, date)
)`

// NewPostgresStore wraps an open connection and ensures the table exists.
func NewPostgresStore(db *sqlx.DB, timeout time.Duration) (*PostgresStore, error) {
	s := &PostgresStore{db: db, timeout: timeout}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("tracker postgres: ensure schema: %w", err)
	}
	return s, nil
}

// OpenPostgres connects via DSN and builds the store.
func OpenPostgres(dsn string, timeout time.Duration) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("tracker postgres: connect: %w", err)
	}
	return NewPostgresStore(db, timeout)
}

type entryRow struct {
	Date       string          `db:"date"`
	Predicted  float64         `db:"predicted"`
	Actual     sql.NullFloat64 `db:"actual"`
	TargetDate sql.NullString  `db:"target_date"`
	Verified   bool            `db:"verified"`
}

func (s *PostgresStore) History(ctx context.Context, symbol string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT date, predicted, actual, target_date, verified
		 FROM prediction_log WHERE symbol = $1 ORDER BY date`, symbol)
	if err != nil {
		return nil, fmt.Errorf("tracker postgres: history %s: %w", symbol, err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e := Entry{Date: r.Date, Predicted: r.Predicted, Verified: r.Verified}
		if r.Actual.Valid {
			v := r.Actual.Float64
			e.Actual = &v
		}
		if r.TargetDate.Valid {
			e.TargetDate = r.TargetDate.String
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Put upserts every entry; rows are never deleted, matching the append or
// update only contract.
func (s *PostgresStore) Put(ctx context.Context, symbol string, entries []Entry) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tracker postgres: begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		var actual sql.NullFloat64
		if e.Actual != nil {
			actual = sql.NullFloat64{Float64: *e.Actual, Valid: true}
		}
		var target sql.NullString
		if e.TargetDate != "" {
			target = sql.NullString{String: e.TargetDate, Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO prediction_log (symbol, date, predicted, actual, target_date, verified)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (symbol, date) DO UPDATE
			 SET predicted = EXCLUDED.predicted,
			     actual = EXCLUDED.actual,
			     target_date = EXCLUDED.target_date,
			     verified = EXCLUDED.verified`,
			symbol, e.Date, e.Predicted, actual, target, e.Verified)
		if err != nil {
			return fmt.Errorf("tracker postgres: upsert %s/%s: %w", symbol, e.Date, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tracker postgres: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

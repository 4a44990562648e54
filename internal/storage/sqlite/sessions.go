package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/freezer333/streaming-worker/internal/storage"
)

// InsertSessions batch-inserts terminated session records.
func (s *Store) InsertSessions(ctx context.Context, records []storage.SessionRecord) error {
	if len(records) == 0 {
		return nil
	}

	// cols must match the number of columns in the INSERT below.
	// Single multi-row INSERT avoids N round-trips for large batches.
	const cols = 8
	placeholders := make([]string, len(records))
	args := make([]any, 0, len(records)*cols)

	for i, r := range records {
		placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args,
			r.ID, r.Worker, r.Outcome, r.Error,
			r.MessagesIn, r.MessagesOut,
			r.StartedAt.UTC().Format(time.RFC3339),
			r.TerminatedAt.UTC().Format(time.RFC3339),
		)
	}

	query := `INSERT INTO session_records
		(id, worker, outcome, error, messages_in, messages_out, started_at, terminated_at)
		VALUES ` + strings.Join(placeholders, ", ")

	_, err := s.write.ExecContext(ctx, query, args...)
	return err
}

// GetSession returns a single session record by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*storage.SessionRecord, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT id, worker, outcome, error, messages_in, messages_out, started_at, terminated_at
		 FROM session_records WHERE id = ?`, id)
	r, err := scanSession(row)
	if err != nil {
		return nil, notFoundErr(err)
	}
	return r, nil
}

// QuerySessions returns session records matching the filter,
// newest first by termination time.
func (s *Store) QuerySessions(ctx context.Context, f storage.SessionFilter) ([]storage.SessionRecord, error) {
	where, args := sessionWhere(f)
	query := `SELECT id, worker, outcome, error, messages_in, messages_out, started_at, terminated_at
		FROM session_records` + where + ` ORDER BY terminated_at DESC LIMIT ? OFFSET ?`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.SessionRecord
	for rows.Next() {
		r, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CountSessions returns the count of session records matching the filter.
func (s *Store) CountSessions(ctx context.Context, f storage.SessionFilter) (int, error) {
	where, args := sessionWhere(f)
	var n int
	err := s.read.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_records`+where, args...,
	).Scan(&n)
	return n, err
}

// PruneSessions deletes records terminated before the cutoff and
// returns the number removed.
func (s *Store) PruneSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.write.ExecContext(ctx,
		`DELETE FROM session_records WHERE terminated_at < ?`,
		before.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func sessionWhere(f storage.SessionFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.Worker != "" {
		clauses = append(clauses, "worker = ?")
		args = append(args, f.Worker)
	}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if f.Since != "" {
		clauses = append(clauses, "terminated_at >= ?")
		args = append(args, f.Since)
	}
	if f.Until != "" {
		clauses = append(clauses, "terminated_at < ?")
		args = append(args, f.Until)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*storage.SessionRecord, error) {
	var r storage.SessionRecord
	var startedAt, terminatedAt string
	err := sc.Scan(
		&r.ID, &r.Worker, &r.Outcome, &r.Error,
		&r.MessagesIn, &r.MessagesOut,
		&startedAt, &terminatedAt,
	)
	if err != nil {
		return nil, err
	}
	if t, e := time.Parse(time.RFC3339, startedAt); e == nil {
		r.StartedAt = t
	}
	if t, e := time.Parse(time.RFC3339, terminatedAt); e == nil {
		r.TerminatedAt = t
	}
	return &r, nil
}

// notFoundErr translates sql.ErrNoRows to storage.ErrNotFound.
func notFoundErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

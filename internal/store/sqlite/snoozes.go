package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/breezemail/breeze/internal/store"
)

// SaveSnooze inserts or replaces the snooze schedule for a thread.
// Re-snoozing a thread overwrites the previous wake-up time and clears
// any prior unsnoozed marker.
func (s *DB) SaveSnooze(ctx context.Context, rec *store.SnoozeRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snoozes (account_id, thread_id, snooze_until, created_at, unsnoozed_at)
		 VALUES (?, ?, ?, ?, NULL)
		 ON CONFLICT(account_id, thread_id) DO UPDATE SET
		     snooze_until = excluded.snooze_until,
		     created_at   = excluded.created_at,
		     unsnoozed_at = NULL`,
		rec.AccountID, rec.ThreadID, rec.SnoozeUntil.UTC(), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snooze for thread %s: %w", rec.ThreadID, err)
	}
	return nil
}

// GetSnooze returns the snooze record for a thread, or (nil, nil) when
// the thread has no record.
func (s *DB) GetSnooze(ctx context.Context, accountID, threadID string) (*store.SnoozeRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT account_id, thread_id, snooze_until, created_at, unsnoozed_at
		 FROM snoozes WHERE account_id = ? AND thread_id = ?`,
		accountID, threadID,
	)
	rec, err := scanSnooze(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snooze for thread %s: %w", threadID, err)
	}
	return rec, nil
}

// ListSnoozed returns all pending snoozes for an account, soonest
// wake-up first.
func (s *DB) ListSnoozed(ctx context.Context, accountID string) ([]store.SnoozeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, thread_id, snooze_until, created_at, unsnoozed_at
		 FROM snoozes
		 WHERE account_id = ? AND unsnoozed_at IS NULL
		 ORDER BY snooze_until`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list snoozes: %w", err)
	}
	return collectSnoozes(rows)
}

// ListExpiredSnoozes returns pending snoozes whose wake-up time has
// passed. The caller is expected to move the threads back to the inbox
// and then mark the records unsnoozed.
func (s *DB) ListExpiredSnoozes(ctx context.Context, accountID string, now time.Time) ([]store.SnoozeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, thread_id, snooze_until, created_at, unsnoozed_at
		 FROM snoozes
		 WHERE account_id = ? AND unsnoozed_at IS NULL AND snooze_until <= ?
		 ORDER BY snooze_until`,
		accountID, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired snoozes: %w", err)
	}
	return collectSnoozes(rows)
}

// MarkUnsnoozed records that a thread has been returned to the inbox.
// The row is kept so the thread can show a recently-unsnoozed badge.
func (s *DB) MarkUnsnoozed(ctx context.Context, accountID, threadID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE snoozes SET unsnoozed_at = ? WHERE account_id = ? AND thread_id = ?`,
		at.UTC(), accountID, threadID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark thread %s unsnoozed: %w", threadID, err)
	}
	return nil
}

// ListRecentlyUnsnoozed returns IDs of threads unsnoozed at or after
// the given time.
func (s *DB) ListRecentlyUnsnoozed(ctx context.Context, accountID string, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT thread_id FROM snoozes
		 WHERE account_id = ? AND unsnoozed_at IS NOT NULL AND unsnoozed_at >= ?
		 ORDER BY unsnoozed_at`,
		accountID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recently unsnoozed threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan thread id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteSnooze removes a thread's snooze record entirely, e.g. after a
// manual unsnooze where no badge is wanted.
func (s *DB) DeleteSnooze(ctx context.Context, accountID, threadID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM snoozes WHERE account_id = ? AND thread_id = ?`,
		accountID, threadID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete snooze for thread %s: %w", threadID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnooze(row rowScanner) (*store.SnoozeRecord, error) {
	var rec store.SnoozeRecord
	var unsnoozed sql.NullTime
	if err := row.Scan(&rec.AccountID, &rec.ThreadID, &rec.SnoozeUntil, &rec.CreatedAt, &unsnoozed); err != nil {
		return nil, err
	}
	if unsnoozed.Valid {
		t := unsnoozed.Time
		rec.UnsnoozedAt = &t
	}
	return &rec, nil
}

func collectSnoozes(rows *sql.Rows) ([]store.SnoozeRecord, error) {
	defer rows.Close()

	var recs []store.SnoozeRecord
	for rows.Next() {
		rec, err := scanSnooze(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snooze: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

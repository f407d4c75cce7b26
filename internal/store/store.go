package store

import (
	"context"
	"time"

	"github.com/breezemail/breeze/internal/domain"
)

// Store defines the persistence interface for the application. Only
// durable state lives here: account registrations and snooze schedules.
// Thread lists are cached in memory and refetched from the provider;
// they are never persisted.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	// Snoozes. Gmail labels remain the membership truth for the
	// Snoozed folder; these records only carry the wake-up times.
	SaveSnooze(ctx context.Context, rec *SnoozeRecord) error
	GetSnooze(ctx context.Context, accountID, threadID string) (*SnoozeRecord, error)
	ListSnoozed(ctx context.Context, accountID string) ([]SnoozeRecord, error)
	ListExpiredSnoozes(ctx context.Context, accountID string, now time.Time) ([]SnoozeRecord, error)
	MarkUnsnoozed(ctx context.Context, accountID, threadID string, at time.Time) error
	ListRecentlyUnsnoozed(ctx context.Context, accountID string, since time.Time) ([]string, error)
	DeleteSnooze(ctx context.Context, accountID, threadID string) error

	// Lifecycle
	Close() error
}

// SnoozeRecord schedules a thread's return to the inbox. A record with
// a non-nil UnsnoozedAt has already been woken; it is retained so the
// thread can carry a recently-unsnoozed badge until the row is pruned.
type SnoozeRecord struct {
	AccountID   string
	ThreadID    string
	SnoozeUntil time.Time
	CreatedAt   time.Time
	UnsnoozedAt *time.Time
}

// Expired reports whether the snooze should have woken by now.
func (r *SnoozeRecord) Expired(now time.Time) bool {
	return r.UnsnoozedAt == nil && !r.SnoozeUntil.After(now)
}

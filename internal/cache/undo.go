package cache

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/breezemail/breeze/internal/domain"
)

// ErrUndoExpired is returned when undo is requested for an entry whose
// window already elapsed (or that was never tracked). The archive is
// permanent at that point; no compensating mutation may be issued.
var ErrUndoExpired = errors.New("action can no longer be undone")

// PendingUndo is a time-boxed, reversible record of a committed archive.
// Snapshot and Position hold the thread as it sat in the folder before
// removal, so undo can restore it exactly.
type PendingUndo struct {
	ID        string
	ThreadID  string
	Folder    domain.FolderID
	Label     string
	Snapshot  domain.Thread
	Position  int
	CreatedAt time.Time
	Duration  time.Duration
}

// ExpiresAt returns the instant the entry becomes permanent.
func (p PendingUndo) ExpiresAt() time.Time {
	return p.CreatedAt.Add(p.Duration)
}

// Remaining returns how much of the undo window is left at now.
func (p PendingUndo) Remaining(now time.Time) time.Duration {
	d := p.ExpiresAt().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// UndoLedger tracks archives that remain reversible for a fixed window.
// Expired entries are silently dropped; they never trigger a mutation.
type UndoLedger struct {
	mu      sync.Mutex
	entries []PendingUndo
	window  time.Duration
	now     func() time.Time
}

// NewUndoLedger creates a ledger whose entries expire after window.
func NewUndoLedger(window time.Duration) *UndoLedger {
	return &UndoLedger{window: window, now: time.Now}
}

// Add records a freshly committed archive and returns its ledger entry.
func (l *UndoLedger) Add(threadID string, folder domain.FolderID, label string, snapshot domain.Thread, position int) PendingUndo {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := PendingUndo{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Folder:    folder,
		Label:     label,
		Snapshot:  snapshot,
		Position:  position,
		CreatedAt: l.now(),
		Duration:  l.window,
	}
	l.entries = append(l.entries, e)
	return e
}

// Pending returns all non-expired entries, oldest first.
func (l *UndoLedger) Pending() []PendingUndo {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	out := make([]PendingUndo, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of pending entries.
func (l *UndoLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	return len(l.entries)
}

// Take removes and returns the entry if it is still pending. A request
// for an expired or unknown entry gets ErrUndoExpired: the caller must
// treat it as a no-op, never re-archive or double-unarchive.
func (l *UndoLedger) Take(id string) (PendingUndo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return e, nil
		}
	}
	return PendingUndo{}, ErrUndoExpired
}

// TakeAll removes and returns every pending entry for a batch undo.
func (l *UndoLedger) TakeAll() []PendingUndo {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	out := l.entries
	l.entries = nil
	return out
}

// Restore puts entries back into the ledger, preserving their original
// creation times. Used when a compensating mutation fails so the user's
// undo opportunity is not silently lost. The ledger is re-sorted so
// Pending stays oldest-first even after a partial batch undo.
func (l *UndoLedger) Restore(entries ...PendingUndo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].CreatedAt.Before(l.entries[j].CreatedAt)
	})
}

// Sweep drops expired entries and returns how many became permanent.
func (l *UndoLedger) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	before := len(l.entries)
	l.pruneLocked()
	return before - len(l.entries)
}

// Remaining reports the time left on the oldest pending entry, for the
// countdown display. ok is false when nothing is pending.
func (l *UndoLedger) Remaining() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	if len(l.entries) == 0 {
		return 0, false
	}
	oldest := l.entries[0]
	for _, e := range l.entries[1:] {
		if e.ExpiresAt().Before(oldest.ExpiresAt()) {
			oldest = e
		}
	}
	return oldest.Remaining(l.now()), true
}

// Reset drops all entries. Called at sign-out.
func (l *UndoLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

func (l *UndoLedger) pruneLocked() {
	now := l.now()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if now.Before(e.ExpiresAt()) {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}

package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/breezemail/breeze/internal/domain"
)

// Refresher periodically refetches the folder the user is looking at
// and runs the snooze/undo sweep. Refreshes for folders nobody is
// viewing are skipped; correctness never depends on this loop, since a
// stale entry is refetched on the next read anyway.
type Refresher struct {
	s        *Session
	interval time.Duration

	mu       sync.Mutex
	visible  domain.FolderID
	paused   bool
	inflight map[domain.FolderID]bool
}

// NewRefresher wires a refresher to a session.
func NewRefresher(s *Session, interval time.Duration) *Refresher {
	return &Refresher{
		s:        s,
		interval: interval,
		visible:  domain.FolderInbox,
		inflight: make(map[domain.FolderID]bool),
	}
}

// SetVisible records which folder the user is currently viewing.
func (r *Refresher) SetVisible(f domain.FolderID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = f
}

// Pause stops background refreshes, e.g. while a composer is open.
// The sweep keeps running so snoozes still wake on time.
func (r *Refresher) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// Resume re-enables background refreshes.
func (r *Refresher) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
}

// Run blocks, ticking until the context is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one refresh cycle. The fetch happens in a goroutine so a
// slow network never delays the next sweep; a second refresh of the
// same folder is skipped while one is in flight. User-forced refreshes
// do not go through this guard and are safe regardless, because stale
// responses are rejected by the cache's generation check.
func (r *Refresher) tick(ctx context.Context) {
	r.s.Sweep(ctx)

	r.mu.Lock()
	folder := r.visible
	if r.paused || r.inflight[folder] {
		r.mu.Unlock()
		return
	}
	r.inflight[folder] = true
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.inflight, folder)
			r.mu.Unlock()
		}()
		if _, err := r.s.Folder(ctx, folder, true); err != nil {
			log.Printf("[refresh] background refresh of %s failed: %v", folder, err)
		}
	}()
}

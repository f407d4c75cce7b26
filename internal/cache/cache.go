package cache

import (
	"log"
	"sync"
	"time"

	"github.com/breezemail/breeze/internal/domain"
)

// Freshness classifies a folder's cached state.
type Freshness int

const (
	Absent Freshness = iota
	Fresh
	Stale
)

// Entry is the cached view of a single folder: an ordered thread list,
// a continuation token for fetching more, and the time of the last full
// refresh. Pagination appends do not reset FetchedAt.
type Entry struct {
	Threads       []domain.Thread
	NextPageToken string
	FetchedAt     time.Time
}

// HasMore reports whether another page can be fetched.
func (e Entry) HasMore() bool { return e.NextPageToken != "" }

// FolderCache is the single source of truth for what the UI currently
// believes each folder contains. One instance per signed-in session,
// constructed at sign-in and Reset at sign-out.
//
// Every mutation advances the folder's generation counter. Async fetches
// capture the generation before going to the network and apply their
// result through SetIfCurrent / AppendPageIfCurrent, so a slow response
// can never clobber state established after it was requested.
type FolderCache struct {
	mu       sync.Mutex
	entries  map[domain.FolderID]*Entry
	gens     map[domain.FolderID]uint64
	epoch    uint64
	freshFor time.Duration
	now      func() time.Time
}

// NewFolderCache creates an empty cache whose entries count as fresh for
// the given window after a full refresh.
func NewFolderCache(freshFor time.Duration) *FolderCache {
	return &FolderCache{
		entries:  make(map[domain.FolderID]*Entry),
		gens:     make(map[domain.FolderID]uint64),
		freshFor: freshFor,
		now:      time.Now,
	}
}

// Get returns the cached entry for the folder regardless of age.
func (c *FolderCache) Get(folder domain.FolderID) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[folder]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// GetFresh returns the cached entry only if its last full refresh is
// within the freshness window.
func (c *FolderCache) GetFresh(folder domain.FolderID) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[folder]
	if !ok || c.now().Sub(e.FetchedAt) > c.freshFor {
		return Entry{}, false
	}
	return *e, true
}

// GetStale returns any cached entry regardless of age. Used to paint
// something immediately while a background refresh runs.
func (c *FolderCache) GetStale(folder domain.FolderID) (Entry, bool) {
	return c.Get(folder)
}

// Freshness classifies the folder's cached state for banner display.
func (c *FolderCache) Freshness(folder domain.FolderID) Freshness {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[folder]
	switch {
	case !ok:
		return Absent
	case c.now().Sub(e.FetchedAt) > c.freshFor:
		return Stale
	default:
		return Fresh
	}
}

// Generation returns the folder's current generation token. Capture it
// before starting an async fetch and pass it to SetIfCurrent. The token
// folds in a cache-wide epoch bumped by Reset, so a fetch started
// before sign-out never matches afterwards, even for a folder that had
// no entry yet.
func (c *FolderCache) Generation(folder domain.FolderID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.genLocked(folder)
}

func (c *FolderCache) genLocked(folder domain.FolderID) uint64 {
	return c.epoch<<32 | c.gens[folder]
}

// Set replaces the folder's entry wholesale (initial load or forced
// refresh) and stamps the fetch time.
func (c *FolderCache) Set(folder domain.FolderID, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(folder, entry)
}

// SetIfCurrent applies a fetched entry only if the folder's generation
// still matches gen. Returns false when the result is stale and was
// discarded.
func (c *FolderCache) SetIfCurrent(folder domain.FolderID, gen uint64, entry Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.genLocked(folder) != gen {
		log.Printf("[cache] discarding stale fetch for %s (gen %d, now %d)", folder, gen, c.genLocked(folder))
		return false
	}
	c.setLocked(folder, entry)
	return true
}

func (c *FolderCache) setLocked(folder domain.FolderID, entry Entry) {
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = c.now()
	}
	e := entry
	c.entries[folder] = &e
	c.gens[folder]++
}

// AppendPage appends a pagination page to the folder's entry and replaces
// the continuation token. Thread order is preserved; ids already present
// are skipped (first occurrence wins). FetchedAt is left untouched so the
// staleness clock still measures the last full refresh.
func (c *FolderCache) AppendPage(folder domain.FolderID, more []domain.Thread, nextToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendPageLocked(folder, more, nextToken)
}

// AppendPageIfCurrent is AppendPage guarded by a generation check, for
// load-more fetches that may resolve after the folder moved on.
func (c *FolderCache) AppendPageIfCurrent(folder domain.FolderID, gen uint64, more []domain.Thread, nextToken string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.genLocked(folder) != gen {
		log.Printf("[cache] discarding stale page for %s (gen %d, now %d)", folder, gen, c.genLocked(folder))
		return false
	}
	c.appendPageLocked(folder, more, nextToken)
	return true
}

func (c *FolderCache) appendPageLocked(folder domain.FolderID, more []domain.Thread, nextToken string) {
	e, ok := c.entries[folder]
	if !ok {
		return
	}
	seen := make(map[string]struct{}, len(e.Threads))
	for i := range e.Threads {
		seen[e.Threads[i].ID] = struct{}{}
	}
	for _, t := range more {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		e.Threads = append(e.Threads, t)
	}
	e.NextPageToken = nextToken
	c.gens[folder]++
}

// Invalidate drops the folder back to absent, forcing the next read to
// miss and trigger a real fetch.
func (c *FolderCache) Invalidate(folder domain.FolderID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[folder]; !ok {
		return
	}
	delete(c.entries, folder)
	c.gens[folder]++
}

// RemoveThread patches the folder's entry in place by filtering out one
// thread. Idempotent; a second call is a no-op. Returns the removed
// thread and its position so undo can restore it exactly.
func (c *FolderCache) RemoveThread(folder domain.FolderID, threadID string) (domain.Thread, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[folder]
	if !ok {
		return domain.Thread{}, 0, false
	}
	for i := range e.Threads {
		if e.Threads[i].ID == threadID {
			removed := e.Threads[i]
			e.Threads = append(e.Threads[:i:i], e.Threads[i+1:]...)
			c.gens[folder]++
			return removed, i, true
		}
	}
	return domain.Thread{}, 0, false
}

// InsertThread puts a thread back into a cached folder at the given
// position (clamped to the list bounds). No-op if the folder is not
// cached or the thread is already present.
func (c *FolderCache) InsertThread(folder domain.FolderID, thread domain.Thread, at int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[folder]
	if !ok {
		return false
	}
	for i := range e.Threads {
		if e.Threads[i].ID == thread.ID {
			return false
		}
	}
	if at < 0 {
		at = 0
	}
	if at > len(e.Threads) {
		at = len(e.Threads)
	}
	e.Threads = append(e.Threads, domain.Thread{})
	copy(e.Threads[at+1:], e.Threads[at:])
	e.Threads[at] = thread
	c.gens[folder]++
	return true
}

// UpdateThreadEverywhere applies fn to every cached occurrence of the
// thread across all folders. Folders not holding the thread are
// untouched; applying the same pure transformation twice yields the same
// state as applying it once.
func (c *FolderCache) UpdateThreadEverywhere(threadID string, fn func(*domain.Thread)) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	updated := 0
	for folder, e := range c.entries {
		for i := range e.Threads {
			if e.Threads[i].ID == threadID {
				fn(&e.Threads[i])
				c.gens[folder]++
				updated++
				break
			}
		}
	}
	return updated
}

// Reset clears all entries and generation counters. Called at sign-out.
// The epoch bump invalidates every token handed out before the reset,
// including ones for folders that were never cached, so no in-flight
// fetch can repopulate the cleared cache.
func (c *FolderCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[domain.FolderID]*Entry)
	c.gens = make(map[domain.FolderID]uint64)
	c.epoch++
}

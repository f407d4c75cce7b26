package cache

import (
	"sync"

	"github.com/breezemail/breeze/internal/domain"
)

// ThreadIndex maps thread id to the canonical latest-known thread data,
// regardless of which folders reference it. The index is advisory: a
// miss just means "fetch the thread from the network" and never blocks
// correctness.
type ThreadIndex struct {
	mu      sync.Mutex
	threads map[string]domain.Thread
}

// NewThreadIndex returns an empty index.
func NewThreadIndex() *ThreadIndex {
	return &ThreadIndex{threads: make(map[string]domain.Thread)}
}

// Put inserts or overwrites a thread by id.
func (ix *ThreadIndex) Put(t domain.Thread) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.threads[t.ID] = t
}

// PutMany inserts or overwrites a batch of threads.
func (ix *ThreadIndex) PutMany(threads []domain.Thread) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, t := range threads {
		ix.threads[t.ID] = t
	}
}

// Get returns the indexed thread, if known.
func (ix *ThreadIndex) Get(id string) (domain.Thread, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	t, ok := ix.threads[id]
	return t, ok
}

// Update applies fn to the indexed thread if present. Returns false on a
// miss, which callers treat as "nothing to patch".
func (ix *ThreadIndex) Update(id string, fn func(*domain.Thread)) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	t, ok := ix.threads[id]
	if !ok {
		return false
	}
	fn(&t)
	ix.threads[id] = t
	return true
}

// Len returns the number of indexed threads.
func (ix *ThreadIndex) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.threads)
}

// Reset clears the index. Called at sign-out.
func (ix *ThreadIndex) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.threads = make(map[string]domain.Thread)
}

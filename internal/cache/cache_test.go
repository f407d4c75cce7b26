package cache

import (
	"testing"
	"time"

	"github.com/breezemail/breeze/internal/domain"
)

func testThread(id string, labels ...string) domain.Thread {
	if labels == nil {
		labels = []string{domain.LabelInbox}
	}
	return domain.Thread{
		ID:      id,
		Subject: "Subject " + id,
		Labels:  labels,
		IsRead:  true,
	}
}

func entryOf(threads ...domain.Thread) Entry {
	return Entry{Threads: threads}
}

// fakeClock lets tests advance cache time deterministically.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(clock *fakeClock) *FolderCache {
	c := NewFolderCache(10 * time.Minute)
	c.now = clock.Now
	return c
}

func TestFolderCache_GetMissesWhenAbsent(t *testing.T) {
	c := newTestCache(newFakeClock())
	if _, ok := c.Get(domain.FolderInbox); ok {
		t.Error("expected miss on empty cache")
	}
	if got := c.Freshness(domain.FolderInbox); got != Absent {
		t.Errorf("Freshness = %v, want Absent", got)
	}
}

func TestFolderCache_FreshnessWindow(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)
	c.Set(domain.FolderInbox, entryOf(testThread("t1")))

	if _, ok := c.GetFresh(domain.FolderInbox); !ok {
		t.Fatal("expected fresh hit right after Set")
	}

	clock.Advance(11 * time.Minute)

	if _, ok := c.GetFresh(domain.FolderInbox); ok {
		t.Error("expected fresh miss after window elapsed")
	}
	if _, ok := c.GetStale(domain.FolderInbox); !ok {
		t.Error("expected stale hit after window elapsed")
	}
	if got := c.Freshness(domain.FolderInbox); got != Stale {
		t.Errorf("Freshness = %v, want Stale", got)
	}
}

func TestFolderCache_RemoveThread_Deterministic(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(domain.FolderInbox, entryOf(testThread("a"), testThread("b")))
	c.Set(domain.FolderStarred, entryOf(testThread("a")))

	removed, pos, ok := c.RemoveThread(domain.FolderInbox, "a")
	if !ok {
		t.Fatal("RemoveThread returned ok=false")
	}
	if removed.ID != "a" || pos != 0 {
		t.Errorf("removed %s at %d, want a at 0", removed.ID, pos)
	}

	inbox, _ := c.Get(domain.FolderInbox)
	if len(inbox.Threads) != 1 || inbox.Threads[0].ID != "b" {
		t.Errorf("inbox = %v, want [b]", threadIDs(inbox))
	}

	// Other cached folders are unaffected.
	starred, _ := c.Get(domain.FolderStarred)
	if len(starred.Threads) != 1 || starred.Threads[0].ID != "a" {
		t.Errorf("starred = %v, want [a]", threadIDs(starred))
	}
}

func TestFolderCache_RemoveThread_Idempotent(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(domain.FolderInbox, entryOf(testThread("a"), testThread("b")))

	c.RemoveThread(domain.FolderInbox, "a")
	gen := c.Generation(domain.FolderInbox)

	if _, _, ok := c.RemoveThread(domain.FolderInbox, "a"); ok {
		t.Error("second RemoveThread returned ok=true, want no-op")
	}
	if c.Generation(domain.FolderInbox) != gen {
		t.Error("no-op removal advanced the generation")
	}
	inbox, _ := c.Get(domain.FolderInbox)
	if len(inbox.Threads) != 1 || inbox.Threads[0].ID != "b" {
		t.Errorf("inbox = %v, want [b]", threadIDs(inbox))
	}
}

func TestFolderCache_UpdateThreadEverywhere(t *testing.T) {
	c := newTestCache(newFakeClock())
	unread := testThread("a")
	unread.IsRead = false
	c.Set(domain.FolderInbox, entryOf(unread, testThread("b")))
	c.Set(domain.FolderAll, entryOf(unread))
	c.Set(domain.FolderSent, entryOf(testThread("x")))

	n := c.UpdateThreadEverywhere("a", func(t *domain.Thread) {
		t.IsRead = true
	})
	if n != 2 {
		t.Errorf("updated %d folders, want 2", n)
	}

	// Cross-folder consistency: every cached copy agrees.
	for _, f := range []domain.FolderID{domain.FolderInbox, domain.FolderAll} {
		e, _ := c.Get(f)
		for _, th := range e.Threads {
			if th.ID == "a" && !th.IsRead {
				t.Errorf("thread a in %s still unread", f)
			}
		}
	}

	// Folders without the thread are untouched.
	sent, _ := c.Get(domain.FolderSent)
	if len(sent.Threads) != 1 || sent.Threads[0].ID != "x" {
		t.Errorf("sent = %v, want [x]", threadIDs(sent))
	}
}

func TestFolderCache_UpdateThreadEverywhere_Idempotent(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(domain.FolderInbox, entryOf(testThread("a")))

	drop := func(t *domain.Thread) { t.RemoveLabel(domain.LabelInbox) }
	c.UpdateThreadEverywhere("a", drop)
	first, _ := c.Get(domain.FolderInbox)
	c.UpdateThreadEverywhere("a", drop)
	second, _ := c.Get(domain.FolderInbox)

	if len(first.Threads[0].Labels) != len(second.Threads[0].Labels) {
		t.Error("applying the same pure transformation twice changed the state")
	}
}

func TestFolderCache_AppendPage(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(domain.FolderInbox, Entry{
		Threads:       []domain.Thread{testThread("t1"), testThread("t2"), testThread("t3")},
		NextPageToken: "tokenA",
	})

	c.AppendPage(domain.FolderInbox, []domain.Thread{testThread("t4"), testThread("t5")}, "tokenB")

	e, _ := c.Get(domain.FolderInbox)
	want := []string{"t1", "t2", "t3", "t4", "t5"}
	got := threadIDs(e)
	if len(got) != len(want) {
		t.Fatalf("threads = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("threads = %v, want %v", got, want)
		}
	}
	if e.NextPageToken != "tokenB" {
		t.Errorf("NextPageToken = %q, want tokenB", e.NextPageToken)
	}
}

func TestFolderCache_AppendPage_DedupesKeepingFirst(t *testing.T) {
	c := newTestCache(newFakeClock())
	first := testThread("t2")
	first.Subject = "original"
	c.Set(domain.FolderInbox, entryOf(testThread("t1"), first))

	dup := testThread("t2")
	dup.Subject = "duplicate"
	c.AppendPage(domain.FolderInbox, []domain.Thread{dup, testThread("t3")}, "")

	e, _ := c.Get(domain.FolderInbox)
	got := threadIDs(e)
	if len(got) != 3 || got[0] != "t1" || got[1] != "t2" || got[2] != "t3" {
		t.Fatalf("threads = %v, want [t1 t2 t3]", got)
	}
	if e.Threads[1].Subject != "original" {
		t.Errorf("duplicate replaced first occurrence: subject = %q", e.Threads[1].Subject)
	}
}

func TestFolderCache_AppendPage_KeepsFetchTime(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)
	c.Set(domain.FolderInbox, entryOf(testThread("t1")))
	fetched := clock.Now()

	clock.Advance(5 * time.Minute)
	c.AppendPage(domain.FolderInbox, []domain.Thread{testThread("t2")}, "")

	e, _ := c.Get(domain.FolderInbox)
	if !e.FetchedAt.Equal(fetched) {
		t.Error("AppendPage reset the full-refresh clock")
	}
}

func TestFolderCache_StaleOverwriteRejected(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(domain.FolderInbox, entryOf(testThread("a"), testThread("b")))

	// A background fetch captures the generation, then a synchronous
	// archive patches the folder before the fetch resolves.
	gen := c.Generation(domain.FolderInbox)
	c.RemoveThread(domain.FolderInbox, "a")

	applied := c.SetIfCurrent(domain.FolderInbox, gen, entryOf(testThread("a"), testThread("b")))
	if applied {
		t.Fatal("stale fetch result was applied over a newer state")
	}

	e, _ := c.Get(domain.FolderInbox)
	if len(e.Threads) != 1 || e.Threads[0].ID != "b" {
		t.Errorf("inbox = %v, want [b] (the archive must win)", threadIDs(e))
	}
}

func TestFolderCache_SetIfCurrent_AppliesAtSameGeneration(t *testing.T) {
	c := newTestCache(newFakeClock())
	gen := c.Generation(domain.FolderInbox)
	if !c.SetIfCurrent(domain.FolderInbox, gen, entryOf(testThread("a"))) {
		t.Fatal("fetch at current generation was rejected")
	}
	if _, ok := c.Get(domain.FolderInbox); !ok {
		t.Error("entry missing after SetIfCurrent")
	}
}

func TestFolderCache_AppendPageIfCurrent_RejectsStalePage(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(domain.FolderInbox, Entry{Threads: []domain.Thread{testThread("t1")}, NextPageToken: "tokenA"})

	gen := c.Generation(domain.FolderInbox)
	c.Invalidate(domain.FolderInbox)
	c.Set(domain.FolderInbox, entryOf(testThread("t9")))

	if c.AppendPageIfCurrent(domain.FolderInbox, gen, []domain.Thread{testThread("t2")}, "tokenB") {
		t.Fatal("stale page was appended after a refresh")
	}
	e, _ := c.Get(domain.FolderInbox)
	if len(e.Threads) != 1 || e.Threads[0].ID != "t9" {
		t.Errorf("inbox = %v, want [t9]", threadIDs(e))
	}
}

func TestFolderCache_Invalidate(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(domain.FolderAll, entryOf(testThread("a")))
	c.Invalidate(domain.FolderAll)
	if _, ok := c.Get(domain.FolderAll); ok {
		t.Error("entry still present after Invalidate")
	}
	if got := c.Freshness(domain.FolderAll); got != Absent {
		t.Errorf("Freshness = %v, want Absent", got)
	}
}

func TestFolderCache_InsertThread(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(domain.FolderInbox, entryOf(testThread("a"), testThread("c")))

	if !c.InsertThread(domain.FolderInbox, testThread("b"), 1) {
		t.Fatal("InsertThread returned false")
	}
	e, _ := c.Get(domain.FolderInbox)
	got := threadIDs(e)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("threads = %v, want [a b c]", got)
	}

	// Already present: no-op.
	if c.InsertThread(domain.FolderInbox, testThread("b"), 0) {
		t.Error("inserting a present thread returned true")
	}

	// Position clamped.
	if !c.InsertThread(domain.FolderInbox, testThread("z"), 99) {
		t.Fatal("clamped insert returned false")
	}
	e, _ = c.Get(domain.FolderInbox)
	if ids := threadIDs(e); ids[len(ids)-1] != "z" {
		t.Errorf("threads = %v, want z appended", ids)
	}
}

func TestFolderCache_Reset(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(domain.FolderInbox, entryOf(testThread("a")))
	gen := c.Generation(domain.FolderInbox)

	c.Reset()

	if _, ok := c.Get(domain.FolderInbox); ok {
		t.Error("entry survived Reset")
	}
	// A fetch started before Reset must not land afterwards.
	if c.SetIfCurrent(domain.FolderInbox, gen, entryOf(testThread("a"))) {
		t.Error("pre-reset fetch applied after Reset")
	}
}

func TestFolderCache_ResetRejectsFirstFetchOfUncachedFolder(t *testing.T) {
	c := newTestCache(newFakeClock())

	// First-ever fetch of a folder: the generation is captured before any
	// Set has happened, so the folder has no counter of its own yet.
	gen := c.Generation(domain.FolderInbox)

	c.Reset()

	if c.SetIfCurrent(domain.FolderInbox, gen, entryOf(testThread("a"))) {
		t.Error("pre-reset fetch applied to a never-cached folder after Reset")
	}
	if _, ok := c.Get(domain.FolderInbox); ok {
		t.Error("reset cache was repopulated by a pre-reset fetch")
	}
}

func threadIDs(e Entry) []string {
	ids := make([]string, len(e.Threads))
	for i := range e.Threads {
		ids[i] = e.Threads[i].ID
	}
	return ids
}

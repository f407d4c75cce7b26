package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/breezemail/breeze/internal/cache"
	"github.com/breezemail/breeze/internal/domain"
	"github.com/breezemail/breeze/internal/mailbox"
	"github.com/breezemail/breeze/internal/store"
)

// fakeMailbox is an in-memory Mailbox. Pages are queued per folder key;
// the last page queued is served repeatedly once the queue drains.
type fakeMailbox struct {
	mu          sync.Mutex
	pages       map[string][]mailbox.Page
	listCalls   int
	listGate    chan struct{}
	listEntered chan struct{}
	listErr     error

	archived []string
	moved    []string
	moveErr  map[string]error

	threads map[string]*domain.Thread
	sent    []*domain.Email
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{
		pages:   make(map[string][]mailbox.Page),
		moveErr: make(map[string]error),
		threads: make(map[string]*domain.Thread),
	}
}

func listKey(opts mailbox.ListOptions) string {
	if opts.Query != "" {
		return "q:" + opts.Query
	}
	if len(opts.LabelIDs) > 0 {
		return opts.LabelIDs[0]
	}
	return "all"
}

func (f *fakeMailbox) queue(key string, page mailbox.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[key] = append(f.pages[key], page)
}

func (f *fakeMailbox) Authenticate(ctx context.Context) error { return nil }
func (f *fakeMailbox) IsAuthenticated() bool                  { return true }

func (f *fakeMailbox) ListThreads(ctx context.Context, opts mailbox.ListOptions) (mailbox.Page, error) {
	f.mu.Lock()
	gate := f.listGate
	entered := f.listEntered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return mailbox.Page{}, f.listErr
	}
	q := f.pages[listKey(opts)]
	if len(q) == 0 {
		return mailbox.Page{}, nil
	}
	page := q[0]
	if len(q) > 1 {
		f.pages[listKey(opts)] = q[1:]
	}
	return page, nil
}

func (f *fakeMailbox) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.threads[id]
	if !ok {
		return nil, errors.New("thread not found")
	}
	cp := *t
	return &cp, nil
}

func (f *fakeMailbox) Archive(ctx context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, threadID)
	return nil
}

func (f *fakeMailbox) MoveToInbox(ctx context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.moveErr[threadID]; err != nil {
		return err
	}
	f.moved = append(f.moved, threadID)
	return nil
}

func (f *fakeMailbox) MarkRead(ctx context.Context, threadID string, read bool) error { return nil }
func (f *fakeMailbox) Star(ctx context.Context, threadID string, starred bool) error  { return nil }

func (f *fakeMailbox) SendMessage(ctx context.Context, email *domain.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeMailbox) CreateDraft(ctx context.Context, draft *domain.Draft) (string, error) {
	return "draft-1", nil
}
func (f *fakeMailbox) UpdateDraft(ctx context.Context, draft *domain.Draft) error { return nil }
func (f *fakeMailbox) DeleteDraft(ctx context.Context, draftID string) error      { return nil }
func (f *fakeMailbox) GetProfile(ctx context.Context) (string, error)             { return "me@test.com", nil }

var _ mailbox.Mailbox = (*fakeMailbox)(nil)

// fakeSnoozeStore is an in-memory SnoozeStore keyed by thread id.
type fakeSnoozeStore struct {
	mu   sync.Mutex
	recs map[string]store.SnoozeRecord
}

func newFakeSnoozeStore() *fakeSnoozeStore {
	return &fakeSnoozeStore{recs: make(map[string]store.SnoozeRecord)}
}

func (f *fakeSnoozeStore) SaveSnooze(ctx context.Context, rec *store.SnoozeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := *rec
	r.UnsnoozedAt = nil
	f.recs[rec.ThreadID] = r
	return nil
}

func (f *fakeSnoozeStore) GetSnooze(ctx context.Context, accountID, threadID string) (*store.SnoozeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[threadID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeSnoozeStore) ListSnoozed(ctx context.Context, accountID string) ([]store.SnoozeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.SnoozeRecord
	for _, r := range f.recs {
		if r.UnsnoozedAt == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSnoozeStore) ListExpiredSnoozes(ctx context.Context, accountID string, now time.Time) ([]store.SnoozeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.SnoozeRecord
	for _, r := range f.recs {
		if r.Expired(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSnoozeStore) MarkUnsnoozed(ctx context.Context, accountID, threadID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[threadID]
	if !ok {
		return nil
	}
	t := at
	r.UnsnoozedAt = &t
	f.recs[threadID] = r
	return nil
}

func (f *fakeSnoozeStore) ListRecentlyUnsnoozed(ctx context.Context, accountID string, since time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.recs {
		if r.UnsnoozedAt != nil && !r.UnsnoozedAt.Before(since) {
			out = append(out, r.ThreadID)
		}
	}
	return out, nil
}

func (f *fakeSnoozeStore) DeleteSnooze(ctx context.Context, accountID, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recs, threadID)
	return nil
}

var _ SnoozeStore = (*fakeSnoozeStore)(nil)

func thread(id string, labels ...string) domain.Thread {
	return domain.Thread{ID: id, Subject: "subject " + id, Labels: labels}
}

func inboxPage(ids ...string) mailbox.Page {
	threads := make([]domain.Thread, 0, len(ids))
	for _, id := range ids {
		threads = append(threads, thread(id, domain.LabelInbox))
	}
	return mailbox.Page{Threads: threads}
}

func threadIDs(e cache.Entry) []string {
	ids := make([]string, 0, len(e.Threads))
	for _, t := range e.Threads {
		ids = append(ids, t.ID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newTestSession(mail *fakeMailbox, snoozes *fakeSnoozeStore) *Session {
	return New("acc-1", mail, snoozes, Options{
		FreshWindow: 10 * time.Minute,
		UndoWindow:  5 * time.Second,
		PageSize:    25,
	})
}

func TestFolder_FreshHitSkipsNetwork(t *testing.T) {
	mail := newFakeMailbox()
	mail.queue(domain.LabelInbox, inboxPage("a", "b"))
	s := newTestSession(mail, newFakeSnoozeStore())
	ctx := context.Background()

	if _, err := s.Folder(ctx, domain.FolderInbox, false); err != nil {
		t.Fatalf("Folder() error: %v", err)
	}
	if _, err := s.Folder(ctx, domain.FolderInbox, false); err != nil {
		t.Fatalf("Folder() second call error: %v", err)
	}
	if mail.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1 (fresh hit must not refetch)", mail.listCalls)
	}
}

func TestFolder_UnknownFolder(t *testing.T) {
	s := newTestSession(newFakeMailbox(), newFakeSnoozeStore())
	if _, err := s.Folder(context.Background(), "junk-drawer", false); err == nil {
		t.Fatal("Folder() with unknown id should error")
	}
}

func TestFolder_ErrorServesStaleEntry(t *testing.T) {
	mail := newFakeMailbox()
	mail.queue(domain.LabelInbox, inboxPage("a", "b"))
	s := newTestSession(mail, newFakeSnoozeStore())
	ctx := context.Background()

	if _, err := s.Folder(ctx, domain.FolderInbox, false); err != nil {
		t.Fatalf("Folder() error: %v", err)
	}

	mail.mu.Lock()
	mail.listErr = errors.New("network down")
	mail.mu.Unlock()

	entry, err := s.Folder(ctx, domain.FolderInbox, true)
	if err == nil {
		t.Fatal("forced refresh should surface the fetch error")
	}
	if !equalIDs(threadIDs(entry), []string{"a", "b"}) {
		t.Errorf("entry = %v, want stale [a b] served alongside the error", threadIDs(entry))
	}
}

// A refresh response that was in flight when the user archived must be
// discarded, or the archived thread would reappear.
func TestFolder_StaleResponseDiscarded(t *testing.T) {
	mail := newFakeMailbox()
	mail.queue(domain.LabelInbox, inboxPage("a", "b", "c"))
	mail.queue(domain.LabelInbox, inboxPage("a", "b", "c"))
	s := newTestSession(mail, newFakeSnoozeStore())
	ctx := context.Background()

	if _, err := s.Folder(ctx, domain.FolderInbox, false); err != nil {
		t.Fatalf("Folder() error: %v", err)
	}

	gate := make(chan struct{})
	entered := make(chan struct{})
	mail.mu.Lock()
	mail.listGate = gate
	mail.listEntered = entered
	mail.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Folder(ctx, domain.FolderInbox, true)
	}()

	// Wait for the refresh to be blocked inside ListThreads, then
	// archive while it is in flight.
	<-entered
	mail.mu.Lock()
	mail.listGate = nil
	mail.listEntered = nil
	mail.mu.Unlock()
	if _, err := s.Archive(ctx, domain.FolderInbox, "a"); err != nil {
		t.Fatalf("Archive() error: %v", err)
	}
	close(gate)
	<-done

	entry, _ := s.Cached(domain.FolderInbox)
	if !equalIDs(threadIDs(entry), []string{"b", "c"}) {
		t.Errorf("inbox = %v, want [b c]: stale refresh must not resurrect the archived thread", threadIDs(entry))
	}
}

func TestLoadMore_AppendsNextPage(t *testing.T) {
	mail := newFakeMailbox()
	page1 := inboxPage("a", "b")
	page1.NextPageToken = "tok-2"
	mail.queue(domain.LabelInbox, page1)
	mail.queue(domain.LabelInbox, inboxPage("c", "d"))
	s := newTestSession(mail, newFakeSnoozeStore())
	ctx := context.Background()

	if _, err := s.Folder(ctx, domain.FolderInbox, false); err != nil {
		t.Fatalf("Folder() error: %v", err)
	}
	if !s.HasMore(domain.FolderInbox) {
		t.Fatal("HasMore() = false, want true before load-more")
	}

	entry, err := s.LoadMore(ctx, domain.FolderInbox)
	if err != nil {
		t.Fatalf("LoadMore() error: %v", err)
	}
	if !equalIDs(threadIDs(entry), []string{"a", "b", "c", "d"}) {
		t.Errorf("inbox = %v, want [a b c d]", threadIDs(entry))
	}
	if s.HasMore(domain.FolderInbox) {
		t.Error("HasMore() = true after final page, want false")
	}
}

func TestArchiveThenUndo_RestoresSnapshot(t *testing.T) {
	mail := newFakeMailbox()
	mail.queue(domain.LabelInbox, inboxPage("a", "b", "c"))
	s := newTestSession(mail, newFakeSnoozeStore())
	ctx := context.Background()

	if _, err := s.Folder(ctx, domain.FolderInbox, false); err != nil {
		t.Fatalf("Folder() error: %v", err)
	}

	entry, err := s.Archive(ctx, domain.FolderInbox, "b")
	if err != nil {
		t.Fatalf("Archive() error: %v", err)
	}

	cached, _ := s.Cached(domain.FolderInbox)
	if !equalIDs(threadIDs(cached), []string{"a", "c"}) {
		t.Fatalf("inbox after archive = %v, want [a c]", threadIDs(cached))
	}

	if err := s.Undo(ctx, entry.ID); err != nil {
		t.Fatalf("Undo() error: %v", err)
	}

	cached, _ = s.Cached(domain.FolderInbox)
	if !equalIDs(threadIDs(cached), []string{"a", "b", "c"}) {
		t.Errorf("inbox after undo = %v, want [a b c] (original position)", threadIDs(cached))
	}
	if len(mail.moved) != 1 || mail.moved[0] != "b" {
		t.Errorf("moved = %v, want [b]", mail.moved)
	}
}

func TestUndo_ExpiredIsNoOp(t *testing.T) {
	mail := newFakeMailbox()
	mail.queue(domain.LabelInbox, inboxPage("a"))
	s := New("acc-1", mail, newFakeSnoozeStore(), Options{
		FreshWindow: 10 * time.Minute,
		UndoWindow:  time.Nanosecond,
	})
	ctx := context.Background()

	s.Folder(ctx, domain.FolderInbox, false)
	entry, err := s.Archive(ctx, domain.FolderInbox, "a")
	if err != nil {
		t.Fatalf("Archive() error: %v", err)
	}

	time.Sleep(time.Millisecond)
	if err := s.Undo(ctx, entry.ID); !errors.Is(err, cache.ErrUndoExpired) {
		t.Fatalf("Undo() after window = %v, want ErrUndoExpired", err)
	}
	if len(mail.moved) != 0 {
		t.Errorf("moved = %v, want none: expired undo must not issue a compensating call", mail.moved)
	}
}

func TestUndoAll_PartialFailureRetainsEntry(t *testing.T) {
	mail := newFakeMailbox()
	mail.queue(domain.LabelInbox, inboxPage("a", "b"))
	s := newTestSession(mail, newFakeSnoozeStore())
	ctx := context.Background()

	s.Folder(ctx, domain.FolderInbox, false)
	if _, err := s.Archive(ctx, domain.FolderInbox, "a"); err != nil {
		t.Fatalf("Archive(a) error: %v", err)
	}
	if _, err := s.Archive(ctx, domain.FolderInbox, "b"); err != nil {
		t.Fatalf("Archive(b) error: %v", err)
	}

	mail.mu.Lock()
	mail.moveErr["b"] = errors.New("rate limited")
	mail.mu.Unlock()

	if err := s.UndoAll(ctx); err == nil {
		t.Fatal("UndoAll() should report the failed entry")
	}

	pending := s.PendingUndos()
	if len(pending) != 1 || pending[0].ThreadID != "b" {
		t.Fatalf("pending = %+v, want just thread b retained", pending)
	}

	cached, _ := s.Cached(domain.FolderInbox)
	if !equalIDs(threadIDs(cached), []string{"a"}) {
		t.Errorf("inbox = %v, want [a]: only the successful undo is reconciled", threadIDs(cached))
	}
}

func TestSnooze_RemovesFromInboxAndRecords(t *testing.T) {
	mail := newFakeMailbox()
	snoozes := newFakeSnoozeStore()
	mail.queue(domain.LabelInbox, inboxPage("a", "b"))
	s := newTestSession(mail, snoozes)
	ctx := context.Background()

	s.Folder(ctx, domain.FolderInbox, false)
	until := time.Now().Add(24 * time.Hour)
	if err := s.Snooze(ctx, domain.FolderInbox, "a", until); err != nil {
		t.Fatalf("Snooze() error: %v", err)
	}

	cached, _ := s.Cached(domain.FolderInbox)
	if !equalIDs(threadIDs(cached), []string{"b"}) {
		t.Errorf("inbox = %v, want [b]", threadIDs(cached))
	}
	if len(mail.archived) != 1 || mail.archived[0] != "a" {
		t.Errorf("archived = %v, want [a]", mail.archived)
	}
	rec, _ := snoozes.GetSnooze(ctx, "acc-1", "a")
	if rec == nil || !rec.SnoozeUntil.Equal(until) {
		t.Errorf("snooze record = %+v, want until %v", rec, until)
	}
	if _, fresh := s.Cached(domain.FolderSnoozed); fresh != cache.Absent {
		t.Error("snoozed folder should be invalidated after snooze")
	}
}

func TestSweep_WakesExpiredSnoozes(t *testing.T) {
	mail := newFakeMailbox()
	snoozes := newFakeSnoozeStore()
	mail.queue(domain.LabelInbox, inboxPage("a", "b"))
	s := newTestSession(mail, snoozes)
	ctx := context.Background()

	s.Folder(ctx, domain.FolderInbox, false)
	if err := s.Snooze(ctx, domain.FolderInbox, "a", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Snooze() error: %v", err)
	}

	if woken := s.Sweep(ctx); woken != 1 {
		t.Fatalf("Sweep() = %d, want 1", woken)
	}
	if len(mail.moved) != 1 || mail.moved[0] != "a" {
		t.Errorf("moved = %v, want [a]", mail.moved)
	}
	// Inbox membership changed at an unknown position: invalidated.
	if _, fresh := s.Cached(domain.FolderInbox); fresh != cache.Absent {
		t.Error("inbox should be invalidated after a wake-up")
	}
	// The record is retained for the badge, not re-woken.
	if woken := s.Sweep(ctx); woken != 0 {
		t.Errorf("second Sweep() = %d, want 0", woken)
	}
}

func TestFolder_InboxCarriesUnsnoozeBadge(t *testing.T) {
	mail := newFakeMailbox()
	snoozes := newFakeSnoozeStore()
	mail.queue(domain.LabelInbox, inboxPage("a", "b"))
	mail.queue(domain.LabelInbox, inboxPage("a", "b"))
	s := newTestSession(mail, snoozes)
	ctx := context.Background()

	s.Folder(ctx, domain.FolderInbox, false)
	if err := s.Snooze(ctx, domain.FolderInbox, "a", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Snooze() error: %v", err)
	}
	s.Sweep(ctx)

	entry, err := s.Folder(ctx, domain.FolderInbox, true)
	if err != nil {
		t.Fatalf("Folder() error: %v", err)
	}
	var woke *domain.Thread
	for i := range entry.Threads {
		if entry.Threads[i].ID == "a" {
			woke = &entry.Threads[i]
		}
	}
	if woke == nil {
		t.Fatal("thread a missing from refetched inbox")
	}
	if !woke.RecentlyUnsnoozed {
		t.Error("RecentlyUnsnoozed = false, want badge on woken thread")
	}
}

func TestFolder_SnoozedDecoratedWithWakeTimes(t *testing.T) {
	mail := newFakeMailbox()
	snoozes := newFakeSnoozeStore()
	until := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	snoozes.SaveSnooze(context.Background(), &store.SnoozeRecord{
		AccountID: "acc-1", ThreadID: "a", SnoozeUntil: until, CreatedAt: time.Now(),
	})
	mail.queue("q:in:snoozed", mailbox.Page{Threads: []domain.Thread{thread("a")}})
	s := newTestSession(mail, snoozes)

	entry, err := s.Folder(context.Background(), domain.FolderSnoozed, false)
	if err != nil {
		t.Fatalf("Folder() error: %v", err)
	}
	if len(entry.Threads) != 1 || entry.Threads[0].SnoozedUntil == nil {
		t.Fatalf("snoozed entry = %+v, want wake time decoration", entry.Threads)
	}
	if !entry.Threads[0].SnoozedUntil.Equal(until) {
		t.Errorf("SnoozedUntil = %v, want %v", entry.Threads[0].SnoozedUntil, until)
	}
}

func TestSend_ReplacesThreadEverywhere(t *testing.T) {
	mail := newFakeMailbox()
	mail.queue(domain.LabelInbox, inboxPage("a", "b"))
	updated := thread("a", domain.LabelInbox)
	updated.TotalCount = 4
	mail.threads["a"] = &updated
	s := newTestSession(mail, newFakeSnoozeStore())
	ctx := context.Background()

	s.Folder(ctx, domain.FolderInbox, false)
	email := &domain.Email{ThreadID: "a", Subject: "re: subject a"}
	if err := s.Send(ctx, email); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	cached, _ := s.Cached(domain.FolderInbox)
	for _, tr := range cached.Threads {
		if tr.ID == "a" && tr.TotalCount != 4 {
			t.Errorf("cached thread a TotalCount = %d, want refetched 4", tr.TotalCount)
		}
	}
	if _, fresh := s.Cached(domain.FolderSent); fresh != cache.Absent {
		t.Error("sent folder should be invalidated after send")
	}
	if len(mail.sent) != 1 {
		t.Errorf("sent = %d messages, want 1", len(mail.sent))
	}
}

func TestMarkRead_PatchesCachedCopies(t *testing.T) {
	mail := newFakeMailbox()
	page := mailbox.Page{Threads: []domain.Thread{
		{ID: "a", Labels: []string{domain.LabelInbox, domain.LabelUnread}, HasUnread: true},
	}}
	mail.queue(domain.LabelInbox, page)
	s := newTestSession(mail, newFakeSnoozeStore())
	ctx := context.Background()

	s.Folder(ctx, domain.FolderInbox, false)
	if err := s.MarkRead(ctx, "a"); err != nil {
		t.Fatalf("MarkRead() error: %v", err)
	}

	cached, _ := s.Cached(domain.FolderInbox)
	if cached.Threads[0].IsUnread() {
		t.Error("thread still unread in cache after MarkRead")
	}
	if cached.Threads[0].HasLabel(domain.LabelUnread) {
		t.Error("UNREAD label still present after MarkRead")
	}
}

func TestSaveDraft_AssignsProviderID(t *testing.T) {
	mail := newFakeMailbox()
	s := newTestSession(mail, newFakeSnoozeStore())

	draft := &domain.Draft{Subject: "wip"}
	if err := s.SaveDraft(context.Background(), draft); err != nil {
		t.Fatalf("SaveDraft() error: %v", err)
	}
	if draft.GmailDraftID != "draft-1" {
		t.Errorf("GmailDraftID = %q, want draft-1", draft.GmailDraftID)
	}
	if draft.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped on save")
	}
}

func TestReset_ClearsStateAndRejectsInFlight(t *testing.T) {
	mail := newFakeMailbox()
	mail.queue(domain.LabelInbox, inboxPage("a"))
	s := newTestSession(mail, newFakeSnoozeStore())
	ctx := context.Background()

	s.Folder(ctx, domain.FolderInbox, false)
	s.Reset()

	entry, fresh := s.Cached(domain.FolderInbox)
	if len(entry.Threads) != 0 || fresh != cache.Absent {
		t.Errorf("cache not cleared by Reset: %v, %v", threadIDs(entry), fresh)
	}
	if len(s.PendingUndos()) != 0 {
		t.Error("undo ledger not cleared by Reset")
	}
}

func TestSearch_IndexesWithoutCaching(t *testing.T) {
	mail := newFakeMailbox()
	mail.queue("q:from:alice", mailbox.Page{Threads: []domain.Thread{
		thread("x", domain.LabelInbox),
		thread("y"),
	}})
	s := newTestSession(mail, newFakeSnoozeStore())
	ctx := context.Background()

	got, err := s.Search(ctx, "from:alice")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "x" || got[1].ID != "y" {
		t.Fatalf("Search() returned wrong threads: %v", got)
	}

	// No folder entry may appear as a side effect of a search.
	for _, f := range domain.Folders() {
		if _, fresh := s.Cached(f.ID); fresh != cache.Absent {
			t.Errorf("folder %s cached after search", f.ID)
		}
	}
}

package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/breezemail/breeze/internal/cache"
	"github.com/breezemail/breeze/internal/domain"
	"github.com/breezemail/breeze/internal/mailbox"
	"github.com/breezemail/breeze/internal/store"
)

// badgeWindow is how long a woken thread keeps its recently-unsnoozed
// badge in the inbox.
const badgeWindow = time.Hour

// SnoozeStore is the slice of the persistence layer the session needs:
// wake-up schedules only. Thread membership truth stays with the
// provider's labels.
type SnoozeStore interface {
	SaveSnooze(ctx context.Context, rec *store.SnoozeRecord) error
	GetSnooze(ctx context.Context, accountID, threadID string) (*store.SnoozeRecord, error)
	ListSnoozed(ctx context.Context, accountID string) ([]store.SnoozeRecord, error)
	ListExpiredSnoozes(ctx context.Context, accountID string, now time.Time) ([]store.SnoozeRecord, error)
	MarkUnsnoozed(ctx context.Context, accountID, threadID string, at time.Time) error
	ListRecentlyUnsnoozed(ctx context.Context, accountID string, since time.Time) ([]string, error)
	DeleteSnooze(ctx context.Context, accountID, threadID string) error
}

// Options configures a session.
type Options struct {
	FreshWindow time.Duration
	UndoWindow  time.Duration
	PageSize    int
}

// Session owns one signed-in account's view of the mailbox: the folder
// cache, the thread index, the undo ledger, and the reconciler that
// keeps them consistent with committed mutations.
//
// Every mutation follows the same shape: call the provider first, and
// only on success reconcile the cache. A failed call leaves the cache
// exactly as it was.
type Session struct {
	accountID string
	mail      mailbox.Mailbox
	snoozes   SnoozeStore

	cache *cache.FolderCache
	index *cache.ThreadIndex
	rec   *cache.Reconciler
	undo  *cache.UndoLedger

	pageSize int
	now      func() time.Time
}

// New constructs a session for the given account.
func New(accountID string, mail mailbox.Mailbox, snoozes SnoozeStore, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = 25
	}
	c := cache.NewFolderCache(opts.FreshWindow)
	ix := cache.NewThreadIndex()
	return &Session{
		accountID: accountID,
		mail:      mail,
		snoozes:   snoozes,
		cache:     c,
		index:     ix,
		rec:       cache.NewReconciler(c, ix),
		undo:      cache.NewUndoLedger(opts.UndoWindow),
		pageSize:  opts.PageSize,
		now:       time.Now,
	}
}

// Folder returns the thread list for a folder. A fresh cache entry is
// returned without touching the network unless force is set. On a miss
// (or stale/forced read) the first page is fetched and applied under a
// generation guard: if the cache moved on while the fetch was in
// flight, the response is discarded and the current cache state wins.
func (s *Session) Folder(ctx context.Context, id domain.FolderID, force bool) (cache.Entry, error) {
	if !force {
		if entry, ok := s.cache.GetFresh(id); ok {
			return entry, nil
		}
	}

	f, ok := domain.LookupFolder(id)
	if !ok {
		return cache.Entry{}, fmt.Errorf("unknown folder %q", id)
	}

	gen := s.cache.Generation(id)
	page, err := s.fetchPage(ctx, f, "")
	if err != nil {
		// A stale entry is still better than nothing.
		if entry, ok := s.cache.Get(id); ok {
			return entry, fmt.Errorf("failed to refresh folder %s: %w", id, err)
		}
		return cache.Entry{}, fmt.Errorf("failed to load folder %s: %w", id, err)
	}

	s.decorate(ctx, id, page.Threads)
	s.index.PutMany(page.Threads)

	entry := cache.Entry{Threads: page.Threads, NextPageToken: page.NextPageToken}
	if !s.cache.SetIfCurrent(id, gen, entry) {
		// The folder changed while we were fetching. Whatever is
		// cached now reflects those later events; serve that instead.
		current, _ := s.cache.Get(id)
		return current, nil
	}
	applied, _ := s.cache.Get(id)
	return applied, nil
}

// Cached returns whatever is in the cache for a folder, with its
// freshness classification, without any network activity.
func (s *Session) Cached(id domain.FolderID) (cache.Entry, cache.Freshness) {
	entry, _ := s.cache.Get(id)
	return entry, s.cache.Freshness(id)
}

// HasMore reports whether the folder has an unfetched continuation.
func (s *Session) HasMore(id domain.FolderID) bool {
	entry, ok := s.cache.Get(id)
	return ok && entry.HasMore()
}

// LoadMore fetches the next page for a folder and appends it to the
// cached entry, guarded by the generation captured before the fetch.
func (s *Session) LoadMore(ctx context.Context, id domain.FolderID) (cache.Entry, error) {
	entry, ok := s.cache.Get(id)
	if !ok || !entry.HasMore() {
		return entry, nil
	}

	f, _ := domain.LookupFolder(id)
	gen := s.cache.Generation(id)
	page, err := s.fetchPage(ctx, f, entry.NextPageToken)
	if err != nil {
		return entry, fmt.Errorf("failed to load more of folder %s: %w", id, err)
	}

	s.decorate(ctx, id, page.Threads)
	s.index.PutMany(page.Threads)
	s.cache.AppendPageIfCurrent(id, gen, page.Threads, page.NextPageToken)

	current, _ := s.cache.Get(id)
	return current, nil
}

func (s *Session) fetchPage(ctx context.Context, f domain.Folder, token string) (mailbox.Page, error) {
	return s.mail.ListThreads(ctx, mailbox.ListOptions{
		PageToken:  token,
		MaxResults: s.pageSize,
		LabelIDs:   f.LabelIDs,
		Query:      f.Query,
	})
}

// decorate overlays store-side state the provider does not carry:
// wake-up times on the Snoozed folder and recently-unsnoozed badges in
// the inbox. Decoration is advisory; a store error is logged and the
// plain listing is served.
func (s *Session) decorate(ctx context.Context, id domain.FolderID, threads []domain.Thread) {
	switch id {
	case domain.FolderSnoozed:
		recs, err := s.snoozes.ListSnoozed(ctx, s.accountID)
		if err != nil {
			log.Printf("[session] failed to load snooze times: %v", err)
			return
		}
		until := make(map[string]time.Time, len(recs))
		for _, r := range recs {
			until[r.ThreadID] = r.SnoozeUntil
		}
		for i := range threads {
			if u, ok := until[threads[i].ID]; ok {
				t := u
				threads[i].SnoozedUntil = &t
			}
		}
	case domain.FolderInbox:
		ids, err := s.snoozes.ListRecentlyUnsnoozed(ctx, s.accountID, s.now().Add(-badgeWindow))
		if err != nil {
			log.Printf("[session] failed to load unsnooze badges: %v", err)
			return
		}
		if len(ids) == 0 {
			return
		}
		recent := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			recent[id] = struct{}{}
		}
		for i := range threads {
			if _, ok := recent[threads[i].ID]; ok {
				threads[i].RecentlyUnsnoozed = true
			}
		}
	}
}

// Thread returns the full conversation. Metadata-only index entries are
// upgraded by fetching the complete thread from the provider.
func (s *Session) Thread(ctx context.Context, id string) (*domain.Thread, error) {
	if t, ok := s.index.Get(id); ok && !t.IsMetadataOnly {
		return &t, nil
	}
	t, err := s.mail.GetThread(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread %s: %w", id, err)
	}
	s.index.Put(*t)
	return t, nil
}

// Search runs a free-form provider query and returns the first page of
// matching threads. Results are indexed but never cached: a search is
// not a folder, and no reconciliation applies to it.
func (s *Session) Search(ctx context.Context, query string) ([]domain.Thread, error) {
	page, err := s.mail.ListThreads(ctx, mailbox.ListOptions{
		MaxResults: s.pageSize,
		Query:      query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", query, err)
	}
	s.index.PutMany(page.Threads)
	return page.Threads, nil
}

// Archive removes a thread from the inbox and records a time-boxed undo
// entry holding the thread exactly as it sat in the viewed folder.
func (s *Session) Archive(ctx context.Context, folder domain.FolderID, threadID string) (cache.PendingUndo, error) {
	snapshot, pos := s.snapshot(folder, threadID)

	if err := s.mail.Archive(ctx, threadID); err != nil {
		return cache.PendingUndo{}, fmt.Errorf("failed to archive thread %s: %w", threadID, err)
	}

	s.rec.Apply(cache.Action{Kind: cache.ActionArchive, ThreadID: threadID, Folder: folder})
	entry := s.undo.Add(threadID, folder, domain.LabelInbox, snapshot, pos)
	log.Printf("[session] archived thread %s from %s", threadID, folder)
	return entry, nil
}

// snapshot captures a thread and its position in a cached folder before
// a removal, so undo can restore both.
func (s *Session) snapshot(folder domain.FolderID, threadID string) (domain.Thread, int) {
	entry, ok := s.cache.Get(folder)
	if !ok {
		if t, ok := s.index.Get(threadID); ok {
			return t, 0
		}
		return domain.Thread{ID: threadID}, 0
	}
	for i := range entry.Threads {
		if entry.Threads[i].ID == threadID {
			return entry.Threads[i], i
		}
	}
	if t, ok := s.index.Get(threadID); ok {
		return t, 0
	}
	return domain.Thread{ID: threadID}, 0
}

// Undo reverses one pending archive. After the window has elapsed the
// entry is gone and ErrUndoExpired comes back; no compensating call is
// made in that case.
func (s *Session) Undo(ctx context.Context, undoID string) error {
	e, err := s.undo.Take(undoID)
	if err != nil {
		return err
	}
	if err := s.mail.MoveToInbox(ctx, e.ThreadID); err != nil {
		// The archive stands; give the user their window back.
		s.undo.Restore(e)
		return fmt.Errorf("failed to undo archive of thread %s: %w", e.ThreadID, err)
	}
	s.rec.Apply(cache.Action{
		Kind:      cache.ActionUndoArchive,
		ThreadID:  e.ThreadID,
		Folder:    e.Folder,
		Thread:    &e.Snapshot,
		RestoreAt: e.Position,
	})
	log.Printf("[session] undid archive of thread %s", e.ThreadID)
	return nil
}

// UndoAll reverses every pending archive concurrently. Entries whose
// compensating call fails are put back so they stay undoable for the
// rest of their window.
func (s *Session) UndoAll(ctx context.Context) error {
	entries := s.undo.TakeAll()
	if len(entries) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(entries))
	for i, e := range entries {
		wg.Add(1)
		go func(i int, e cache.PendingUndo) {
			defer wg.Done()
			errs[i] = s.mail.MoveToInbox(ctx, e.ThreadID)
		}(i, e)
	}
	wg.Wait()

	var failed []cache.PendingUndo
	var firstErr error
	for i, e := range entries {
		if errs[i] != nil {
			failed = append(failed, e)
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		s.rec.Apply(cache.Action{
			Kind:      cache.ActionUndoArchive,
			ThreadID:  e.ThreadID,
			Folder:    e.Folder,
			Thread:    &e.Snapshot,
			RestoreAt: e.Position,
		})
	}
	if len(failed) > 0 {
		s.undo.Restore(failed...)
		return fmt.Errorf("failed to undo %d of %d archives: %w", len(failed), len(entries), firstErr)
	}
	return nil
}

// PendingUndos returns the archives still inside their undo window.
func (s *Session) PendingUndos() []cache.PendingUndo {
	return s.undo.Pending()
}

// UndoRemaining reports the countdown on the oldest pending undo.
func (s *Session) UndoRemaining() (time.Duration, bool) {
	return s.undo.Remaining()
}

// Snooze hides a thread until the given time. The provider only sees an
// archive; the wake-up schedule is local, and the sweep returns the
// thread to the inbox when it fires.
func (s *Session) Snooze(ctx context.Context, folder domain.FolderID, threadID string, until time.Time) error {
	if err := s.mail.Archive(ctx, threadID); err != nil {
		return fmt.Errorf("failed to snooze thread %s: %w", threadID, err)
	}
	if err := s.snoozes.SaveSnooze(ctx, &store.SnoozeRecord{
		AccountID:   s.accountID,
		ThreadID:    threadID,
		SnoozeUntil: until,
		CreatedAt:   s.now(),
	}); err != nil {
		return fmt.Errorf("failed to record snooze for thread %s: %w", threadID, err)
	}
	s.rec.Apply(cache.Action{
		Kind:        cache.ActionSnooze,
		ThreadID:    threadID,
		Folder:      folder,
		SnoozeUntil: until,
	})
	log.Printf("[session] snoozed thread %s until %s", threadID, until.Format(time.RFC3339))
	return nil
}

// Unsnooze returns a snoozed thread to the inbox ahead of schedule. The
// record is deleted outright; manual wake-ups carry no badge.
func (s *Session) Unsnooze(ctx context.Context, threadID string) error {
	if err := s.mail.MoveToInbox(ctx, threadID); err != nil {
		return fmt.Errorf("failed to unsnooze thread %s: %w", threadID, err)
	}
	if err := s.snoozes.DeleteSnooze(ctx, s.accountID, threadID); err != nil {
		return fmt.Errorf("failed to clear snooze for thread %s: %w", threadID, err)
	}
	s.rec.Apply(cache.Action{Kind: cache.ActionUnsnooze, ThreadID: threadID})
	return nil
}

// Sweep wakes every snooze whose time has passed and expires old undo
// entries. Returns the number of threads returned to the inbox. A
// per-thread failure is logged and retried on the next sweep.
func (s *Session) Sweep(ctx context.Context) int {
	s.undo.Sweep()

	expired, err := s.snoozes.ListExpiredSnoozes(ctx, s.accountID, s.now())
	if err != nil {
		log.Printf("[session] failed to list expired snoozes: %v", err)
		return 0
	}

	woken := 0
	for _, rec := range expired {
		if err := s.mail.MoveToInbox(ctx, rec.ThreadID); err != nil {
			log.Printf("[session] failed to wake thread %s: %v", rec.ThreadID, err)
			continue
		}
		if err := s.snoozes.MarkUnsnoozed(ctx, s.accountID, rec.ThreadID, s.now()); err != nil {
			log.Printf("[session] failed to mark thread %s unsnoozed: %v", rec.ThreadID, err)
		}
		s.rec.Apply(cache.Action{Kind: cache.ActionUnsnooze, ThreadID: rec.ThreadID})
		woken++
	}
	if woken > 0 {
		log.Printf("[session] woke %d snoozed thread(s)", woken)
	}
	return woken
}

// Send delivers a message. When it lands on an existing thread, the
// thread is refetched so every cached copy shows the new message.
func (s *Session) Send(ctx context.Context, email *domain.Email) error {
	if err := s.mail.SendMessage(ctx, email); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	action := cache.Action{Kind: cache.ActionSend, ThreadID: email.ThreadID}
	if email.ThreadID != "" {
		fresh, err := s.mail.GetThread(ctx, email.ThreadID)
		if err != nil {
			log.Printf("[session] failed to refetch thread %s after send: %v", email.ThreadID, err)
		} else {
			action.Thread = fresh
		}
	}
	s.rec.Apply(action)
	return nil
}

// SaveDraft creates or updates a draft, filling in the provider's draft
// id on first save.
func (s *Session) SaveDraft(ctx context.Context, draft *domain.Draft) error {
	if draft.GmailDraftID == "" {
		id, err := s.mail.CreateDraft(ctx, draft)
		if err != nil {
			return fmt.Errorf("failed to create draft: %w", err)
		}
		draft.GmailDraftID = id
	} else {
		if err := s.mail.UpdateDraft(ctx, draft); err != nil {
			return fmt.Errorf("failed to update draft: %w", err)
		}
	}
	draft.UpdatedAt = s.now()
	s.rec.Apply(cache.Action{
		Kind:     cache.ActionDraftSaved,
		ThreadID: draft.ThreadID,
		DraftID:  draft.GmailDraftID,
	})
	return nil
}

// DeleteDraft discards a draft.
func (s *Session) DeleteDraft(ctx context.Context, draft *domain.Draft) error {
	if draft.GmailDraftID == "" {
		return nil
	}
	if err := s.mail.DeleteDraft(ctx, draft.GmailDraftID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	s.rec.Apply(cache.Action{Kind: cache.ActionDraftDeleted, ThreadID: draft.ThreadID})
	return nil
}

// MarkRead marks a thread read everywhere it is cached.
func (s *Session) MarkRead(ctx context.Context, threadID string) error {
	if err := s.mail.MarkRead(ctx, threadID, true); err != nil {
		return fmt.Errorf("failed to mark thread %s read: %w", threadID, err)
	}
	s.rec.Apply(cache.Action{Kind: cache.ActionMarkRead, ThreadID: threadID})
	return nil
}

// Star toggles the star on a thread.
func (s *Session) Star(ctx context.Context, threadID string, starred bool) error {
	if err := s.mail.Star(ctx, threadID, starred); err != nil {
		return fmt.Errorf("failed to star thread %s: %w", threadID, err)
	}
	kind := cache.ActionStar
	if !starred {
		kind = cache.ActionUnstar
	}
	s.rec.Apply(cache.Action{Kind: kind, ThreadID: threadID})
	return nil
}

// AccountID returns the account this session is bound to.
func (s *Session) AccountID() string {
	return s.accountID
}

// Reset drops all cached state. Called at sign-out; in-flight fetches
// that started before the reset are rejected by the generation guard
// when they land.
func (s *Session) Reset() {
	s.cache.Reset()
	s.index.Reset()
	s.undo.Reset()
	log.Printf("[session] reset account %s", s.accountID)
}

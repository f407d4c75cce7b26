package cache

import (
	"fmt"
	"log"
	"time"

	"github.com/breezemail/breeze/internal/domain"
)

// ActionKind identifies a committed mailbox mutation.
type ActionKind int

const (
	ActionArchive ActionKind = iota
	ActionUndoArchive
	ActionMoveToInbox
	ActionSnooze
	ActionUnsnooze
	ActionSend
	ActionDraftSaved
	ActionDraftDeleted
	ActionMarkRead
	ActionStar
	ActionUnstar
)

func (k ActionKind) String() string {
	switch k {
	case ActionArchive:
		return "archive"
	case ActionUndoArchive:
		return "undo-archive"
	case ActionMoveToInbox:
		return "move-to-inbox"
	case ActionSnooze:
		return "snooze"
	case ActionUnsnooze:
		return "unsnooze"
	case ActionSend:
		return "send"
	case ActionDraftSaved:
		return "draft-saved"
	case ActionDraftDeleted:
		return "draft-deleted"
	case ActionMarkRead:
		return "mark-read"
	case ActionStar:
		return "star"
	case ActionUnstar:
		return "unstar"
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// Action describes a mutation that the mailbox API has already
// acknowledged. Folder is the folder the user was viewing when the
// action was taken.
type Action struct {
	Kind     ActionKind
	ThreadID string
	Folder   domain.FolderID

	// Snooze wake-up time, for ActionSnooze.
	SnoozeUntil time.Time

	// Refetched thread, for ActionSend / ActionDraftDeleted /
	// ActionUndoArchive (the pre-archive snapshot in the latter case).
	Thread *domain.Thread

	// Position to restore the snapshot at, for ActionUndoArchive.
	RestoreAt int

	// Provider draft id, for ActionDraftSaved.
	DraftID string
}

// Reconciler translates committed mutations into the minimal correct set
// of cache operations: patch in place when the resulting folder
// membership is knowable from the action alone, invalidate when it is
// not (a refetch then self-heals). It runs strictly after network
// success and never touches the network itself.
type Reconciler struct {
	cache *FolderCache
	index *ThreadIndex
}

// NewReconciler wires the reconciler to the session's cache and index.
func NewReconciler(c *FolderCache, ix *ThreadIndex) *Reconciler {
	return &Reconciler{cache: c, index: ix}
}

// Apply updates the cache and index for the given committed action.
// An unrecognized kind is logged and ignored; by the time Apply runs the
// mutation has already been committed remotely, so there is nothing for
// a caller to do with a failure here.
func (r *Reconciler) Apply(a Action) {
	switch a.Kind {
	case ActionArchive:
		r.archive(a)
	case ActionUndoArchive:
		r.undoArchive(a)
	case ActionMoveToInbox:
		r.moveToInbox(a)
	case ActionSnooze:
		r.snooze(a)
	case ActionUnsnooze:
		r.unsnooze(a)
	case ActionSend:
		r.send(a)
	case ActionDraftSaved:
		r.draftSaved(a)
	case ActionDraftDeleted:
		r.draftDeleted(a)
	case ActionMarkRead:
		r.markRead(a)
	case ActionStar, ActionUnstar:
		r.star(a)
	default:
		log.Printf("[cache] ignoring unknown action kind %d", int(a.Kind))
	}
}

// archive: the thread deterministically loses INBOX, so the viewed folder
// is patched, never invalidated (a reload would break the removal
// animation and scroll position). All Mail is invalidated wholesale: the
// archived thread reappears there at a position this client cannot know.
func (r *Reconciler) archive(a Action) {
	r.cache.RemoveThread(a.Folder, a.ThreadID)
	r.cache.UpdateThreadEverywhere(a.ThreadID, func(t *domain.Thread) {
		t.RemoveLabel(domain.LabelInbox)
	})
	r.cache.Invalidate(domain.FolderAll)
	r.index.Update(a.ThreadID, func(t *domain.Thread) {
		t.RemoveLabel(domain.LabelInbox)
	})
}

// undoArchive restores the pre-archive snapshot at its original position.
// Membership is knowable here, so this is a pure patch; All Mail stays
// invalidated from the original archive.
func (r *Reconciler) undoArchive(a Action) {
	restore := func(t *domain.Thread) {
		t.AddLabel(domain.LabelInbox)
	}
	if a.Thread != nil {
		snap := *a.Thread
		snap.AddLabel(domain.LabelInbox)
		r.cache.InsertThread(a.Folder, snap, a.RestoreAt)
		r.index.Put(snap)
	} else {
		r.index.Update(a.ThreadID, restore)
	}
	r.cache.UpdateThreadEverywhere(a.ThreadID, restore)
}

// moveToInbox: labels are patched everywhere, but the thread's position
// in Inbox ordering is unknown, so Inbox itself is invalidated.
func (r *Reconciler) moveToInbox(a Action) {
	addInbox := func(t *domain.Thread) {
		t.AddLabel(domain.LabelInbox)
	}
	r.cache.UpdateThreadEverywhere(a.ThreadID, addInbox)
	r.cache.Invalidate(domain.FolderInbox)
	r.index.Update(a.ThreadID, addInbox)
}

// snooze: from an inbox-like folder the thread disappears from the list;
// from All Mail it stays visible with patched labels. Either way the
// Snoozed folder cannot be patched (its ordering comes from wake-up
// times) and is invalidated.
func (r *Reconciler) snooze(a Action) {
	until := a.SnoozeUntil
	decorate := func(t *domain.Thread) {
		t.RemoveLabel(domain.LabelInbox)
		u := until
		t.SnoozedUntil = &u
		t.RecentlyUnsnoozed = false
	}

	if f, ok := domain.LookupFolder(a.Folder); ok && f.IsInboxLike() {
		r.cache.RemoveThread(a.Folder, a.ThreadID)
	}
	r.cache.UpdateThreadEverywhere(a.ThreadID, decorate)
	r.cache.Invalidate(domain.FolderSnoozed)
	r.index.Update(a.ThreadID, decorate)
}

// unsnooze (expiry sweep): the thread is back in Inbox at an unknown
// position, so both Inbox and Snoozed are invalidated; the index keeps a
// "recently unsnoozed" decoration for display.
func (r *Reconciler) unsnooze(a Action) {
	wake := func(t *domain.Thread) {
		t.AddLabel(domain.LabelInbox)
		t.SnoozedUntil = nil
		t.RecentlyUnsnoozed = true
	}
	r.cache.Invalidate(domain.FolderInbox)
	r.cache.Invalidate(domain.FolderSnoozed)
	r.cache.UpdateThreadEverywhere(a.ThreadID, wake)
	r.index.Update(a.ThreadID, wake)
}

// send: Sent and Drafts orderings changed server-side; the refetched
// thread (with the new message appended) replaces every cached copy.
func (r *Reconciler) send(a Action) {
	r.cache.Invalidate(domain.FolderSent)
	r.cache.Invalidate(domain.FolderDrafts)
	if a.Thread == nil {
		return
	}
	fresh := *a.Thread
	r.index.Put(fresh)
	r.cache.UpdateThreadEverywhere(fresh.ID, func(t *domain.Thread) {
		*t = fresh
	})
}

func (r *Reconciler) draftSaved(a Action) {
	r.cache.Invalidate(domain.FolderDrafts)
	if a.ThreadID == "" {
		return
	}
	setDraft := func(t *domain.Thread) {
		t.DraftID = a.DraftID
	}
	r.cache.UpdateThreadEverywhere(a.ThreadID, setDraft)
	r.index.Update(a.ThreadID, setDraft)
}

// draftDeleted: the refetched thread, when supplied, drops the draft
// indicator everywhere; otherwise only the decoration is cleared.
func (r *Reconciler) draftDeleted(a Action) {
	r.cache.Invalidate(domain.FolderDrafts)
	if a.ThreadID == "" {
		return
	}
	if a.Thread != nil {
		fresh := *a.Thread
		r.index.Put(fresh)
		r.cache.UpdateThreadEverywhere(fresh.ID, func(t *domain.Thread) {
			*t = fresh
		})
		return
	}
	clearDraft := func(t *domain.Thread) {
		t.DraftID = ""
	}
	r.cache.UpdateThreadEverywhere(a.ThreadID, clearDraft)
	r.index.Update(a.ThreadID, clearDraft)
}

// markRead patches the flag in place everywhere the thread appears. If a
// later-committed removal already dropped the thread from a folder, the
// patch simply no-ops there: committed order wins.
func (r *Reconciler) markRead(a Action) {
	setRead := func(t *domain.Thread) {
		t.IsRead = true
		t.HasUnread = false
		t.RemoveLabel(domain.LabelUnread)
		for i := range t.Messages {
			t.Messages[i].IsRead = true
		}
	}
	r.cache.UpdateThreadEverywhere(a.ThreadID, setRead)
	r.index.Update(a.ThreadID, setRead)
}

// star/unstar: whether the thread becomes visible in the Starred folder
// and where requires a refetch, so no patch is attempted.
func (r *Reconciler) star(a Action) {
	r.cache.Invalidate(domain.FolderStarred)
}

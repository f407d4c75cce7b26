package domain

// FolderID names one of the fixed logical mailbox views.
type FolderID string

const (
	FolderInbox   FolderID = "inbox"
	FolderSent    FolderID = "sent"
	FolderDrafts  FolderID = "drafts"
	FolderSnoozed FolderID = "snoozed"
	FolderStarred FolderID = "starred"
	FolderSpam    FolderID = "spam"
	FolderAll     FolderID = "all"
)

// Folder is a named lens over the shared thread set. It does not own
// threads; it resolves membership either through a fixed label filter or
// a free-form search query.
type Folder struct {
	ID       FolderID
	Name     string
	LabelIDs []string
	Query    string
}

var folders = []Folder{
	{ID: FolderInbox, Name: "Inbox", LabelIDs: []string{LabelInbox}},
	{ID: FolderSent, Name: "Sent", LabelIDs: []string{LabelSent}},
	{ID: FolderDrafts, Name: "Drafts", LabelIDs: []string{LabelDraft}},
	{ID: FolderSnoozed, Name: "Snoozed", Query: "in:snoozed"},
	{ID: FolderStarred, Name: "Starred", LabelIDs: []string{LabelStarred}},
	{ID: FolderSpam, Name: "Spam", LabelIDs: []string{LabelSpam}},
	{ID: FolderAll, Name: "All Mail", Query: "-in:spam -in:trash"},
}

// LookupFolder returns the folder definition for the given ID.
func LookupFolder(id FolderID) (Folder, bool) {
	for _, f := range folders {
		if f.ID == id {
			return f, true
		}
	}
	return Folder{}, false
}

// Folders returns all folder definitions in display order.
func Folders() []Folder {
	out := make([]Folder, len(folders))
	copy(out, folders)
	return out
}

// IsInboxLike reports whether archiving or snoozing a thread removes it
// from this folder deterministically (the folder is filtered on INBOX).
func (f Folder) IsInboxLike() bool {
	for _, l := range f.LabelIDs {
		if l == LabelInbox {
			return true
		}
	}
	return false
}

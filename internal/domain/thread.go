package domain

import "time"

type Thread struct {
	ID       string
	Subject  string
	Messages []Email
	Labels   []string
	Snippet  string
	LastDate time.Time

	// Summary fields populated by list queries (Messages may be empty).
	FromAddress Address
	TotalCount  int
	HasUnread   bool

	// IsMetadataOnly marks a thread whose message bodies have not been
	// fetched yet; only list-level summary data is populated.
	IsMetadataOnly bool

	// IsRead is the thread-level read flag maintained by the cache layer.
	// Authoritative for list display; per-message flags only become
	// meaningful once full bodies are loaded.
	IsRead bool

	// Snooze decoration merged from the snooze store. Labels remain the
	// folder-membership truth; these only affect display.
	SnoozedUntil      *time.Time
	RecentlyUnsnoozed bool

	// DraftID is set when an unsent draft is attached to this thread.
	DraftID string
}

func (t *Thread) MessageCount() int {
	if len(t.Messages) > 0 {
		return len(t.Messages)
	}
	return t.TotalCount
}

func (t *Thread) IsUnread() bool {
	if len(t.Messages) == 0 {
		return t.HasUnread || !t.IsRead
	}
	for i := range t.Messages {
		if !t.Messages[i].IsRead {
			return true
		}
	}
	return false
}

func (t *Thread) HasLabel(label string) bool {
	for _, l := range t.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// AddLabel appends a label if not already present. The label slice is
// copied, never grown in place: cached copies of the same thread share
// backing arrays and must not see each other's patches.
func (t *Thread) AddLabel(label string) {
	if t.HasLabel(label) {
		return
	}
	out := make([]string, 0, len(t.Labels)+1)
	out = append(out, t.Labels...)
	t.Labels = append(out, label)
}

// RemoveLabel deletes a label if present. Copy-on-write, same as AddLabel.
func (t *Thread) RemoveLabel(label string) {
	if !t.HasLabel(label) {
		return
	}
	out := make([]string, 0, len(t.Labels)-1)
	for _, l := range t.Labels {
		if l != label {
			out = append(out, l)
		}
	}
	t.Labels = out
}

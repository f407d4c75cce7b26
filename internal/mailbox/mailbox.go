package mailbox

import (
	"context"

	"github.com/breezemail/breeze/internal/domain"
)

// ListOptions narrows a thread listing to a label set or search query,
// with provider-side pagination.
type ListOptions struct {
	PageToken  string
	MaxResults int
	LabelIDs   []string
	Query      string
}

// Page is one page of a folder listing.
type Page struct {
	Threads       []domain.Thread
	NextPageToken string
}

// Mailbox is the remote mail API the session mutates against. Cache
// reconciliation happens strictly after these calls succeed; a failed
// call leaves the cache untouched and the error bubbles to the caller.
// Retry policy lives behind this interface, never in the cache layer.
type Mailbox interface {
	Authenticate(ctx context.Context) error
	IsAuthenticated() bool

	ListThreads(ctx context.Context, opts ListOptions) (Page, error)
	GetThread(ctx context.Context, id string) (*domain.Thread, error)

	Archive(ctx context.Context, threadID string) error
	MoveToInbox(ctx context.Context, threadID string) error
	MarkRead(ctx context.Context, threadID string, read bool) error
	Star(ctx context.Context, threadID string, starred bool) error

	SendMessage(ctx context.Context, email *domain.Email) error
	CreateDraft(ctx context.Context, draft *domain.Draft) (string, error)
	UpdateDraft(ctx context.Context, draft *domain.Draft) error
	DeleteDraft(ctx context.Context, draftID string) error

	GetProfile(ctx context.Context) (string, error)
}

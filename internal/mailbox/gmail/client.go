package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/breezemail/breeze/internal/domain"
	"github.com/breezemail/breeze/internal/mailbox"
	"github.com/breezemail/breeze/internal/store"
)

const userID = "me"

// Client implements the mailbox.Mailbox interface for Gmail.
type Client struct {
	tokenStore *store.KeyringTokenStore
	accountID  string
	service    *gmailapi.Service
	token      *oauth2.Token
}

// New creates a new Gmail client for the given account.
func New(accountID string, tokenStore *store.KeyringTokenStore) *Client {
	return &Client{
		accountID:  accountID,
		tokenStore: tokenStore,
	}
}

// Authenticate runs the OAuth2 flow, saves the token, and initializes the
// Gmail service.
func (c *Client) Authenticate(ctx context.Context) error {
	token, err := authenticate(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate gmail: %w", err)
	}

	if err := c.tokenStore.SaveToken(c.accountID, token); err != nil {
		return fmt.Errorf("failed to save gmail token: %w", err)
	}

	c.token = token
	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return fmt.Errorf("failed to create gmail service: %w", err)
	}
	c.service = srv
	return nil
}

// IsAuthenticated returns true if the Gmail service is initialized.
func (c *Client) IsAuthenticated() bool {
	return c.service != nil
}

// initService loads the token from the keyring and creates the Gmail service.
func (c *Client) initService(ctx context.Context) error {
	token, err := c.tokenStore.LoadToken(c.accountID)
	if err != nil {
		return fmt.Errorf("failed to load gmail token: %w", err)
	}

	c.token = token
	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return fmt.Errorf("failed to create gmail service: %w", err)
	}
	c.service = srv
	return nil
}

// ensureService lazily initializes the Gmail service if not already done.
func (c *Client) ensureService(ctx context.Context) error {
	if c.service != nil {
		return nil
	}
	return c.initService(ctx)
}

// ListThreads returns a page of thread summaries matching the given
// options. Summaries carry labels, subject, sender, and dates but not
// message bodies; GetThread fetches the full conversation.
func (c *Client) ListThreads(ctx context.Context, opts mailbox.ListOptions) (mailbox.Page, error) {
	if err := c.ensureService(ctx); err != nil {
		return mailbox.Page{}, fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	call := c.service.Users.Threads.List(userID)
	if opts.MaxResults > 0 {
		call = call.MaxResults(int64(opts.MaxResults))
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	if len(opts.LabelIDs) > 0 {
		call = call.LabelIds(opts.LabelIDs...)
	}
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return mailbox.Page{}, fmt.Errorf("failed to list gmail threads: %w", err)
	}

	threads := make([]domain.Thread, 0, len(resp.Threads))
	for _, t := range resp.Threads {
		meta, err := c.service.Users.Threads.Get(userID, t.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).Do()
		if err != nil {
			return mailbox.Page{}, fmt.Errorf("failed to get gmail thread %s: %w", t.Id, err)
		}
		threads = append(threads, mapThreadSummary(meta))
	}

	return mailbox.Page{Threads: threads, NextPageToken: resp.NextPageToken}, nil
}

// GetThread returns a thread with all its messages.
func (c *Client) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	t, err := c.service.Users.Threads.Get(userID, id).
		Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get gmail thread %s: %w", id, err)
	}

	thread := mapThread(t)
	return &thread, nil
}

// modifyThread adds and removes labels on every message in a thread.
func (c *Client) modifyThread(ctx context.Context, threadID string, add, remove []string) error {
	if err := c.ensureService(ctx); err != nil {
		return fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	req := &gmailapi.ModifyThreadRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}
	_, err := c.service.Users.Threads.Modify(userID, threadID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to modify labels on thread %s: %w", threadID, err)
	}
	return nil
}

// Archive removes the thread from the Inbox.
func (c *Client) Archive(ctx context.Context, threadID string) error {
	return c.modifyThread(ctx, threadID, nil, []string{domain.LabelInbox})
}

// MoveToInbox restores the INBOX label, undoing an archive or snooze.
func (c *Client) MoveToInbox(ctx context.Context, threadID string) error {
	return c.modifyThread(ctx, threadID, []string{domain.LabelInbox}, nil)
}

// MarkRead marks a thread as read or unread by modifying the UNREAD label.
func (c *Client) MarkRead(ctx context.Context, threadID string, read bool) error {
	if read {
		return c.modifyThread(ctx, threadID, nil, []string{domain.LabelUnread})
	}
	return c.modifyThread(ctx, threadID, []string{domain.LabelUnread}, nil)
}

// Star adds or removes the STARRED label on a thread.
func (c *Client) Star(ctx context.Context, threadID string, starred bool) error {
	if starred {
		return c.modifyThread(ctx, threadID, []string{domain.LabelStarred}, nil)
	}
	return c.modifyThread(ctx, threadID, nil, []string{domain.LabelStarred})
}

// SendMessage composes and sends an email via the Gmail API.
func (c *Client) SendMessage(ctx context.Context, email *domain.Email) error {
	if err := c.ensureService(ctx); err != nil {
		return fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	raw := buildRawMessage(email)
	encoded := base64.URLEncoding.EncodeToString([]byte(raw))

	msg := &gmailapi.Message{Raw: encoded, ThreadId: email.ThreadID}
	_, err := c.service.Users.Messages.Send(userID, msg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send gmail message: %w", err)
	}
	return nil
}

// CreateDraft saves a new draft and returns the provider's draft id.
func (c *Client) CreateDraft(ctx context.Context, draft *domain.Draft) (string, error) {
	if err := c.ensureService(ctx); err != nil {
		return "", fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	created, err := c.service.Users.Drafts.Create(userID, draftPayload(draft)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create gmail draft: %w", err)
	}
	return created.Id, nil
}

// UpdateDraft replaces the content of an existing draft.
func (c *Client) UpdateDraft(ctx context.Context, draft *domain.Draft) error {
	if err := c.ensureService(ctx); err != nil {
		return fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	_, err := c.service.Users.Drafts.Update(userID, draft.GmailDraftID, draftPayload(draft)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update gmail draft %s: %w", draft.GmailDraftID, err)
	}
	return nil
}

// DeleteDraft discards a draft permanently.
func (c *Client) DeleteDraft(ctx context.Context, draftID string) error {
	if err := c.ensureService(ctx); err != nil {
		return fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	if err := c.service.Users.Drafts.Delete(userID, draftID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete gmail draft %s: %w", draftID, err)
	}
	return nil
}

func draftPayload(draft *domain.Draft) *gmailapi.Draft {
	raw := buildRawMessage(draft.Message())
	return &gmailapi.Draft{
		Message: &gmailapi.Message{
			Raw:      base64.URLEncoding.EncodeToString([]byte(raw)),
			ThreadId: draft.ThreadID,
		},
	}
}

// buildRawMessage constructs an RFC 2822 message from a domain Email.
func buildRawMessage(email *domain.Email) string {
	var b strings.Builder

	b.WriteString("From: " + email.From.String() + "\r\n")

	to := make([]string, 0, len(email.To))
	for _, a := range email.To {
		to = append(to, a.String())
	}
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")

	if len(email.CC) > 0 {
		cc := make([]string, 0, len(email.CC))
		for _, a := range email.CC {
			cc = append(cc, a.String())
		}
		b.WriteString("Cc: " + strings.Join(cc, ", ") + "\r\n")
	}

	if len(email.BCC) > 0 {
		bcc := make([]string, 0, len(email.BCC))
		for _, a := range email.BCC {
			bcc = append(bcc, a.String())
		}
		b.WriteString("Bcc: " + strings.Join(bcc, ", ") + "\r\n")
	}

	b.WriteString("Subject: " + email.Subject + "\r\n")

	if email.InReplyTo != "" {
		b.WriteString("In-Reply-To: " + email.InReplyTo + "\r\n")
	}

	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(email.Body)

	return b.String()
}

// GetProfile returns the authenticated user's email address.
func (c *Client) GetProfile(ctx context.Context) (string, error) {
	if err := c.ensureService(ctx); err != nil {
		return "", fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	profile, err := c.service.Users.GetProfile(userID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get gmail profile: %w", err)
	}
	return profile.EmailAddress, nil
}

// Compile-time interface compliance check.
var _ mailbox.Mailbox = (*Client)(nil)

package domain

import "time"

// Draft is an unsent message. GmailDraftID is assigned by the mailbox
// provider on first save and patched back onto the in-memory draft.
type Draft struct {
	ID           string
	GmailDraftID string
	ThreadID     string
	To           []Address
	CC           []Address
	Subject      string
	Body         string
	InReplyTo    string
	UpdatedAt    time.Time
}

// Message converts the draft into a sendable email.
func (d *Draft) Message() *Email {
	return &Email{
		ThreadID:  d.ThreadID,
		To:        d.To,
		CC:        d.CC,
		Subject:   d.Subject,
		Body:      d.Body,
		InReplyTo: d.InReplyTo,
		Date:      time.Now(),
	}
}

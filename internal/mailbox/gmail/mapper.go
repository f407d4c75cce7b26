package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/breezemail/breeze/internal/domain"
)

// mapThreadSummary converts a metadata-format Gmail thread into a
// list-level domain Thread. Bodies are not populated; the thread is
// flagged metadata-only so the UI knows a full fetch is still needed.
func mapThreadSummary(t *gmailapi.Thread) domain.Thread {
	thread := domain.Thread{
		ID:             t.Id,
		Snippet:        t.Snippet,
		TotalCount:     len(t.Messages),
		IsMetadataOnly: true,
		IsRead:         true,
	}

	labelSet := make(map[string]struct{})
	for _, m := range t.Messages {
		for _, l := range m.LabelIds {
			labelSet[l] = struct{}{}
		}
		if containsLabel(m.LabelIds, domain.LabelUnread) {
			thread.HasUnread = true
			thread.IsRead = false
		}
	}
	thread.Labels = make([]string, 0, len(labelSet))
	for l := range labelSet {
		thread.Labels = append(thread.Labels, l)
	}

	if len(t.Messages) > 0 {
		first := t.Messages[0]
		last := t.Messages[len(t.Messages)-1]

		var firstHeaders, lastHeaders []*gmailapi.MessagePartHeader
		if first.Payload != nil {
			firstHeaders = first.Payload.Headers
		}
		if last.Payload != nil {
			lastHeaders = last.Payload.Headers
		}

		thread.Subject = findHeader(firstHeaders, "Subject")
		thread.FromAddress = parseAddress(findHeader(firstHeaders, "From"))
		thread.LastDate = parseDate(findHeader(lastHeaders, "Date"))
	}

	return thread
}

// mapThread converts a full-format Gmail thread, messages included.
func mapThread(t *gmailapi.Thread) domain.Thread {
	messages := make([]domain.Email, 0, len(t.Messages))
	for _, m := range t.Messages {
		messages = append(messages, *mapMessage(m))
	}

	thread := domain.Thread{
		ID:       t.Id,
		Snippet:  t.Snippet,
		Messages: messages,
		IsRead:   true,
	}

	if len(messages) > 0 {
		first := messages[0]
		last := messages[len(messages)-1]
		thread.Subject = first.Subject
		thread.FromAddress = first.From
		thread.LastDate = last.Date
	}

	labelSet := make(map[string]struct{})
	for i := range messages {
		for _, l := range messages[i].Labels {
			labelSet[l] = struct{}{}
		}
		if !messages[i].IsRead {
			thread.HasUnread = true
			thread.IsRead = false
		}
	}
	thread.Labels = make([]string, 0, len(labelSet))
	for l := range labelSet {
		thread.Labels = append(thread.Labels, l)
	}

	return thread
}

// mapMessage converts a Gmail API Message to a domain Email.
func mapMessage(msg *gmailapi.Message) *domain.Email {
	var headers []*gmailapi.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	text, html := extractBody(msg.Payload)
	attachments := extractAttachments(msg.Payload)

	return &domain.Email{
		ID:          msg.Id,
		ThreadID:    msg.ThreadId,
		From:        parseAddress(findHeader(headers, "From")),
		To:          parseAddressList(findHeader(headers, "To")),
		CC:          parseAddressList(findHeader(headers, "Cc")),
		Subject:     findHeader(headers, "Subject"),
		Body:        text,
		BodyHTML:    html,
		Date:        parseDate(findHeader(headers, "Date")),
		Labels:      msg.LabelIds,
		IsRead:      !containsLabel(msg.LabelIds, domain.LabelUnread),
		IsStarred:   containsLabel(msg.LabelIds, domain.LabelStarred),
		Attachments: attachments,
		InReplyTo:   findHeader(headers, "In-Reply-To"),
	}
}

// findHeader performs a case-insensitive lookup for a header value.
func findHeader(headers []*gmailapi.MessagePartHeader, name string) string {
	lower := strings.ToLower(name)
	for _, h := range headers {
		if strings.ToLower(h.Name) == lower {
			return h.Value
		}
	}
	return ""
}

// parseAddress parses an RFC 5322 address string into a domain Address.
// Falls back to treating the entire string as a bare email if parsing fails.
func parseAddress(s string) domain.Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Address{}
	}

	addr, err := mail.ParseAddress(s)
	if err != nil {
		return domain.Address{Email: s}
	}
	return domain.Address{
		Name:  addr.Name,
		Email: addr.Address,
	}
}

// parseAddressList parses a comma-separated list of RFC 5322 addresses.
func parseAddressList(s string) []domain.Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parsed, err := mail.ParseAddressList(s)
	if err != nil {
		// Fallback: split by comma and parse individually
		parts := strings.Split(s, ",")
		var addrs []domain.Address
		for _, p := range parts {
			if a := parseAddress(p); a.Email != "" {
				addrs = append(addrs, a)
			}
		}
		return addrs
	}

	addrs := make([]domain.Address, 0, len(parsed))
	for _, a := range parsed {
		addrs = append(addrs, domain.Address{
			Name:  a.Name,
			Email: a.Address,
		})
	}
	return addrs
}

// parseDate tries multiple date formats commonly used in email headers.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
		"2006-01-02T15:04:05Z07:00",
		"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// extractBody recursively extracts text/plain and text/html content from
// a message payload.
func extractBody(payload *gmailapi.MessagePart) (text, html string) {
	if payload == nil {
		return "", ""
	}

	if len(payload.Parts) > 0 {
		for _, part := range payload.Parts {
			t, h := extractBody(part)
			if text == "" && t != "" {
				text = t
			}
			if html == "" && h != "" {
				html = h
			}
		}
		return text, html
	}

	data := ""
	if payload.Body != nil {
		data = decodeBase64URL(payload.Body.Data)
	}

	switch payload.MimeType {
	case "text/plain":
		return data, ""
	case "text/html":
		return "", data
	}
	return "", ""
}

// extractAttachments collects attachment metadata from message parts.
func extractAttachments(payload *gmailapi.MessagePart) []domain.Attachment {
	if payload == nil {
		return nil
	}
	var attachments []domain.Attachment
	collectAttachments(payload, &attachments)
	return attachments
}

func collectAttachments(part *gmailapi.MessagePart, attachments *[]domain.Attachment) {
	if part.Filename != "" && part.Body != nil {
		*attachments = append(*attachments, domain.Attachment{
			ID:       part.Body.AttachmentId,
			Filename: part.Filename,
			MIMEType: part.MimeType,
			Size:     part.Body.Size,
		})
	}
	for _, p := range part.Parts {
		collectAttachments(p, attachments)
	}
}

// decodeBase64URL decodes Gmail's URL-safe base64 encoded strings
// (without padding).
func decodeBase64URL(s string) string {
	if s == "" {
		return ""
	}
	data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
	if err != nil {
		return ""
	}
	return string(data)
}

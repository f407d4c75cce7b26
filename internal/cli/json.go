package cli

import (
	"time"

	"github.com/breezemail/breeze/internal/domain"
)

// ---------------------------------------------------------------------------
// Account JSON types (account list)
// ---------------------------------------------------------------------------

type jsonAccount struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Provider  string `json:"provider"`
	CreatedAt string `json:"created_at"`
}

func toJSONAccounts(accounts []domain.Account) []jsonAccount {
	out := make([]jsonAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, jsonAccount{
			ID:        a.ID,
			Email:     a.Email,
			Provider:  a.Provider,
			CreatedAt: a.CreatedAt.Format(time.DateOnly),
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Thread JSON types (list)
// ---------------------------------------------------------------------------

type jsonThread struct {
	ID                string      `json:"id"`
	Subject           string      `json:"subject"`
	From              jsonAddress `json:"from"`
	LastDate          string      `json:"last_date"`
	MessageCount      int         `json:"message_count"`
	HasUnread         bool        `json:"has_unread"`
	Snippet           string      `json:"snippet,omitempty"`
	Labels            []string    `json:"labels,omitempty"`
	SnoozedUntil      string      `json:"snoozed_until,omitempty"`
	RecentlyUnsnoozed bool        `json:"recently_unsnoozed,omitempty"`
}

func toJSONThreads(threads []domain.Thread) []jsonThread {
	out := make([]jsonThread, 0, len(threads))
	for _, t := range threads {
		jt := jsonThread{
			ID:                t.ID,
			Subject:           t.Subject,
			From:              toJSONAddress(t.FromAddress),
			LastDate:          t.LastDate.Format(time.RFC3339),
			MessageCount:      t.TotalCount,
			HasUnread:         t.IsUnread(),
			Snippet:           t.Snippet,
			Labels:            t.Labels,
			RecentlyUnsnoozed: t.RecentlyUnsnoozed,
		}
		if t.SnoozedUntil != nil {
			jt.SnoozedUntil = t.SnoozedUntil.Format(time.RFC3339)
		}
		out = append(out, jt)
	}
	return out
}

// ---------------------------------------------------------------------------
// Thread detail JSON type (read)
// ---------------------------------------------------------------------------

type jsonThreadDetail struct {
	ID       string        `json:"id"`
	Subject  string        `json:"subject"`
	Messages []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID        string        `json:"id"`
	ThreadID  string        `json:"thread_id"`
	From      jsonAddress   `json:"from"`
	To        []jsonAddress `json:"to,omitempty"`
	CC        []jsonAddress `json:"cc,omitempty"`
	Subject   string        `json:"subject"`
	Body      string        `json:"body"`
	Date      string        `json:"date"`
	IsRead    bool          `json:"is_read"`
	IsStarred bool          `json:"is_starred"`
	Labels    []string      `json:"labels,omitempty"`
}

func toJSONThreadDetail(t *domain.Thread) jsonThreadDetail {
	msgs := make([]jsonMessage, 0, len(t.Messages))
	for _, m := range t.Messages {
		msgs = append(msgs, toJSONMessage(&m))
	}
	return jsonThreadDetail{
		ID:       t.ID,
		Subject:  t.Subject,
		Messages: msgs,
	}
}

func toJSONMessage(e *domain.Email) jsonMessage {
	return jsonMessage{
		ID:        e.ID,
		ThreadID:  e.ThreadID,
		From:      toJSONAddress(e.From),
		To:        toJSONAddresses(e.To),
		CC:        toJSONAddresses(e.CC),
		Subject:   e.Subject,
		Body:      e.Body,
		Date:      e.Date.Format(time.RFC3339),
		IsRead:    e.IsRead,
		IsStarred: e.IsStarred,
		Labels:    e.Labels,
	}
}

// ---------------------------------------------------------------------------
// Address JSON type (shared)
// ---------------------------------------------------------------------------

type jsonAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

func toJSONAddress(a domain.Address) jsonAddress {
	return jsonAddress{Name: a.Name, Email: a.Email}
}

func toJSONAddresses(addrs []domain.Address) []jsonAddress {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]jsonAddress, len(addrs))
	for i, a := range addrs {
		out[i] = toJSONAddress(a)
	}
	return out
}

// ---------------------------------------------------------------------------
// Action JSON type (archive, snooze, compose, reply, star, etc.)
// ---------------------------------------------------------------------------

type jsonDraft struct {
	OK       bool   `json:"ok"`
	DraftID  string `json:"draft_id"`
	ThreadID string `json:"thread_id,omitempty"`
}

type jsonAction struct {
	OK       bool   `json:"ok"`
	Action   string `json:"action"`
	ThreadID string `json:"thread_id,omitempty"`
	Email    string `json:"email,omitempty"`
	Until    string `json:"until,omitempty"`
	Count    int    `json:"count,omitempty"`
}

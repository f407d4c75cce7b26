package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/breezemail/breeze/internal/domain"
)

// Messages emitted by readerModel.

type replyMsg struct {
	email    *domain.Email
	replyAll bool
}

type closeReaderMsg struct{}

// readerModel is a Bubble Tea sub-model for displaying a thread's
// messages in a scrollable viewport.
type readerModel struct {
	thread       *domain.Thread
	content      string
	scrollOffset int
	maxScroll    int
	width        int
	height       int
	focused      bool
	visible      bool
}

func newReader() readerModel {
	return readerModel{}
}

func (r readerModel) Update(msg tea.Msg) (readerModel, tea.Cmd) {
	if !r.focused || !r.visible {
		return r, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if r.scrollOffset > 0 {
				r.scrollOffset--
			}

		case key.Matches(msg, keys.Down):
			if r.scrollOffset < r.maxScroll {
				r.scrollOffset++
			}

		case key.Matches(msg, keys.Back):
			return r, func() tea.Msg {
				return closeReaderMsg{}
			}

		case key.Matches(msg, keys.Reply):
			if email := r.lastMessage(); email != nil {
				return r, func() tea.Msg {
					return replyMsg{email: email, replyAll: false}
				}
			}

		case key.Matches(msg, keys.ReplyAll):
			if email := r.lastMessage(); email != nil {
				return r, func() tea.Msg {
					return replyMsg{email: email, replyAll: true}
				}
			}

		case key.Matches(msg, keys.Archive):
			if r.thread != nil {
				id := r.thread.ID
				return r, func() tea.Msg {
					return threadActionMsg{threadID: id, action: "archive"}
				}
			}

		case key.Matches(msg, keys.Snooze):
			if r.thread != nil {
				id := r.thread.ID
				return r, func() tea.Msg {
					return threadActionMsg{threadID: id, action: "snooze"}
				}
			}

		case key.Matches(msg, keys.Star):
			if r.thread != nil {
				id := r.thread.ID
				return r, func() tea.Msg {
					return threadActionMsg{threadID: id, action: "star"}
				}
			}
		}
	}

	return r, nil
}

func (r readerModel) View() string {
	if !r.visible || r.width == 0 || r.height == 0 {
		return ""
	}

	if r.content == "" {
		return mutedTextStyle.Render("No thread selected")
	}

	lines := strings.Split(r.content, "\n")

	visibleHeight := r.height
	if visibleHeight < 1 {
		visibleHeight = 1
	}

	end := r.scrollOffset + visibleHeight
	if end > len(lines) {
		end = len(lines)
	}

	start := r.scrollOffset
	if start > len(lines) {
		start = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

// ShowThread displays a thread's messages in the reader pane.
func (r *readerModel) ShowThread(thread *domain.Thread) {
	r.thread = thread
	r.visible = true
	r.scrollOffset = 0
	r.content = renderThread(thread, r.width)
	r.recalcMaxScroll()
}

// Close hides the reader and clears its content.
func (r *readerModel) Close() {
	r.visible = false
	r.thread = nil
	r.content = ""
	r.scrollOffset = 0
	r.maxScroll = 0
}

// SetSize updates the reader dimensions and recalculates scroll bounds.
func (r *readerModel) SetSize(w, h int) {
	r.width = w
	r.height = h
	if r.thread != nil {
		r.content = renderThread(r.thread, r.width)
	}
	r.recalcMaxScroll()
}

// IsVisible returns whether the reader pane is currently shown.
func (r readerModel) IsVisible() bool {
	return r.visible
}

// ThreadID returns the ID of the displayed thread, if any.
func (r readerModel) ThreadID() string {
	if r.thread == nil {
		return ""
	}
	return r.thread.ID
}

// --- internal helpers ---

// lastMessage returns the most recent message, the one replies target.
func (r readerModel) lastMessage() *domain.Email {
	if r.thread == nil || len(r.thread.Messages) == 0 {
		return nil
	}
	return &r.thread.Messages[len(r.thread.Messages)-1]
}

func (r *readerModel) recalcMaxScroll() {
	if r.content == "" {
		r.maxScroll = 0
		r.scrollOffset = 0
		return
	}

	lines := strings.Split(r.content, "\n")
	visibleHeight := r.height
	if visibleHeight < 1 {
		visibleHeight = 1
	}

	r.maxScroll = len(lines) - visibleHeight
	if r.maxScroll < 0 {
		r.maxScroll = 0
	}

	// Clamp current scroll offset.
	if r.scrollOffset > r.maxScroll {
		r.scrollOffset = r.maxScroll
	}
}

// renderMessage formats a single message as a plain-text block with
// headers and body.
func renderMessage(email *domain.Email, width int) string {
	var b strings.Builder

	b.WriteString(mutedTextStyle.Render("From:    "))
	b.WriteString(email.From.String())
	b.WriteByte('\n')

	b.WriteString(mutedTextStyle.Render("To:      "))
	b.WriteString(formatAddresses(email.To))
	b.WriteByte('\n')

	if len(email.CC) > 0 {
		b.WriteString(mutedTextStyle.Render("CC:      "))
		b.WriteString(formatAddresses(email.CC))
		b.WriteByte('\n')
	}

	b.WriteString(mutedTextStyle.Render("Date:    "))
	b.WriteString(email.Date.Format("Jan 2, 2006 3:04 PM"))
	b.WriteByte('\n')

	b.WriteString(mutedTextStyle.Render("Subject: "))
	b.WriteString(email.Subject)
	b.WriteByte('\n')

	sepWidth := width
	if sepWidth < 20 {
		sepWidth = 20
	}
	b.WriteString(mutedTextStyle.Render(strings.Repeat("─", sepWidth)))
	b.WriteByte('\n')

	body := email.Body
	if body == "" && email.BodyHTML != "" {
		body = "[HTML content - plain text not available]"
	}
	if body != "" {
		b.WriteByte('\n')
		b.WriteString(body)
	}

	return b.String()
}

// renderThread formats all messages in a thread, most recent at the
// bottom, separated by rule lines.
func renderThread(thread *domain.Thread, width int) string {
	if len(thread.Messages) == 0 {
		return mutedTextStyle.Render("Empty thread")
	}

	var parts []string
	for i := range thread.Messages {
		parts = append(parts, renderMessage(&thread.Messages[i], width))
	}

	sepWidth := width
	if sepWidth < 20 {
		sepWidth = 20
	}
	separator := "\n" + mutedTextStyle.Render(strings.Repeat("─", sepWidth)) + "\n"

	return strings.Join(parts, separator)
}

// formatAddresses joins a slice of addresses into a comma-separated string.
func formatAddresses(addrs []domain.Address) string {
	if len(addrs) == 0 {
		return ""
	}

	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

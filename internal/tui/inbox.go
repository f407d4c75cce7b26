package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/breezemail/breeze/internal/domain"
)

// Messages emitted by inboxModel.

type threadSelectedMsg struct {
	threadID string
}

type threadActionMsg struct {
	threadID string
	action   string
}

type loadMoreMsg struct{}

// inboxModel is a Bubble Tea sub-model that displays a folder's thread list.
type inboxModel struct {
	threads []domain.Thread
	hasMore bool
	cursor  int
	offset  int
	width   int
	height  int
	focused bool
}

func newInbox() inboxModel {
	return inboxModel{}
}

func (m inboxModel) Update(msg tea.Msg) (inboxModel, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustScroll()
			}

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.threads)-1 {
				m.cursor++
				m.adjustScroll()
			}

		case key.Matches(msg, keys.Enter):
			return m, m.selectItem()

		case key.Matches(msg, keys.Archive):
			return m, m.actionCmd("archive")

		case key.Matches(msg, keys.Snooze):
			return m, m.actionCmd("snooze")

		case key.Matches(msg, keys.Star):
			return m, m.actionCmd("star")

		case key.Matches(msg, keys.More):
			if m.hasMore {
				return m, func() tea.Msg { return loadMoreMsg{} }
			}
		}
	}

	return m, nil
}

func (m inboxModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if len(m.threads) == 0 {
		return mutedTextStyle.Render("No messages")
	}

	var b strings.Builder
	visible := m.visibleRows()
	end := m.offset + visible
	if end > len(m.threads) {
		end = len(m.threads)
	}

	for i := m.offset; i < end; i++ {
		if i > m.offset {
			b.WriteByte('\n')
		}
		line := m.renderThreadRow(i)
		if i == m.cursor && m.focused {
			line = selectedStyle.Width(m.width).Render(line)
		}
		b.WriteString(line)
	}

	if m.hasMore && end == len(m.threads) {
		b.WriteByte('\n')
		b.WriteString(mutedTextStyle.Render("  m: load more"))
	}

	return b.String()
}

// SetThreads replaces the displayed list.
func (m *inboxModel) SetThreads(threads []domain.Thread, hasMore bool) {
	m.threads = threads
	m.hasMore = hasMore
	m.clampCursor()
}

// SetSize updates the dimensions available for rendering.
func (m *inboxModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.adjustScroll()
}

// SelectedThreadID returns the ID of the currently highlighted thread.
func (m inboxModel) SelectedThreadID() string {
	if len(m.threads) == 0 || m.cursor >= len(m.threads) {
		return ""
	}
	return m.threads[m.cursor].ID
}

// --- internal helpers ---

func (m inboxModel) visibleRows() int {
	if m.height < 1 {
		return 1
	}
	return m.height
}

func (m *inboxModel) adjustScroll() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

func (m *inboxModel) clampCursor() {
	if len(m.threads) == 0 {
		m.cursor = 0
		m.offset = 0
		return
	}
	if m.cursor >= len(m.threads) {
		m.cursor = len(m.threads) - 1
	}
	m.adjustScroll()
}

func (m inboxModel) selectItem() tea.Cmd {
	id := m.SelectedThreadID()
	if id == "" {
		return nil
	}
	return func() tea.Msg {
		return threadSelectedMsg{threadID: id}
	}
}

func (m inboxModel) actionCmd(action string) tea.Cmd {
	id := m.SelectedThreadID()
	if id == "" {
		return nil
	}
	return func() tea.Msg {
		return threadActionMsg{threadID: id, action: action}
	}
}

func (m inboxModel) renderThreadRow(idx int) string {
	if idx >= len(m.threads) {
		return ""
	}
	t := m.threads[idx]

	star := "  "
	if t.HasLabel(domain.LabelStarred) {
		star = starStyle.Render("★ ")
	}

	from := threadFromName(t)
	count := fmt.Sprintf("(%d)", t.MessageCount())
	date := relativeDate(t.LastDate)

	badge := ""
	switch {
	case t.SnoozedUntil != nil:
		badge = snoozeStyle.Render(fmt.Sprintf("[until %s] ", t.SnoozedUntil.Format("Jan 2 15:04")))
	case t.RecentlyUnsnoozed:
		badge = badgeStyle.Render("[back] ")
	}

	fromWidth := 18
	countWidth := len(count) + 1 // +1 for leading space
	dateWidth := len(date)
	badgeWidth := lipgloss.Width(badge)
	subjectWidth := m.width - fromWidth - countWidth - dateWidth - badgeWidth - 6 // star(2) + two "  " gaps(4)
	if subjectWidth < 10 {
		subjectWidth = 10
	}

	from = truncate(from, fromWidth)
	subject := truncate(t.Subject, subjectWidth)

	fromCol := lipgloss.NewStyle().Width(fromWidth).Render(from)
	countCol := mutedTextStyle.Render(" " + count)
	subjectCol := lipgloss.NewStyle().Width(subjectWidth).Render(subject)
	dateCol := mutedTextStyle.Width(dateWidth).Render(date)

	line := star + fromCol + countCol + "  " + badge + subjectCol + "  " + dateCol

	if t.IsUnread() {
		line = unreadStyle.Render(line)
	}

	return line
}

// --- utility functions ---

func addressDisplayName(addr domain.Address) string {
	if addr.Name != "" {
		return addr.Name
	}
	return addr.Email
}

func threadFromName(t domain.Thread) string {
	if t.FromAddress.Name != "" || t.FromAddress.Email != "" {
		return addressDisplayName(t.FromAddress)
	}
	if len(t.Messages) > 0 {
		return addressDisplayName(t.Messages[0].From)
	}
	return "Unknown"
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func relativeDate(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

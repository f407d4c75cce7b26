package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type statusBar struct {
	message       string
	width         int
	isError       bool
	readerVisible bool

	// undoRemaining is how long the most recent archive stays
	// reversible; zero means no undo is pending.
	undoRemaining time.Duration

	// stale marks the visible folder as older than the fresh window.
	stale bool
}

func newStatusBar() statusBar {
	return statusBar{message: "Ready"}
}

func (s *statusBar) setMessage(msg string) {
	s.message = msg
	s.isError = false
}

func (s *statusBar) setError(msg string) {
	s.message = msg
	s.isError = true
}

func (s statusBar) View() string {
	msgStyle := statusBarStyle
	if s.isError {
		msgStyle = msgStyle.Foreground(errorColor)
	}

	left := s.message
	if s.undoRemaining > 0 {
		secs := int(s.undoRemaining.Round(time.Second).Seconds())
		if secs < 1 {
			secs = 1
		}
		left += "  " + undoStyle.Render(fmt.Sprintf("z:undo (%ds)", secs))
	}
	if s.stale {
		left += "  " + mutedTextStyle.Render("refreshing…")
	}

	shortcuts := s.shortcuts()

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(shortcuts) - 2
	if gap < 0 {
		gap = 0
	}

	content := left + lipgloss.NewStyle().Width(gap).Render("") + mutedTextStyle.Render(shortcuts)
	return msgStyle.Width(s.width).Render(content)
}

func (s statusBar) shortcuts() string {
	if s.readerVisible {
		return "r:reply  a:archive  b:snooze  s:star  esc:back"
	}
	return "j/k:nav  enter:open  a:archive  b:snooze  c:compose  g:refresh"
}

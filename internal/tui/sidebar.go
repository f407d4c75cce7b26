package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/breezemail/breeze/internal/domain"
)

// folderSelectedMsg is sent when the user selects a folder via Enter.
type folderSelectedMsg struct {
	folder domain.FolderID
}

// sidebarModel displays the fixed list of folder views.
type sidebarModel struct {
	folders      []domain.Folder
	cursor       int
	activeFolder domain.FolderID
	accountEmail string
	width        int
	height       int
	focused      bool
}

// newSidebar creates a new sidebar with the Inbox as the active folder.
func newSidebar() sidebarModel {
	return sidebarModel{
		folders:      domain.Folders(),
		activeFolder: domain.FolderInbox,
	}
}

// SetSize updates the sidebar dimensions.
func (s *sidebarModel) SetSize(w, h int) {
	s.width = w
	s.height = h
}

// Update handles key events for sidebar navigation.
func (s sidebarModel) Update(msg tea.Msg) (sidebarModel, tea.Cmd) {
	if !s.focused || len(s.folders) == 0 {
		return s, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			s.cursor--
			if s.cursor < 0 {
				s.cursor = len(s.folders) - 1
			}
		case key.Matches(msg, keys.Down):
			s.cursor++
			if s.cursor >= len(s.folders) {
				s.cursor = 0
			}
		case key.Matches(msg, keys.Enter):
			f := s.folders[s.cursor]
			s.activeFolder = f.ID
			return s, func() tea.Msg {
				return folderSelectedMsg{folder: f.ID}
			}
		}
	}

	return s, nil
}

// View renders the sidebar.
func (s sidebarModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("breeze"))
	b.WriteString("\n")
	if s.accountEmail != "" {
		b.WriteString(mutedTextStyle.Render(truncateEmail(s.accountEmail, max(s.width, 10))))
	}
	b.WriteString("\n")

	for i, f := range s.folders {
		b.WriteString(s.renderLine(f, i))
		b.WriteString("\n")
	}

	return b.String()
}

// renderLine renders a single folder line with cursor highlighting and
// an active marker.
func (s sidebarModel) renderLine(f domain.Folder, idx int) string {
	prefix := "  "
	if f.ID == s.activeFolder {
		prefix = "▶ "
	}

	line := fmt.Sprintf("%s%s", prefix, f.Name)

	// Pad to width so highlight covers the full line.
	padded := lipgloss.NewStyle().Width(max(s.width, 10)).Render(line)

	if s.focused && idx == s.cursor {
		return selectedStyle.Render(padded)
	}

	return padded
}

// truncateEmail shortens an email address to fit within maxLen.
func truncateEmail(email string, maxLen int) string {
	if len(email) <= maxLen {
		return email
	}
	if maxLen <= 3 {
		return email[:maxLen]
	}
	return email[:maxLen-1] + "…"
}

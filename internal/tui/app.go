package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/breezemail/breeze/internal/cache"
	"github.com/breezemail/breeze/internal/config"
	"github.com/breezemail/breeze/internal/domain"
	"github.com/breezemail/breeze/internal/session"
)

type pane int

const (
	paneSidebar pane = iota
	paneList
	paneReader
)

// --- async result messages ---

type folderLoadedMsg struct {
	folder domain.FolderID
	entry  cache.Entry
	err    error
}

type moreLoadedMsg struct {
	folder domain.FolderID
	entry  cache.Entry
	err    error
}

type threadLoadedMsg struct {
	thread *domain.Thread
}

type archivedMsg struct {
	undo cache.PendingUndo
}

type undoneMsg struct{}

type snoozedMsg struct {
	until time.Time
}

type actionDoneMsg struct {
	action string
}

type sentMsg struct{}

type draftSavedMsg struct{}

type tickMsg time.Time

type errMsg struct {
	err error
}

// --- root model ---

type model struct {
	sess      *session.Session
	refresher *session.Refresher
	accounts  []domain.Account

	folder domain.FolderID

	sidebar  sidebarModel
	inbox    inboxModel
	reader   readerModel
	composer composerModel

	activePane pane
	statusBar  statusBar

	width  int
	height int
}

// newModel creates the root TUI model over a signed-in session.
func newModel(sess *session.Session, refresher *session.Refresher, accounts []domain.Account) model {
	inbox := newInbox()
	inbox.focused = true

	sidebar := newSidebar()
	sidebar.accountEmail = sess.AccountID()

	return model{
		sess:       sess,
		refresher:  refresher,
		accounts:   accounts,
		folder:     domain.FolderInbox,
		activePane: paneList,
		sidebar:    sidebar,
		inbox:      inbox,
		reader:     newReader(),
		composer:   newComposer(),
		statusBar:  newStatusBar(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.loadFolderCmd(m.folder, false),
		tickCmd(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	// --- window resize ---
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.width = msg.Width
		m.resizeSubModels()
		return m, nil

	// --- periodic tick: undo countdown + background refresh pickup ---
	case tickMsg:
		m.syncFromCache()
		return m, tickCmd()

	// --- async result messages ---
	case folderLoadedMsg:
		// Ignore results for a folder the user already navigated away
		// from; the cache's generation guard has discarded them too.
		if msg.folder != m.folder {
			return m, nil
		}
		if msg.err != nil {
			m.statusBar.setError(fmt.Sprintf("Error: %v", msg.err))
		} else {
			m.statusBar.setMessage(fmt.Sprintf("Loaded %d threads", len(msg.entry.Threads)))
		}
		m.syncFromCache()
		return m, nil

	case moreLoadedMsg:
		if msg.folder != m.folder {
			return m, nil
		}
		if msg.err != nil {
			m.statusBar.setError(fmt.Sprintf("Error: %v", msg.err))
		} else {
			m.statusBar.setMessage(fmt.Sprintf("Loaded %d threads", len(msg.entry.Threads)))
		}
		m.syncFromCache()
		return m, nil

	case threadLoadedMsg:
		if msg.thread != nil {
			m.reader.ShowThread(msg.thread)
			m.setFocus(paneReader)
			m.statusBar.readerVisible = true
			m.resizeSubModels()
		}
		return m, nil

	case archivedMsg:
		m.statusBar.setMessage("Archived")
		m.syncFromCache()
		if m.reader.IsVisible() && m.reader.ThreadID() == msg.undo.ThreadID {
			m.reader.Close()
			m.statusBar.readerVisible = false
			m.setFocus(paneList)
		}
		return m, nil

	case undoneMsg:
		m.statusBar.setMessage("Archive undone")
		m.syncFromCache()
		return m, nil

	case snoozedMsg:
		m.statusBar.setMessage(fmt.Sprintf("Snoozed until %s", msg.until.Format("Mon Jan 2 15:04")))
		m.syncFromCache()
		if m.reader.IsVisible() {
			m.reader.Close()
			m.statusBar.readerVisible = false
			m.setFocus(paneList)
		}
		return m, nil

	case actionDoneMsg:
		m.statusBar.setMessage(fmt.Sprintf("Action: %s done", msg.action))
		m.syncFromCache()
		return m, nil

	case sentMsg:
		m.composer.Close()
		m.refresher.Resume()
		m.statusBar.setMessage("Email sent")
		m.setFocus(paneList)
		m.syncFromCache()
		return m, nil

	case draftSavedMsg:
		m.statusBar.setMessage("Draft saved")
		return m, nil

	case errMsg:
		m.statusBar.setError(fmt.Sprintf("Error: %v", msg.err))
		return m, nil

	// --- sub-model emitted messages ---
	case folderSelectedMsg:
		m.folder = msg.folder
		m.refresher.SetVisible(msg.folder)
		m.reader.Close()
		m.statusBar.readerVisible = false
		m.inbox.cursor = 0
		m.inbox.offset = 0
		m.setFocus(paneList)
		m.syncFromCache()
		m.statusBar.setMessage(fmt.Sprintf("Loading %s...", msg.folder))
		return m, m.loadFolderCmd(msg.folder, false)

	case threadSelectedMsg:
		m.statusBar.setMessage("Loading thread...")
		return m, tea.Batch(
			m.loadThreadCmd(msg.threadID),
			m.markReadCmd(msg.threadID),
		)

	case threadActionMsg:
		return m, m.performActionCmd(msg.threadID, msg.action)

	case loadMoreMsg:
		m.statusBar.setMessage("Loading more...")
		return m, m.loadMoreCmd(m.folder)

	case replyMsg:
		m.composer.Reply(msg.email, msg.replyAll)
		m.refresher.Pause()
		m.resizeComposer()
		return m, nil

	case closeReaderMsg:
		m.reader.Close()
		m.statusBar.readerVisible = false
		m.setFocus(paneList)
		return m, nil

	case sendMsg:
		m.statusBar.setMessage("Sending email...")
		return m, m.sendEmailCmd(msg.email)

	case cancelComposeMsg:
		var cmd tea.Cmd
		if !m.composer.IsEmpty() {
			cmd = m.saveDraftCmd(m.composer.BuildDraft())
		}
		m.composer.Close()
		m.refresher.Resume()
		m.setFocus(paneList)
		return m, cmd

	// --- key events ---
	case tea.KeyMsg:
		// Composer gets all key events when visible.
		if m.composer.IsVisible() {
			var cmd tea.Cmd
			m.composer, cmd = m.composer.Update(msg)
			return m, cmd
		}

		// Global keys (when no overlay).
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Compose):
			m.composer.Compose()
			m.refresher.Pause()
			m.resizeComposer()
			return m, nil

		case key.Matches(msg, keys.Undo):
			if len(m.sess.PendingUndos()) == 0 {
				m.statusBar.setMessage("Nothing to undo")
				return m, nil
			}
			m.statusBar.setMessage("Undoing...")
			return m, m.undoCmd()

		case key.Matches(msg, keys.Refresh):
			m.statusBar.setMessage("Refreshing...")
			return m, m.loadFolderCmd(m.folder, true)

		case key.Matches(msg, keys.Tab):
			if m.reader.IsVisible() {
				if m.activePane == paneList {
					m.setFocus(paneReader)
				} else {
					m.setFocus(paneList)
				}
			} else {
				if m.activePane == paneSidebar {
					m.setFocus(paneList)
				} else {
					m.setFocus(paneSidebar)
				}
			}
			return m, nil
		}

		// Delegate to focused sub-model.
		switch m.activePane {
		case paneSidebar:
			var cmd tea.Cmd
			m.sidebar, cmd = m.sidebar.Update(msg)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}

		case paneList:
			var cmd tea.Cmd
			m.inbox, cmd = m.inbox.Update(msg)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}

		case paneReader:
			var cmd tea.Cmd
			m.reader, cmd = m.reader.Update(msg)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
		}

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sidebarWidth, contentWidth := m.layoutWidths()
	contentHeight := m.height - 3 // reserve space for status bar

	sidebarView := sidebarStyle.
		Width(sidebarWidth).
		Height(contentHeight).
		Render(m.sidebar.View())

	var contentView string

	switch {
	case m.composer.IsVisible():
		// Composer handles its own border/padding.
		contentView = lipgloss.NewStyle().
			Width(contentWidth).
			Height(contentHeight).
			Render(m.composer.View())

	case m.reader.IsVisible():
		// Split view: list (top half) + reader (bottom half).
		listHeight := contentHeight / 2
		readerHeight := contentHeight - listHeight

		listView := listStyle.
			Width(contentWidth).
			Height(listHeight).
			Render(m.inbox.View())

		readerView := readerStyle.
			Width(contentWidth).
			Height(readerHeight).
			Render(m.reader.View())

		contentView = lipgloss.JoinVertical(lipgloss.Left, listView, readerView)

	default:
		contentView = listStyle.
			Width(contentWidth).
			Height(contentHeight).
			Render(m.inbox.View())
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebarView, contentView)
	sb := m.statusBar.View()

	return lipgloss.JoinVertical(lipgloss.Left, main, sb)
}

// --- cache sync ---

// syncFromCache re-reads the visible folder from the session cache. All
// mutations reconcile the cache first, so this is the single place the
// list view picks up their effects, including ones applied by the
// background refresher.
func (m *model) syncFromCache() {
	entry, freshness := m.sess.Cached(m.folder)
	m.inbox.SetThreads(entry.Threads, entry.HasMore())
	m.statusBar.stale = freshness == cache.Stale

	if remaining, ok := m.sess.UndoRemaining(); ok {
		m.statusBar.undoRemaining = remaining
	} else {
		m.statusBar.undoRemaining = 0
	}
}

// --- focus management ---

func (m *model) setFocus(p pane) {
	m.activePane = p
	m.sidebar.focused = (p == paneSidebar)
	m.inbox.focused = (p == paneList)
	m.reader.focused = (p == paneReader)
}

// --- layout helpers ---

func (m model) layoutWidths() (sidebarWidth, contentWidth int) {
	sidebarWidth = m.width / 5
	if sidebarWidth < 20 {
		sidebarWidth = 20
	}
	contentWidth = m.width - sidebarWidth - 2
	return
}

func (m *model) resizeSubModels() {
	sidebarWidth, contentWidth := m.layoutWidths()
	contentHeight := m.height - 3

	// Pass content area dimensions (subtract border + padding from each style).
	// sidebarStyle: Border(2h + 2v) + Padding(2h + 2v) = 4h, 4v
	m.sidebar.SetSize(sidebarWidth-4, contentHeight-4)

	// listStyle: Border(2h + 2v) + Padding(2h + 0v) = 4h, 2v
	if m.reader.IsVisible() {
		listHeight := contentHeight / 2
		readerHeight := contentHeight - listHeight
		m.inbox.SetSize(contentWidth-4, listHeight-2)
		// readerStyle: Border(2h + 2v) + Padding(4h + 2v) = 6h, 4v
		m.reader.SetSize(contentWidth-6, readerHeight-4)
	} else {
		m.inbox.SetSize(contentWidth-4, contentHeight-2)
	}

	m.resizeComposer()
}

func (m *model) resizeComposer() {
	_, contentWidth := m.layoutWidths()
	contentHeight := m.height - 3
	m.composer.SetSize(contentWidth, contentHeight)
}

// --- async commands ---

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) loadFolderCmd(folder domain.FolderID, force bool) tea.Cmd {
	return func() tea.Msg {
		entry, err := m.sess.Folder(context.Background(), folder, force)
		return folderLoadedMsg{folder: folder, entry: entry, err: err}
	}
}

func (m model) loadMoreCmd(folder domain.FolderID) tea.Cmd {
	return func() tea.Msg {
		entry, err := m.sess.LoadMore(context.Background(), folder)
		return moreLoadedMsg{folder: folder, entry: entry, err: err}
	}
}

func (m model) loadThreadCmd(threadID string) tea.Cmd {
	return func() tea.Msg {
		thread, err := m.sess.Thread(context.Background(), threadID)
		if err != nil {
			return errMsg{err: err}
		}
		return threadLoadedMsg{thread: thread}
	}
}

func (m model) markReadCmd(threadID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.sess.MarkRead(context.Background(), threadID); err != nil {
			return errMsg{err: err}
		}
		return actionDoneMsg{action: "mark read"}
	}
}

func (m model) performActionCmd(threadID, action string) tea.Cmd {
	switch action {
	case "archive":
		folder := m.folder
		return func() tea.Msg {
			undo, err := m.sess.Archive(context.Background(), folder, threadID)
			if err != nil {
				return errMsg{err: err}
			}
			return archivedMsg{undo: undo}
		}

	case "snooze":
		folder := m.folder
		until := defaultSnoozeUntil(time.Now())
		return func() tea.Msg {
			if err := m.sess.Snooze(context.Background(), folder, threadID, until); err != nil {
				return errMsg{err: err}
			}
			return snoozedMsg{until: until}
		}

	case "star":
		starred := true
		if t, ok := m.threadByID(threadID); ok && t.HasLabel(domain.LabelStarred) {
			starred = false
		}
		return func() tea.Msg {
			if err := m.sess.Star(context.Background(), threadID, starred); err != nil {
				return errMsg{err: err}
			}
			if starred {
				return actionDoneMsg{action: "star"}
			}
			return actionDoneMsg{action: "unstar"}
		}

	default:
		return func() tea.Msg {
			return errMsg{err: fmt.Errorf("unknown action: %s", action)}
		}
	}
}

func (m model) undoCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.sess.UndoAll(context.Background()); err != nil {
			return errMsg{err: err}
		}
		return undoneMsg{}
	}
}

func (m model) sendEmailCmd(email *domain.Email) tea.Cmd {
	return func() tea.Msg {
		if err := m.sess.Send(context.Background(), email); err != nil {
			return errMsg{err: err}
		}
		return sentMsg{}
	}
}

func (m model) saveDraftCmd(draft *domain.Draft) tea.Cmd {
	return func() tea.Msg {
		if err := m.sess.SaveDraft(context.Background(), draft); err != nil {
			return errMsg{err: err}
		}
		return draftSavedMsg{}
	}
}

// threadByID finds a thread in the currently displayed list.
func (m model) threadByID(id string) (domain.Thread, bool) {
	for _, t := range m.inbox.threads {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Thread{}, false
}

// defaultSnoozeUntil picks the wake time for a one-key snooze:
// tomorrow morning at 8:00 local time.
func defaultSnoozeUntil(now time.Time) time.Time {
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 8, 0, 0, 0, now.Location())
}

// Run starts the Bubble Tea TUI application over a signed-in session.
// A background refresher keeps the visible folder current and wakes
// expired snoozes while the UI is open.
func Run(sess *session.Session, accounts []domain.Account, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := session.NewRefresher(sess, cfg.RefreshInterval())
	go refresher.Run(ctx)

	prog := tea.NewProgram(
		newModel(sess, refresher, accounts),
		tea.WithAltScreen(),
	)
	_, err := prog.Run()
	return err
}

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Back     key.Binding
	Compose  key.Binding
	Reply    key.Binding
	ReplyAll key.Binding
	Archive  key.Binding
	Snooze   key.Binding
	Undo     key.Binding
	Star     key.Binding
	Refresh  key.Binding
	More     key.Binding
	Tab      key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Compose:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "compose")),
	Reply:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reply")),
	ReplyAll: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reply all")),
	Archive:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive")),
	Snooze:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "snooze")),
	Undo:     key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "undo")),
	Star:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "star")),
	Refresh:  key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "refresh")),
	More:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "load more")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

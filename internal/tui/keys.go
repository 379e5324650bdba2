package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the set of bindings shown in the help footer
type KeyMap struct {
	Toggle  key.Binding
	Reset   key.Binding
	Finish  key.Binding
	Mode    key.Binding
	Longer  key.Binding
	Shorter key.Binding
	NextTab key.Binding
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Sync    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start/pause")),
		Reset:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Finish:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "finish")),
		Mode:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mode")),
		Longer:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "+5 min")),
		Shorter: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "-5 min")),
		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:  key.NewBinding(key.WithKeys("enter", "x"), key.WithHelp("enter", "toggle")),
		Sync:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync now")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Mode, k.NextTab, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Reset, k.Finish, k.Mode},
		{k.Longer, k.Shorter, k.Sync},
		{k.NextTab, k.Up, k.Down, k.Select},
		{k.Help, k.Quit},
	}
}

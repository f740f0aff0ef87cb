package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Toggle    key.Binding
	Recursive key.Binding
	Fold      key.Binding
	Unfold    key.Binding
	FoldAll   key.Binding
	UnfoldAll key.Binding
	Level     key.Binding
	Parent    key.Binding
	Next      key.Binding
	Previous  key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:    key.NewBinding(key.WithKeys("pgup", "b"), key.WithHelp("pgup", "page up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown", "f"), key.WithHelp("pgdn", "page down")),
		Toggle:    key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle")),
		Recursive: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle recursively")),
		Fold:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "fold")),
		Unfold:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "unfold")),
		FoldAll:   key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "fold all")),
		UnfoldAll: key.NewBinding(key.WithKeys("U"), key.WithHelp("U", "unfold all")),
		Level:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "fold level")),
		Parent:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "parent fold")),
		Next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next fold")),
		Previous:  key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "previous fold")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.FoldAll, k.UnfoldAll, k.Level, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Toggle, k.Recursive, k.Fold, k.Unfold},
		{k.FoldAll, k.UnfoldAll, k.Level},
		{k.Parent, k.Next, k.Previous, k.Help, k.Quit},
	}
}

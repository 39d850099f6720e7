package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap is built once when the model is created. Update matches against it
// and the help footer renders it.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Add      key.Binding
	Edit     key.Binding
	Priority key.Binding
	Toggle   key.Binding
	Delete   key.Binding
	Filter   key.Binding
	Search   key.Binding
	Reload   key.Binding
	Help     key.Binding
	Quit     key.Binding

	// input modes
	Submit      key.Binding
	Cancel      key.Binding
	NextOnInput key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Priority: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "priority"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "space", "x"),
			key.WithHelp("space/x", "toggle"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filter"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		NextOnInput: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "priority"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Delete, k.Filter, k.Search, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Add, k.Edit, k.Priority},
		{k.Toggle, k.Delete},
		{k.Filter, k.Search, k.Reload},
		{k.Help, k.Quit},
	}
}

// inputKeys is the help shown while a text input has focus.
type inputKeys struct {
	keys     keyMap
	priority bool
}

func (k inputKeys) ShortHelp() []key.Binding {
	if k.priority {
		return []key.Binding{k.keys.Submit, k.keys.NextOnInput, k.keys.Cancel}
	}
	return []key.Binding{k.keys.Submit, k.keys.Cancel}
}

func (k inputKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

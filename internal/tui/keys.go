package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	NextSlot key.Binding
	Open     key.Binding
	Back     key.Binding
	Deselect key.Binding
	Add      key.Binding
	Edit     key.Binding
	Remove   key.Binding
	Quit     key.Binding
}

// promptKeys apply while the add or edit prompt is open.
type promptKeys struct {
	Submit    key.Binding
	NextField key.Binding
	Close     key.Binding
}

// confirmKeys apply while a removal waits for confirmation.
type confirmKeys struct {
	Yes key.Binding
	No  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		NextSlot: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next slot")),
		Open:     key.NewBinding(key.WithKeys("enter", "right", "l"), key.WithHelp("enter", "open")),
		Back:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "back")),
		Deselect: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "deselect")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Remove:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func defaultPromptKeys() promptKeys {
	return promptKeys{
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Close:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

func defaultConfirmKeys() confirmKeys {
	return confirmKeys{
		Yes: key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "remove")),
		No:  key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "keep")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Back, k.NextSlot, k.Deselect, k.Add, k.Edit, k.Remove, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func (k promptKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextField, k.Close}
}

func (k promptKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func (k confirmKeys) ShortHelp() []key.Binding { return []key.Binding{k.Yes, k.No} }

func (k confirmKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

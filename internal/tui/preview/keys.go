package preview

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	Press       key.Binding
	NextProfile key.Binding
	PrevProfile key.Binding
	Brightness  key.Binding
	Reload      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Press, k.NextProfile, k.Brightness, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Press, k.NextProfile, k.PrevProfile, k.Brightness},
		{k.Reload, k.Help, k.Quit},
	}
}

var defaultKeys = keyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
	Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
	Press:       key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "press key")),
	NextProfile: key.NewBinding(key.WithKeys("tab", "]"), key.WithHelp("tab", "next profile")),
	PrevProfile: key.NewBinding(key.WithKeys("shift+tab", "["), key.WithHelp("shift+tab", "prev profile")),
	Brightness:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "brightness")),
	Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

package remote

import "github.com/charmbracelet/bubbles/key"

// keyMap defines key bindings for the remote screen
type keyMap struct {
	Power      key.Binding
	Mute       key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Input      key.Binding
	Mode       key.Binding
	Refresh    key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Power, k.Mute, k.VolumeUp, k.VolumeDown, k.Input, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Power, k.Mute, k.VolumeUp, k.VolumeDown},
		{k.Input, k.Mode, k.Refresh},
		{k.Help, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Power: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "power"),
		),
		Mute: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mute"),
		),
		VolumeUp: key.NewBinding(
			key.WithKeys("+", "=", "up"),
			key.WithHelp("+/↑", "volume up"),
		),
		VolumeDown: key.NewBinding(
			key.WithKeys("-", "down"),
			key.WithHelp("-/↓", "volume down"),
		),
		Input: key.NewBinding(
			key.WithKeys("i", "tab"),
			key.WithHelp("i", "next input"),
		),
		Mode: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "next listening mode"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

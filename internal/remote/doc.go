// Package remote is the interactive remote control screen of eiscpctl.
//
// The screen is a bubbletea model. Key presses become commands sent through
// the receiver client, each on its own tea.Cmd so the screen stays
// responsive while the client queues them. Status comes only from receiver
// events, so changes made with the front panel or another app show up too.
//
//	p  power on/standby     m  mute toggle
//	+  volume up            -  volume down
//	i  next input           l  next listening mode
//	r  query all fields     q  quit
package remote

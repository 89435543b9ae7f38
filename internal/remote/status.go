package remote

import "github.com/muurk/eiscpctl/internal/receiver"

// Status is the receiver state as last reported by events. Fields stay at
// their zero value until the matching event has been seen; Known tells the
// two apart.
type Status struct {
	Power  bool
	Mute   bool
	Volume int
	Input  string
	Mode   string

	known map[receiver.EventName]bool
}

// Known reports whether an event for name has been applied.
func (s *Status) Known(name receiver.EventName) bool {
	return s.known[name]
}

// Apply folds an event into the status. Events for codes the remote does
// not display are ignored.
func (s *Status) Apply(ev receiver.Event) {
	v := ev.Decoded()
	switch ev.Name {
	case receiver.EventPower:
		b, ok := v.(bool)
		if !ok {
			return
		}
		s.Power = b
	case receiver.EventMute:
		b, ok := v.(bool)
		if !ok {
			return
		}
		s.Mute = b
	case receiver.EventVolume:
		n, ok := v.(int)
		if !ok {
			return
		}
		s.Volume = n
	case receiver.EventInput:
		str, ok := v.(string)
		if !ok {
			return
		}
		s.Input = str
	case receiver.EventListeningMode:
		str, ok := v.(string)
		if !ok {
			return
		}
		s.Mode = str
	default:
		return
	}

	if s.known == nil {
		s.known = make(map[receiver.EventName]bool)
	}
	s.known[ev.Name] = true
}

package remote

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/eiscpctl/internal/receiver"
)

type fakeController struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeController) SendCommand(_ context.Context, command, value string) (receiver.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, command+" "+value)
	return receiver.Event{}, f.err
}

func (f *fakeController) Name() string    { return "den" }
func (f *fakeController) Address() string { return "10.0.0.2" }
func (f *fakeController) Port() int       { return 60128 }

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command, returning the updated
// model after the command's result has been applied.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	m = updated.(Model)
	if cmd == nil {
		return m
	}
	updated, _ = m.Update(cmd())
	return updated.(Model)
}

func event(name receiver.EventName, v any) EventMsg {
	return EventMsg{
		Name:     name,
		Data:     map[string]any{string(name): v},
		Received: time.Now(),
	}
}

func TestPowerKeyFollowsStatus(t *testing.T) {
	fc := &fakeController{}
	m := NewModel(context.Background(), fc)

	m = press(t, m, runes("p"))
	m = press(t, m, event(receiver.EventPower, true))
	m = press(t, m, runes("p"))

	want := []string{"POWER ON", "POWER STANDBY"}
	got := fc.Calls()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if m.InFlight != 0 {
		t.Errorf("InFlight = %d, want 0", m.InFlight)
	}
}

func TestKeysSendCommands(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want string
	}{
		{runes("m"), "MUTE TOGGLE"},
		{runes("+"), "VOLUME UP"},
		{tea.KeyMsg{Type: tea.KeyUp}, "VOLUME UP"},
		{runes("-"), "VOLUME DOWN"},
		{runes("i"), "INPUT UP"},
		{runes("l"), "LISTENING_MODE UP"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			fc := &fakeController{}
			press(t, NewModel(context.Background(), fc), tt.key)
			if got := fc.Calls(); len(got) != 1 || got[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", got, tt.want)
			}
		})
	}
}

func TestRefreshQueriesEveryField(t *testing.T) {
	fc := &fakeController{}
	m := NewModel(context.Background(), fc)

	updated, cmd := m.Update(refreshMsg{})
	m = updated.(Model)
	if m.InFlight != 5 {
		t.Fatalf("InFlight = %d, want 5", m.InFlight)
	}

	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("refresh cmd returned %T", cmd())
	}
	for _, c := range batch {
		updated, _ = m.Update(c())
		m = updated.(Model)
	}

	if m.InFlight != 0 {
		t.Errorf("InFlight = %d, want 0", m.InFlight)
	}
	for _, call := range fc.Calls() {
		if !strings.HasSuffix(call, " QUERY") {
			t.Errorf("call %q is not a query", call)
		}
	}
}

func TestCommandErrorShown(t *testing.T) {
	fc := &fakeController{err: receiver.ErrCommandTimeout}
	m := press(t, NewModel(context.Background(), fc), runes("m"))

	if !errors.Is(m.LastErr, receiver.ErrCommandTimeout) {
		t.Fatalf("LastErr = %v", m.LastErr)
	}
	if !strings.Contains(m.View(), "MUTE TOGGLE") {
		t.Error("View() does not show the failed command")
	}
}

func TestCloseStopsCommands(t *testing.T) {
	fc := &fakeController{}
	m := press(t, NewModel(context.Background(), fc), EventMsg{Name: receiver.EventClose, Received: time.Now()})

	if !m.Closed {
		t.Fatal("Closed not set")
	}
	press(t, m, runes("p"))
	if len(fc.Calls()) != 0 {
		t.Errorf("commands sent after close: %v", fc.Calls())
	}
	if !strings.Contains(m.View(), "Connection closed") {
		t.Error("View() does not show the closed connection")
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{})
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("no command for q")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("q returned %T, want tea.QuitMsg", cmd())
	}
}

func TestViewShowsStatus(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{})
	m = press(t, m, event(receiver.EventVolume, 42))
	m = press(t, m, event(receiver.EventInput, "net"))

	out := m.View()
	for _, want := range []string{"DEN", "10.0.0.2:60128", "42", "net", "?"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if len(m.Log) != 2 {
		t.Errorf("Log has %d events, want 2", len(m.Log))
	}
}

func TestLogIsBounded(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{})
	for i := 0; i < maxLogLines+3; i++ {
		m = press(t, m, event(receiver.EventVolume, i))
	}
	if len(m.Log) != maxLogLines {
		t.Errorf("Log has %d events, want %d", len(m.Log), maxLogLines)
	}
	if m.Status.Volume != maxLogLines+2 {
		t.Errorf("Volume = %d", m.Status.Volume)
	}
}

func TestStatusApplyIgnoresWrongTypes(t *testing.T) {
	var s Status
	s.Apply(receiver.Event(event(receiver.EventPower, "yes")))
	if s.Known(receiver.EventPower) {
		t.Error("non-bool power value applied")
	}
	s.Apply(receiver.Event(event(receiver.EventDimmer, "dim")))
	if s.Known(receiver.EventDimmer) {
		t.Error("dimmer tracked")
	}
}

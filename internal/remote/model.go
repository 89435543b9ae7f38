package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/eiscpctl/internal/receiver"
	"github.com/muurk/eiscpctl/internal/ui"
	"github.com/muurk/eiscpctl/internal/version"
)

// maxLogLines is how many recent events the screen keeps
const maxLogLines = 8

// Controller is the part of the receiver client the remote drives.
type Controller interface {
	SendCommand(ctx context.Context, command, value string) (receiver.Event, error)
	Name() string
	Address() string
	Port() int
}

// EventMsg carries a receiver event into the program.
type EventMsg receiver.Event

type refreshMsg struct{}

// commandDoneMsg reports the outcome of one SendCommand.
type commandDoneMsg struct {
	label string
	ev    receiver.Event
	err   error
}

// Model is the remote control screen.
type Model struct {
	ctx  context.Context
	ctrl Controller

	Status   Status
	InFlight int
	LastErr  error
	Closed   bool
	Log      []receiver.Event

	Width  int
	Height int

	Spinner spinner.Model
	Help    help.Model
	Keys    keyMap
}

// NewModel creates the remote screen for ctrl. Commands run under ctx.
func NewModel(ctx context.Context, ctrl Controller) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ui.PrimaryColor)

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		Width:   ui.MinTerminalWidth,
		Height:  24,
		Spinner: s,
		Help:    help.New(),
		Keys:    newKeyMap(),
	}
}

// Init queries the state shown on screen
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.Spinner.Tick,
		func() tea.Msg { return refreshMsg{} },
	)
}

// Update handles key presses, receiver events and command results
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		return m.refresh()

	case EventMsg:
		return m.handleEvent(receiver.Event(msg)), nil

	case commandDoneMsg:
		if m.InFlight > 0 {
			m.InFlight--
		}
		if msg.err != nil {
			m.LastErr = fmt.Errorf("%s: %w", msg.label, msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Help):
		m.Help.ShowAll = !m.Help.ShowAll
		return m, nil
	}

	if m.Closed {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.Keys.Power):
		if m.Status.Known(receiver.EventPower) && m.Status.Power {
			return m.send("POWER", "STANDBY")
		}
		return m.send("POWER", "ON")
	case key.Matches(msg, m.Keys.Mute):
		return m.send("MUTE", "TOGGLE")
	case key.Matches(msg, m.Keys.VolumeUp):
		return m.send("VOLUME", "UP")
	case key.Matches(msg, m.Keys.VolumeDown):
		return m.send("VOLUME", "DOWN")
	case key.Matches(msg, m.Keys.Input):
		return m.send("INPUT", "UP")
	case key.Matches(msg, m.Keys.Mode):
		return m.send("LISTENING_MODE", "UP")
	case key.Matches(msg, m.Keys.Refresh):
		return m.refresh()
	}
	return m, nil
}

func (m Model) handleEvent(ev receiver.Event) Model {
	switch ev.Name {
	case receiver.EventClose:
		m.Closed = true
	case receiver.EventError:
		m.LastErr = ev.Err
	default:
		m.Status.Apply(ev)
	}

	m.Log = append(m.Log, ev)
	if len(m.Log) > maxLogLines {
		m.Log = m.Log[len(m.Log)-maxLogLines:]
	}
	return m
}

// refresh queries every field on screen. The client queues the queries.
func (m Model) refresh() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	for _, command := range []string{"POWER", "MUTE", "VOLUME", "INPUT", "LISTENING_MODE"} {
		var cmd tea.Cmd
		m, cmd = m.dispatch(command, "QUERY")
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) send(command, value string) (tea.Model, tea.Cmd) {
	return m.dispatch(command, value)
}

func (m Model) dispatch(command, value string) (Model, tea.Cmd) {
	m.InFlight++
	m.LastErr = nil
	ctx, ctrl := m.ctx, m.ctrl
	return m, func() tea.Msg {
		ev, err := ctrl.SendCommand(ctx, command, value)
		return commandDoneMsg{label: command + " " + value, ev: ev, err: err}
	}
}

// View renders the remote screen
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	switch {
	case m.Closed:
		b.WriteString(ui.ErrorTitleStyle.Render(ui.FailureMarker + " Connection closed, press q to quit"))
	case m.InFlight > 0:
		b.WriteString(m.Spinner.View() + " Waiting for receiver...")
	default:
		b.WriteString(ui.TimestampStyle.Render("Ready"))
	}
	b.WriteString("\n")

	if m.LastErr != nil {
		b.WriteString(ui.ErrorMessageStyle.Render("Error: " + m.LastErr.Error()))
		b.WriteString("\n")
	}

	if len(m.Log) > 0 {
		b.WriteString("\n")
		b.WriteString(ui.TroubleshootingTitleStyle.Render("Recent events"))
		b.WriteString("\n")
		for _, ev := range m.Log {
			b.WriteString(ui.RenderEvent(ev))
			b.WriteString("\n")
		}
	}

	return renderContainer(m.title(), b.String(), m.Help.View(m.Keys), m.Width)
}

func (m Model) title() string {
	ep := receiver.Endpoint{Host: m.ctrl.Address(), Port: m.ctrl.Port()}
	name := m.ctrl.Name()
	if name == "" {
		name = "receiver"
	}
	return fmt.Sprintf("%s  %s", strings.ToUpper(name), ep)
}

func (m Model) renderStatus() string {
	rows := []ui.Param{
		{Key: "Power", Value: m.field(receiver.EventPower, m.Status.Power)},
		{Key: "Mute", Value: m.field(receiver.EventMute, m.Status.Mute)},
		{Key: "Volume", Value: m.field(receiver.EventVolume, m.Status.Volume)},
		{Key: "Input", Value: m.field(receiver.EventInput, m.Status.Input)},
		{Key: "Mode", Value: m.field(receiver.EventListeningMode, m.Status.Mode)},
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, ui.ResultKeyStyle.Render(r.Key+":")+" "+r.Value)
	}
	return strings.Join(lines, "\n")
}

func (m Model) field(name receiver.EventName, v any) string {
	if !m.Status.Known(name) {
		return ui.TimestampStyle.Render("?")
	}
	if b, ok := v.(bool); ok {
		if b {
			return ui.OnValueStyle.Render(ui.FormatValue(b))
		}
		return ui.OffValueStyle.Render(ui.FormatValue(b))
	}
	return ui.ValueStyle.Render(ui.FormatValue(v))
}

// renderContainer wraps content with a header and a help footer.
func renderContainer(title, content, footer string, width int) string {
	if width < ui.MinTerminalWidth {
		width = ui.MinTerminalWidth
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		ui.HeaderTitleStyle.Render(title),
		" ",
		ui.HeaderCommandStyle.Render("eiscpctl "+version.Get().Version),
	)

	section := func(border lipgloss.Border) lipgloss.Style {
		return lipgloss.NewStyle().
			BorderStyle(border).
			BorderForeground(ui.PrimaryColor).
			Width(width-4).
			Padding(0, 1)
	}

	inner := lipgloss.JoinVertical(lipgloss.Left,
		section(lipgloss.Border{Bottom: "─"}).Render(header),
		lipgloss.NewStyle().Width(width-4).Padding(1, 1).Render(content),
		section(lipgloss.Border{Top: "─"}).Render(ui.TimestampStyle.Render(footer)),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(ui.PrimaryColor).
		Width(width - 2).
		Render(inner)
}

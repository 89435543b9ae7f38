package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/eiscpctl/internal/protocol"
	"github.com/muurk/eiscpctl/internal/receiver"
)

const timeLayout = "15:04:05.000"

// FormatValue renders a decoded value for humans: switches as on/off,
// levels as numbers, selectors as their name.
func FormatValue(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "on"
		}
		return "off"
	case nil:
		return "-"
	default:
		return fmt.Sprint(x)
	}
}

func styleValue(v any) string {
	text := FormatValue(v)
	if b, ok := v.(bool); ok {
		if b {
			return OnValueStyle.Render(text)
		}
		return OffValueStyle.Render(text)
	}
	return ValueStyle.Render(text)
}

// RenderEvent renders an event as one styled line
func RenderEvent(ev receiver.Event) string {
	ts := TimestampStyle.Render(ev.Received.Format(timeLayout))

	switch ev.Name {
	case receiver.EventError:
		return lipgloss.JoinHorizontal(lipgloss.Top,
			ts, " ",
			ErrorTitleStyle.Render(FailureMarker+" error"), " ",
			ErrorMessageStyle.Render(errText(ev.Err)),
		)
	case receiver.EventClose:
		return lipgloss.JoinHorizontal(lipgloss.Top,
			ts, " ",
			ErrorTitleStyle.Render(FailureMarker+" connection closed"),
		)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		ts, " ",
		SuccessTitleStyle.Render(EventMarker), " ",
		EventCodeStyle.Render(string(ev.Name)),
		EventCommandStyle.Render(ev.Command),
		styleValue(ev.Decoded()),
	)
}

// FormatEventPlain renders an event as one tab-separated line:
// time, code, command, value, payload.
func FormatEventPlain(ev receiver.Event) string {
	ts := ev.Received.Format(timeLayout)
	switch ev.Name {
	case receiver.EventError:
		return strings.Join([]string{ts, "error", errText(ev.Err)}, "\t")
	case receiver.EventClose:
		return strings.Join([]string{ts, "close"}, "\t")
	}
	return strings.Join([]string{ts, string(ev.Name), ev.Command, FormatValue(ev.Decoded()), ev.Payload}, "\t")
}

// EventParams returns an event's details for a result box
func EventParams(ev receiver.Event) []Param {
	return []Param{
		{Key: "Command", Value: ev.Command},
		{Key: "Value", Value: FormatValue(ev.Decoded())},
		{Key: "Reply", Value: ev.Payload},
	}
}

// RenderCommands renders the command table, one command per line
func RenderCommands(infos []protocol.CommandInfo, plain bool) string {
	var lines []string
	for _, info := range infos {
		values := strings.Join(info.Values, " ")
		if info.Kind == protocol.KindLevel {
			values = fmt.Sprintf("0-%d %s", info.Max, values)
		}
		if plain {
			lines = append(lines, strings.Join([]string{info.Name, info.Code, info.Kind.String(), values}, "\t"))
			continue
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			EventCommandStyle.Render(info.Name),
			EventCodeStyle.Render(info.Code),
			TimestampStyle.Width(10).Render(info.Kind.String()),
			ValueStyle.Render(values),
		))
	}
	return strings.Join(lines, "\n")
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

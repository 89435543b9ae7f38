package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/eiscpctl/internal/protocol"
	"github.com/muurk/eiscpctl/internal/receiver"
)

func powerEvent() receiver.Event {
	return receiver.Event{
		Name:     receiver.EventPower,
		Command:  "POWER",
		Value:    "ON",
		Data:     map[string]any{"PWR": true},
		Payload:  "!1PWR01",
		Received: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{true, "on"},
		{false, "off"},
		{42, "42"},
		{"net", "net"},
		{nil, "-"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatEventPlain(t *testing.T) {
	got := FormatEventPlain(powerEvent())
	want := "03:04:05.000\tPWR\tPOWER\ton\t!1PWR01"
	if got != want {
		t.Errorf("FormatEventPlain() = %q, want %q", got, want)
	}

	errEv := receiver.Event{Name: receiver.EventError, Err: errors.New("bad packet"), Received: powerEvent().Received}
	if got := FormatEventPlain(errEv); got != "03:04:05.000\terror\tbad packet" {
		t.Errorf("FormatEventPlain(error) = %q", got)
	}
}

func TestPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	if !p.Plain() {
		t.Fatal("buffer printer is not plain")
	}

	p.PrintHeader("den", "eiscpctl send", []Param{{Key: "Address", Value: "x"}})
	if buf.Len() != 0 {
		t.Errorf("plain header wrote %q", buf.String())
	}

	p.PrintSuccess("POWER ON", EventParams(powerEvent()))
	if !strings.Contains(buf.String(), "Value: on") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	p.PrintError("connect", errors.New("refused"), nil)
	if !strings.Contains(buf.String(), "connect: refused") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrinter_Styled(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetPlain(false)

	p.PrintHeader("den", "eiscpctl watch", []Param{{Key: "Address", Value: "10.0.0.2:60128"}})
	p.PrintEvent(powerEvent())
	p.PrintError("connect", errors.New("refused"), ConnectTroubleshooting(receiver.Endpoint{Host: "10.0.0.2", Port: 60128}))

	out := buf.String()
	for _, want := range []string{"DEN", "10.0.0.2:60128", "PWR", "POWER", "refused", "Troubleshooting"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderEvent_Markers(t *testing.T) {
	if out := RenderEvent(powerEvent()); !strings.Contains(out, EventMarker) {
		t.Errorf("event line missing %q: %q", EventMarker, out)
	}
	errEv := receiver.Event{Name: receiver.EventError, Err: errors.New("bad packet")}
	if out := RenderEvent(errEv); !strings.Contains(out, FailureMarker) || strings.Contains(out, EventMarker) {
		t.Errorf("error line = %q", out)
	}
}

func TestBoxStylesUseDefaultPadding(t *testing.T) {
	for name, st := range map[string]lipgloss.Style{
		"success": SuccessBoxStyle(80),
		"error":   ErrorBoxStyle(80),
		"header":  HeaderTitleStyle,
	} {
		if got := st.GetPaddingLeft(); got != DefaultPadding {
			t.Errorf("%s padding = %d, want %d", name, got, DefaultPadding)
		}
	}
}

func TestRenderCommands(t *testing.T) {
	out := RenderCommands(protocol.DefaultTable.Commands(), true)
	lines := strings.Split(out, "\n")
	if len(lines) != len(protocol.DefaultTable.Commands()) {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.Contains(out, "POWER\tPWR\tswitch") {
		t.Errorf("output = %s", out)
	}
	if !strings.Contains(out, "VOLUME\tMVL\tlevel\t0-") {
		t.Errorf("output = %s", out)
	}
}

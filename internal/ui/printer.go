package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/eiscpctl/internal/protocol"
	"github.com/muurk/eiscpctl/internal/receiver"
)

// Param is one key/value line in a header or result box. A slice keeps the
// order stable.
type Param struct {
	Key   string
	Value string
}

// Printer writes UI components to a writer. When the writer is not a
// terminal it prints plain lines instead of boxes, so output stays easy to
// pipe into other tools.
type Printer struct {
	out   io.Writer
	width int
	plain bool
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
		plain: !IsTerminal(w),
	}
}

// SetPlain forces plain or styled output
func (p *Printer) SetPlain(plain bool) *Printer {
	p.plain = plain
	return p
}

// Plain reports whether the printer emits unstyled output
func (p *Printer) Plain() bool {
	return p.plain
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a header box. Plain output skips it.
func (p *Printer) PrintHeader(title, command string, params []Param) {
	if p.plain {
		return
	}
	p.Println(RenderHeader(title, command, params, p.width))
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details []Param) {
	if p.plain {
		for _, d := range details {
			p.Println(d.Key + ": " + d.Value)
		}
		return
	}
	p.Println(RenderSuccessBox(title, details, p.width))
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	if p.plain {
		p.Println(FailureMarker + " " + title + ": " + err.Error())
		return
	}
	p.Println(RenderErrorBox(title, err, troubleshooting, p.width))
}

// PrintEvent prints one receiver event as a single line
func (p *Printer) PrintEvent(ev receiver.Event) {
	if p.plain {
		p.Println(FormatEventPlain(ev))
		return
	}
	p.Println(RenderEvent(ev))
}

// PrintCommands prints the command table
func (p *Printer) PrintCommands(infos []protocol.CommandInfo) {
	p.Println(RenderCommands(infos, p.plain))
}

// RenderHeader renders a header box
func RenderHeader(title, command string, params []Param, width int) string {
	titleLine := HeaderTitleStyle.Render(strings.ToUpper(title))
	commandLine := HeaderCommandStyle.Render(command)
	topSection := lipgloss.JoinVertical(lipgloss.Left, titleLine, commandLine)

	if len(params) == 0 {
		return HeaderBorderStyle(width).Render(topSection)
	}

	var paramLines []string
	for _, param := range params {
		keyStyled := HeaderParamKeyStyle.Render(param.Key + ":")
		valueStyled := HeaderParamValueStyle.Render(param.Value)
		paramLines = append(paramLines, keyStyled+" "+valueStyled)
	}

	dividerWidth := width - 6 // Account for border and padding
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := RenderHorizontalDivider(dividerWidth, "─")

	content := lipgloss.JoinVertical(lipgloss.Left, topSection, divider, strings.Join(paramLines, "\n"))
	return HeaderBorderStyle(width).Render(content)
}

// RenderSuccessBox renders a success result box
func RenderSuccessBox(title string, details []Param, width int) string {
	lines := []string{
		"",
		SuccessTitleStyle.Render("   " + SuccessMarker + "  SUCCESS  ─  " + title),
		"",
	}

	for _, d := range details {
		keyStyled := ResultKeyStyle.Render("   " + d.Key + ":")
		valueStyled := ResultValueStyle.Render(d.Value)
		lines = append(lines, keyStyled+" "+valueStyled)
	}
	lines = append(lines, "")

	return SuccessBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error result box with troubleshooting
func RenderErrorBox(title string, err error, troubleshooting []string, width int) string {
	lines := []string{
		"",
		ErrorTitleStyle.Render("   " + FailureMarker + "  FAILED  ─  " + title),
		"",
	}

	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+err.Error()), "")
	}

	if len(troubleshooting) > 0 {
		troubleLines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
		for _, tip := range troubleshooting {
			troubleLines = append(troubleLines, TroubleshootingItemStyle.Render("  • "+tip))
		}
		lines = append(lines, TroubleshootingBoxStyle(width).Render(strings.Join(troubleLines, "\n")), "")
	}

	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// ConnectTroubleshooting returns tips for a receiver that cannot be reached.
func ConnectTroubleshooting(ep receiver.Endpoint) []string {
	return []string{
		fmt.Sprintf("Check that %s is reachable from this machine", ep),
		"Enable network standby on the receiver so it listens while off",
		"Some models accept a single control connection; close other apps",
		fmt.Sprintf("The default eISCP port is %d", protocol.DefaultPort),
	}
}

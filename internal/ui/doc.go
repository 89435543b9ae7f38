// Package ui provides the styled terminal output used by eiscpctl.
//
// Components are rendered with lipgloss. A Printer decides between boxed,
// colored output for terminals and tab-separated lines for pipes:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("den", "eiscpctl send POWER ON", []ui.Param{
//		{Key: "Address", Value: "192.168.1.40:60128"},
//	})
//	p.PrintSuccess("POWER ON", ui.EventParams(ev))
//
// Watch mode prints one line per receiver event with PrintEvent.
package ui

// Eiscpctl controls Onkyo and Integra AV receivers over eISCP.
//
// It sends semantic commands such as "POWER ON" or "VOLUME 35", prints the
// receiver's replies, streams unsolicited status changes, and offers an
// interactive remote control in the terminal. Receivers can be named in a
// config file so that --receiver den is enough to reach one.
//
// Usage:
//
//	eiscpctl [command] [flags]
//
// See 'eiscpctl --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/eiscpctl/internal/logging"
	"github.com/muurk/eiscpctl/internal/session"
	"github.com/muurk/eiscpctl/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		// Errors already shown in a result box are not repeated.
		var shown *shownError
		if !errors.As(err, &shown) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var flags session.Flags

var rootCmd = &cobra.Command{
	Use:   "eiscpctl",
	Short: "Onkyo/Integra receiver control over eISCP",
	Long: `Control Onkyo and Integra AV receivers over the network using eISCP.

Commands are semantic pairs such as "POWER ON", "VOLUME 35" or "INPUT NET";
run 'eiscpctl commands' for the full list. The receiver is picked with
--host, or by name from the config file with --receiver.`,
	Version:       version.Get().Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags.Register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(receiversCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Get().Line("eiscpctl"))
	},
}

// shownError marks an error the user has already seen.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

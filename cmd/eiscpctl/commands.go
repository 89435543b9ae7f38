package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/eiscpctl/internal/logging"
	"github.com/muurk/eiscpctl/internal/metrics"
	"github.com/muurk/eiscpctl/internal/protocol"
	"github.com/muurk/eiscpctl/internal/receiver"
	"github.com/muurk/eiscpctl/internal/remote"
	"github.com/muurk/eiscpctl/internal/session"
	"github.com/muurk/eiscpctl/internal/ui"
)

// Command flags
var (
	metricsAddr  string
	watchQueries bool
)

// sendCmd sends one command and prints the reply
var sendCmd = &cobra.Command{
	Use:   "send COMMAND VALUE",
	Short: "Send a command and print the receiver's reply",
	Long: `Send one semantic command and wait for the receiver to answer.

The reply is the first message the receiver sends back for the same code.
Levels such as VOLUME take a decimal value.`,
	Example: `  # Power on the default receiver
  eiscpctl send POWER ON

  # Set the volume on a named receiver
  eiscpctl send VOLUME 35 --receiver den

  # Switch input on a receiver that is not in the config file
  eiscpctl send INPUT NET --host 192.168.1.40`,
	Args: cobra.ExactArgs(2),
	RunE: runSend,
}

// queryCmd asks the receiver for the current value of a command
var queryCmd = &cobra.Command{
	Use:   "query COMMAND",
	Short: "Ask the receiver for a command's current value",
	Example: `  eiscpctl query VOLUME
  eiscpctl query INPUT --receiver den`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndPrint(cmd, args[0], "QUERY")
	},
}

// watchCmd streams receiver events
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print status changes as the receiver reports them",
	Long: `Stay connected and print every message the receiver sends.

Receivers broadcast changes made with the front panel, the IR remote or other
apps, so this shows the live state. With --metrics-addr, prometheus metrics
for the connection are served on /metrics.`,
	Example: `  # Watch the default receiver
  eiscpctl watch

  # Query the main fields first, then watch
  eiscpctl watch --query

  # Expose metrics while watching
  eiscpctl watch --metrics-addr :9100`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

// remoteCmd launches the interactive remote
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Interactive remote control",
	Args:  cobra.NoArgs,
	RunE:  runRemote,
}

// commandsCmd lists the command table
var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the commands and values eiscpctl knows",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ui.NewPrinter(cmd.OutOrStdout()).PrintCommands(protocol.DefaultTable.Commands())
	},
}

func init() {
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (disabled if not specified)")
	watchCmd.Flags().BoolVar(&watchQueries, "query", false, "Query power, mute, volume and input before watching")
}

func runSend(cmd *cobra.Command, args []string) error {
	return sendAndPrint(cmd, args[0], args[1])
}

func sendAndPrint(cmd *cobra.Command, command, value string) error {
	command, value = strings.ToUpper(command), strings.ToUpper(value)

	// Fail on typos before touching the network.
	if _, _, err := protocol.LookupWire(command, value); err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	printer := ui.NewPrinter(cmd.OutOrStdout())
	client, target, err := connect(ctx, printer, "eiscpctl "+cmd.Name()+" "+command+" "+value, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	start := time.Now()
	ev, err := client.SendCommand(ctx, command, value)
	if err != nil {
		printer.PrintError(command+" "+value, err, commandTroubleshooting(err, target))
		return &shownError{err: err}
	}

	details := append(ui.EventParams(ev), ui.Param{Key: "Took", Value: time.Since(start).Round(time.Millisecond).String()})
	printer.PrintSuccess(command+" "+value, details)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var m *metrics.Metrics
	var rec receiver.Recorder
	if metricsAddr != "" {
		m = metrics.New()
		rec = m
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	client, _, err := connect(ctx, printer, "eiscpctl watch", rec)
	if err != nil {
		return err
	}
	defer client.Close()

	if m != nil {
		srv := &http.Server{Addr: metricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logging.Info("Serving metrics", zap.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	closed := make(chan struct{})
	var once sync.Once
	unsubscribe, err := client.SubscribeAll(func(ev receiver.Event) {
		printer.PrintEvent(ev)
		if ev.Name == receiver.EventClose {
			once.Do(func() { close(closed) })
		}
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	if watchQueries {
		for _, command := range []string{"POWER", "MUTE", "VOLUME", "INPUT"} {
			if _, err := client.SendCommand(ctx, command, "QUERY"); err != nil {
				logging.Warn("Initial query failed", zap.String("command", command), zap.Error(err))
			}
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case <-closed:
		return fmt.Errorf("receiver closed the connection")
	}
}

func runRemote(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	printer := ui.NewPrinter(cmd.OutOrStdout())
	client, _, err := connect(ctx, printer, "eiscpctl remote", nil)
	if err != nil {
		return err
	}
	defer client.Close()

	return remote.Run(ctx, client)
}

// connect resolves the target from flags and config, prints the header and
// connects. Connection failures are shown with troubleshooting tips.
func connect(ctx context.Context, printer *ui.Printer, command string, rec receiver.Recorder) (*receiver.Client, session.Target, error) {
	reg, err := flags.LoadRegistry()
	if err != nil {
		return nil, session.Target{}, err
	}
	if err := flags.SetupLogging(reg); err != nil {
		return nil, session.Target{}, err
	}
	target, err := flags.Resolve(reg)
	if err != nil {
		return nil, target, err
	}

	printer.PrintHeader(target.Name, command, []ui.Param{
		{Key: "Address", Value: target.Endpoint().String()},
	})

	client, err := session.Connect(ctx, target, rec, nil)
	if err != nil {
		printer.PrintError("Connect", err, ui.ConnectTroubleshooting(target.Endpoint()))
		return nil, target, &shownError{err: err}
	}
	return client, target, nil
}

func commandTroubleshooting(err error, target session.Target) []string {
	switch {
	case errors.Is(err, receiver.ErrCommandTimeout):
		return []string{
			"The receiver accepted the command but sent no matching reply",
			"Some commands are ignored while the receiver is in standby",
			"Raise --timeout for slow models",
		}
	case errors.Is(err, receiver.ErrConnectionClosed), errors.Is(err, receiver.ErrNotConnected):
		return ui.ConnectTroubleshooting(target.Endpoint())
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

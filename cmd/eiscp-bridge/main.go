// Eiscp-bridge exposes an Onkyo/Integra receiver to browsers and scripts.
//
// It keeps one eISCP connection open and relays it over HTTP: a websocket
// that streams every receiver event and accepts commands, a JSON command
// endpoint, a health check and prometheus metrics.
//
// Usage:
//
//	eiscp-bridge serve [flags]
//
// See 'eiscp-bridge serve --help' for available options.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/eiscpctl/internal/bridge"
	"github.com/muurk/eiscpctl/internal/config"
	"github.com/muurk/eiscpctl/internal/logging"
	"github.com/muurk/eiscpctl/internal/metrics"
	"github.com/muurk/eiscpctl/internal/session"
	"github.com/muurk/eiscpctl/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "eiscp-bridge",
	Short: "HTTP and websocket bridge for an eISCP receiver",
	Long: `A small server that holds one eISCP connection to an Onkyo or Integra
receiver and relays it over HTTP.

Routes:
  GET  /ws       websocket event stream; send {"command":"POWER","value":"ON"}
  POST /command  same JSON, answered with the receiver's reply
  GET  /healthz  503 while the receiver is not connected
  GET  /metrics  prometheus metrics`,
	Version:       version.Get().Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Serve command flags
var (
	flags  session.Flags
	listen string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the receiver and start serving",
	Example: `  # Bridge the default receiver from the config file on :8080
  eiscp-bridge serve

  # Bridge a receiver by address on another port
  eiscp-bridge serve --host 192.168.1.40 --listen 127.0.0.1:9000 --log-level info`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Get().Line("eiscp-bridge"))
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags.Register(serveCmd.Flags())
	serveCmd.Flags().StringVar(&listen, "listen", "", fmt.Sprintf("HTTP listen address (default %q, or bridge_listen from the config file)", config.DefaultBridgeListen))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	reg, err := flags.LoadRegistry()
	if err != nil {
		return err
	}
	if err := flags.SetupLogging(reg); err != nil {
		return err
	}
	target, err := flags.Resolve(reg)
	if err != nil {
		return err
	}

	addr := listen
	if addr == "" {
		addr = reg.Preferences.BridgeListen
	}
	if addr == "" {
		addr = config.DefaultBridgeListen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	client, err := session.Connect(ctx, target, m, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", target.Endpoint(), err)
	}
	defer client.Close()

	srv, err := bridge.New(bridge.Config{Listen: addr}, client, m)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	logging.Info("Starting eISCP bridge",
		zap.String("receiver", target.Name),
		zap.String("receiver_addr", target.Endpoint().String()),
		zap.String("listen", addr),
		zap.String("version", version.Get().Version),
		zap.String("commit", version.Get().Commit),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Bridging %s (%s) on %s\n", target.Name, target.Endpoint(), addr)

	return srv.Start(ctx)
}

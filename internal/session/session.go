// Package session turns command-line flags and the receiver registry into a
// connected receiver client. Both binaries share it.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/muurk/eiscpctl/internal/config"
	"github.com/muurk/eiscpctl/internal/logging"
	"github.com/muurk/eiscpctl/internal/protocol"
	"github.com/muurk/eiscpctl/internal/receiver"
)

// Flags are the connection and logging flags common to every command.
type Flags struct {
	ConfigPath string
	Receiver   string
	Host       string
	Port       int
	Timeout    time.Duration
	LogLevel   string
	LogFile    string
}

// Register adds the flags to fs
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/eiscpctl/config.yaml)")
	fs.StringVarP(&f.Receiver, "receiver", "r", "", "Receiver name from the config file")
	fs.StringVar(&f.Host, "host", "", "Receiver host name or IP (overrides --receiver)")
	fs.IntVar(&f.Port, "port", 0, fmt.Sprintf("Receiver eISCP port (default %d)", protocol.DefaultPort))
	fs.DurationVar(&f.Timeout, "timeout", 0, "Command reply timeout (default 5s)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write JSON logs to this file, rotated by size")
}

// Target is a resolved receiver endpoint.
type Target struct {
	Name    string
	Host    string
	Port    int
	Timeout time.Duration
}

// Endpoint returns the target's address
func (t Target) Endpoint() receiver.Endpoint {
	port := t.Port
	if port == 0 {
		port = protocol.DefaultPort
	}
	return receiver.Endpoint{Host: t.Host, Port: port}
}

// LoadRegistry reads the config file named by the flags.
func (f Flags) LoadRegistry() (*config.Registry, error) {
	reg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return reg, nil
}

// Resolve picks the receiver to talk to. --host wins over the registry;
// --port and --timeout override whatever the registry says.
func (f Flags) Resolve(reg *config.Registry) (Target, error) {
	var t Target

	if f.Host != "" {
		t = Target{Name: f.Receiver, Host: f.Host}
		if t.Name == "" {
			t.Name = f.Host
		}
	} else {
		name, rcv, err := reg.Resolve(f.Receiver)
		if err != nil {
			if errors.Is(err, config.ErrNoReceiver) {
				return t, fmt.Errorf("%w: pass --host or --receiver, or add one with 'eiscpctl receivers add'", err)
			}
			return t, err
		}
		timeout, err := rcv.CommandTimeout()
		if err != nil {
			return t, fmt.Errorf("receiver %q: %w", name, err)
		}
		t = Target{Name: name, Host: rcv.Address, Port: rcv.Port, Timeout: timeout}
		if rcv.Name != "" {
			t.Name = rcv.Name
		}
	}

	if f.Port != 0 {
		t.Port = f.Port
	}
	if f.Timeout != 0 {
		t.Timeout = f.Timeout
	}
	return t, nil
}

// SetupLogging configures the global logger. Flags win over the registry's
// preferences; both fall back to the environment.
func (f Flags) SetupLogging(reg *config.Registry) error {
	opts := logging.Options{Level: f.LogLevel, File: f.LogFile}
	if reg != nil && reg.Preferences != nil {
		if opts.Level == "" {
			opts.Level = reg.Preferences.LogLevel
		}
		if opts.File == "" {
			opts.File = reg.Preferences.LogFile
		}
	}
	if err := logging.Configure(opts); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// Connect creates a client for t and connects it with dial (DialTCP when
// nil). Packets are traced at debug level. rec may be nil.
func Connect(ctx context.Context, t Target, rec receiver.Recorder, dial receiver.DialFunc) (*receiver.Client, error) {
	opts := receiver.Options{
		Address:        t.Host,
		Port:           t.Port,
		Name:           t.Name,
		Logger:         logging.Named("receiver"),
		CommandTimeout: t.Timeout,
	}
	if rec != nil {
		opts.Recorder = rec
	}

	client, err := receiver.New(opts)
	if err != nil {
		return nil, err
	}

	if dial == nil {
		dial = receiver.DialTCP
	}
	if err := client.Connect(ctx, TraceDial(dial)); err != nil {
		return nil, err
	}
	return client, nil
}

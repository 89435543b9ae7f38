package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Errors returned when resolving a receiver.
var (
	// ErrReceiverNotFound indicates a name missing from the registry.
	ErrReceiverNotFound = errors.New("receiver not found")

	// ErrNoReceiver indicates no name was given and no default is set.
	ErrNoReceiver = errors.New("no receiver selected")
)

// Registry represents the entire user configuration file.
// This stores the known receivers and application preferences.
type Registry struct {
	Version     int                  `yaml:"version" toml:"version"`
	Receivers   map[string]*Receiver `yaml:"receivers,omitempty" toml:"receivers,omitempty"` // Keyed by short name, e.g. "den"
	Preferences *Preferences         `yaml:"preferences,omitempty" toml:"preferences,omitempty"`
}

// Receiver is one AV receiver the tools can talk to.
type Receiver struct {
	Address string `yaml:"address" toml:"address"`                     // Host name or IP
	Port    int    `yaml:"port,omitempty" toml:"port,omitempty"`       // 0 means 60128
	Name    string `yaml:"name,omitempty" toml:"name,omitempty"`       // Display name
	Timeout string `yaml:"timeout,omitempty" toml:"timeout,omitempty"` // Command timeout, e.g. "3s"
}

// CommandTimeout parses Timeout. An empty value yields zero, which the
// client replaces with its default.
func (r *Receiver) CommandTimeout() (time.Duration, error) {
	if strings.TrimSpace(r.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(r.Timeout))
	if err != nil {
		return 0, fmt.Errorf("parse timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %s", d)
	}
	return d, nil
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultReceiver string `yaml:"default_receiver,omitempty" toml:"default_receiver,omitempty"` // Used when --receiver is not given
	LogLevel        string `yaml:"log_level,omitempty" toml:"log_level,omitempty"`               // debug, info, warn, error
	LogFile         string `yaml:"log_file,omitempty" toml:"log_file,omitempty"`                 // Rotated JSON log file
	BridgeListen    string `yaml:"bridge_listen,omitempty" toml:"bridge_listen,omitempty"`       // eiscp-bridge listen address
}

// DefaultBridgeListen is the bridge listen address when none is configured.
const DefaultBridgeListen = ":8080"

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:   1,
		Receivers: make(map[string]*Receiver),
		Preferences: &Preferences{
			BridgeListen: DefaultBridgeListen,
		},
	}
}

// GetReceiver retrieves a receiver by name.
// Returns nil if the receiver doesn't exist in the registry.
func (r *Registry) GetReceiver(name string) *Receiver {
	return r.Receivers[name]
}

// SetReceiver adds or replaces a receiver entry.
func (r *Registry) SetReceiver(name string, rcv *Receiver) {
	if r.Receivers == nil {
		r.Receivers = make(map[string]*Receiver)
	}
	r.Receivers[name] = rcv
}

// RemoveReceiver deletes a receiver entry. Clears the default if it pointed
// at name.
func (r *Registry) RemoveReceiver(name string) {
	delete(r.Receivers, name)
	if r.Preferences != nil && r.Preferences.DefaultReceiver == name {
		r.Preferences.DefaultReceiver = ""
	}
}

// Names returns receiver names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Receivers))
	for name := range r.Receivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the receiver called name, or the default receiver when
// name is empty. A registry holding exactly one receiver resolves to it
// without a default.
func (r *Registry) Resolve(name string) (string, *Receiver, error) {
	if name == "" && r.Preferences != nil {
		name = r.Preferences.DefaultReceiver
	}
	if name == "" {
		if len(r.Receivers) == 1 {
			for only, rcv := range r.Receivers {
				return only, rcv, nil
			}
		}
		return "", nil, ErrNoReceiver
	}

	rcv, ok := r.Receivers[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrReceiverNotFound, name)
	}
	return name, rcv, nil
}

// Validate checks the registry for values the tools cannot use.
func (r *Registry) Validate() error {
	if r.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", r.Version)
	}
	for _, name := range r.Names() {
		rcv := r.Receivers[name]
		if rcv == nil || strings.TrimSpace(rcv.Address) == "" {
			return fmt.Errorf("receiver %q: address is required", name)
		}
		if rcv.Port < 0 || rcv.Port > 65535 {
			return fmt.Errorf("receiver %q: port %d out of range", name, rcv.Port)
		}
		if _, err := rcv.CommandTimeout(); err != nil {
			return fmt.Errorf("receiver %q: %w", name, err)
		}
	}
	if r.Preferences != nil && r.Preferences.DefaultReceiver != "" {
		if _, ok := r.Receivers[r.Preferences.DefaultReceiver]; !ok {
			return fmt.Errorf("default_receiver %q: %w", r.Preferences.DefaultReceiver, ErrReceiverNotFound)
		}
	}
	return nil
}

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "eiscpctl"
	configFile = "config.yaml"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// Format is the on-disk encoding of a registry file.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

// FormatForPath picks the encoding from the file extension: .toml is TOML,
// anything else YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/eiscpctl or $HOME/.config/eiscpctl
//   - macOS: $HOME/.config/eiscpctl (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\eiscpctl
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			// Fallback to USERPROFILE\AppData\Local if LOCALAPPDATA not set
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		// Linux and other Unix-like systems: Use XDG_CONFIG_HOME or $HOME/.config
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the registry at path. An empty path means the default config
// file, which may be absent: a missing default file yields a new registry.
// An explicit path must exist.
func Load(path string) (*Registry, error) {
	explicit := path != ""
	if !explicit {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return NewRegistry(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	reg, err := Decode(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Decode parses a registry and fills in defaults.
func Decode(data []byte, format Format) (*Registry, error) {
	var registry Registry
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &registry); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &registry); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Ensure maps are initialized
	if registry.Receivers == nil {
		registry.Receivers = make(map[string]*Receiver)
	}
	if registry.Preferences == nil {
		registry.Preferences = &Preferences{}
	}
	if registry.Preferences.BridgeListen == "" {
		registry.Preferences.BridgeListen = DefaultBridgeListen
	}

	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return &registry, nil
}

// Encode serializes the registry with a header comment.
func (r *Registry) Encode(format Format) ([]byte, error) {
	var body []byte
	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(r); err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		body = buf.Bytes()
	default:
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		body = data
	}

	header := []byte(`# eiscpctl configuration file
# Receivers are addressed by name with --receiver; default_receiver is
# used when no name is given.

`)
	return append(header, body...), nil
}

// Save writes the registry to the default config file.
func (r *Registry) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return r.SaveTo(configPath)
}

// SaveTo writes the registry to path in the format its extension selects.
// Performs an atomic write to prevent corruption on crash.
func (r *Registry) SaveTo(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := r.Encode(FormatForPath(path))
	if err != nil {
		return err
	}

	// Write to temporary file first (atomic write)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Clean up temp file on error
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

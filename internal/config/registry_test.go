package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "eiscpctl") {
		t.Errorf("GetConfigDir() = %v, should contain 'eiscpctl'", configDir)
	}

	// Platform-specific checks
	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if os.Getenv("XDG_CONFIG_HOME") == "" && !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg", "eiscpctl") {
		t.Errorf("GetConfigDir() = %s", dir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Receivers == nil {
		t.Error("NewRegistry().Receivers should not be nil")
	}
	if reg.Preferences == nil || reg.Preferences.BridgeListen != DefaultBridgeListen {
		t.Errorf("NewRegistry().Preferences = %+v", reg.Preferences)
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()

	if _, _, err := reg.Resolve(""); !errors.Is(err, ErrNoReceiver) {
		t.Errorf("Resolve(\"\") on empty registry error = %v, want ErrNoReceiver", err)
	}

	reg.SetReceiver("den", &Receiver{Address: "192.168.1.40"})

	// A single receiver needs no default
	name, rcv, err := reg.Resolve("")
	if err != nil || name != "den" || rcv.Address != "192.168.1.40" {
		t.Errorf("Resolve(\"\") = %s, %+v, %v", name, rcv, err)
	}

	reg.SetReceiver("lounge", &Receiver{Address: "192.168.1.41"})
	if _, _, err := reg.Resolve(""); !errors.Is(err, ErrNoReceiver) {
		t.Errorf("Resolve(\"\") with two receivers error = %v, want ErrNoReceiver", err)
	}

	reg.Preferences.DefaultReceiver = "lounge"
	if name, _, err := reg.Resolve(""); err != nil || name != "lounge" {
		t.Errorf("Resolve(\"\") = %s, %v, want lounge", name, err)
	}
	if name, _, err := reg.Resolve("den"); err != nil || name != "den" {
		t.Errorf("Resolve(den) = %s, %v", name, err)
	}
	if _, _, err := reg.Resolve("kitchen"); !errors.Is(err, ErrReceiverNotFound) {
		t.Errorf("Resolve(kitchen) error = %v, want ErrReceiverNotFound", err)
	}

	reg.RemoveReceiver("lounge")
	if reg.Preferences.DefaultReceiver != "" {
		t.Error("RemoveReceiver() left a dangling default")
	}
	if got := reg.Names(); len(got) != 1 || got[0] != "den" {
		t.Errorf("Names() = %v", got)
	}
}

func TestRegistryValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Registry)
		wantErr bool
	}{
		{name: "valid", mutate: func(r *Registry) {}},
		{name: "bad version", mutate: func(r *Registry) { r.Version = 2 }, wantErr: true},
		{name: "missing address", mutate: func(r *Registry) { r.Receivers["den"].Address = "" }, wantErr: true},
		{name: "bad port", mutate: func(r *Registry) { r.Receivers["den"].Port = 99999 }, wantErr: true},
		{name: "bad timeout", mutate: func(r *Registry) { r.Receivers["den"].Timeout = "soon" }, wantErr: true},
		{name: "negative timeout", mutate: func(r *Registry) { r.Receivers["den"].Timeout = "-1s" }, wantErr: true},
		{name: "unknown default", mutate: func(r *Registry) { r.Preferences.DefaultReceiver = "attic" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			reg.SetReceiver("den", &Receiver{Address: "192.168.1.40", Timeout: "3s"})
			tt.mutate(reg)

			err := reg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReceiverCommandTimeout(t *testing.T) {
	rcv := &Receiver{Timeout: " 1500ms "}
	d, err := rcv.CommandTimeout()
	if err != nil || d != 1500*time.Millisecond {
		t.Errorf("CommandTimeout() = %v, %v", d, err)
	}
	if d, err := (&Receiver{}).CommandTimeout(); err != nil || d != 0 {
		t.Errorf("empty CommandTimeout() = %v, %v", d, err)
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]Format{
		"config.yaml":     FormatYAML,
		"config.yml":      FormatYAML,
		"/etc/eiscp.toml": FormatTOML,
		"/etc/EISCP.TOML": FormatTOML,
		"no-extension":    FormatYAML,
	}
	for path, want := range tests {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestDecodeYAML(t *testing.T) {
	data := []byte(`version: 1
receivers:
  den:
    address: 192.168.1.40
    name: Den TX-NR696
    timeout: 3s
  lounge:
    address: lounge.local
    port: 60129
preferences:
  default_receiver: den
  log_level: debug
`)

	reg, err := Decode(data, FormatYAML)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	den := reg.GetReceiver("den")
	if den == nil || den.Address != "192.168.1.40" || den.Name != "Den TX-NR696" || den.Timeout != "3s" {
		t.Errorf("den = %+v", den)
	}
	if lounge := reg.GetReceiver("lounge"); lounge == nil || lounge.Port != 60129 {
		t.Errorf("lounge = %+v", lounge)
	}
	if reg.Preferences.DefaultReceiver != "den" || reg.Preferences.LogLevel != "debug" {
		t.Errorf("preferences = %+v", reg.Preferences)
	}
	if reg.Preferences.BridgeListen != DefaultBridgeListen {
		t.Errorf("BridgeListen = %q, want default", reg.Preferences.BridgeListen)
	}
}

func TestDecodeTOML(t *testing.T) {
	data := []byte(`version = 1

[receivers.den]
address = "192.168.1.40"
timeout = "2s"

[preferences]
default_receiver = "den"
bridge_listen = "127.0.0.1:9000"
`)

	reg, err := Decode(data, FormatTOML)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if den := reg.GetReceiver("den"); den == nil || den.Address != "192.168.1.40" || den.Timeout != "2s" {
		t.Errorf("den = %+v", den)
	}
	if reg.Preferences.BridgeListen != "127.0.0.1:9000" {
		t.Errorf("BridgeListen = %q", reg.Preferences.BridgeListen)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{name: "bad yaml", data: "version: [", format: FormatYAML},
		{name: "bad toml", data: "version = ", format: FormatTOML},
		{name: "missing version", data: "receivers: {}", format: FormatYAML},
		{name: "receiver without address", data: "version: 1\nreceivers:\n  den:\n    port: 1\n", format: FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data), tt.format); err == nil {
				t.Error("Decode() succeeded, want error")
			}
		})
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	for _, file := range []string{"config.yaml", "config.toml"} {
		t.Run(file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", file)

			reg := NewRegistry()
			reg.SetReceiver("den", &Receiver{Address: "192.168.1.40", Name: "Den", Timeout: "3s"})
			reg.SetReceiver("lounge", &Receiver{Address: "lounge.local", Port: 60129})
			reg.Preferences.DefaultReceiver = "den"
			reg.Preferences.LogFile = "/var/log/eiscp.log"

			if err := reg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo() error: %v", err)
			}
			if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
				t.Error("temporary file left behind")
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if den := loaded.GetReceiver("den"); den == nil || den.Name != "Den" || den.Timeout != "3s" {
				t.Errorf("den = %+v", den)
			}
			if lounge := loaded.GetReceiver("lounge"); lounge == nil || lounge.Port != 60129 {
				t.Errorf("lounge = %+v", lounge)
			}
			if loaded.Preferences.DefaultReceiver != "den" || loaded.Preferences.LogFile != "/var/log/eiscp.log" {
				t.Errorf("preferences = %+v", loaded.Preferences)
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOCALAPPDATA", t.TempDir())

	reg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") with no file error: %v", err)
	}
	if len(reg.Receivers) != 0 {
		t.Errorf("Receivers = %v, want empty", reg.Receivers)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load(explicit missing path) succeeded, want error")
	}
}

func BenchmarkGetConfigDir(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GetConfigDir()
	}
}

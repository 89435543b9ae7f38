// Package config manages the file of known receivers.
//
// The registry maps short names to receiver addresses and holds a few
// preferences (default receiver, log settings, bridge listen address). It is
// YAML by default; a path ending in .toml is read and written as TOML.
//
// # Configuration File Location
//
// The default file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/eiscpctl/config.yaml or $HOME/.config/eiscpctl/config.yaml
//   - macOS: $HOME/.config/eiscpctl/config.yaml
//   - Windows: %LOCALAPPDATA%\eiscpctl\config.yaml
//
// # Example
//
//	version: 1
//	receivers:
//	  den:
//	    address: 192.168.1.40
//	    name: Den TX-NR696
//	    timeout: 3s
//	preferences:
//	  default_receiver: den
//	  log_level: info
//
// # Usage Example
//
//	reg, err := config.Load("") // default path, missing file is fine
//	if err != nil {
//	    return err
//	}
//	name, rcv, err := reg.Resolve(flagReceiver)
//
// # Thread Safety
//
// Registry values are not synchronized. File writes are serialized and
// atomic (temp file plus rename).
package config

// Package version reports build metadata for eiscpctl and eiscp-bridge.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Release builds stamp these through ldflags:
//
//	go build -ldflags="-X github.com/muurk/eiscpctl/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/eiscpctl/internal/version.Commit=abc1234 \
//	                   -X github.com/muurk/eiscpctl/internal/version.Date=2025-03-01"
//
// Local builds leave them empty and pick up the VCS stamp instead.
var (
	Version string
	Commit  string
	Date    string
)

const shortCommitLen = 7

// Info is the resolved build metadata.
type Info struct {
	Version string
	Commit  string
	Date    string
	Go      string
}

// vcsStamp is what the go command records for a build inside a checkout.
type vcsStamp struct {
	revision string
	modified bool
	time     time.Time
}

var resolved = sync.OnceValue(func() Info {
	return resolve(Version, Commit, Date, readVCS())
})

// Get returns the build metadata, resolved once per process.
func Get() Info {
	return resolved()
}

func readVCS() vcsStamp {
	var v vcsStamp
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = s.Value
		case "vcs.modified":
			v.modified = s.Value == "true"
		case "vcs.time":
			v.time, _ = time.Parse(time.RFC3339, s.Value)
		}
	}
	return v
}

// resolve fills gaps in the ldflags values from the VCS stamp.
func resolve(version, commit, date string, v vcsStamp) Info {
	info := Info{Version: version, Commit: commit, Date: date, Go: runtime.Version()}

	if info.Commit == "" && v.revision != "" {
		info.Commit = v.revision
		if len(info.Commit) > shortCommitLen {
			info.Commit = info.Commit[:shortCommitLen]
		}
		if v.modified {
			info.Commit += "+dirty"
		}
	}
	if info.Date == "" && !v.time.IsZero() {
		info.Date = v.time.UTC().Format(time.DateOnly)
	}

	if info.Version == "" {
		info.Version = "devel"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
}

// Line is the version command output, e.g.
// "eiscpctl v0.3.0 (abc1234, 2025-03-01, go1.24.10)".
func (i Info) Line(app string) string {
	parts := []string{i.Commit}
	if i.Date != "" {
		parts = append(parts, i.Date)
	}
	parts = append(parts, i.Go)
	return fmt.Sprintf("%s %s (%s)", app, i.Version, strings.Join(parts, ", "))
}

// UserAgent identifies a binary to bridge clients, e.g.
// "eiscp-bridge/v0.3.0 (abc1234)".
func (i Info) UserAgent(app string) string {
	return fmt.Sprintf("%s/%s (%s)", app, i.Version, i.Commit)
}

// Package version reports build information for the pagebuilder binary and
// the design schema version it reads and writes.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/conneroisu/pagebuilder/internal/types"
)

// These variables are set at build time using -ldflags, e.g.
//
//	-X github.com/conneroisu/pagebuilder/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version       string    `json:"version" yaml:"version"`
	GitCommit     string    `json:"git_commit" yaml:"git_commit"`
	BuildTime     time.Time `json:"build_time,omitempty" yaml:"build_time,omitempty"`
	GoVersion     string    `json:"go_version" yaml:"go_version"`
	Platform      string    `json:"platform" yaml:"platform"`
	SchemaVersion string    `json:"schema_version" yaml:"schema_version"`
	Dirty         bool      `json:"dirty,omitempty" yaml:"dirty,omitempty"`
}

// Get returns the build information of the running binary. Values not set
// through ldflags are read from the embedded VCS settings when available.
func Get() BuildInfo {
	info := BuildInfo{
		Version:       Version,
		GitCommit:     GitCommit,
		BuildTime:     parseBuildTime(BuildTime),
		GoVersion:     runtime.Version(),
		Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		SchemaVersion: types.SchemaVersion,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	var revision string
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			info.Dirty = setting.Value == "true"
		case "vcs.time":
			if info.BuildTime.IsZero() {
				info.BuildTime = parseBuildTime(setting.Value)
			}
		}
	}

	if info.GitCommit == "" || info.GitCommit == "unknown" {
		if revision != "" {
			info.GitCommit = revision
		}
	}
	if info.Version == "" || info.Version == "dev" {
		switch {
		case bi.Main.Version != "" && bi.Main.Version != "(devel)":
			info.Version = bi.Main.Version
		case len(revision) >= 7:
			info.Version = "dev-" + revision[:7]
		default:
			info.Version = "dev"
		}
	}

	return info
}

// Short returns a one-line version suitable for headers and health checks.
func Short() string {
	info := Get()
	if len(info.GitCommit) >= 7 && info.GitCommit != "unknown" && !strings.HasPrefix(info.Version, "dev-") {
		return fmt.Sprintf("%s (%s)", info.Version, info.GitCommit[:7])
	}

	return info.Version
}

// IsRelease reports whether this is a tagged build.
func IsRelease() bool {
	v := Get().Version
	return v != "dev" && !strings.HasPrefix(v, "dev-")
}

// String renders the info one field per line.
func (b BuildInfo) String() string {
	parts := []string{"Version: " + b.Version}
	if b.GitCommit != "unknown" && b.GitCommit != "" {
		commit := "Commit: " + b.GitCommit
		if b.Dirty {
			commit += " (dirty)"
		}
		parts = append(parts, commit)
	}
	if !b.BuildTime.IsZero() {
		parts = append(parts, "Built: "+b.BuildTime.Format(time.RFC3339))
	}
	parts = append(parts,
		"Go: "+b.GoVersion,
		"Platform: "+b.Platform,
		"Design schema: "+b.SchemaVersion,
	)

	return strings.Join(parts, "\n")
}

// parseBuildTime accepts RFC3339 and a few looser layouts; anything else is
// the zero time.
func parseBuildTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}

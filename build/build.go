// Package build reports version information about the running binary. The
// version and an optional JSON blob can be injected with -ldflags:
//
//	-X github.com/amp-labs/suspense/build.Version=1.2.3
//	-X 'github.com/amp-labs/suspense/build.InfoJSON={"git_commit":"abc"}'
package build

import (
	"encoding/json"
	"log/slog"
	"runtime/debug"
)

//nolint:gochecknoglobals
var (
	// Version is the release version. It stays "dev" for untagged builds.
	Version = "dev"
	// InfoJSON optionally carries an encoded Info.
	InfoJSON = ""
)

// Info contains build metadata.
type Info struct {
	Version      string            `json:"version"`
	GitCommit    string            `json:"git_commit"` //nolint:tagliatelle
	GitDate      string            `json:"git_date"`   //nolint:tagliatelle
	GoVersion    string            `json:"go_version"` //nolint:tagliatelle
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Parse deserializes a JSON string into build Info.
// Returns (nil, false) if the input is empty, "{}", or fails to parse.
func Parse(js string) (*Info, bool) {
	if js == "" || js == "{}" {
		return nil, false
	}

	var info Info

	if err := json.Unmarshal([]byte(js), &info); err != nil {
		slog.Warn("Failed to parse build info from JSON",
			"data", js,
			"error", err)

		return nil, false
	}

	return &info, true
}

// Current returns the injected Info when present, filled in from the
// module build information embedded by the Go toolchain.
func Current() Info {
	info := Info{}
	if injected, ok := Parse(InfoJSON); ok {
		info = *injected
	}

	if info.Version == "" {
		info.Version = Version
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	if info.GoVersion == "" {
		info.GoVersion = bi.GoVersion
	}

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = setting.Value
			}
		case "vcs.time":
			if info.GitDate == "" {
				info.GitDate = setting.Value
			}
		}
	}

	if info.Dependencies == nil && len(bi.Deps) > 0 {
		info.Dependencies = make(map[string]string, len(bi.Deps))
		for _, dep := range bi.Deps {
			info.Dependencies[dep.Path] = dep.Version
		}
	}

	return info
}

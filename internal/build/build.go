// Package build provides build-time information for the psrfits command.
// Version is read from VERSION file or set via ldflags during build.
package build

import (
	_ "embed"
	"runtime"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var embeddedVersion string

// version can be overridden via ldflags:
// -X github.com/tacogips/psrfits/internal/build.version=x.y.z
var version string

// Version returns the application version.
// Priority: ldflags > embedded VERSION file
func Version() string {
	if version != "" {
		return version
	}
	return strings.TrimSpace(embeddedVersion)
}

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Modified  bool   `json:"modified,omitempty"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// ReadInfo collects the version together with the VCS stamp the Go
// toolchain embeds in the binary. Commit and BuildDate are "unknown" when
// the binary was built without VCS information.
func ReadInfo() Info {
	info := Info{
		Version:   Version(),
		GoVersion: runtime.Version(),
		Commit:    "unknown",
		BuildDate: "unknown",
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.time":
			info.BuildDate = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

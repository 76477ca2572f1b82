package build

import (
	"runtime"
	"testing"
)

func TestVersion(t *testing.T) {
	if got := Version(); got != "0.1.0" {
		t.Errorf("Version() = %q, want embedded 0.1.0", got)
	}

	version = "9.9.9"
	defer func() { version = "" }()
	if got := Version(); got != "9.9.9" {
		t.Errorf("Version() = %q, ldflags value not preferred", got)
	}
}

func TestReadInfo(t *testing.T) {
	info := ReadInfo()
	if info.Version != Version() || info.GoVersion != runtime.Version() {
		t.Errorf("ReadInfo() = %+v", info)
	}
	if info.Commit == "" || info.BuildDate == "" {
		t.Errorf("empty VCS fields: %+v", info)
	}
}

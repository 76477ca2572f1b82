package app

import (
	"context"
	"fmt"
	"os"

	"github.com/tacogips/psrfits/internal/config"
	"github.com/tacogips/psrfits/internal/debug"
)

// ConfigInitOptions holds options for writing a configuration file.
type ConfigInitOptions struct {
	// Path is the configuration file. Empty means config.DefaultConfigPath.
	Path string
	// Force overwrites an existing file.
	Force bool
}

// InitConfig writes the default configuration to a file and returns its
// path.
func InitConfig(ctx context.Context, opts ConfigInitOptions) (string, error) {
	path := opts.Path
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if path == "" {
		return "", NewAppError(ConfigInitFailed, "cannot determine the configuration path", nil)
	}
	path, err := config.ExpandPath(path)
	if err != nil {
		return "", NewAppError(ConfigInitFailed, "invalid configuration path", err)
	}
	debug.DebugValue("[app] Config path", path)

	if _, err := os.Stat(path); err == nil && !opts.Force {
		return "", NewAppError(ConfigInitFailed, fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return "", NewAppError(ConfigInitFailed, "cannot write configuration", err)
	}
	return path, nil
}

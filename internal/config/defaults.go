package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfig returns the default configuration. The dimensions are
// those of a typical SEARCH observation.
func DefaultConfig() *Config {
	return &Config{
		Dimensions: DimensionsConfig{
			ObsMode:     "",
			NBin:        1,
			NChan:       2048,
			NPol:        4,
			NSblk:       4096,
			NSubint:     4,
			SampleBytes: 0,
		},
		Templates: TemplatesConfig{
			Search:   "builtin:SEARCH",
			Fold:     "builtin:PSR",
			Cal:      "builtin:CAL",
			CacheDir: DefaultCacheDir(),
		},
		Read: ReadConfig{
			Downsample:     1,
			FreqDownsample: 1,
			ApplyScales:    true,
		},
		Output: OutputConfig{
			Color:     true,
			Verbose:   false,
			Quiet:     false,
			Overwrite: false,
		},
	}
}

// TemplateFor returns the configured template reference of a mode.
func (t TemplatesConfig) TemplateFor(mode string) string {
	switch strings.ToUpper(strings.TrimSpace(mode)) {
	case "PSR":
		return t.Fold
	case "CAL":
		return t.Cal
	default:
		return t.Search
	}
}

// DefaultCacheDir returns the directory for generated built-in templates.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "psrfits-templates")
	}
	return filepath.Join(dir, "psrfits", "templates")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "psrfits", "config.json")
}

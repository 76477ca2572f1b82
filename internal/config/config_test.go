package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	d := cfg.Dimensions
	if d.NBin != 1 || d.NChan != 2048 || d.NPol != 4 || d.NSblk != 4096 || d.NSubint != 4 {
		t.Errorf("unexpected default dimensions %+v", d)
	}
	if d.ObsMode != "" {
		t.Errorf("Expected empty ObsMode, got %q", d.ObsMode)
	}

	if cfg.Templates.Search != "builtin:SEARCH" {
		t.Errorf("Expected Search=builtin:SEARCH, got %s", cfg.Templates.Search)
	}
	if cfg.Templates.CacheDir == "" {
		t.Error("CacheDir should have a default")
	}

	if !cfg.Read.ApplyScales {
		t.Error("ApplyScales should be true by default")
	}
	if !cfg.Output.Color {
		t.Error("Color output should be enabled by default")
	}
	if cfg.Output.Overwrite {
		t.Error("Overwrite should be disabled by default")
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestTemplateFor(t *testing.T) {
	tc := TemplatesConfig{Search: "s.fits", Fold: "f.fits", Cal: "c.fits"}
	tests := map[string]string{
		"SEARCH": "s.fits",
		"psr":    "f.fits",
		" CAL ":  "c.fits",
		"":       "s.fits",
	}
	for mode, want := range tests {
		if got := tc.TemplateFor(mode); got != want {
			t.Errorf("TemplateFor(%q) = %s, want %s", mode, got, want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	loader := NewLoader()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "config.json")
		data := `{"dimensions": {"obs_mode": "PSR", "nbin": 256, "nsblk": 1, "nchan": 64},
			"read": {"apply_scales": false},
			"templates": {"fold": "", "cal": "/data/cal.fits"}}`
		if err := os.WriteFile(cfgPath, []byte(data), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		cfg, err := loader.Load(cfgPath)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Dimensions.NBin != 256 || cfg.Dimensions.NChan != 64 {
			t.Errorf("dimensions = %+v", cfg.Dimensions)
		}
		if cfg.Dimensions.NPol != 4 {
			t.Errorf("Expected default NPol=4, got %d", cfg.Dimensions.NPol)
		}
		if cfg.Read.ApplyScales {
			t.Error("explicit apply_scales=false was overridden")
		}
		if cfg.Templates.Fold != "builtin:PSR" {
			t.Errorf("empty fold template not defaulted: %q", cfg.Templates.Fold)
		}
		if cfg.Templates.Cal != "/data/cal.fits" {
			t.Errorf("Cal = %q", cfg.Templates.Cal)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.Load("/nonexistent/config.json")
		if !IsType(err, ConfigNotFound) {
			t.Fatalf("Expected ConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(cfgPath, []byte("{ invalid json }"), 0644); err != nil {
			t.Fatalf("Failed to write invalid config: %v", err)
		}
		_, err := loader.Load(cfgPath)
		if !IsType(err, ConfigInvalid) {
			t.Errorf("Expected ConfigInvalid, got %v", err)
		}
	})

	t.Run("invalid values name the file", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(cfgPath, []byte(`{"dimensions": {"obs_mode": "SEARCH", "nbin": 2}}`), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := loader.Load(cfgPath)
		if !IsType(err, ConfigValidationFailed) {
			t.Fatalf("Expected ConfigValidationFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), cfgPath) {
			t.Errorf("error %q does not name %s", err, cfgPath)
		}
	})
}

func TestLoadOrDefault(t *testing.T) {
	loader := NewLoader()

	cfg, err := loader.LoadOrDefault("/nonexistent/config.json")
	if err != nil {
		t.Fatalf("LoadOrDefault should not error on missing file: %v", err)
	}
	if cfg.Dimensions.NChan != 2048 {
		t.Errorf("Expected default NChan=2048, got %d", cfg.Dimensions.NChan)
	}

	if cfg, err := loader.LoadOrDefault(""); err != nil || cfg == nil {
		t.Errorf("LoadOrDefault(\"\") = %v, %v", cfg, err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Dimensions.NChan = 512
	cfg.Output.Overwrite = true

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	back, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if back.Dimensions.NChan != 512 || !back.Output.Overwrite {
		t.Errorf("loaded %+v", back)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"zero nchan", func(c *Config) { c.Dimensions.NChan = 0 }, "dimensions.nchan"},
		{"negative sample width", func(c *Config) { c.Dimensions.SampleBytes = -1 }, "dimensions.sample_bytes"},
		{"unknown mode", func(c *Config) { c.Dimensions.ObsMode = "FOLD" }, "dimensions.obs_mode"},
		{"search nbin", func(c *Config) { c.Dimensions.ObsMode = "SEARCH"; c.Dimensions.NBin = 8 }, "dimensions"},
		{"psr nsblk", func(c *Config) { c.Dimensions.ObsMode = "PSR" }, "dimensions"},
		{"search sample width", func(c *Config) { c.Dimensions.ObsMode = "SEARCH"; c.Dimensions.SampleBytes = 3 }, "dimensions"},
		{"empty template", func(c *Config) { c.Templates.Search = " " }, "templates.search"},
		{"bad builtin", func(c *Config) { c.Templates.Cal = "builtin:FLUX" }, "templates.cal"},
		{"negative downsample", func(c *Config) { c.Read.Downsample = -2 }, "read.downsample"},
		{"quiet and verbose", func(c *Config) { c.Output.Quiet = true; c.Output.Verbose = true }, "output.quiet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := Validate(cfg)
			ce, ok := err.(*ConfigError)
			if !ok || ce.Type != ConfigValidationFailed {
				t.Fatalf("Validate() error = %v, want ConfigValidationFailed", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}

	valid := DefaultConfig()
	valid.Dimensions = DimensionsConfig{ObsMode: "psr", NBin: 64, NChan: 512, NPol: 4, NSblk: 1, NSubint: 10}
	if err := Validate(valid); err != nil {
		t.Errorf("valid PSR dimensions rejected: %v", err)
	}
	if err := Validate(nil); err == nil {
		t.Error("Validate(nil) succeeded")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/obs/x.fits")
	if err != nil || got != filepath.Join(home, "obs", "x.fits") {
		t.Errorf("ExpandPath(~/obs/x.fits) = %q, %v", got, err)
	}
	if got, _ := ExpandPath(""); got != "" {
		t.Errorf("ExpandPath(\"\") = %q", got)
	}
	if got, _ := ExpandPath("rel.fits"); !filepath.IsAbs(got) {
		t.Errorf("ExpandPath(rel.fits) = %q is not absolute", got)
	}
}

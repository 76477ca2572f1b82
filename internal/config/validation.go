package config

import (
	"fmt"
	"strings"

	"github.com/tacogips/psrfits/internal/layout"
	"github.com/tacogips/psrfits/internal/template"
)

// Validate validates the global configuration.
func Validate(config *Config) error {
	if config == nil {
		return NewConfigError(ConfigValidationFailed, "", "configuration cannot be nil")
	}
	if err := ValidateDimensions(config.Dimensions); err != nil {
		return err
	}
	refs := []struct {
		field string
		ref   string
	}{
		{"templates.search", config.Templates.Search},
		{"templates.fold", config.Templates.Fold},
		{"templates.cal", config.Templates.Cal},
	}
	for _, r := range refs {
		if err := validateTemplateRef(r.ref); err != nil {
			return NewConfigErrorWithField(ConfigValidationFailed, "", r.field, err.Error())
		}
	}
	if config.Read.Downsample < 0 {
		return NewConfigErrorWithField(ConfigValidationFailed, "", "read.downsample", "downsample cannot be negative")
	}
	if config.Read.FreqDownsample < 0 {
		return NewConfigErrorWithField(ConfigValidationFailed, "", "read.freq_downsample", "frequency downsample cannot be negative")
	}
	if config.Output.Quiet && config.Output.Verbose {
		return NewConfigErrorWithField(ConfigValidationFailed, "", "output.quiet", "quiet and verbose cannot both be set")
	}
	return nil
}

// ValidateDimensions checks the dimensions against the constraints of their
// observation mode. With no mode set only positivity is checked, since the
// mode comes from the template later.
func ValidateDimensions(d DimensionsConfig) error {
	counts := []struct {
		field string
		n     int
	}{
		{"dimensions.nbin", d.NBin},
		{"dimensions.nchan", d.NChan},
		{"dimensions.npol", d.NPol},
		{"dimensions.nsblk", d.NSblk},
		{"dimensions.nsubint", d.NSubint},
	}
	for _, c := range counts {
		if c.n < 1 {
			return NewConfigErrorWithField(ConfigValidationFailed, "", c.field, fmt.Sprintf("must be at least 1, got %d", c.n))
		}
	}
	if d.SampleBytes < 0 {
		return NewConfigErrorWithField(ConfigValidationFailed, "", "dimensions.sample_bytes", "sample width cannot be negative")
	}
	if strings.TrimSpace(d.ObsMode) == "" {
		return nil
	}

	mode, err := layout.ParseMode(d.ObsMode)
	if err != nil {
		return &ConfigError{Type: ConfigValidationFailed, Field: "dimensions.obs_mode", Message: "unknown observation mode", Cause: err}
	}
	if _, err := layout.DeriveSubint(mode, d.Dims()); err != nil {
		return &ConfigError{Type: ConfigValidationFailed, Field: "dimensions", Message: fmt.Sprintf("not valid for %s mode", mode), Cause: err}
	}
	return nil
}

// Dims converts the configuration to layout dimensions.
func (d DimensionsConfig) Dims() layout.Dims {
	return layout.Dims{
		NBin:        d.NBin,
		NChan:       d.NChan,
		NPol:        d.NPol,
		NSblk:       d.NSblk,
		NSubint:     d.NSubint,
		SampleBytes: d.SampleBytes,
	}
}

func validateTemplateRef(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("template reference cannot be empty")
	}
	if template.IsBuiltin(ref) {
		if _, err := (&template.BuiltinProvider{}).Resolve(ref); err != nil {
			return err
		}
	}
	return nil
}

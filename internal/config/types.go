package config

// Config represents the global psrfits configuration.
type Config struct {
	// Dimensions are the SUBINT dimensions used when no flag overrides them.
	Dimensions DimensionsConfig `json:"dimensions"`
	// Templates maps observation modes to template references.
	Templates TemplatesConfig `json:"templates"`
	// Read configures the SEARCH data reader used by bandpass reports.
	Read ReadConfig `json:"read"`
	// Output configuration for display and logging.
	Output OutputConfig `json:"output"`
}

// DimensionsConfig holds SUBINT dimensions.
type DimensionsConfig struct {
	// ObsMode is SEARCH, PSR or CAL. Empty takes OBS_MODE from the template.
	ObsMode string `json:"obs_mode"`
	NBin    int    `json:"nbin"`
	NChan   int    `json:"nchan"`
	NPol    int    `json:"npol"`
	NSblk   int    `json:"nsblk"`
	NSubint int    `json:"nsubint"`
	// SampleBytes is the DATA sample width of SEARCH files (1, 2 or 4);
	// 0 selects the mode default.
	SampleBytes int `json:"sample_bytes"`
}

// TemplatesConfig holds a template reference per observation mode. A
// reference is a file path or "builtin:<MODE>".
type TemplatesConfig struct {
	Search string `json:"search"`
	Fold   string `json:"fold"`
	Cal    string `json:"cal"`
	// CacheDir receives generated built-in templates.
	CacheDir string `json:"cache_dir"`
}

// ReadConfig holds reader defaults.
type ReadConfig struct {
	// Downsample is the time downsampling factor (0 = one spectrum per row).
	Downsample int `json:"downsample"`
	// FreqDownsample is the channel downsampling factor.
	FreqDownsample int `json:"freq_downsample"`
	// ApplyScales applies DAT_SCL and DAT_OFFS.
	ApplyScales bool `json:"apply_scales"`
}

// OutputConfig represents output and display settings.
type OutputConfig struct {
	// Color enables colored terminal output.
	Color bool `json:"color"`
	// Verbose enables verbose logging output.
	Verbose bool `json:"verbose"`
	// Quiet suppresses non-error output.
	Quiet bool `json:"quiet"`
	// Overwrite replaces existing output files without asking.
	Overwrite bool `json:"overwrite"`
}

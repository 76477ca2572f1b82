package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tacogips/psrfits/internal/config"
	"github.com/tacogips/psrfits/internal/layout"
)

// Common flag names and descriptions
const (
	// Flag names
	FlagOutput      = "output"
	FlagOverwrite   = "overwrite"
	FlagConfig      = "config"
	FlagTemplate    = "template"
	FlagMode        = "mode"
	FlagSet         = "set"
	FlagAsk         = "ask"
	FlagMap         = "map"
	FlagForce       = "force"
	FlagJSON        = "json"
	FlagInteractive = "interactive"
	FlagVerbose     = "verbose"
	FlagNoColor     = "no-color"
	FlagQuiet       = "quiet"
	FlagDebug       = "debug"

	// Flag descriptions
	DescOutput      = "Output file"
	DescOverwrite   = "Overwrite an existing output file without asking"
	DescConfig      = "Path to config file"
	DescTemplate    = "Template file or builtin:SEARCH|PSR|CAL"
	DescMode        = "Observation mode (SEARCH, PSR or CAL); default is the template OBS_MODE"
	DescSet         = "Header edit EXT.KEY=VALUE (repeatable; EXT defaults to PRIMARY)"
	DescAsk         = "Ask for the value of header keyword EXT.KEY (repeatable)"
	DescMap         = "Extension mapping DEST=SRC for appended files (repeatable)"
	DescForce       = "Force overwrite"
	DescJSON        = "Output as JSON"
	DescInteractive = "Ask for the SUBINT dimensions"
	DescVerbose     = "Verbose output"
	DescNoColor     = "Disable colored output"
	DescQuiet       = "Suppress output"
	DescDebug       = "Enable debug logging"
)

// dimFlags are the SUBINT dimension flags shared by commands that write
// files. Flags left unset fall back to the configuration.
type dimFlags struct {
	mode        string
	nbin        int
	nchan       int
	npol        int
	nsblk       int
	nsubint     int
	sampleBytes int
}

func (f *dimFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.mode, FlagMode, "", DescMode)
	fs.IntVar(&f.nbin, "nbin", 0, "Number of pulse phase bins (1 for SEARCH)")
	fs.IntVar(&f.nchan, "nchan", 0, "Number of frequency channels")
	fs.IntVar(&f.npol, "npol", 0, "Number of polarisations")
	fs.IntVar(&f.nsblk, "nsblk", 0, "Samples per SUBINT row (1 for PSR and CAL)")
	fs.IntVar(&f.nsubint, "nsubint", 0, "Number of SUBINT rows")
	fs.IntVar(&f.sampleBytes, "sample-bytes", 0, "SEARCH sample width in bytes (1, 2 or 4)")
}

// resolve merges the flags the user set over the configured dimensions.
func (f *dimFlags) resolve(cmd *cobra.Command, cfg config.DimensionsConfig) config.DimensionsConfig {
	fs := cmd.Flags()
	pick := func(name string, flag, conf int) int {
		if fs.Changed(name) {
			return flag
		}
		return conf
	}
	out := cfg
	if fs.Changed(FlagMode) {
		out.ObsMode = f.mode
	}
	out.NBin = pick("nbin", f.nbin, cfg.NBin)
	out.NChan = pick("nchan", f.nchan, cfg.NChan)
	out.NPol = pick("npol", f.npol, cfg.NPol)
	out.NSblk = pick("nsblk", f.nsblk, cfg.NSblk)
	out.NSubint = pick("nsubint", f.nsubint, cfg.NSubint)
	out.SampleBytes = pick("sample-bytes", f.sampleBytes, cfg.SampleBytes)
	return out
}

// foldDefaults replaces the SEARCH-shaped configured defaults that can
// never fit a fold-mode file, unless the user set them explicitly.
func foldDefaults(cmd *cobra.Command, d config.DimensionsConfig) config.DimensionsConfig {
	mode, err := layout.ParseMode(d.ObsMode)
	if err != nil || !mode.IsFold() {
		return d
	}
	fs := cmd.Flags()
	if !fs.Changed("nsblk") {
		d.NSblk = 1
	}
	if !fs.Changed("sample-bytes") && d.SampleBytes == 1 {
		d.SampleBytes = 0
	}
	return d
}

// templateRef picks the template: the flag, else the configured template of
// the mode, else the SEARCH template.
func templateRef(flag, mode string, tc config.TemplatesConfig) string {
	if strings.TrimSpace(flag) != "" {
		return flag
	}
	return tc.TemplateFor(mode)
}

// parseRows converts --start/--end flag values to reader row bounds. An
// end of "" reads to the last row.
func parseRows(start int, end string) (int, *int, error) {
	if start < 0 {
		return 0, nil, fmt.Errorf("start row %d is negative", start)
	}
	if strings.TrimSpace(end) == "" {
		n := -1
		return start, &n, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return 0, nil, fmt.Errorf("invalid end row %q", end)
	}
	return start, &n, nil
}

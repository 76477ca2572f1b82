package app

import (
	"context"
	"fmt"

	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/reader"
	"github.com/tacogips/psrfits/internal/report"
)

// BandpassOptions holds options for a bandpass report.
type BandpassOptions struct {
	// Path is a SEARCH-mode file.
	Path string
	// Pol is the polarisation to summarize.
	Pol int
	// Read selects rows and downsampling.
	Read reader.Options
	// PlotPath receives a plot when set. The extension picks the format.
	PlotPath string
}

// BandpassResult holds a computed bandpass.
type BandpassResult struct {
	Bandpass *report.Bandpass
	// Plot is the written plot file, if any.
	Plot string
}

// Bandpass computes per-channel statistics of a SEARCH file.
func Bandpass(ctx context.Context, opts BandpassOptions) (*BandpassResult, error) {
	debug.DebugSection("[app] Bandpass workflow start")
	debug.DebugValue("[app] Path", opts.Path)
	debug.DebugValue("[app] Pol", opts.Pol)

	if opts.Path == "" {
		return nil, NewValidationError("input file is required", nil)
	}
	if opts.Pol < 0 {
		return nil, NewValidationError(fmt.Sprintf("polarisation %d is negative", opts.Pol), nil)
	}

	b, err := report.Compute(opts.Path, report.Options{Pol: opts.Pol, Read: opts.Read})
	if err != nil {
		return nil, NewReportError(fmt.Sprintf("cannot summarize %s", opts.Path), err)
	}
	result := &BandpassResult{Bandpass: b}

	if opts.PlotPath != "" {
		if err := ctx.Err(); err != nil {
			return nil, NewReportError("bandpass interrupted", err)
		}
		if err := b.Plot(opts.PlotPath); err != nil {
			return nil, NewReportError(fmt.Sprintf("cannot plot to %s", opts.PlotPath), err)
		}
		result.Plot = opts.PlotPath
	}

	debug.Debug("[app] Bandpass workflow completed: %d channels, %d spectra", len(b.Channels), b.Spectra)
	return result, nil
}

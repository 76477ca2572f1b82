package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/fitsfile"
	"github.com/tacogips/psrfits/internal/header"
	"github.com/tacogips/psrfits/internal/layout"
	"github.com/tacogips/psrfits/internal/psrfits"
	"github.com/tacogips/psrfits/internal/table"
	"github.com/tacogips/psrfits/internal/template"
)

// CreateOptions holds options for creating a new PSRFITS file.
type CreateOptions struct {
	// Template is a template file path or builtin:<MODE>.
	Template string
	// Output is the file to write.
	Output string
	// ObsMode overrides the template OBS_MODE when non-empty.
	ObsMode string
	// Dims are the SUBINT dimensions of the output.
	Dims layout.Dims
	// Overwrite replaces an existing output.
	Overwrite bool
	// Set are header edits applied after the SUBINT derivation.
	Set []Assignment
	// Templates configures template resolution.
	Templates template.Config
}

// CreateResult holds the result of file creation.
type CreateResult struct {
	// Output is the written file.
	Output string `json:"output"`
	// Template is the resolved template file.
	Template string `json:"template"`
	// Mode is the observation mode of the output.
	Mode layout.Mode `json:"obs_mode"`
	// Derivation is the SUBINT layout that was applied.
	Derivation layout.Derivation `json:"-"`
	// HDUs describes the written file as decoded by fitsio.
	HDUs []fitsfile.Summary `json:"hdus"`
}

// Create writes a new PSRFITS file shaped after a template. SUBINT rows are
// blank: zero data with unit weights and scales, channel frequencies spread
// over OBSFREQ/OBSBW and subintegration times from TBIN. Every other table
// is copied from the template.
func Create(ctx context.Context, opts CreateOptions) (*CreateResult, error) {
	debug.DebugSection("[app] Create workflow start")
	debug.DebugValue("[app] Template", opts.Template)
	debug.DebugValue("[app] Output", opts.Output)
	debug.DebugValue("[app] Dims", opts.Dims.String())

	if err := ValidateOutputPath(opts.Output); err != nil {
		return nil, NewValidationError("invalid output", err)
	}
	var mode layout.Mode
	if strings.TrimSpace(opts.ObsMode) != "" {
		m, err := layout.ParseMode(opts.ObsMode)
		if err != nil {
			return nil, NewValidationError("invalid observation mode", err)
		}
		mode = m
	}

	tmplPath, err := template.Resolve(ctx, opts.Template, opts.Templates)
	if err != nil {
		return nil, NewTemplateResolveError(fmt.Sprintf("cannot resolve template %s", opts.Template), err)
	}

	w, err := psrfits.New(psrfits.Options{
		TemplatePath: tmplPath,
		OutputPath:   opts.Output,
		ObsMode:      mode,
		Overwrite:    opts.Overwrite,
	})
	if err != nil {
		return nil, NewCreateError("cannot prepare output", err)
	}
	defer w.Close()

	der, err := w.SetSubintDims(opts.Dims)
	if err != nil {
		return nil, NewCreateError(fmt.Sprintf("dimensions do not fit a %s file", w.Mode()), err)
	}
	debug.DebugJSON("[app] SUBINT edits", der.Edits)

	order, edits := GroupAssignments(opts.Set)
	for _, ext := range order {
		if err := w.SetFields(ext, edits[ext]); err != nil {
			return nil, NewCreateError("cannot apply header edits", err)
		}
	}

	if err := fillSubint(w, der); err != nil {
		return nil, NewCreateError("cannot build SUBINT rows", err)
	}
	if err := w.CopyAncillary(); err != nil {
		return nil, NewCreateError("cannot copy template tables", err)
	}
	if err := w.Write(); err != nil {
		return nil, NewCreateError("cannot write output", err)
	}
	if err := w.Close(); err != nil {
		return nil, NewCreateError("cannot close output", err)
	}

	hdus, err := w.Verify()
	if err != nil {
		return nil, NewCreateError("written file does not decode", err)
	}

	debug.Debug("[app] Create workflow completed")
	return &CreateResult{
		Output:     opts.Output,
		Template:   tmplPath,
		Mode:       w.Mode(),
		Derivation: der,
		HDUs:       hdus,
	}, nil
}

// fillSubint allocates the SUBINT rows and sets the values a reader needs
// to make sense of an otherwise empty file.
func fillSubint(w *psrfits.Writer, der layout.Derivation) error {
	t, err := w.NewSubint()
	if err != nil {
		return err
	}
	prim, err := w.Header("PRIMARY")
	if err != nil {
		return err
	}
	sub, err := w.Header("SUBINT")
	if err != nil {
		return err
	}

	d := der.Dims
	freqs := channelFreqs(prim, d.NChan)
	tsub := 0.0
	if tbin, err := sub.Float("TBIN"); err == nil && !der.Mode.IsFold() {
		tsub = tbin * float64(d.NSblk)
	}
	scalars := templateScalars(w, der.Mode)
	if tsub == 0 {
		tsub = scalars["TSUBINT"]
	}

	for row := 0; row < d.NSubint; row++ {
		for name, v := range scalars {
			if err := t.SetFloat64(row, name, v); err != nil {
				return err
			}
		}
		if err := setRowTimes(t, row, tsub, der.Mode); err != nil {
			return err
		}
		if freqs != nil {
			if err := t.SetFloat64s(row, "DAT_FREQ", freqs); err != nil {
				return err
			}
		}
		if err := t.SetFloat64s(row, "DAT_WTS", fill(d.NChan, 1)); err != nil {
			return err
		}
		if err := t.SetFloat64s(row, "DAT_SCL", fill(d.NChan*d.NPol, 1)); err != nil {
			return err
		}
	}
	return nil
}

func setRowTimes(t *table.Table, row int, tsub float64, mode layout.Mode) error {
	if err := t.SetFloat64(row, "TSUBINT", tsub); err != nil {
		return err
	}
	if err := t.SetFloat64(row, "OFFS_SUB", tsub*(float64(row)+0.5)); err != nil {
		return err
	}
	if mode.IsFold() && t.Layout().Index("INDEXVAL") >= 0 {
		return t.SetFloat64(row, "INDEXVAL", float64(row))
	}
	return nil
}

// channelFreqs centres nchan channels on OBSFREQ across OBSBW. It returns
// nil when the PRIMARY header lacks either keyword.
func channelFreqs(prim *header.Header, nchan int) []float64 {
	centre, err := prim.Float("OBSFREQ")
	if err != nil {
		return nil
	}
	bw, err := prim.Float("OBSBW")
	if err != nil {
		return nil
	}
	out := make([]float64, nchan)
	step := bw / float64(nchan)
	for c := range out {
		out[c] = centre - bw/2 + (float64(c)+0.5)*step
	}
	return out
}

// templateScalars reads the per-row scalars of the first template SUBINT
// row. Missing rows or columns are skipped.
func templateScalars(w *psrfits.Writer, mode layout.Mode) map[string]float64 {
	out := make(map[string]float64)
	src, err := w.TemplateRows("SUBINT")
	if err != nil || src.NumRows() == 0 {
		return out
	}
	for _, name := range layout.ScalarColumns(mode) {
		if v, err := src.Float64(0, name); err == nil {
			out[name] = v
		}
	}
	return out
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}


package app

import (
	"context"
	"fmt"

	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/fitsfile"
	"github.com/tacogips/psrfits/internal/psrfits"
)

// AppendOptions holds options for concatenating PSRFITS files.
type AppendOptions struct {
	// Output is the file to write.
	Output string
	// Sources are the input files. The first one shapes the output and
	// the rows of the rest are appended to it in order.
	Sources []string
	// Mapping pairs output extension names with source extension names
	// for the appended files. Nil requires matching extension lists.
	Mapping map[string]string
	// Overwrite replaces an existing output.
	Overwrite bool
}

// AppendResult holds the result of an append.
type AppendResult struct {
	Output   string             `json:"output"`
	Appended []string           `json:"appended"`
	HDUs     []fitsfile.Summary `json:"hdus"`
}

// Append copies the first source to the output and appends the table rows
// of every other source to it.
func Append(ctx context.Context, opts AppendOptions) (*AppendResult, error) {
	debug.DebugSection("[app] Append workflow start")
	debug.DebugValue("[app] Output", opts.Output)
	debug.DebugValue("[app] Sources", opts.Sources)

	if err := ValidateOutputPath(opts.Output); err != nil {
		return nil, NewValidationError("invalid output", err)
	}
	if len(opts.Sources) == 0 {
		return nil, NewValidationError("at least one source file is required", nil)
	}
	for _, src := range opts.Sources {
		if src == opts.Output {
			return nil, NewValidationError(fmt.Sprintf("source %s is also the output", src), nil)
		}
	}

	w, err := psrfits.New(psrfits.Options{
		TemplatePath: opts.Sources[0],
		OutputPath:   opts.Output,
		Overwrite:    opts.Overwrite,
	})
	if err != nil {
		return nil, NewAppendError("cannot prepare output", err)
	}
	defer w.Close()

	for _, name := range w.Names()[1:] {
		if _, err := w.CopyTemplateTable(name, nil); err != nil {
			return nil, NewAppendError(fmt.Sprintf("cannot copy %s from %s", name, opts.Sources[0]), err)
		}
	}
	if err := w.Write(); err != nil {
		return nil, NewAppendError("cannot write output", err)
	}

	result := &AppendResult{Output: opts.Output}
	for _, src := range opts.Sources[1:] {
		if err := ctx.Err(); err != nil {
			return nil, NewAppendError("append interrupted", err)
		}
		if err := w.AppendFromFile(src, opts.Mapping); err != nil {
			return nil, NewAppendError(fmt.Sprintf("cannot append %s", src), err)
		}
		result.Appended = append(result.Appended, src)
	}
	if err := w.Close(); err != nil {
		return nil, NewAppendError("cannot close output", err)
	}

	hdus, err := w.Verify()
	if err != nil {
		return nil, NewAppendError("written file does not decode", err)
	}
	result.HDUs = hdus
	debug.Debug("[app] Append workflow completed")
	return result, nil
}

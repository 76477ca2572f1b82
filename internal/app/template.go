package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/fitsfile"
	"github.com/tacogips/psrfits/internal/layout"
	"github.com/tacogips/psrfits/internal/template"
)

// TemplateOptions holds options for writing a standard template.
type TemplateOptions struct {
	// Mode is SEARCH, PSR or CAL.
	Mode string
	// Output is the file to write. Empty writes template.FileName(mode) in
	// the current directory.
	Output string
	// Force overwrites an existing file.
	Force bool
}

// TemplateResult holds the result of template generation.
type TemplateResult struct {
	Path string             `json:"path"`
	Mode layout.Mode        `json:"obs_mode"`
	Dims layout.Dims        `json:"dims"`
	HDUs []fitsfile.Summary `json:"hdus"`
}

// WriteTemplate writes a standard PSRFITS template file.
func WriteTemplate(ctx context.Context, opts TemplateOptions) (*TemplateResult, error) {
	debug.DebugSection("[app] WriteTemplate workflow start")
	debug.DebugValue("[app] Mode", opts.Mode)

	mode, err := layout.ParseMode(opts.Mode)
	if err != nil {
		return nil, NewValidationError("invalid observation mode", err)
	}
	path := opts.Output
	if path == "" {
		path = template.FileName(mode)
	}
	if err := ValidateOutputPath(path); err != nil {
		return nil, NewValidationError("invalid output", err)
	}
	if _, err := os.Stat(path); err == nil && !opts.Force {
		return nil, NewValidationError(fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, NewValidationError("cannot create output directory", err)
		}
	}

	if err := template.Write(path, mode); err != nil {
		return nil, NewTemplateResolveError(fmt.Sprintf("cannot write %s template", mode), err)
	}
	hdus, err := fitsfile.Verify(path)
	if err != nil {
		return nil, NewTemplateResolveError("written template does not decode", err)
	}

	debug.DebugValue("[app] Template written", path)
	return &TemplateResult{Path: path, Mode: mode, Dims: template.Dims(mode), HDUs: hdus}, nil
}

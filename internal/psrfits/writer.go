// Package psrfits writes new PSRFITS files shaped after a template file.
//
// A Writer composes the template, a header draft and the derived SUBINT
// layout. The usual sequence is New, SetSubintDims, NewSubint and
// CopyAncillary, filling the rows, then Write. More rows can be appended
// from other files once the output is written.
package psrfits

import (
	"fmt"
	"os"
	"strings"

	"github.com/tacogips/psrfits/internal/card"
	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/draft"
	"github.com/tacogips/psrfits/internal/fitsfile"
	"github.com/tacogips/psrfits/internal/header"
	"github.com/tacogips/psrfits/internal/layout"
	"github.com/tacogips/psrfits/internal/table"
)

// Options configures a Writer.
type Options struct {
	// TemplatePath is the PSRFITS file whose layout the output follows.
	TemplatePath string
	// OutputPath is the file to write.
	OutputPath string
	// ObsMode overrides the OBS_MODE of the template when set.
	ObsMode layout.Mode
	// Overwrite allows replacing an existing output file.
	Overwrite bool
}

// Writer builds one output file. A Writer is not safe for concurrent use.
type Writer struct {
	opts   Options
	mode   layout.Mode
	draft  *draft.Draft
	native layout.RowLayout
	der    *layout.Derivation
	closed bool
}

// New clones the template headers and prepares a draft for the output.
// Nothing is written to disk until Write.
func New(opts Options) (*Writer, error) {
	if opts.TemplatePath == "" {
		return nil, newWriterError(InvalidOptions, "", "template path is required", nil)
	}
	if opts.OutputPath == "" {
		return nil, newWriterError(InvalidOptions, opts.TemplatePath, "output path is required", nil)
	}
	if _, err := os.Stat(opts.OutputPath); err == nil && !opts.Overwrite {
		return nil, newWriterError(OutputExists, opts.OutputPath, "output file already exists", nil)
	}

	d, err := draft.Clone(opts.TemplatePath)
	if err != nil {
		return nil, err
	}
	native, err := d.Layout("SUBINT")
	if err != nil {
		return nil, newWriterError(InvalidOptions, opts.TemplatePath, "template has no SUBINT table", err)
	}

	mode := opts.ObsMode
	if mode == "" {
		prim, err := d.Header(0)
		if err != nil {
			return nil, err
		}
		obs, err := prim.String("OBS_MODE")
		if err != nil {
			return nil, newWriterError(InvalidOptions, opts.TemplatePath, "no observation mode given and template has no OBS_MODE", err)
		}
		mode = layout.Mode(obs)
	}
	if mode, err = layout.ParseMode(string(mode)); err != nil {
		return nil, newWriterError(InvalidOptions, opts.TemplatePath, "unsupported observation mode", err)
	}

	debug.DebugSection("[psrfits] new " + string(mode) + " file")
	debug.DebugValue("template", opts.TemplatePath)
	debug.DebugValue("output", opts.OutputPath)
	return &Writer{opts: opts, mode: mode, draft: d, native: native}, nil
}

// Mode returns the observation mode of the output.
func (w *Writer) Mode() layout.Mode { return w.mode }

// Names returns the extension names of the output in file order.
func (w *Writer) Names() []string { return w.draft.Names() }

// Output returns the output path.
func (w *Writer) Output() string { return w.opts.OutputPath }

// Committed reports whether the output file was written completely.
func (w *Writer) Committed() bool { return w.draft.Committed() }

// Header returns a copy of the draft header of an extension.
func (w *Writer) Header(ext string) (*header.Header, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	return w.draft.Header(ext)
}

// SetSubintDims derives the SUBINT layout for d from the template's SUBINT
// columns and applies the dependent header values to the draft.
func (w *Writer) SetSubintDims(d layout.Dims) (layout.Derivation, error) {
	if err := w.usable(); err != nil {
		return layout.Derivation{}, err
	}
	der, err := layout.Derive(w.native, w.mode, d)
	if err != nil {
		return layout.Derivation{}, err
	}
	if err := w.draft.ApplyDerivation(der); err != nil {
		return layout.Derivation{}, err
	}
	w.der = &der
	debug.Debug("[psrfits] SUBINT %s, NAXIS1=%d", d, der.NAXIS1)
	return der, nil
}

// Derivation returns the SUBINT derivation set by SetSubintDims.
func (w *Writer) Derivation() (layout.Derivation, bool) {
	if w.der == nil {
		return layout.Derivation{}, false
	}
	return *w.der, true
}

// ReplaceField sets a header keyword of an extension. v is an int, float,
// string or bool.
func (w *Writer) ReplaceField(ext, field string, v interface{}) (card.Record, error) {
	if err := w.usable(); err != nil {
		return card.Record{}, err
	}
	val, err := card.ValueOf(v)
	if err != nil {
		return card.Record{}, fmt.Errorf("%s.%s: %w", ext, field, err)
	}
	return w.draft.ReplaceField(ext, field, val)
}

// SetFields applies header edits to one extension in order.
func (w *Writer) SetFields(ext string, fields []header.Field) error {
	if err := w.usable(); err != nil {
		return err
	}
	return w.draft.SetFields(ext, fields)
}

// NewSubint allocates the zero-filled SUBINT rows of the derived layout.
func (w *Writer) NewSubint() (*table.Table, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	if w.der == nil {
		return nil, newWriterError(NotConfigured, w.opts.OutputPath, "SetSubintDims must be called before allocating SUBINT rows", nil)
	}
	return w.draft.NewTable("SUBINT", w.der.Dims.NSubint)
}

// CopyTemplateTable copies the named columns of a template table into a
// new table for the same extension. A nil cols copies every column.
func (w *Writer) CopyTemplateTable(ext string, cols []string) (*table.Table, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	src, err := w.draft.TemplateTable(ext)
	if err != nil {
		return nil, err
	}
	return w.draft.CopyTable(ext, src, cols)
}

// TemplateRows reads the rows of a template table as stored in the
// template file.
func (w *Writer) TemplateRows(ext string) (*table.Table, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	return w.draft.TemplateTable(ext)
}

// CopyAncillary copies every table except SUBINT from the template
// unchanged.
func (w *Writer) CopyAncillary() error {
	for _, name := range w.draft.Names()[1:] {
		if strings.EqualFold(name, "SUBINT") {
			continue
		}
		if _, err := w.CopyTemplateTable(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// Bind attaches caller-built rows to an extension.
func (w *Writer) Bind(ext string, t *table.Table) error {
	if err := w.usable(); err != nil {
		return err
	}
	return w.draft.BindTable(ext, t)
}

// Table returns the rows bound to an extension.
func (w *Writer) Table(ext string) (*table.Table, bool) {
	return w.draft.Table(ext)
}

// Write commits the draft to the output path. It succeeds at most once.
func (w *Writer) Write() error {
	if err := w.usable(); err != nil {
		return err
	}
	if w.draft.State() != draft.Open {
		return w.draft.Commit(w.opts.OutputPath)
	}
	if _, err := os.Stat(w.opts.OutputPath); err == nil && !w.opts.Overwrite {
		return newWriterError(OutputExists, w.opts.OutputPath, "output file appeared after the writer was created", nil)
	}
	return w.draft.Commit(w.opts.OutputPath)
}

// AppendFromFile appends the rows of another PSRFITS file to the written
// output. See draft.Draft.AppendFromFile for the mapping rules.
func (w *Writer) AppendFromFile(path string, mapping map[string]string) error {
	if err := w.usable(); err != nil {
		return err
	}
	return w.draft.AppendFromFile(path, mapping)
}

// Close releases the writer. An unwritten draft is discarded and leaves no
// file behind.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.draft.Committed() {
		debug.Debug("[psrfits] closing unwritten draft for %s", w.opts.OutputPath)
	}
	return nil
}

// Verify decodes the written output with an independent FITS reader and
// describes its HDUs. It may be called after Close.
func (w *Writer) Verify() ([]fitsfile.Summary, error) {
	if !w.draft.Committed() {
		return nil, newWriterError(NotWritten, w.opts.OutputPath, "output has not been written", nil)
	}
	return fitsfile.Verify(w.opts.OutputPath)
}

func (w *Writer) usable() error {
	if w.closed {
		return newWriterError(Closed, w.opts.OutputPath, "writer is closed", nil)
	}
	return nil
}

// Package draft holds the headers of an output file while it is being
// prepared from a template, and commits them with their tables in one shot.
//
// A Draft moves from Open to Committed on a successful Commit, or to Failed
// when the commit breaks off. Neither state accepts another commit.
package draft

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tacogips/psrfits/internal/card"
	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/fitsfile"
	"github.com/tacogips/psrfits/internal/header"
	"github.com/tacogips/psrfits/internal/layout"
	"github.com/tacogips/psrfits/internal/table"
)

// State is the lifecycle state of a draft.
type State int

const (
	Open State = iota
	Committed
	Failed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Draft is the set of extension headers, row layouts and bound tables of
// one output file. A Draft is not safe for concurrent use.
type Draft struct {
	template string
	names    []string
	index    map[string]int
	headers  []*header.Header
	layouts  []layout.RowLayout
	isTable  []bool
	tables   []*table.Table
	state    State
	output   string
}

// Clone snapshots every extension header of the template file, in file
// order, together with the row layout of each binary table.
func Clone(templatePath string) (*Draft, error) {
	f, err := fitsfile.Open(templatePath, fitsfile.ModeRead)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := f.NumHDUs()
	d := &Draft{
		template: templatePath,
		index:    make(map[string]int, n),
		headers:  make([]*header.Header, n),
		layouts:  make([]layout.RowLayout, n),
		isTable:  make([]bool, n),
		tables:   make([]*table.Table, n),
	}
	for i := 0; i < n; i++ {
		hdu, _ := f.HDU(i)
		name := strings.ToUpper(hdu.Name)
		d.names = append(d.names, name)
		if _, dup := d.index[name]; !dup {
			d.index[name] = i
		}
		d.headers[i] = hdu.Header()
		if hdu.IsTable() {
			l, err := f.RowLayout(i)
			if err != nil {
				return nil, err
			}
			d.layouts[i] = l
			d.isTable[i] = true
		}
	}
	debug.Debug("[draft] cloned %s: %s", templatePath, strings.Join(d.names, ", "))
	return d, nil
}

// Template returns the path the draft was cloned from.
func (d *Draft) Template() string { return d.template }

// Names returns the extension names in file order.
func (d *Draft) Names() []string {
	return append([]string(nil), d.names...)
}

// State returns the lifecycle state.
func (d *Draft) State() State { return d.state }

// Committed reports whether the output file was written completely.
func (d *Draft) Committed() bool { return d.state == Committed }

// Output returns the committed output path, or "" before commit.
func (d *Draft) Output() string { return d.output }

// Resolve maps an extension key to its position. The key is an int
// position or an extension name (case-insensitive).
func (d *Draft) Resolve(key interface{}) (int, error) {
	switch k := key.(type) {
	case int:
		if k >= 0 && k < len(d.names) {
			return k, nil
		}
		return -1, newDraftError(UnknownExtension, strconv.Itoa(k),
			fmt.Sprintf("no extension at position %d; extensions are %s", k, d.schema()), nil)
	case string:
		if i, ok := d.index[strings.ToUpper(strings.TrimSpace(k))]; ok {
			return i, nil
		}
		return -1, newDraftError(UnknownExtension, k, "no such extension; extensions are "+d.schema(), nil)
	}
	return -1, newDraftError(UnknownExtension, fmt.Sprint(key), fmt.Sprintf("extension key of type %T", key), nil)
}

func (d *Draft) schema() string {
	return "[" + strings.Join(d.names, ", ") + "]"
}

// Header returns a copy of an extension header.
func (d *Draft) Header(key interface{}) (*header.Header, error) {
	i, err := d.Resolve(key)
	if err != nil {
		return nil, err
	}
	return d.headers[i].Clone(), nil
}

// ReplaceField sets a keyword of an extension header to newValue, with the
// card text formatted against the current card.
func (d *Draft) ReplaceField(key interface{}, field string, newValue card.Value) (card.Record, error) {
	if err := d.editable(); err != nil {
		return card.Record{}, err
	}
	i, err := d.Resolve(key)
	if err != nil {
		return card.Record{}, err
	}
	rec, err := d.headers[i].Replace(field, newValue)
	if err != nil {
		return card.Record{}, err
	}
	debug.Debug("[draft] %s.%s -> %s", d.names[i], rec.Name, strings.TrimRight(rec.Raw, " "))
	return rec, nil
}

// SetFields applies edits to one extension in order.
func (d *Draft) SetFields(key interface{}, fields []header.Field) error {
	for _, f := range fields {
		if _, err := d.ReplaceField(key, f.Name, f.Value); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDerivation applies the header edits of a SUBINT derivation and
// adopts its row layout.
func (d *Draft) ApplyDerivation(der layout.Derivation) error {
	for _, e := range der.Edits {
		if _, err := d.ReplaceField(e.Extension, e.Field, e.Value); err != nil {
			return err
		}
	}
	return d.SetLayout("SUBINT", der.Layout)
}

// Layout returns the row layout of a table extension.
func (d *Draft) Layout(key interface{}) (layout.RowLayout, error) {
	i, err := d.tableIndex(key)
	if err != nil {
		return layout.RowLayout{}, err
	}
	return d.layouts[i], nil
}

// SetLayout replaces the row layout of a table extension. A table bound
// under the old layout is released.
func (d *Draft) SetLayout(key interface{}, l layout.RowLayout) error {
	if err := d.editable(); err != nil {
		return err
	}
	i, err := d.tableIndex(key)
	if err != nil {
		return err
	}
	if t := d.tables[i]; t != nil && !t.Layout().Equal(l) {
		d.tables[i] = nil
	}
	d.layouts[i] = l
	return nil
}

// NewTable allocates zero-filled rows for a table extension under its
// current layout and binds them.
func (d *Draft) NewTable(key interface{}, nrows int) (*table.Table, error) {
	i, err := d.tableIndex(key)
	if err != nil {
		return nil, err
	}
	t := table.New(d.names[i], d.layouts[i], nrows)
	if err := d.BindTable(i, t); err != nil {
		return nil, err
	}
	return t, nil
}

// CopyTable allocates a table for an extension with the row count of src
// and copies the named columns of src into it verbatim. A nil cols copies
// every column the two layouts share. The new table is bound.
func (d *Draft) CopyTable(key interface{}, src *table.Table, cols []string) (*table.Table, error) {
	i, err := d.tableIndex(key)
	if err != nil {
		return nil, err
	}
	t := table.New(d.names[i], d.layouts[i], src.NumRows())
	if err := table.CopyColumns(t, src, cols); err != nil {
		return nil, &DraftError{Type: TableMismatch, Extension: d.names[i], Message: "cannot copy template rows", Cause: err}
	}
	if err := d.BindTable(i, t); err != nil {
		return nil, err
	}
	debug.Debug("[draft] %s: copied %d rows from %s", d.names[i], src.NumRows(), src.Extension())
	return t, nil
}

// TemplateTable reads the rows of an extension from the template file.
func (d *Draft) TemplateTable(key interface{}) (*table.Table, error) {
	i, err := d.tableIndex(key)
	if err != nil {
		return nil, err
	}
	f, err := fitsfile.Open(d.template, fitsfile.ModeRead)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.ReadTable(i)
}

// BindTable binds rows to a table extension. The rows must follow the
// extension's current layout.
func (d *Draft) BindTable(key interface{}, t *table.Table) error {
	if err := d.editable(); err != nil {
		return err
	}
	i, err := d.tableIndex(key)
	if err != nil {
		return err
	}
	if !t.Layout().Equal(d.layouts[i]) {
		return newDraftError(TableMismatch, d.names[i],
			fmt.Sprintf("rows have layout %s, extension expects %s", t.Layout(), d.layouts[i]), nil)
	}
	d.tables[i] = t
	return nil
}

// Table returns the rows bound to an extension.
func (d *Draft) Table(key interface{}) (*table.Table, bool) {
	i, err := d.Resolve(key)
	if err != nil || d.tables[i] == nil {
		return nil, false
	}
	return d.tables[i], true
}

func (d *Draft) tableIndex(key interface{}) (int, error) {
	i, err := d.Resolve(key)
	if err != nil {
		return -1, err
	}
	if !d.isTable[i] {
		return -1, newDraftError(UnknownExtension, d.names[i], "extension is not a binary table", nil)
	}
	return i, nil
}

func (d *Draft) editable() error {
	if d.state != Open {
		return newDraftError(AlreadyCommitted, "", "draft is "+d.state.String()+" and can no longer change", nil)
	}
	return nil
}

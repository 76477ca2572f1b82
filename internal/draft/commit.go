package draft

import (
	"fmt"
	"os"
	"strings"

	"github.com/tacogips/psrfits/internal/card"
	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/fitsfile"
	"github.com/tacogips/psrfits/internal/layout"
)

// PartialSuffix is appended to the output path while a commit is writing.
const PartialSuffix = ".partial"

// Commit writes the draft to path: the primary header, then for each
// extension in order its rows followed by its header. The file is built
// as path+PartialSuffix and renamed into place when complete. A failed
// commit leaves the partial file behind and moves the draft to Failed.
//
// Commit succeeds at most once per draft.
func (d *Draft) Commit(path string) error {
	if d.state != Open {
		return newDraftError(AlreadyCommitted, "", "draft is "+d.state.String()+"; output "+d.output+" is not rewritten", nil)
	}
	if err := d.checkTables(); err != nil {
		return err
	}

	partial := path + PartialSuffix
	debug.DebugSection("[draft] commit")
	debug.DebugValue("output", path)
	debug.DebugValue("extensions", d.schema())

	if err := d.write(partial); err != nil {
		d.state = Failed
		return err
	}
	if err := os.Rename(partial, path); err != nil {
		d.state = Failed
		return fmt.Errorf("cannot move %s into place: %w", partial, err)
	}
	d.state = Committed
	d.output = path
	debug.Debug("[draft] committed %s", path)
	return nil
}

// checkTables runs before any I/O: every table extension needs rows whose
// layout matches its header declarations.
func (d *Draft) checkTables() error {
	for i := 1; i < len(d.names); i++ {
		if !d.isTable[i] {
			return newDraftError(SchemaMismatch, d.names[i], "only binary-table extensions can be written", nil)
		}
		t := d.tables[i]
		if t == nil {
			return newDraftError(MissingTable, d.names[i], "no rows bound to extension", nil)
		}
		cols, err := fitsfile.HeaderColumns(d.headers[i])
		if err != nil {
			return newDraftError(TableMismatch, d.names[i], "cannot read column declarations", err)
		}
		declared, err := layout.FromColumns(cols)
		if err != nil {
			return newDraftError(TableMismatch, d.names[i], "cannot read column declarations", err)
		}
		if !declared.Equal(t.Layout()) {
			return newDraftError(TableMismatch, d.names[i],
				fmt.Sprintf("header declares %s but rows are %s", declared, t.Layout()), nil)
		}
		if n, err := d.headers[i].Int("NAXIS2"); err != nil || n != int64(t.NumRows()) {
			if _, err := d.headers[i].Replace("NAXIS2", card.IntValue(int64(t.NumRows()))); err != nil {
				return newDraftError(TableMismatch, d.names[i], "cannot set NAXIS2", err)
			}
		}
	}
	return nil
}

func (d *Draft) write(path string) (err error) {
	f, err := fitsfile.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.CreatePrimary(); err != nil {
		return err
	}
	if err := f.WriteHeaderKeys(0, d.headers[0].Records(), true); err != nil {
		return err
	}
	for i := 1; i < len(d.names); i++ {
		idx, err := f.WriteTable(d.names[i], 0, d.tables[i])
		if err != nil {
			return err
		}
		if err := f.WriteHeaderKeys(idx, d.headers[i].Records(), true); err != nil {
			return err
		}
	}
	return nil
}

// AppendFromFile appends the rows of another file to the committed output,
// extension by extension. Without a mapping the source must carry the same
// extension names in the same order. A mapping pairs output extension
// names with source extension names; extensions it leaves out are skipped,
// and a mapping that names no table extension is rejected.
func (d *Draft) AppendFromFile(src string, mapping map[string]string) error {
	if d.state != Committed {
		return newDraftError(NotCommitted, "", "draft is "+d.state.String()+"; rows can only be appended to a committed output", nil)
	}

	in, err := fitsfile.Open(src, fitsfile.ModeRead)
	if err != nil {
		return err
	}
	defer in.Close()

	pairs, err := d.pairs(in, mapping)
	if err != nil {
		return err
	}

	out, err := fitsfile.Open(d.output, fitsfile.ModeReadWrite)
	if err != nil {
		return err
	}
	defer out.Close()

	for _, p := range pairs {
		rows, err := in.ReadTable(p.src)
		if err != nil {
			return err
		}
		have, err := out.RowLayout(p.dst)
		if err != nil {
			return err
		}
		if !have.Equal(rows.Layout()) {
			return newDraftError(TableMismatch, d.names[p.dst],
				fmt.Sprintf("output rows are %s but %s rows are %s", have, src, rows.Layout()), nil)
		}
		if err := out.AppendRows(p.dst, rows); err != nil {
			return err
		}
		debug.Debug("[draft] %s: appended %d rows from %s", d.names[p.dst], rows.NumRows(), src)
	}
	return out.Close()
}

type pair struct{ dst, src int }

func (d *Draft) pairs(in *fitsfile.File, mapping map[string]string) ([]pair, error) {
	names := in.ExtensionNames()
	var out []pair

	if mapping == nil {
		if len(names) != len(d.names) {
			return nil, d.schemaMismatch(names, "extension count differs")
		}
		for i := 1; i < len(names); i++ {
			if !strings.EqualFold(names[i], d.names[i]) {
				return nil, d.schemaMismatch(names, fmt.Sprintf("extension %d is %s, expected %s", i, names[i], d.names[i]))
			}
			out = append(out, pair{i, i})
		}
		return out, nil
	}

	for i := 1; i < len(d.names); i++ {
		from, ok := lookup(mapping, d.names[i])
		if !ok {
			continue
		}
		j, err := in.ExtensionIndex(from)
		if err != nil {
			return nil, d.schemaMismatch(names, "source has no extension "+from)
		}
		out = append(out, pair{i, j})
	}
	for k := range mapping {
		if _, err := d.Resolve(k); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, d.schemaMismatch(names, "mapping names no table extension")
	}
	return out, nil
}

func lookup(m map[string]string, name string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func (d *Draft) schemaMismatch(src []string, detail string) error {
	return newDraftError(SchemaMismatch, "",
		fmt.Sprintf("%s: output has %s, source has [%s]", detail, d.schema(), strings.Join(src, ", ")), nil)
}

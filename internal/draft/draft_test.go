package draft

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tacogips/psrfits/internal/card"
	"github.com/tacogips/psrfits/internal/fitsfile"
	"github.com/tacogips/psrfits/internal/header"
	"github.com/tacogips/psrfits/internal/layout"
	"github.com/tacogips/psrfits/internal/table"
	"github.com/tacogips/psrfits/internal/template"
)

var searchDims = layout.Dims{NBin: 1, NChan: 16, NPol: 2, NSblk: 32, NSubint: 3, SampleBytes: 1}

func writeTemplate(t *testing.T, mode layout.Mode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), template.FileName(mode))
	if err := template.Write(path, mode); err != nil {
		t.Fatalf("template.Write() error = %v", err)
	}
	return path
}

// prepare clones the SEARCH template, applies searchDims and binds rows to
// every table.
func prepare(t *testing.T, tmpl string, offset float64) *Draft {
	t.Helper()
	d, err := Clone(tmpl)
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	der, err := layout.DeriveSubint(layout.Search, searchDims)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ApplyDerivation(der); err != nil {
		t.Fatalf("ApplyDerivation() error = %v", err)
	}
	sub, err := d.NewTable("SUBINT", searchDims.NSubint)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	for i := 0; i < sub.NumRows(); i++ {
		if err := sub.SetFloat64(i, "OFFS_SUB", offset+float64(i)); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"HISTORY", "PSRPARAM"} {
		src, err := d.TemplateTable(name)
		if err != nil {
			t.Fatalf("TemplateTable(%s) error = %v", name, err)
		}
		if _, err := d.CopyTable(name, src, nil); err != nil {
			t.Fatalf("CopyTable(%s) error = %v", name, err)
		}
	}
	return d
}

func TestClone(t *testing.T) {
	d, err := Clone(writeTemplate(t, layout.Fold))
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}

	want := []string{"PRIMARY", "SUBINT", "HISTORY", "PSRPARAM", "POLYCO"}
	if got := d.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if d.State() != Open || d.Committed() || d.Output() != "" {
		t.Errorf("fresh draft state = %s, output %q", d.State(), d.Output())
	}

	tests := []struct {
		key  interface{}
		want int
		err  bool
	}{
		{0, 0, false},
		{"subint", 1, false},
		{" POLYCO ", 4, false},
		{5, -1, true},
		{"FLUX", -1, true},
		{1.5, -1, true},
	}
	for _, tt := range tests {
		got, err := d.Resolve(tt.key)
		if tt.err {
			if !Is(err, UnknownExtension) {
				t.Errorf("Resolve(%v) error = %v, want UnknownExtension", tt.key, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Resolve(%v) = %d, %v; want %d", tt.key, got, err, tt.want)
		}
	}

	if _, err := d.Layout("PRIMARY"); !Is(err, UnknownExtension) {
		t.Errorf("Layout(PRIMARY) error = %v", err)
	}
}

func TestReplaceField(t *testing.T) {
	d, err := Clone(writeTemplate(t, layout.Search))
	if err != nil {
		t.Fatal(err)
	}

	rec, err := d.ReplaceField("SUBINT", "NCHAN", card.IntValue(512))
	if err != nil {
		t.Fatalf("ReplaceField() error = %v", err)
	}
	if len(rec.Raw) != card.Width || rec.Raw[8:10] != "= " {
		t.Errorf("card %q is malformed", rec.Raw)
	}
	h, _ := d.Header("SUBINT")
	if n, _ := h.Int("NCHAN"); n != 512 {
		t.Errorf("NCHAN = %d", n)
	}

	// Header returns a copy.
	h.Remove("NCHAN")
	if again, _ := d.Header(1); !again.Has("NCHAN") {
		t.Error("Header() shares state with the draft")
	}

	if err := d.SetFields("PRIMARY", []header.Field{
		header.F("OBSERVER", "jd"),
		header.F("OBSFREQ", 1369.5),
	}); err != nil {
		t.Fatalf("SetFields() error = %v", err)
	}
	p, _ := d.Header(0)
	if s, _ := p.String("OBSERVER"); s != "jd" {
		t.Errorf("OBSERVER = %q", s)
	}

	if _, err := d.ReplaceField("FLUX", "NCHAN", card.IntValue(1)); !Is(err, UnknownExtension) {
		t.Errorf("unknown extension error = %v", err)
	}
	if _, err := d.ReplaceField("SUBINT", "NOSUCH", card.IntValue(1)); !card.IsFieldNotFound(err) {
		t.Errorf("unknown field error = %v", err)
	}
}

func TestCommit(t *testing.T) {
	d := prepare(t, writeTemplate(t, layout.Search), 0.5)
	out := filepath.Join(t.TempDir(), "out.fits")

	if err := d.Commit(out); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if !d.Committed() || d.Output() != out {
		t.Fatalf("state = %s, output %q", d.State(), d.Output())
	}
	if _, err := os.Stat(out + PartialSuffix); !os.IsNotExist(err) {
		t.Errorf("partial file left behind: %v", err)
	}

	f, err := fitsfile.Open(out, fitsfile.ModeRead)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.ExtensionNames(); !reflect.DeepEqual(got, d.Names()) {
		t.Errorf("output extensions = %v", got)
	}
	der, _ := layout.DeriveSubint(layout.Search, searchDims)
	sub, _ := f.ReadHeader(1)
	checks := map[string]int64{"NAXIS1": int64(der.NAXIS1), "NAXIS2": 3, "NCHAN": 16, "NPOL": 2, "NSBLK": 32, "NBITS": 8}
	for k, want := range checks {
		if got, _ := sub.Int(k); got != want {
			t.Errorf("%s = %d, want %d", k, got, want)
		}
	}
	if s, _ := sub.String("TDIM17"); s != "(1, 16, 2, 32)" {
		t.Errorf("TDIM17 = %q", s)
	}
	prim, _ := f.ReadHeader(0)
	if n, _ := prim.Int("OBSNCHAN"); n != 16 {
		t.Errorf("OBSNCHAN = %d", n)
	}

	rows, err := f.ReadTable(1)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := rows.Float64(2, "OFFS_SUB"); v != 2.5 {
		t.Errorf("OFFS_SUB[2] = %v", v)
	}

	if _, err := fitsfile.Verify(out); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	if err := d.Commit(out); !Is(err, AlreadyCommitted) {
		t.Errorf("second Commit() error = %v", err)
	}
	if _, err := d.ReplaceField("SUBINT", "NCHAN", card.IntValue(1)); !Is(err, AlreadyCommitted) {
		t.Errorf("edit after commit error = %v", err)
	}
}

func TestCommitErrors(t *testing.T) {
	tmpl := writeTemplate(t, layout.Search)

	t.Run("missing table", func(t *testing.T) {
		d, _ := Clone(tmpl)
		err := d.Commit(filepath.Join(t.TempDir(), "out.fits"))
		if !Is(err, MissingTable) {
			t.Fatalf("Commit() error = %v, want MissingTable", err)
		}
		if d.State() != Open {
			t.Errorf("state = %s, want open", d.State())
		}
	})

	t.Run("layout changed after binding", func(t *testing.T) {
		d := prepare(t, tmpl, 0)
		if _, err := d.ReplaceField("SUBINT", "TFORM17", card.StringValue("8B")); err != nil {
			t.Fatal(err)
		}
		err := d.Commit(filepath.Join(t.TempDir(), "out.fits"))
		if !Is(err, TableMismatch) {
			t.Errorf("Commit() error = %v, want TableMismatch", err)
		}
	})

	t.Run("bind wrong layout", func(t *testing.T) {
		d, _ := Clone(tmpl)
		rows := table.New("SUBINT", layout.New(layout.Field{Name: "TSUBINT", Type: layout.Float64}), 1)
		if err := d.BindTable("SUBINT", rows); !Is(err, TableMismatch) {
			t.Errorf("BindTable() error = %v", err)
		}
	})

	t.Run("unwritable output", func(t *testing.T) {
		d := prepare(t, tmpl, 0)
		err := d.Commit(filepath.Join(t.TempDir(), "no", "such", "dir.fits"))
		if err == nil {
			t.Fatal("Commit() succeeded")
		}
		if d.State() != Failed {
			t.Errorf("state = %s, want failed", d.State())
		}
		if err := d.Commit(filepath.Join(t.TempDir(), "x.fits")); !Is(err, AlreadyCommitted) {
			t.Errorf("retry error = %v", err)
		}
	})
}

func TestAppendFromFile(t *testing.T) {
	tmpl := writeTemplate(t, layout.Search)
	dir := t.TempDir()

	first := prepare(t, tmpl, 0)
	if err := first.AppendFromFile(tmpl, nil); !Is(err, NotCommitted) {
		t.Errorf("append before commit error = %v", err)
	}
	if err := first.Commit(filepath.Join(dir, "a.fits")); err != nil {
		t.Fatal(err)
	}
	second := prepare(t, tmpl, 10)
	if err := second.Commit(filepath.Join(dir, "b.fits")); err != nil {
		t.Fatal(err)
	}

	if err := first.AppendFromFile(second.Output(), nil); err != nil {
		t.Fatalf("AppendFromFile() error = %v", err)
	}

	f, err := fitsfile.Open(first.Output(), fitsfile.ModeRead)
	if err != nil {
		t.Fatal(err)
	}
	rows, _ := f.ReadTable(1)
	hist, _ := f.ReadTable(2)
	f.Close()
	if rows.NumRows() != 6 || hist.NumRows() != 2 {
		t.Fatalf("rows = %d SUBINT, %d HISTORY; want 6, 2", rows.NumRows(), hist.NumRows())
	}
	if v, _ := rows.Float64(4, "OFFS_SUB"); v != 11 {
		t.Errorf("appended OFFS_SUB = %v", v)
	}

	// A source holding only SUBINT rows.
	only := filepath.Join(dir, "subint.fits")
	src, err := fitsfile.Create(only)
	if err != nil {
		t.Fatal(err)
	}
	sub, _ := second.Table("SUBINT")
	if err := src.CreatePrimary(); err != nil {
		t.Fatal(err)
	}
	if _, err := src.WriteTable("SUBINT", 0, sub); err != nil {
		t.Fatal(err)
	}
	src.Close()

	if err := first.AppendFromFile(only, nil); !Is(err, SchemaMismatch) {
		t.Errorf("schema mismatch error = %v", err)
	}
	if err := first.AppendFromFile(only, map[string]string{"FLUX": "SUBINT"}); !Is(err, UnknownExtension) {
		t.Errorf("unknown mapping error = %v", err)
	}
	if err := first.AppendFromFile(only, map[string]string{"HISTORY": "PSRPARAM"}); !Is(err, SchemaMismatch) {
		t.Errorf("missing source extension error = %v", err)
	}
	for _, m := range []map[string]string{{}, {"PRIMARY": "PRIMARY"}} {
		if err := first.AppendFromFile(only, m); !Is(err, SchemaMismatch) {
			t.Errorf("mapping %v without tables error = %v", m, err)
		}
	}
	if err := first.AppendFromFile(only, map[string]string{"subint": "SUBINT"}); err != nil {
		t.Fatalf("mapped AppendFromFile() error = %v", err)
	}

	f, _ = fitsfile.Open(first.Output(), fitsfile.ModeRead)
	defer f.Close()
	h, _ := f.ReadHeader(1)
	if n, _ := h.Int("NAXIS2"); n != 9 {
		t.Errorf("NAXIS2 = %d, want 9", n)
	}
	if _, err := fitsfile.Verify(first.Output()); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

package fitsfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tacogips/psrfits/internal/card"
	"github.com/tacogips/psrfits/internal/layout"
	"github.com/tacogips/psrfits/internal/table"
)

func testTable(t *testing.T, name string, nrows int, seed float64) *table.Table {
	t.Helper()
	l := layout.New(
		layout.Field{Name: "TSUBINT", Type: layout.Float64},
		layout.Field{Name: "DAT_WTS", Type: layout.Float32, Shape: []int{3}},
		layout.Field{Name: "DATA", Type: layout.Int16, Shape: []int{2, 3}},
	)
	tb := table.New(name, l, nrows)
	for i := 0; i < nrows; i++ {
		if err := tb.SetFloat64(i, "TSUBINT", seed+float64(i)); err != nil {
			t.Fatal(err)
		}
		if err := tb.SetFloat64s(i, "DATA", []float64{1, 2, 3, 4, 5, float64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	return tb
}

// writeTwoTables writes PRIMARY, SUBINT and HISTORY and returns the path.
func writeTwoTables(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.fits")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()

	if err := f.CreatePrimary(); err != nil {
		t.Fatalf("CreatePrimary() error = %v", err)
	}
	if _, err := f.WriteTable("SUBINT", 0, testTable(t, "SUBINT", 3, 10)); err != nil {
		t.Fatalf("WriteTable(SUBINT) error = %v", err)
	}
	hist := table.New("HISTORY", layout.New(layout.Field{Name: "PROC_CMD", Type: layout.Char, Shape: []int{16}}), 1)
	if err := hist.SetString(0, "PROC_CMD", "unknown"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteTable("HISTORY", 1, hist); err != nil {
		t.Fatalf("WriteTable(HISTORY) error = %v", err)
	}
	return path
}

func checkBlocks(t *testing.T, path string) {
	t.Helper()
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Size()%BlockSize != 0 {
		t.Errorf("file size %d is not a multiple of %d", st.Size(), BlockSize)
	}
}

func TestWriteAndReopen(t *testing.T) {
	path := writeTwoTables(t)
	checkBlocks(t, path)

	f, err := Open(path, ModeRead)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	if got := f.ExtensionNames(); !reflect.DeepEqual(got, []string{"PRIMARY", "SUBINT", "HISTORY"}) {
		t.Errorf("ExtensionNames() = %v", got)
	}
	if i, err := f.ExtensionIndex("history"); err != nil || i != 2 {
		t.Errorf("ExtensionIndex(history) = %d, %v", i, err)
	}

	h, _ := f.ReadHeader(1)
	if n, _ := h.Int("NAXIS1"); n != 8+12+12 {
		t.Errorf("NAXIS1 = %d", n)
	}
	if s, _ := h.String("TDIM3"); s != "(3, 2)" {
		t.Errorf("TDIM3 = %q", s)
	}
	if h.Has("TDIM2") {
		t.Error("one-dimensional column got a TDIM")
	}

	tb, err := f.ReadTable(1)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	want := testTable(t, "SUBINT", 3, 10)
	if !bytes.Equal(tb.Bytes(), want.Bytes()) {
		t.Error("rows read back differ from rows written")
	}
	if !tb.Layout().Equal(want.Layout()) {
		t.Errorf("layout = %s, want %s", tb.Layout(), want.Layout())
	}

	hh, _ := f.ReadHeader(2)
	if v, _ := hh.Int("EXTVER"); v != 1 {
		t.Errorf("EXTVER = %d", v)
	}
}

func TestWriteHeaderKeysMerges(t *testing.T) {
	path := writeTwoTables(t)

	f, err := Open(path, ModeReadWrite)
	if err != nil {
		t.Fatal(err)
	}
	recs := []card.Record{
		card.MustParse(card.Render("NCHAN", card.IntValue(3), "Nr of channels")),
		card.MustParse(card.Render("TSUBINT", card.FloatValue(10.0), "")),
		card.MustParse(card.Commentary("COMMENT", "merged")),
		card.MustParse(card.Commentary("COMMENT", "merged")),
	}
	// enough cards to push the header into a second block
	for i := 0; i < 40; i++ {
		recs = append(recs, card.MustParse(card.Render(fmt.Sprintf("KEY%d", i), card.IntValue(int64(i)), "")))
	}
	if err := f.WriteHeaderKeys(1, recs, true); err != nil {
		t.Fatalf("WriteHeaderKeys() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	checkBlocks(t, path)

	f, err = Open(path, ModeRead)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer f.Close()

	h, _ := f.ReadHeader(1)
	if n, _ := h.Int("NCHAN"); n != 3 {
		t.Errorf("NCHAN = %d", n)
	}
	if n, _ := h.Int("KEY39"); n != 39 {
		t.Errorf("KEY39 = %d", n)
	}
	comments := 0
	for _, rec := range h.Records() {
		if rec.Name == "COMMENT" {
			comments++
		}
	}
	if comments != 1 {
		t.Errorf("COMMENT cards = %d, want 1", comments)
	}

	// data after the grown header is intact
	tb, err := f.ReadTable(1)
	if err != nil {
		t.Fatalf("ReadTable(1) error = %v", err)
	}
	if !bytes.Equal(tb.Bytes(), testTable(t, "SUBINT", 3, 10).Bytes()) {
		t.Error("SUBINT rows changed")
	}
	hist, err := f.ReadTable(2)
	if err != nil {
		t.Fatalf("ReadTable(2) error = %v", err)
	}
	if s, _ := hist.String(0, "PROC_CMD"); s != "unknown" {
		t.Errorf("PROC_CMD = %q", s)
	}
}

func TestWriteHeaderKeysErrors(t *testing.T) {
	path := writeTwoTables(t)

	ro, err := Open(path, ModeRead)
	if err != nil {
		t.Fatal(err)
	}
	rec := card.MustParse(card.Render("OBSERVER", card.StringValue("me"), ""))
	if err := ro.WriteHeaderKeys(0, []card.Record{rec}, true); !IsType(err, ReadOnly) {
		t.Errorf("read-only write error = %v", err)
	}
	ro.Close()

	f, err := Open(path, ModeReadWrite)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := f.WriteHeaderKeys(0, []card.Record{rec}, false); !IsType(err, CleanUnsupported) {
		t.Errorf("preserveExisting=false error = %v", err)
	}
	naxis2 := card.MustParse(card.Render("NAXIS2", card.IntValue(7), ""))
	if err := f.WriteHeaderKeys(1, []card.Record{naxis2}, true); !IsType(err, InvalidStructure) {
		t.Errorf("NAXIS2 change error = %v", err)
	}
	bitpix := card.MustParse(card.Render("BITPIX", card.IntValue(16), ""))
	if err := f.WriteHeaderKeys(1, []card.Record{bitpix}, true); !IsType(err, InvalidStructure) {
		t.Errorf("BITPIX change error = %v", err)
	}
	if err := f.WriteHeaderKeys(9, []card.Record{rec}, true); !IsType(err, InvalidStructure) {
		t.Errorf("bad HDU error = %v", err)
	}
}

func TestAppendRows(t *testing.T) {
	path := writeTwoTables(t)

	f, err := Open(path, ModeReadWrite)
	if err != nil {
		t.Fatal(err)
	}
	// 90 rows of 32 bytes cross a block boundary
	if err := f.AppendRows(1, testTable(t, "SUBINT", 90, 100)); err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}
	if err := f.AppendRows(1, testTable(t, "SUBINT", 0, 0)); err != nil {
		t.Fatalf("AppendRows(empty) error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	checkBlocks(t, path)

	f, err = Open(path, ModeRead)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	h, _ := f.ReadHeader(1)
	if n, _ := h.Int("NAXIS2"); n != 93 {
		t.Errorf("NAXIS2 = %d", n)
	}
	rec, _ := h.Get("NAXIS2")
	if len(rec.Raw) != card.Width {
		t.Errorf("NAXIS2 card is %d columns", len(rec.Raw))
	}
	tb, err := f.ReadTable(1)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := tb.Float64(2, "TSUBINT"); v != 12 {
		t.Errorf("row 2 TSUBINT = %v", v)
	}
	if v, _ := tb.Float64(92, "TSUBINT"); v != 189 {
		t.Errorf("row 92 TSUBINT = %v", v)
	}
	hist, err := f.ReadTable(2)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := hist.String(0, "PROC_CMD"); s != "unknown" {
		t.Errorf("HISTORY after append: PROC_CMD = %q", s)
	}
}

func TestAppendRowsErrors(t *testing.T) {
	path := writeTwoTables(t)
	f, err := Open(path, ModeReadWrite)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := f.AppendRows(0, testTable(t, "SUBINT", 1, 0)); !IsType(err, InvalidStructure) {
		t.Errorf("append to primary error = %v", err)
	}
	if err := f.AppendRows(2, testTable(t, "HISTORY", 1, 0)); !IsType(err, InvalidStructure) {
		t.Errorf("row size mismatch error = %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(filepath.Join(dir, "missing.fits"), ModeRead); !IsType(err, NotFound) {
		t.Errorf("missing file error = %v", err)
	}

	junk := filepath.Join(dir, "junk.fits")
	if err := os.WriteFile(junk, bytes.Repeat([]byte("x"), BlockSize), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(junk, ModeRead); !IsType(err, InvalidStructure) {
		t.Errorf("junk file error = %v", err)
	}

	empty := filepath.Join(dir, "empty.fits")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(empty, ModeRead); !IsType(err, InvalidStructure) {
		t.Errorf("empty file error = %v", err)
	}
}

func TestVerify(t *testing.T) {
	path := writeTwoTables(t)

	got, err := Verify(path)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Verify() returned %d HDUs", len(got))
	}
	if got[1].Name != "SUBINT" || got[1].Rows != 3 || got[1].Cols != 3 {
		t.Errorf("SUBINT summary = %+v", got[1])
	}
	if got[2].Name != "HISTORY" || got[2].Rows != 1 {
		t.Errorf("HISTORY summary = %+v", got[2])
	}
}

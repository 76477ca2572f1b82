package layout

import (
	"fmt"
	"reflect"
	"testing"
)

func TestParseTFORM(t *testing.T) {
	tests := []struct {
		form       string
		wantRepeat int
		wantType   ElementType
		wantErr    bool
	}{
		{"2048E", 2048, Float32, false},
		{"1D", 1, Float64, false},
		{"D", 1, Float64, false},
		{"33554432B", 33554432, Byte, false},
		{" 8A ", 8, Char, false},
		{"16X", 16, Bit, false},
		{"1PB(10)", 0, 0, true},
		{"12", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.form, func(t *testing.T) {
			repeat, typ, err := ParseTFORM(tt.form)
			if tt.wantErr {
				if !IsType(err, InvalidFormat) {
					t.Errorf("expected InvalidFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTFORM() error = %v", err)
			}
			if repeat != tt.wantRepeat || typ != tt.wantType {
				t.Errorf("ParseTFORM() = %d %v, want %d %v", repeat, typ, tt.wantRepeat, tt.wantType)
			}
		})
	}
}

func TestTDIM(t *testing.T) {
	axes, err := ParseTDIM("(1, 2048,4,  4096)")
	if err != nil {
		t.Fatalf("ParseTDIM() error = %v", err)
	}
	if !reflect.DeepEqual(axes, []int{1, 2048, 4, 4096}) {
		t.Errorf("ParseTDIM() = %v", axes)
	}
	if got := FormatTDIM(64, 512, 4); got != "(64, 512, 4)" {
		t.Errorf("FormatTDIM() = %q", got)
	}
	for _, bad := range []string{"1,2", "(1,x)", "(0,2)"} {
		if _, err := ParseTDIM(bad); !IsType(err, InvalidFormat) {
			t.Errorf("ParseTDIM(%q) error = %v", bad, err)
		}
	}
}

func TestFromColumns(t *testing.T) {
	l, err := FromColumns([]Column{
		{Name: "tsubint", Form: "1D"},
		{Name: "DAT_FREQ", Form: "64E"},
		{Name: "DATA", Form: "24I", Dim: "(2, 3, 4)"},
	})
	if err != nil {
		t.Fatalf("FromColumns() error = %v", err)
	}
	if l.Len() != 3 {
		t.Fatalf("Len() = %d", l.Len())
	}
	if f, _ := l.Field("TSUBINT"); f.Shape != nil || f.Type != Float64 {
		t.Errorf("TSUBINT = %v", f)
	}
	if f, _ := l.Field("DAT_FREQ"); !reflect.DeepEqual(f.Shape, []int{64}) {
		t.Errorf("DAT_FREQ shape = %v", f.Shape)
	}
	if f, _ := l.Field("DATA"); !reflect.DeepEqual(f.Shape, []int{4, 3, 2}) {
		t.Errorf("DATA shape = %v, want row-major [4 3 2]", f.Shape)
	}
	if l.Bytes() != 8+64*4+24*2 {
		t.Errorf("Bytes() = %d", l.Bytes())
	}

	_, err = FromColumns([]Column{{Name: "DATA", Form: "10I", Dim: "(2, 3)"}})
	if !IsType(err, InvalidFormat) {
		t.Errorf("expected InvalidFormat for TDIM/TFORM disagreement, got %v", err)
	}
}

func TestRowLayoutWith(t *testing.T) {
	base := New(
		Field{Name: "A", Type: Float64},
		Field{Name: "B", Type: Float32, Shape: []int{4}},
	)

	shaped, err := base.WithShape("b", 2, 8)
	if err != nil {
		t.Fatalf("WithShape() error = %v", err)
	}
	if f, _ := shaped.Field("B"); !reflect.DeepEqual(f.Shape, []int{2, 8}) || f.Type != Float32 {
		t.Errorf("B = %v", f)
	}
	if f, _ := base.Field("B"); !reflect.DeepEqual(f.Shape, []int{4}) {
		t.Errorf("receiver modified: %v", f)
	}

	typed, err := shaped.WithType("B", Int16)
	if err != nil {
		t.Fatalf("WithType() error = %v", err)
	}
	if typed.Bytes() != 8+16*2 {
		t.Errorf("Bytes() = %d", typed.Bytes())
	}
	if off, _ := typed.Offset("B"); off != 8 {
		t.Errorf("Offset(B) = %d", off)
	}

	if _, err := base.WithShape("C", 1); !IsType(err, UnknownField) {
		t.Errorf("expected UnknownField, got %v", err)
	}
	if _, err := base.With("A", ElementType('Z')); !IsType(err, InvalidFormat) {
		t.Errorf("expected InvalidFormat, got %v", err)
	}
	if _, err := base.WithShape("A", 0); !IsType(err, InvalidDimension) {
		t.Errorf("expected InvalidDimension, got %v", err)
	}
}

func TestDeriveNAXIS1MatchesLayout(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		dims Dims
		want int
	}{
		{"search 2048x4x4096", Search, Dims{NBin: 1, NChan: 2048, NPol: 4, NSblk: 4096, NSubint: 4}, 33554432 + 2*2048*4 + 2*2048*4*4 + 7*8 + 5*4},
		{"search 512x2x1024", Search, Dims{NBin: 1, NChan: 512, NPol: 2, NSblk: 1024, NSubint: 2}, 1048576 + 2*512*4 + 2*512*2*4 + 7*8 + 5*4},
		{"search 16-bit", Search, Dims{NBin: 1, NChan: 512, NPol: 2, NSblk: 1024, SampleBytes: 2}, 2*1048576 + 2*512*4 + 2*512*2*4 + 7*8 + 5*4},
		{"psr 64x512x4", Fold, Dims{NBin: 64, NChan: 512, NPol: 4, NSblk: 1, NSubint: 8}, 2*64*512*4 + 512*8 + 512*4 + 2*512*4*4 + 10*8 + 5*4},
		{"psr 128x256x1", Fold, Dims{NBin: 128, NChan: 256, NPol: 1, NSblk: 1, NSubint: 1}, 2*128*256 + 256*8 + 256*4 + 2*256*4 + 10*8 + 5*4},
		{"cal 32x64x4", Cal, Dims{NBin: 32, NChan: 64, NPol: 4, NSblk: 1, NSubint: 1, SampleBytes: 2}, 2*32*64*4 + 64*8 + 64*4 + 2*64*4*4 + 10*8 + 5*4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DeriveSubint(tt.mode, tt.dims)
			if err != nil {
				t.Fatalf("DeriveSubint() error = %v", err)
			}
			if d.NAXIS1 != tt.want {
				t.Errorf("NAXIS1 = %d, want %d", d.NAXIS1, tt.want)
			}
			if d.Layout.Bytes() != d.NAXIS1 {
				t.Errorf("layout bytes %d != NAXIS1 %d", d.Layout.Bytes(), d.NAXIS1)
			}
			if v := editValue(t, d, "SUBINT", "NAXIS1"); v != tt.want {
				t.Errorf("NAXIS1 edit = %d", v)
			}
		})
	}
}

func TestDeriveModeConstraints(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		dims  Dims
		field string
	}{
		{"search nbin 2", Search, Dims{NBin: 2, NChan: 64, NPol: 1, NSblk: 64, NSubint: 1}, "NBIN"},
		{"psr nsblk 2", Fold, Dims{NBin: 64, NChan: 64, NPol: 1, NSblk: 2, NSubint: 1}, "NSBLK"},
		{"cal nsblk 2", Cal, Dims{NBin: 64, NChan: 64, NPol: 1, NSblk: 2, NSubint: 1}, "NSBLK"},
		{"search 3-byte samples", Search, Dims{NBin: 1, NChan: 64, NPol: 1, NSblk: 64, SampleBytes: 3}, "SampleBytes"},
		{"psr 1-byte samples", Fold, Dims{NBin: 64, NChan: 64, NPol: 1, NSblk: 1, SampleBytes: 1}, "SampleBytes"},
		{"zero channels", Search, Dims{NBin: 1, NChan: 0, NPol: 1, NSblk: 64}, "NCHAN"},
		{"negative rows", Fold, Dims{NBin: 8, NChan: 8, NPol: 1, NSblk: 1, NSubint: -1}, "NSUBINT"},
		{"unknown mode", Mode("FOLD"), Dims{NBin: 8, NChan: 8, NPol: 1, NSblk: 1}, "OBS_MODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveSubint(tt.mode, tt.dims)
			if !IsInvalidDimension(err) {
				t.Fatalf("expected InvalidDimension, got %v", err)
			}
			if le := err.(*LayoutError); le.Field != tt.field {
				t.Errorf("Field = %q, want %q", le.Field, tt.field)
			}
		})
	}
}

func TestDeriveAxisOrder(t *testing.T) {
	search, err := DeriveSubint(Search, Dims{NBin: 1, NChan: 32, NPol: 4, NSblk: 128, NSubint: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	fold, err := DeriveSubint(Fold, Dims{NBin: 1, NChan: 32, NPol: 4, NSblk: 1, NSubint: 1})
	if err != nil {
		t.Fatalf("fold: %v", err)
	}

	if got := search.DataShape(); !reflect.DeepEqual(got, []int{1, 32, 4, 128}) {
		t.Errorf("SEARCH DATA shape = %v, want (nbin,nchan,npol,nsblk)", got)
	}
	if got := fold.DataShape(); !reflect.DeepEqual(got, []int{4, 32, 1}) {
		t.Errorf("PSR DATA shape = %v, want (npol,nchan,nbin)", got)
	}

	if search.DataType != Byte || fold.DataType != Int16 {
		t.Errorf("DATA types = %v, %v", search.DataType, fold.DataType)
	}

	// the derived DATA field reads back identically from its own TFORM/TDIM cards
	for _, der := range []Derivation{search, fold} {
		want, _ := der.Layout.Field("DATA")
		col := Column{Name: "DATA", Form: want.TFORM()}
		for _, e := range der.Edits {
			if e.Field == fmt.Sprintf("TDIM%d", der.Layout.Index("DATA")+1) {
				col.Dim = e.Value.Str()
			}
		}
		got, err := FieldFromColumn(col)
		if err != nil {
			t.Fatalf("%s FieldFromColumn(%+v) error = %v", der.Mode, col, err)
		}
		if !reflect.DeepEqual(got.Shape, want.Shape) {
			t.Errorf("%s DATA shape from TDIM %s = %v, derived %v", der.Mode, col.Dim, got.Shape, want.Shape)
		}
	}
	if f, _ := search.Layout.Field("DATA"); !reflect.DeepEqual(f.Shape, []int{128, 4, 32, 1}) {
		t.Errorf("SEARCH DATA row-major shape = %v", f.Shape)
	}
}

func TestDeriveEdits(t *testing.T) {
	d, err := DeriveSubint(Search, Dims{NBin: 1, NChan: 512, NPol: 2, NSblk: 1024, NSubint: 3})
	if err != nil {
		t.Fatalf("DeriveSubint() error = %v", err)
	}

	wantStrings := map[string]string{
		"TFORM13": "512E",
		"TFORM14": "512E",
		"TFORM15": "1024E",
		"TFORM16": "1024E",
		"TFORM17": "1048576B",
		"TDIM17":  "(1, 512, 2, 1024)",
	}
	for _, e := range d.Edits {
		if want, ok := wantStrings[e.Field]; ok {
			if e.Value.Str() != want {
				t.Errorf("%s = %q, want %q", e.Field, e.Value.Str(), want)
			}
			delete(wantStrings, e.Field)
		}
	}
	if len(wantStrings) != 0 {
		t.Errorf("missing edits: %v", wantStrings)
	}

	if v := editValue(t, d, "PRIMARY", "OBSNCHAN"); v != 512 {
		t.Errorf("OBSNCHAN = %d", v)
	}
	if v := editValue(t, d, "SUBINT", "NBITS"); v != 8 {
		t.Errorf("NBITS = %d", v)
	}
	if v := editValue(t, d, "SUBINT", "NAXIS2"); v != 3 {
		t.Errorf("NAXIS2 = %d", v)
	}

	last := d.Edits[len(d.Edits)-1]
	if last.Field != "TDIM17" {
		t.Errorf("last edit = %s, want TDIM17", last.Field)
	}

	fold, err := DeriveSubint(Fold, Dims{NBin: 64, NChan: 512, NPol: 4, NSblk: 1, NSubint: 1})
	if err != nil {
		t.Fatalf("DeriveSubint() error = %v", err)
	}
	foldWant := map[string]string{
		"TFORM16": "512D",
		"TFORM17": "512E",
		"TFORM18": "2048E",
		"TFORM19": "2048E",
		"TFORM20": "131072I",
		"TDIM20":  "(64, 512, 4)",
	}
	for _, e := range fold.Edits {
		if want, ok := foldWant[e.Field]; ok && e.Value.Str() != want {
			t.Errorf("%s = %q, want %q", e.Field, e.Value.Str(), want)
		}
	}
	if v := editValue(t, fold, "SUBINT", "NBITS"); v != 1 {
		t.Errorf("PSR NBITS = %d", v)
	}
}

func TestDeriveLayoutMismatch(t *testing.T) {
	native := StandardSubint(Search)
	native, err := native.WithShape("TSUBINT", 2)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Derive(native, Search, Dims{NBin: 1, NChan: 8, NPol: 1, NSblk: 8, NSubint: 1})
	if !IsType(err, LayoutMismatch) {
		t.Errorf("expected LayoutMismatch, got %v", err)
	}

	missing := New(StandardSubint(Search).Fields()[:12]...)
	_, err = Derive(missing, Search, Dims{NBin: 1, NChan: 8, NPol: 1, NSblk: 8, NSubint: 1})
	if !IsType(err, UnknownField) {
		t.Errorf("expected UnknownField, got %v", err)
	}
}

func TestScalarColumns(t *testing.T) {
	if n := len(ScalarColumns(Search)); n != 12 {
		t.Errorf("SEARCH scalars = %d", n)
	}
	if n := len(ScalarColumns(Cal)); n != 15 {
		t.Errorf("CAL scalars = %d", n)
	}
	if StandardSubint(Search).Len() != 17 || StandardSubint(Fold).Len() != 20 {
		t.Error("standard SUBINT column counts are 17 and 20")
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"search": Search, " PSR ": Fold, "Cal": Cal} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("FOLD"); err == nil {
		t.Error("expected error")
	}
}

func editValue(t *testing.T, d Derivation, ext, field string) int {
	t.Helper()
	for _, e := range d.Edits {
		if e.Extension == ext && e.Field == field {
			return int(e.Value.Int())
		}
	}
	t.Fatalf("no edit for %s.%s", ext, field)
	return 0
}

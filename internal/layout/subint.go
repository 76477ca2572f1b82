package layout

import (
	"fmt"
	"strings"

	"github.com/tacogips/psrfits/internal/card"
	"github.com/tacogips/psrfits/internal/debug"
)

// Mode is a PSRFITS observation mode.
type Mode string

const (
	Search Mode = "SEARCH"
	Fold   Mode = "PSR"
	Cal    Mode = "CAL"
)

// ParseMode parses an OBS_MODE value, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case Search, Fold, Cal:
		return m, nil
	}
	return "", newLayoutError(InvalidDimension, "OBS_MODE", "observation mode %q is not one of SEARCH, PSR, CAL", s)
}

// IsFold reports whether rows hold folded profiles (PSR or CAL).
func (m Mode) IsFold() bool { return m == Fold || m == Cal }

// Dims are the SUBINT dimensions of an output file.
type Dims struct {
	NBin    int `json:"nbin"`
	NChan   int `json:"nchan"`
	NPol    int `json:"npol"`
	NSblk   int `json:"nsblk"`
	NSubint int `json:"nsubint"`
	// SampleBytes is the width of one DATA sample; 0 selects the mode default.
	SampleBytes int `json:"sample_bytes"`
}

func (d Dims) String() string {
	return fmt.Sprintf("nbin=%d nchan=%d npol=%d nsblk=%d nsubint=%d", d.NBin, d.NChan, d.NPol, d.NSblk, d.NSubint)
}

// Edit is one dependent header value produced by a derivation.
type Edit struct {
	Extension string
	Field     string
	Value     card.Value
}

// Derivation is the outcome of deriving a SUBINT layout.
type Derivation struct {
	Mode Mode
	Dims Dims
	// Edits are the header values to apply, in order.
	Edits []Edit
	// Layout is the finished SUBINT row layout.
	Layout RowLayout
	// NAXIS1 is the row length written to the SUBINT header.
	NAXIS1 int
	// NBits is the NBITS header value.
	NBits int
	// DataType is the DATA element type.
	DataType ElementType
}

// DataShape returns the logical shape of the DATA column as the PSRFITS
// standard names it: (nbin, nchan, npol, nsblk) for SEARCH and
// (npol, nchan, nbin) for PSR and CAL. The DATA field of Layout holds the
// row-major shape instead.
func (d Derivation) DataShape() []int {
	if d.Mode.IsFold() {
		return []int{d.Dims.NPol, d.Dims.NChan, d.Dims.NBin}
	}
	return []int{d.Dims.NBin, d.Dims.NChan, d.Dims.NPol, d.Dims.NSblk}
}

// Scalar columns every SUBINT row carries ahead of the per-channel arrays.
var (
	searchDoubles = []string{"TSUBINT", "OFFS_SUB", "LST_SUB", "RA_SUB", "DEC_SUB", "GLON_SUB", "GLAT_SUB"}
	foldDoubles   = []string{"INDEXVAL", "TSUBINT", "OFFS_SUB", "LST_SUB", "RA_SUB", "DEC_SUB", "GLON_SUB", "GLAT_SUB"}
	scalarFloats  = []string{"FD_ANG", "POS_ANG", "PAR_ANG", "TEL_AZ", "TEL_ZEN"}
	foldAux       = []string{"AUX_DM", "AUX_RM"}
)

// ScalarColumns returns the names of the per-row scalar columns of a mode.
func ScalarColumns(mode Mode) []string {
	var out []string
	if mode.IsFold() {
		out = append(out, foldDoubles...)
		out = append(out, scalarFloats...)
		return append(out, foldAux...)
	}
	out = append(out, searchDoubles...)
	return append(out, scalarFloats...)
}

// StandardSubint returns the standard SUBINT row layout of a mode with
// one channel, one polarization and one sample.
func StandardSubint(mode Mode) RowLayout {
	var fields []Field
	doubles := searchDoubles
	if mode.IsFold() {
		doubles = foldDoubles
	}
	for _, n := range doubles {
		fields = append(fields, Field{Name: n, Type: Float64})
	}
	for _, n := range scalarFloats {
		fields = append(fields, Field{Name: n, Type: Float32})
	}
	if mode.IsFold() {
		for _, n := range foldAux {
			fields = append(fields, Field{Name: n, Type: Float64})
		}
		fields = append(fields,
			Field{Name: "DAT_FREQ", Type: Float64},
			Field{Name: "DAT_WTS", Type: Float32},
			Field{Name: "DAT_OFFS", Type: Float32},
			Field{Name: "DAT_SCL", Type: Float32},
			Field{Name: "DATA", Type: Int16},
		)
		return New(fields...)
	}
	fields = append(fields,
		Field{Name: "DAT_FREQ", Type: Float32},
		Field{Name: "DAT_WTS", Type: Float32},
		Field{Name: "DAT_OFFS", Type: Float32},
		Field{Name: "DAT_SCL", Type: Float32},
		Field{Name: "DATA", Type: Byte},
	)
	return New(fields...)
}

// searchDataType maps a SEARCH sample width to the DATA element type.
func searchDataType(width int) (ElementType, bool) {
	switch width {
	case 0, 1:
		return Byte, true
	case 2:
		return Int16, true
	case 4:
		return Float32, true
	}
	return 0, false
}

// DeriveSubint derives against the standard SUBINT layout of the mode.
func DeriveSubint(mode Mode, d Dims) (Derivation, error) {
	return Derive(StandardSubint(mode), mode, d)
}

// Derive computes the header values that depend on the SUBINT dimensions
// and the finished row layout, starting from the native layout of the
// template's SUBINT table.
//
// SEARCH rows store DATA as (nbin, nchan, npol, nsblk) with nbin fixed at 1.
// PSR and CAL rows store 16-bit DATA as (npol, nchan, nbin) with nsblk fixed
// at 1. The two axis orders are not interchangeable.
func Derive(native RowLayout, mode Mode, d Dims) (Derivation, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return Derivation{}, err
	}
	if err := checkPositive(d); err != nil {
		return Derivation{}, err
	}

	out := Derivation{Mode: mode, Dims: d}
	var (
		dataShape []int
		tdim      string
		freqType  ElementType
		fixed     int
		width     int
	)

	if mode.IsFold() {
		if d.NSblk != 1 {
			return Derivation{}, newLayoutError(InvalidDimension, "NSBLK", "NSBLK (set to %d) must be 1 for %s mode", d.NSblk, mode)
		}
		if d.SampleBytes != 0 && d.SampleBytes != 2 {
			return Derivation{}, newLayoutError(InvalidDimension, "SampleBytes", "%s mode stores 16-bit samples, got %d-byte samples", mode, d.SampleBytes)
		}
		width = 2
		out.NBits = 1
		out.DataType = Int16
		dataShape = []int{d.NPol, d.NChan, d.NBin}
		tdim = FormatTDIM(d.NBin, d.NChan, d.NPol)
		freqType = Float64
		fixed = 10*8 + 5*4
	} else {
		if d.NBin != 1 {
			return Derivation{}, newLayoutError(InvalidDimension, "NBIN", "NBIN (set to %d) must be 1 for SEARCH mode", d.NBin)
		}
		t, ok := searchDataType(d.SampleBytes)
		if !ok {
			return Derivation{}, newLayoutError(InvalidDimension, "SampleBytes", "SEARCH samples must be 1, 2 or 4 bytes, got %d", d.SampleBytes)
		}
		width = t.Size()
		out.NBits = 8 * width
		out.DataType = t
		// row-major, the reverse of the TDIM axes
		dataShape = []int{d.NSblk, d.NPol, d.NChan, d.NBin}
		tdim = FormatTDIM(d.NBin, d.NChan, d.NPol, d.NSblk)
		freqType = Float32
		fixed = 7*8 + 5*4
	}

	payload := d.NBin * d.NChan * d.NPol * d.NSblk
	out.NAXIS1 = payload*width + d.NChan*freqType.Size() + d.NChan*4 + 2*d.NChan*d.NPol*4 + fixed

	l := native
	var err error
	steps := []struct {
		name  string
		t     ElementType
		shape []int
	}{
		{"DAT_FREQ", freqType, []int{d.NChan}},
		{"DAT_WTS", Float32, []int{d.NChan}},
		{"DAT_OFFS", Float32, []int{d.NChan * d.NPol}},
		{"DAT_SCL", Float32, []int{d.NChan * d.NPol}},
		{"DATA", out.DataType, dataShape},
	}
	for _, s := range steps {
		if l, err = l.With(s.name, s.t, s.shape...); err != nil {
			return Derivation{}, err
		}
	}
	out.Layout = l

	if got := l.Bytes(); got != out.NAXIS1 {
		return Derivation{}, newLayoutError(LayoutMismatch, "NAXIS1",
			"%s row layout sums to %d bytes but NAXIS1 is %d; the template SUBINT scalar columns do not match the standard set", mode, got, out.NAXIS1)
	}

	edits := []Edit{
		{"PRIMARY", "BITPIX", card.IntValue(8)},
		{"SUBINT", "BITPIX", card.IntValue(8)},
		{"SUBINT", "NBITS", card.IntValue(int64(out.NBits))},
		{"SUBINT", "NBIN", card.IntValue(int64(d.NBin))},
		{"SUBINT", "NCHAN", card.IntValue(int64(d.NChan))},
		{"PRIMARY", "OBSNCHAN", card.IntValue(int64(d.NChan))},
		{"SUBINT", "NPOL", card.IntValue(int64(d.NPol))},
		{"SUBINT", "NSBLK", card.IntValue(int64(d.NSblk))},
		{"SUBINT", "NAXIS2", card.IntValue(int64(d.NSubint))},
	}
	for _, s := range steps {
		col := l.Index(s.name) + 1
		f, _ := l.Field(s.name)
		edits = append(edits, Edit{"SUBINT", fmt.Sprintf("TFORM%d", col), card.StringValue(f.TFORM())})
	}
	edits = append(edits,
		Edit{"SUBINT", "NAXIS1", card.IntValue(int64(out.NAXIS1))},
		Edit{"SUBINT", fmt.Sprintf("TDIM%d", l.Index("DATA")+1), card.StringValue(tdim)},
	)
	out.Edits = edits

	debug.Debug("[layout] %s %s: NAXIS1=%d DATA%v %s", mode, d, out.NAXIS1, out.DataShape(), out.DataType)
	return out, nil
}

func checkPositive(d Dims) error {
	for _, c := range []struct {
		name string
		v    int
	}{
		{"NBIN", d.NBin},
		{"NCHAN", d.NChan},
		{"NPOL", d.NPol},
		{"NSBLK", d.NSblk},
	} {
		if c.v < 1 {
			return newLayoutError(InvalidDimension, c.name, "%s must be at least 1, got %d", c.name, c.v)
		}
	}
	if d.NSubint < 0 {
		return newLayoutError(InvalidDimension, "NSUBINT", "NSUBINT must not be negative, got %d", d.NSubint)
	}
	return nil
}

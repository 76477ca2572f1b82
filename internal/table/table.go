// Package table holds binary-table rows in their on-disk form: fixed-size
// big-endian records laid out by a layout.RowLayout.
package table

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/tacogips/psrfits/internal/layout"
)

// Table is a set of rows conforming to one row layout. Rows are stored
// contiguously, exactly as they appear in a FITS binary table.
type Table struct {
	extension string
	layout    layout.RowLayout
	rowBytes  int
	nrows     int
	data      []byte
}

// New returns a zero-filled table of nrows rows.
func New(extension string, l layout.RowLayout, nrows int) *Table {
	rb := l.Bytes()
	return &Table{
		extension: extension,
		layout:    l,
		rowBytes:  rb,
		nrows:     nrows,
		data:      make([]byte, rb*nrows),
	}
}

// FromBytes wraps encoded rows. data is not copied.
func FromBytes(extension string, l layout.RowLayout, data []byte) (*Table, error) {
	rb := l.Bytes()
	if rb == 0 {
		if len(data) != 0 {
			return nil, fmt.Errorf("%s: %d bytes of data for an empty row layout", extension, len(data))
		}
		return &Table{extension: extension, layout: l}, nil
	}
	if len(data)%rb != 0 {
		return nil, fmt.Errorf("%s: %d bytes is not a whole number of %d-byte rows", extension, len(data), rb)
	}
	return &Table{
		extension: extension,
		layout:    l,
		rowBytes:  rb,
		nrows:     len(data) / rb,
		data:      data,
	}, nil
}

// Extension returns the name of the extension the table belongs to.
func (t *Table) Extension() string { return t.extension }

// Layout returns the row layout.
func (t *Table) Layout() layout.RowLayout { return t.layout }

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.nrows }

// RowBytes returns the length of one row in bytes.
func (t *Table) RowBytes() int { return t.rowBytes }

// Bytes returns the encoded rows.
func (t *Table) Bytes() []byte { return t.data }

// Row returns the encoded bytes of row i. The slice aliases the table.
func (t *Table) Row(i int) ([]byte, error) {
	if i < 0 || i >= t.nrows {
		return nil, fmt.Errorf("%s: row %d out of range [0,%d)", t.extension, i, t.nrows)
	}
	return t.data[i*t.rowBytes : (i+1)*t.rowBytes], nil
}

// Grow appends n zero-filled rows.
func (t *Table) Grow(n int) {
	if n <= 0 {
		return
	}
	t.data = append(t.data, make([]byte, n*t.rowBytes)...)
	t.nrows += n
}

// field locates a field's bytes in row i.
func (t *Table) field(i int, name string) (layout.Field, []byte, error) {
	row, err := t.Row(i)
	if err != nil {
		return layout.Field{}, nil, err
	}
	f, ok := t.layout.Field(name)
	if !ok {
		return layout.Field{}, nil, &layout.LayoutError{
			Type:    layout.UnknownField,
			Field:   strings.ToUpper(name),
			Message: "field is not in the " + t.extension + " row layout",
		}
	}
	off, _ := t.layout.Offset(name)
	return f, row[off : off+f.Bytes()], nil
}

// Raw returns the encoded bytes of one field of row i. The slice aliases
// the table.
func (t *Table) Raw(i int, name string) ([]byte, error) {
	_, b, err := t.field(i, name)
	return b, err
}

// SetRaw copies encoded bytes into one field of row i.
func (t *Table) SetRaw(i int, name string, b []byte) error {
	f, dst, err := t.field(i, name)
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return countError(t.extension, f, len(b), len(dst), "bytes")
	}
	copy(dst, b)
	return nil
}

// Float64s decodes a numeric field of row i.
func (t *Table) Float64s(i int, name string) ([]float64, error) {
	f, b, err := t.field(i, name)
	if err != nil {
		return nil, err
	}
	if f.Type == layout.Char {
		return nil, typeError(t.extension, f, "numeric")
	}
	n := f.Count()
	out := make([]float64, n)
	if f.Type == layout.Bit {
		for k := 0; k < n; k++ {
			out[k] = float64((b[k/8] >> (7 - uint(k%8))) & 1)
		}
		return out, nil
	}
	size := f.Type.Size()
	for k := 0; k < n; k++ {
		out[k] = decode(f.Type, b[k*size:(k+1)*size])
	}
	return out, nil
}

// Float64 decodes the first element of a numeric field of row i.
func (t *Table) Float64(i int, name string) (float64, error) {
	vals, err := t.Float64s(i, name)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, nil
	}
	return vals[0], nil
}

// SetFloat64s encodes vals into a numeric field of row i, converting to
// the field's element type. len(vals) must equal the field's element count.
func (t *Table) SetFloat64s(i int, name string, vals []float64) error {
	f, b, err := t.field(i, name)
	if err != nil {
		return err
	}
	if f.Type == layout.Char {
		return typeError(t.extension, f, "numeric")
	}
	n := f.Count()
	if len(vals) != n {
		return countError(t.extension, f, len(vals), n, "values")
	}
	if f.Type == layout.Bit {
		for k := range b {
			b[k] = 0
		}
		for k, v := range vals {
			if v != 0 {
				b[k/8] |= 1 << (7 - uint(k%8))
			}
		}
		return nil
	}
	size := f.Type.Size()
	for k, v := range vals {
		encode(f.Type, b[k*size:(k+1)*size], v)
	}
	return nil
}

// SetFloat64 fills every element of a numeric field of row i with v.
func (t *Table) SetFloat64(i int, name string, v float64) error {
	f, ok := t.layout.Field(name)
	if !ok {
		_, _, err := t.field(i, name)
		return err
	}
	vals := make([]float64, f.Count())
	for k := range vals {
		vals[k] = v
	}
	return t.SetFloat64s(i, name, vals)
}

// String decodes a character field of row i, trimming trailing blanks
// and NULs.
func (t *Table) String(i int, name string) (string, error) {
	f, b, err := t.field(i, name)
	if err != nil {
		return "", err
	}
	if f.Type != layout.Char {
		return "", typeError(t.extension, f, "character")
	}
	return strings.TrimRight(string(b), " \x00"), nil
}

// SetString writes s into a character field of row i, padding with
// blanks. s may not be longer than the field.
func (t *Table) SetString(i int, name, s string) error {
	f, b, err := t.field(i, name)
	if err != nil {
		return err
	}
	if f.Type != layout.Char {
		return typeError(t.extension, f, "character")
	}
	if len(s) > len(b) {
		return countError(t.extension, f, len(s), len(b), "characters")
	}
	copy(b, s)
	for k := len(s); k < len(b); k++ {
		b[k] = ' '
	}
	return nil
}

func decode(t layout.ElementType, b []byte) float64 {
	switch t {
	case layout.Byte:
		return float64(b[0])
	case layout.Logical:
		if b[0] == 'T' {
			return 1
		}
		return 0
	case layout.Int16:
		return float64(int16(binary.BigEndian.Uint16(b)))
	case layout.Int32:
		return float64(int32(binary.BigEndian.Uint32(b)))
	case layout.Int64:
		return float64(int64(binary.BigEndian.Uint64(b)))
	case layout.Float32, layout.Complex64:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
	case layout.Float64, layout.Complex128:
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	}
	return 0
}

// encode writes v as one element; complex elements get a zero imaginary part.
func encode(t layout.ElementType, b []byte, v float64) {
	switch t {
	case layout.Byte:
		b[0] = uint8(clamp(math.Round(v), 0, math.MaxUint8))
	case layout.Logical:
		if v != 0 {
			b[0] = 'T'
		} else {
			b[0] = 'F'
		}
	case layout.Int16:
		binary.BigEndian.PutUint16(b, uint16(int16(clamp(math.Round(v), math.MinInt16, math.MaxInt16))))
	case layout.Int32:
		binary.BigEndian.PutUint32(b, uint32(int32(clamp(math.Round(v), math.MinInt32, math.MaxInt32))))
	case layout.Int64:
		binary.BigEndian.PutUint64(b, uint64(int64(math.Round(v))))
	case layout.Float32:
		binary.BigEndian.PutUint32(b, math.Float32bits(float32(v)))
	case layout.Float64:
		binary.BigEndian.PutUint64(b, math.Float64bits(v))
	case layout.Complex64:
		binary.BigEndian.PutUint32(b[:4], math.Float32bits(float32(v)))
		binary.BigEndian.PutUint32(b[4:], 0)
	case layout.Complex128:
		binary.BigEndian.PutUint64(b[:8], math.Float64bits(v))
		binary.BigEndian.PutUint64(b[8:], 0)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func typeError(ext string, f layout.Field, want string) error {
	return &layout.LayoutError{
		Type:    layout.InvalidFormat,
		Field:   f.Name,
		Message: fmt.Sprintf("%s column is %s, not %s", ext, f.Type, want),
	}
}

func countError(ext string, f layout.Field, got, want int, unit string) error {
	return &layout.LayoutError{
		Type:    layout.InvalidDimension,
		Field:   f.Name,
		Message: fmt.Sprintf("%s column holds %d %s, got %d", ext, want, unit, got),
	}
}

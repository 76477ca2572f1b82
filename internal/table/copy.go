package table

import (
	"fmt"
	"strings"

	"github.com/tacogips/psrfits/internal/layout"
)

// Copy returns a new table for extension with src's layout and row count,
// holding the named columns of src. A nil cols copies every column.
func Copy(extension string, src *Table, cols []string) (*Table, error) {
	dst := New(extension, src.layout, src.nrows)
	if err := CopyColumns(dst, src, cols); err != nil {
		return nil, err
	}
	return dst, nil
}

// CopyColumns copies the named columns of src into dst byte for byte. The
// tables must have the same number of rows and each column must have the
// same element type and count in both. A nil cols copies every column of
// dst that src also has.
func CopyColumns(dst, src *Table, cols []string) error {
	if dst.nrows != src.nrows {
		return fmt.Errorf("%s: cannot copy %d rows into a table of %d rows", dst.extension, src.nrows, dst.nrows)
	}
	if cols == nil {
		for _, name := range dst.layout.Names() {
			if src.layout.Index(name) >= 0 {
				cols = append(cols, name)
			}
		}
	}

	type span struct{ dst, src, n int }
	spans := make([]span, 0, len(cols))
	for _, name := range cols {
		df, ok := dst.layout.Field(name)
		if !ok {
			return unknown(dst.extension, name)
		}
		sf, ok := src.layout.Field(name)
		if !ok {
			return unknown(src.extension, name)
		}
		if df.Type != sf.Type || df.Count() != sf.Count() {
			return &layout.LayoutError{
				Type:    layout.LayoutMismatch,
				Field:   df.Name,
				Message: fmt.Sprintf("column is %s in %s but %s in %s", df.TFORM(), dst.extension, sf.TFORM(), src.extension),
			}
		}
		doff, _ := dst.layout.Offset(name)
		soff, _ := src.layout.Offset(name)
		spans = append(spans, span{doff, soff, df.Bytes()})
	}

	for i := 0; i < dst.nrows; i++ {
		drow := dst.data[i*dst.rowBytes : (i+1)*dst.rowBytes]
		srow := src.data[i*src.rowBytes : (i+1)*src.rowBytes]
		for _, s := range spans {
			copy(drow[s.dst:s.dst+s.n], srow[s.src:s.src+s.n])
		}
	}
	return nil
}

func unknown(ext, name string) error {
	return &layout.LayoutError{
		Type:    layout.UnknownField,
		Field:   strings.ToUpper(name),
		Message: "field is not in the " + ext + " row layout",
	}
}

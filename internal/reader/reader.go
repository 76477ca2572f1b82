// Package reader loads the DATA arrays of SEARCH-mode PSRFITS files as
// [time][pol][chan] spectra, with optional time and frequency
// downsampling and the stored scales and offsets applied.
package reader

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/tacogips/psrfits/internal/debug"
)

// File is an open SEARCH-mode PSRFITS file.
type File struct {
	path string
	fd   *os.File
	fits *fitsio.File
	sub  *fitsio.Table

	// Values from the SUBINT header.
	NSblk   int
	NPol    int
	NChan   int
	NBits   int
	NRows   int
	TBin    float64
	PolType string
}

// Open opens path and reads the dimensions of its SUBINT table. Only
// SEARCH-mode files are accepted.
func Open(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, newReaderError(OpenFailed, path, "cannot open file", err)
	}
	ff, err := fitsio.Open(fd)
	if err != nil {
		fd.Close()
		return nil, newReaderError(OpenFailed, path, "not a FITS file", err)
	}
	f := &File{path: path, fd: fd, fits: ff}
	if err := f.init(); err != nil {
		f.Close()
		return nil, err
	}
	debug.Debug("[reader] %s: %d rows, nsblk=%d npol=%d nchan=%d nbits=%d", path, f.NRows, f.NSblk, f.NPol, f.NChan, f.NBits)
	return f, nil
}

func (f *File) init() error {
	hdus := f.fits.HDUs()
	if len(hdus) == 0 {
		return newReaderError(OpenFailed, f.path, "file has no HDUs", nil)
	}
	var mode string
	if c := hdus[0].Header().Get("OBS_MODE"); c != nil {
		mode, _ = c.Value.(string)
	}
	if m := strings.TrimSpace(mode); m != "SEARCH" {
		return newReaderError(NotSearchMode, f.path, fmt.Sprintf("OBS_MODE is %q; only SEARCH data can be read", m), nil)
	}

	for _, hdu := range hdus[1:] {
		if strings.EqualFold(hdu.Name(), "SUBINT") {
			if t, ok := hdu.(*fitsio.Table); ok {
				f.sub = t
			}
			break
		}
	}
	if f.sub == nil {
		return newReaderError(MissingColumn, f.path, "no SUBINT binary table", nil)
	}

	h := f.sub.Header()
	ints := []struct {
		key string
		dst *int
	}{
		{"NSBLK", &f.NSblk},
		{"NPOL", &f.NPol},
		{"NCHAN", &f.NChan},
		{"NBITS", &f.NBits},
		{"NAXIS2", &f.NRows},
	}
	for _, k := range ints {
		v, err := headerFloat(h, k.key)
		if err != nil {
			return newReaderError(MissingColumn, f.path, "SUBINT header", err)
		}
		*k.dst = int(v)
	}
	tbin, err := headerFloat(h, "TBIN")
	if err != nil {
		return newReaderError(MissingColumn, f.path, "SUBINT header", err)
	}
	f.TBin = tbin
	if c := h.Get("POL_TYPE"); c != nil {
		f.PolType, _ = c.Value.(string)
	}

	switch f.NBits {
	case 8, 16, 32:
	default:
		return newReaderError(UnsupportedBits, f.path, fmt.Sprintf("unhandled number of bits (%d)", f.NBits), nil)
	}
	for _, col := range []string{"DATA", "DAT_FREQ", "DAT_OFFS", "DAT_SCL", "OFFS_SUB", "TSUBINT"} {
		if f.sub.Index(col) < 0 {
			return newReaderError(MissingColumn, f.path, "SUBINT has no "+col+" column", nil)
		}
	}
	return nil
}

// Close releases the file.
func (f *File) Close() error {
	var err error
	if f.fits != nil {
		err = f.fits.Close()
		f.fits = nil
	}
	if f.fd != nil {
		if cerr := f.fd.Close(); err == nil {
			err = cerr
		}
		f.fd = nil
	}
	return err
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Frequencies returns the channel centre frequencies of a row.
func (f *File) Frequencies(row int) ([]float64, error) {
	if row < 0 || row >= f.NRows {
		return nil, newReaderError(InvalidRange, f.path, fmt.Sprintf("row %d outside 0..%d", row, f.NRows-1), nil)
	}
	vals, err := f.readRows(row, row+1, "DAT_FREQ")
	if err != nil {
		return nil, err
	}
	return floats(vals[0]["DAT_FREQ"])
}

// readRows scans the named columns of rows [beg, end).
func (f *File) readRows(beg, end int, cols ...string) ([]map[string]interface{}, error) {
	rows, err := f.sub.Read(int64(beg), int64(end))
	if err != nil {
		return nil, newReaderError(ReadFailed, f.path, fmt.Sprintf("cannot read rows %d..%d", beg, end-1), err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		m := make(map[string]interface{}, len(cols))
		for _, c := range cols {
			m[c] = nil
		}
		if err := rows.Scan(&m); err != nil {
			return nil, newReaderError(ReadFailed, f.path, fmt.Sprintf("cannot decode row %d", beg+len(out)), err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, newReaderError(ReadFailed, f.path, "row iteration failed", err)
	}
	return out, nil
}

// headerFloat reads a numeric keyword whatever its stored Go type.
func headerFloat(h *fitsio.Header, key string) (float64, error) {
	c := h.Get(key)
	if c == nil {
		return 0, fmt.Errorf("missing keyword %s", key)
	}
	switch v := c.Value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	}
	return 0, fmt.Errorf("keyword %s is %T, want a number", key, c.Value)
}

// floats flattens a scanned cell (scalar, array or slice) to float64s.
func floats(cell interface{}) ([]float64, error) {
	rv := reflect.ValueOf(cell)
	switch rv.Kind() {
	case reflect.Array, reflect.Slice:
		out := make([]float64, rv.Len())
		for i := range out {
			v, err := number(rv.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	v, err := number(rv)
	if err != nil {
		return nil, err
	}
	return []float64{v}, nil
}

func number(v reflect.Value) (float64, error) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}
	return 0, fmt.Errorf("cell of kind %s is not numeric", v.Kind())
}

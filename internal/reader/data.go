package reader

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/tacogips/psrfits/internal/debug"
)

// Options selects the rows to read and how to reduce them.
type Options struct {
	// StartRow is the first row read.
	StartRow int
	// EndRow is the last row read. Nil reads StartRow only; a negative
	// value counts back from the end, so -1 is the last row.
	EndRow *int
	// Downsample averages this many samples in time. 0 averages each
	// row to one spectrum; callers wanting full resolution pass 1.
	Downsample int
	// FreqDownsample averages this many adjacent channels and must divide
	// NCHAN. 1 keeps every channel; 0 averages the whole band.
	FreqDownsample int
	// ApplyScales multiplies by DAT_SCL and adds DAT_OFFS.
	ApplyScales bool
}

// Row returns a pointer to n, for Options.EndRow.
func Row(n int) *int { return &n }

// Block is the result of Data.
type Block struct {
	// Data is indexed [time][pol][chan].
	Data [][][]float64
	// Times are the centre times of each spectrum in seconds from the
	// start of the observation.
	Times []float64
	// Freqs are the (downsampled) channel frequencies of the last row read.
	Freqs []float64
	// TBin is the time per spectrum after downsampling.
	TBin     float64
	StartRow int
	EndRow   int
}

// Data reads rows StartRow..EndRow of SEARCH data.
//
// Samples are 8-bit, 16-bit or 32-bit float. When POL_TYPE contains AABB
// the first two polarisations are unsigned and the rest signed; otherwise
// only the first is unsigned.
func (f *File) Data(opts Options) (*Block, error) {
	start, end, err := f.rowRange(opts)
	if err != nil {
		return nil, err
	}

	ds := opts.Downsample
	if ds <= 0 || ds > f.NSblk {
		ds = f.NSblk
	}
	fds := opts.FreqDownsample
	if fds <= 0 || fds > f.NChan {
		fds = f.NChan
	}
	if f.NSblk%ds != 0 {
		debug.Warn("[reader] downsample %d does not evenly divide NSBLK %d; trailing samples are dropped", ds, f.NSblk)
	}
	if f.NChan%fds != 0 {
		return nil, newReaderError(InvalidRange, f.path,
			fmt.Sprintf("frequency downsample %d does not evenly divide NCHAN %d", fds, f.NChan), nil)
	}

	nrows := end - start + 1
	nsblkDS := f.NSblk / ds
	nchanDS := f.NChan / fds
	signpol := 1
	if strings.Contains(f.PolType, "AABB") {
		signpol = 2
	}

	cells, err := f.readRows(start, end+1, "DATA", "DAT_OFFS", "DAT_SCL", "DAT_FREQ", "OFFS_SUB", "TSUBINT")
	if err != nil {
		return nil, err
	}
	if len(cells) != nrows {
		return nil, newReaderError(ReadFailed, f.path, fmt.Sprintf("read %d rows, want %d", len(cells), nrows), nil)
	}

	out := &Block{
		Data:     make([][][]float64, nrows*nsblkDS),
		Times:    make([]float64, nrows*nsblkDS),
		TBin:     f.TBin * float64(ds),
		StartRow: start,
		EndRow:   end,
	}
	want := f.NSblk * f.NPol * f.NChan
	buf := make([]float64, ds)
	spec := make([]float64, f.NChan)

	for irow, cell := range cells {
		raw := reflect.ValueOf(cell["DATA"])
		if raw.Kind() != reflect.Array && raw.Kind() != reflect.Slice || raw.Len() != want {
			return nil, newReaderError(ReadFailed, f.path,
				fmt.Sprintf("row %d DATA is %T, want %d samples", start+irow, cell["DATA"], want), nil)
		}

		var scl, offs []float64
		if opts.ApplyScales {
			if scl, err = f.column(cell, "DAT_SCL", f.NPol*f.NChan); err != nil {
				return nil, err
			}
			if offs, err = f.column(cell, "DAT_OFFS", f.NPol*f.NChan); err != nil {
				return nil, err
			}
		}
		freqs, err := f.column(cell, "DAT_FREQ", f.NChan)
		if err != nil {
			return nil, err
		}
		offsSub, err := f.column(cell, "OFFS_SUB", 1)
		if err != nil {
			return nil, err
		}
		tsub, err := f.column(cell, "TSUBINT", 1)
		if err != nil {
			return nil, err
		}
		t0 := offsSub[0] - tsub[0]/2

		for isamp := 0; isamp < nsblkDS; isamp++ {
			it := irow*nsblkDS + isamp
			out.Times[it] = t0 + (float64(isamp)+0.5)*out.TBin
			out.Data[it] = make([][]float64, f.NPol)

			for ipol := 0; ipol < f.NPol; ipol++ {
				signed := ipol >= signpol
				for ich := 0; ich < f.NChan; ich++ {
					for k := 0; k < ds; k++ {
						// rows store (nsblk, npol, nchan), channel fastest
						j := ((isamp*ds+k)*f.NPol+ipol)*f.NChan + ich
						buf[k] = sample(raw.Index(j), f.NBits, signed)
					}
					m, _ := stats.Mean(buf)
					if opts.ApplyScales {
						m = m*scl[ipol*f.NChan+ich] + offs[ipol*f.NChan+ich]
					}
					spec[ich] = m
				}
				out.Data[it][ipol] = groupMeans(spec, fds)
			}
		}
		out.Freqs = groupMeans(freqs, fds)
	}

	debug.Debug("[reader] rows %d..%d -> %d spectra x %d pol x %d chan", start, end, len(out.Data), f.NPol, nchanDS)
	return out, nil
}

func (f *File) rowRange(opts Options) (int, int, error) {
	start := opts.StartRow
	end := start
	if opts.EndRow != nil {
		end = *opts.EndRow
		if end < 0 {
			end += f.NRows
		}
	}
	if start < 0 || start >= f.NRows || end < start || end >= f.NRows {
		return 0, 0, newReaderError(InvalidRange, f.path,
			fmt.Sprintf("rows %d..%d outside the %d rows of SUBINT", start, end, f.NRows), nil)
	}
	return start, end, nil
}

func (f *File) column(cell map[string]interface{}, name string, n int) ([]float64, error) {
	v, err := floats(cell[name])
	if err != nil {
		return nil, newReaderError(ReadFailed, f.path, name, err)
	}
	if len(v) != n {
		return nil, newReaderError(ReadFailed, f.path, fmt.Sprintf("%s has %d values, want %d", name, len(v), n), nil)
	}
	return v, nil
}

// sample decodes one stored sample. Integer samples are reinterpreted at
// their bit width so the same bytes read as signed or unsigned.
func sample(v reflect.Value, nbits int, signed bool) float64 {
	var bits uint64
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits = uint64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		bits = v.Uint()
	default:
		return v.Float()
	}
	switch nbits {
	case 8:
		if signed {
			return float64(int8(bits))
		}
		return float64(uint8(bits))
	case 16:
		if signed {
			return float64(int16(bits))
		}
		return float64(uint16(bits))
	}
	return float64(bits)
}

// groupMeans averages consecutive groups of n values.
func groupMeans(x []float64, n int) []float64 {
	if n == 1 {
		return append([]float64(nil), x...)
	}
	out := make([]float64, len(x)/n)
	for i := range out {
		out[i], _ = stats.Mean(x[i*n : (i+1)*n])
	}
	return out
}

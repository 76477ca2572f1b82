package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/fitsfile"
	"github.com/tacogips/psrfits/internal/header"
	"github.com/tacogips/psrfits/internal/layout"
)

// InspectOptions holds options for inspecting a PSRFITS file.
type InspectOptions struct {
	// Path is the file to inspect.
	Path string
	// Extensions limits the report to the named extensions. Empty means all.
	Extensions []string
	// Cards includes the raw header cards.
	Cards bool
}

// ColumnInfo describes one binary-table column.
type ColumnInfo struct {
	Name  string `json:"name"`
	TFORM string `json:"tform"`
	TDIM  string `json:"tdim,omitempty"`
	Unit  string `json:"unit,omitempty"`
	Type  string `json:"type"`
	Shape []int  `json:"shape,omitempty"`
	Bytes int    `json:"bytes"`
}

// ExtensionInfo describes one HDU.
type ExtensionInfo struct {
	Index   int          `json:"index"`
	Name    string       `json:"name"`
	Rows    int64        `json:"rows,omitempty"`
	NAXIS1  int64        `json:"naxis1,omitempty"`
	RowSize int          `json:"row_bytes,omitempty"`
	Columns []ColumnInfo `json:"columns,omitempty"`
	Cards   []string     `json:"cards,omitempty"`
	// Problems lists inconsistencies between the header and the columns.
	Problems []string `json:"problems,omitempty"`
}

// InspectResult holds the result of an inspection.
type InspectResult struct {
	Path       string          `json:"path"`
	ObsMode    string          `json:"obs_mode,omitempty"`
	Dims       *layout.Dims    `json:"dims,omitempty"`
	Extensions []ExtensionInfo `json:"extensions"`
}

// Consistent reports whether no extension has problems.
func (r *InspectResult) Consistent() bool {
	for _, e := range r.Extensions {
		if len(e.Problems) > 0 {
			return false
		}
	}
	return true
}

// Inspect lists the extensions of a file with their row layouts and checks
// that every binary table's NAXIS1 equals the sum of its columns.
func Inspect(ctx context.Context, opts InspectOptions) (*InspectResult, error) {
	debug.DebugSection("[app] Inspect workflow start")
	debug.DebugValue("[app] Path", opts.Path)

	f, err := fitsfile.Open(opts.Path, fitsfile.ModeRead)
	if err != nil {
		return nil, NewInspectError(fmt.Sprintf("cannot open %s", opts.Path), err)
	}
	defer f.Close()

	want := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		want[strings.ToUpper(strings.TrimSpace(e))] = true
	}

	result := &InspectResult{Path: opts.Path}
	for i := 0; i < f.NumHDUs(); i++ {
		hdu, err := f.HDU(i)
		if err != nil {
			return nil, NewInspectError("cannot read HDU", err)
		}
		h := hdu.Header()
		if i == 0 {
			result.ObsMode, _ = h.String("OBS_MODE")
		}
		if strings.EqualFold(hdu.Name, "SUBINT") {
			result.Dims = subintDims(h)
		}
		if len(want) > 0 && !want[strings.ToUpper(hdu.Name)] {
			continue
		}

		info := ExtensionInfo{Index: i, Name: hdu.Name}
		if opts.Cards {
			info.Cards = h.Cards()
		}
		if hdu.IsTable() {
			describeTable(&info, h)
		}
		result.Extensions = append(result.Extensions, info)
	}
	if len(want) > 0 && len(result.Extensions) == 0 {
		return nil, NewInspectError(fmt.Sprintf("%s has none of the extensions %v (has %v)", opts.Path, opts.Extensions, f.ExtensionNames()), nil)
	}

	debug.DebugValue("[app] Extensions", len(result.Extensions))
	return result, nil
}

func describeTable(info *ExtensionInfo, h *header.Header) {
	info.Rows, _ = h.Int("NAXIS2")
	info.NAXIS1, _ = h.Int("NAXIS1")

	cols, err := fitsfile.HeaderColumns(h)
	if err != nil {
		info.Problems = append(info.Problems, fmt.Sprintf("bad column declarations: %v", err))
		return
	}
	for _, c := range cols {
		ci := ColumnInfo{Name: c.Name, TFORM: c.Form, TDIM: c.Dim, Unit: c.Unit}
		f, err := layout.FieldFromColumn(c)
		if err != nil {
			info.Problems = append(info.Problems, fmt.Sprintf("%s: %v", c.Name, err))
		} else {
			ci.Type = f.Type.String()
			ci.Shape = f.Shape
			ci.Bytes = f.Bytes()
			info.RowSize += ci.Bytes
		}
		info.Columns = append(info.Columns, ci)
	}
	if len(info.Problems) == 0 && int64(info.RowSize) != info.NAXIS1 {
		info.Problems = append(info.Problems,
			fmt.Sprintf("columns sum to %d bytes but NAXIS1 is %d", info.RowSize, info.NAXIS1))
	}
}

// subintDims reads the dimension keywords of a SUBINT header. Keywords
// missing from the header stay zero.
func subintDims(h *header.Header) *layout.Dims {
	get := func(k string) int {
		v, _ := h.Int(k)
		return int(v)
	}
	d := &layout.Dims{
		NBin:    get("NBIN"),
		NChan:   get("NCHAN"),
		NPol:    get("NPOL"),
		NSblk:   get("NSBLK"),
		NSubint: get("NAXIS2"),
	}
	if nbits := get("NBITS"); nbits >= 8 {
		d.SampleBytes = nbits / 8
	}
	return d
}

package fitsfile

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"
)

// Summary describes one HDU as seen by an independent FITS decoder.
type Summary struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Cards int    `json:"cards"`
	Rows  int64  `json:"rows"`
	Cols  int    `json:"cols"`
}

// Verify decodes path with astrogo/fitsio and checks that every binary
// table holds the rows its NAXIS2 declares. It returns one summary per HDU.
func Verify(path string) ([]Summary, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer r.Close()

	ff, err := fitsio.Open(r)
	if err != nil {
		return nil, newFileError(InvalidStructure, path, -1, "not a readable FITS file", err)
	}
	defer ff.Close()

	var out []Summary
	for i, hdu := range ff.HDUs() {
		hdr := hdu.Header()
		s := Summary{
			Index: i,
			Name:  hdu.Name(),
			Type:  hdu.Type().String(),
			Cards: len(hdr.Keys()),
		}
		if i == 0 {
			s.Name = "PRIMARY"
		}
		if tbl, ok := hdu.(*fitsio.Table); ok {
			s.Rows = tbl.NumRows()
			s.Cols = tbl.NumCols()
			if c := hdr.Get("NAXIS2"); c != nil {
				if n, ok := c.Value.(int); ok && int64(n) != s.Rows {
					return nil, newFileError(InvalidStructure, path, i, fmt.Sprintf("%s declares %d rows but holds %d", s.Name, n, s.Rows), nil)
				}
			}
		}
		out = append(out, s)
	}
	return out, nil
}

package fitsfile

import (
	"fmt"

	"github.com/tacogips/psrfits/internal/header"
	"github.com/tacogips/psrfits/internal/layout"
	"github.com/tacogips/psrfits/internal/table"
)

// Columns returns the column declarations of the binary table at HDU i.
func (f *File) Columns(i int) ([]layout.Column, error) {
	hdu, err := f.HDU(i)
	if err != nil {
		return nil, err
	}
	if !hdu.IsTable() {
		return nil, newFileError(InvalidStructure, f.path, i, hdu.Name+" is not a binary table", nil)
	}
	cols, err := HeaderColumns(hdu.hdr)
	if err != nil {
		return nil, newFileError(InvalidStructure, f.path, i, hdu.Name+": bad column declarations", err)
	}
	return cols, nil
}

// HeaderColumns reads the TTYPEn, TFORMn, TDIMn and TUNITn declarations of a
// binary-table header.
func HeaderColumns(h *header.Header) ([]layout.Column, error) {
	n, err := h.Int("TFIELDS")
	if err != nil {
		return nil, err
	}
	cols := make([]layout.Column, 0, n)
	for k := int64(1); k <= n; k++ {
		var c layout.Column
		if c.Name, err = h.String(fmt.Sprintf("TTYPE%d", k)); err != nil {
			return nil, err
		}
		if c.Form, err = h.String(fmt.Sprintf("TFORM%d", k)); err != nil {
			return nil, err
		}
		c.Dim, _ = h.String(fmt.Sprintf("TDIM%d", k))
		c.Unit, _ = h.String(fmt.Sprintf("TUNIT%d", k))
		cols = append(cols, c)
	}
	return cols, nil
}

// RowLayout returns the native row layout of the binary table at HDU i.
func (f *File) RowLayout(i int) (layout.RowLayout, error) {
	cols, err := f.Columns(i)
	if err != nil {
		return layout.RowLayout{}, err
	}
	l, err := layout.FromColumns(cols)
	if err != nil {
		return layout.RowLayout{}, newFileError(InvalidStructure, f.path, i, "cannot derive row layout", err)
	}
	if naxis1, err := f.hdus[i].hdr.Int("NAXIS1"); err == nil && naxis1 != int64(l.Bytes()) {
		return layout.RowLayout{}, newFileError(InvalidStructure, f.path, i,
			fmt.Sprintf("%s columns sum to %d bytes but NAXIS1 is %d", f.hdus[i].Name, l.Bytes(), naxis1), nil)
	}
	return l, nil
}

// ReadTable reads every row of the binary table at HDU i.
func (f *File) ReadTable(i int) (*table.Table, error) {
	l, err := f.RowLayout(i)
	if err != nil {
		return nil, err
	}
	hdu := f.hdus[i]
	nrows, err := hdu.hdr.Int("NAXIS2")
	if err != nil {
		return nil, newFileError(InvalidStructure, f.path, i, hdu.Name+": no NAXIS2", err)
	}

	data := make([]byte, nrows*int64(l.Bytes()))
	if _, err := f.fd.ReadAt(data, hdu.dataOff); err != nil {
		return nil, newFileError(InvalidStructure, f.path, i, "failed to read "+hdu.Name+" rows", err)
	}
	t, err := table.FromBytes(hdu.Name, l, data)
	if err != nil {
		return nil, newFileError(InvalidStructure, f.path, i, "bad "+hdu.Name+" rows", err)
	}
	return t, nil
}

package fitsfile

import (
	"fmt"
	"io"
	"strings"

	"github.com/tacogips/psrfits/internal/card"
	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/header"
	"github.com/tacogips/psrfits/internal/layout"
	"github.com/tacogips/psrfits/internal/table"
)

// structural keywords whose values fix the size of the data section.
var structural = []string{"SIMPLE", "XTENSION", "BITPIX", "NAXIS", "PCOUNT", "GCOUNT", "TFIELDS"}

// CreatePrimary writes an empty primary HDU to a file that holds none.
func (f *File) CreatePrimary() error {
	if err := f.writable(); err != nil {
		return err
	}
	if len(f.hdus) != 0 {
		return newFileError(InvalidStructure, f.path, 0, "file already has a primary HDU", nil)
	}

	h := header.New("PRIMARY")
	for _, fl := range []struct {
		name    string
		v       card.Value
		comment string
	}{
		{"SIMPLE", card.LogicalValue(true), "file does conform to FITS standard"},
		{"BITPIX", card.IntValue(8), "number of bits per data pixel"},
		{"NAXIS", card.IntValue(0), "number of data axes"},
		{"EXTEND", card.LogicalValue(true), "FITS dataset may contain extensions"},
	} {
		if err := h.Set(fl.name, fl.v, fl.comment); err != nil {
			return newFileError(InvalidStructure, f.path, 0, "cannot build primary header", err)
		}
	}

	hdu := &HDU{Index: 0, Name: "PRIMARY", hdr: h}
	if err := f.placeHeader(hdu, 0); err != nil {
		return err
	}
	f.hdus = append(f.hdus, hdu)
	debug.Debug("[fitsfile] %s: wrote primary header", f.path)
	return nil
}

// WriteTable appends a binary-table HDU holding the rows of t. The header
// carries only the structural keywords; the rest is merged in later with
// WriteHeaderKeys. A version above zero is written as EXTVER. It returns
// the index of the new HDU.
func (f *File) WriteTable(name string, version int, t *table.Table) (int, error) {
	if err := f.writable(); err != nil {
		return -1, err
	}
	idx := len(f.hdus)
	if idx == 0 {
		return -1, newFileError(InvalidStructure, f.path, idx, "a table cannot be the primary HDU", nil)
	}

	h, err := tableHeader(name, version, t)
	if err != nil {
		return -1, newFileError(InvalidStructure, f.path, idx, "cannot build "+name+" header", err)
	}

	hdu := &HDU{Index: idx, Name: name, hdr: h}
	if err := f.placeHeader(hdu, f.end()); err != nil {
		return -1, err
	}
	hdu.dataLen = int64(len(t.Bytes()))
	if err := f.writeData(hdu.dataOff, t.Bytes(), hdu.dataLen); err != nil {
		return -1, err
	}
	f.hdus = append(f.hdus, hdu)
	debug.Debug("[fitsfile] %s: wrote %s with %d rows of %d bytes", f.path, name, t.NumRows(), t.RowBytes())
	return idx, nil
}

func tableHeader(name string, version int, t *table.Table) (*header.Header, error) {
	h := header.New(name)
	fields := t.Layout().Fields()
	set := func(k string, v card.Value, comment string) error {
		return h.Set(k, v, comment)
	}

	steps := []struct {
		k       string
		v       card.Value
		comment string
	}{
		{"XTENSION", card.StringValue("BINTABLE"), "binary table extension"},
		{"BITPIX", card.IntValue(8), "8-bit bytes"},
		{"NAXIS", card.IntValue(2), "2-dimensional binary table"},
		{"NAXIS1", card.IntValue(int64(t.RowBytes())), "width of table in bytes"},
		{"NAXIS2", card.IntValue(int64(t.NumRows())), "number of rows in table"},
		{"PCOUNT", card.IntValue(0), "size of special data area"},
		{"GCOUNT", card.IntValue(1), "one data group"},
		{"TFIELDS", card.IntValue(int64(len(fields))), "number of fields in each row"},
	}
	for _, s := range steps {
		if err := set(s.k, s.v, s.comment); err != nil {
			return nil, err
		}
	}
	for i, fl := range fields {
		n := i + 1
		if err := set(fmt.Sprintf("TTYPE%d", n), card.StringValue(fl.Name), ""); err != nil {
			return nil, err
		}
		if err := set(fmt.Sprintf("TFORM%d", n), card.StringValue(fl.TFORM()), ""); err != nil {
			return nil, err
		}
		if len(fl.Shape) > 1 {
			axes := make([]int, len(fl.Shape))
			for j, a := range fl.Shape {
				axes[len(fl.Shape)-1-j] = a
			}
			if err := set(fmt.Sprintf("TDIM%d", n), card.StringValue(layout.FormatTDIM(axes...)), ""); err != nil {
				return nil, err
			}
		}
	}
	if err := set("EXTNAME", card.StringValue(name), "name of this binary table extension"); err != nil {
		return nil, err
	}
	if version > 0 {
		if err := set("EXTVER", card.IntValue(int64(version)), ""); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// WriteHeaderKeys merges records into the header of HDU i. Keywords that
// exist are overwritten in place, new ones are appended, and commentary
// cards are appended unless an identical card is already present.
//
// Only merging is supported: preserveExisting must be true. Edits may not
// change the size of the data section.
func (f *File) WriteHeaderKeys(i int, recs []card.Record, preserveExisting bool) error {
	if err := f.writable(); err != nil {
		return err
	}
	hdu, err := f.HDU(i)
	if err != nil {
		return err
	}
	if !preserveExisting {
		return newFileError(CleanUnsupported, f.path, i, "rewriting a header without its existing keywords is not supported", nil)
	}

	h := hdu.hdr.Clone()
	seen := make(map[string]bool)
	for _, rec := range h.Records() {
		if rec.IsCommentary() {
			seen[rec.Raw] = true
		}
	}
	for _, rec := range recs {
		if rec.Name == "END" {
			continue
		}
		if rec.IsCommentary() {
			if seen[rec.Raw] {
				continue
			}
			seen[rec.Raw] = true
		}
		h.Put(rec)
	}

	if err := f.checkStructure(hdu, h); err != nil {
		return err
	}
	if err := f.rewriteHeader(hdu, h); err != nil {
		return err
	}
	debug.Debug("[fitsfile] %s: merged %d cards into %s", f.path, len(recs), hdu.Name)
	return nil
}

// checkStructure rejects a merged header whose structural keywords no
// longer describe the data on disk.
func (f *File) checkStructure(hdu *HDU, h *header.Header) error {
	for _, k := range structural {
		old, had := hdu.hdr.Get(k)
		if !had {
			continue
		}
		if cur, _ := h.Get(k); !old.Value.Equal(cur.Value) {
			return newFileError(InvalidStructure, f.path, hdu.Index,
				fmt.Sprintf("%s: header edit changes structural keyword %s from %s to %s", hdu.Name, k, old.Value.Text(), cur.Value.Text()), nil)
		}
	}
	n, err := dataSize(h)
	if err != nil {
		return newFileError(InvalidStructure, f.path, hdu.Index, hdu.Name+": bad structural keywords", err)
	}
	if n != hdu.dataLen {
		return newFileError(InvalidStructure, f.path, hdu.Index,
			fmt.Sprintf("%s: header describes %d data bytes but %d are stored", hdu.Name, n, hdu.dataLen), nil)
	}
	return nil
}

// AppendRows appends the rows of t to the binary table at HDU i and
// updates its NAXIS2 card in place.
func (f *File) AppendRows(i int, t *table.Table) error {
	if err := f.writable(); err != nil {
		return err
	}
	hdu, err := f.HDU(i)
	if err != nil {
		return err
	}
	if !hdu.IsTable() {
		return newFileError(InvalidStructure, f.path, i, hdu.Name+" is not a binary table", nil)
	}
	if pc, _ := hdu.hdr.Int("PCOUNT"); pc != 0 {
		return newFileError(InvalidStructure, f.path, i, hdu.Name+": cannot append to a table with a heap", nil)
	}
	rowBytes, err := hdu.hdr.Int("NAXIS1")
	if err != nil {
		return newFileError(InvalidStructure, f.path, i, hdu.Name+": no NAXIS1", err)
	}
	if int64(t.RowBytes()) != rowBytes {
		return newFileError(InvalidStructure, f.path, i,
			fmt.Sprintf("%s rows are %d bytes, appended rows are %d", hdu.Name, rowBytes, t.RowBytes()), nil)
	}
	nrows, err := hdu.hdr.Int("NAXIS2")
	if err != nil {
		return newFileError(InvalidStructure, f.path, i, hdu.Name+": no NAXIS2", err)
	}
	if t.NumRows() == 0 {
		return nil
	}

	oldLen := hdu.dataLen
	newLen := oldLen + int64(len(t.Bytes()))
	if delta := padded(newLen) - padded(oldLen); delta != 0 {
		if err := f.shift(hdu.dataOff+padded(oldLen), delta); err != nil {
			return err
		}
	}
	if err := f.writeData(hdu.dataOff+oldLen, t.Bytes(), padded(newLen)-oldLen); err != nil {
		return err
	}
	hdu.dataLen = newLen

	h := hdu.hdr.Clone()
	if _, err := h.Replace("NAXIS2", card.IntValue(nrows+int64(t.NumRows()))); err != nil {
		return newFileError(WriteFailed, f.path, i, hdu.Name+": cannot update NAXIS2", err)
	}
	if err := f.rewriteHeader(hdu, h); err != nil {
		return err
	}
	debug.Debug("[fitsfile] %s: appended %d rows to %s", f.path, t.NumRows(), hdu.Name)
	return nil
}

func (f *File) writable() error {
	if f.fd == nil {
		return newFileError(WriteFailed, f.path, -1, "file is closed", nil)
	}
	if f.mode != ModeReadWrite {
		return newFileError(ReadOnly, f.path, -1, "file is open for reading only", nil)
	}
	return nil
}

// serialize renders a header as whole blocks ending in END.
func serialize(h *header.Header) []byte {
	var b strings.Builder
	for _, rec := range h.Records() {
		for _, img := range rec.Images() {
			b.WriteString(img)
		}
	}
	b.WriteString(card.End)
	out := []byte(b.String())
	for int64(len(out)) < padded(int64(len(out))) {
		out = append(out, ' ')
	}
	return out
}

// placeHeader writes the header of a new HDU at off.
func (f *File) placeHeader(hdu *HDU, off int64) error {
	buf := serialize(hdu.hdr)
	if _, err := f.fd.WriteAt(buf, off); err != nil {
		return newFileError(WriteFailed, f.path, hdu.Index, "failed to write "+hdu.Name+" header", err)
	}
	hdu.headerOff = off
	hdu.headerLen = int64(len(buf))
	hdu.dataOff = off + hdu.headerLen
	return nil
}

// rewriteHeader replaces the header of an existing HDU, moving everything
// after it when the header changes size.
func (f *File) rewriteHeader(hdu *HDU, h *header.Header) error {
	buf := serialize(h)
	if delta := int64(len(buf)) - hdu.headerLen; delta != 0 {
		if err := f.shift(hdu.dataOff, delta); err != nil {
			return err
		}
	}
	if _, err := f.fd.WriteAt(buf, hdu.headerOff); err != nil {
		return newFileError(WriteFailed, f.path, hdu.Index, "failed to write "+hdu.Name+" header", err)
	}
	hdu.headerLen = int64(len(buf))
	hdu.hdr = h
	return nil
}

// writeData writes data at off followed by zeros up to span bytes.
func (f *File) writeData(off int64, data []byte, span int64) error {
	if _, err := f.fd.WriteAt(data, off); err != nil {
		return newFileError(WriteFailed, f.path, -1, "failed to write table rows", err)
	}
	if pad := padded(off+span) - (off + int64(len(data))); pad > 0 {
		if _, err := f.fd.WriteAt(make([]byte, pad), off+int64(len(data))); err != nil {
			return newFileError(WriteFailed, f.path, -1, "failed to pad table rows", err)
		}
	}
	return nil
}

// shift moves the bytes from off to the end of the file by delta and
// updates the offsets of every HDU at or after off.
func (f *File) shift(off, delta int64) error {
	end := f.end()
	const chunk = 1 << 20
	buf := make([]byte, chunk)

	move := func(pos, n int64) error {
		b := buf[:n]
		if _, err := f.fd.ReadAt(b, pos); err != nil && err != io.EOF {
			return newFileError(WriteFailed, f.path, -1, "failed to read while moving data", err)
		}
		if _, err := f.fd.WriteAt(b, pos+delta); err != nil {
			return newFileError(WriteFailed, f.path, -1, "failed to move data", err)
		}
		return nil
	}

	if delta > 0 {
		for pos := end; pos > off; {
			n := int64(chunk)
			if pos-off < n {
				n = pos - off
			}
			pos -= n
			if err := move(pos, n); err != nil {
				return err
			}
		}
	} else {
		for pos := off; pos < end; {
			n := int64(chunk)
			if end-pos < n {
				n = end - pos
			}
			if err := move(pos, n); err != nil {
				return err
			}
			pos += n
		}
		if err := f.fd.Truncate(end + delta); err != nil {
			return newFileError(WriteFailed, f.path, -1, "failed to truncate file", err)
		}
	}

	for _, h := range f.hdus {
		if h.headerOff >= off {
			h.headerOff += delta
		}
		if h.dataOff >= off {
			h.dataOff += delta
		}
	}
	debug.Debug("[fitsfile] %s: moved %d bytes at %d by %d", f.path, end-off, off, delta)
	return nil
}

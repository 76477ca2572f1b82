// Package fitsfile reads and writes the block structure of FITS files:
// 2880-byte header and data blocks, raw card text and binary-table rows.
//
// Headers are kept as the exact card text found in the file, so cards
// written through this package land on disk byte for byte.
package fitsfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/tacogips/psrfits/internal/card"
	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/header"
)

const (
	// BlockSize is the FITS logical record length.
	BlockSize = 2880
	// cardsPerBlock is the number of card images in one header block.
	cardsPerBlock = BlockSize / card.Width
)

// Mode selects the access a File is opened with.
type Mode int

const (
	ModeRead Mode = iota
	ModeReadWrite
)

// HDU is one header-data unit of an open file.
type HDU struct {
	// Index is the zero-based position in the file.
	Index int
	// Name is EXTNAME, or PRIMARY for the first HDU.
	Name string

	hdr       *header.Header
	headerOff int64
	headerLen int64
	dataOff   int64
	dataLen   int64
}

// Header returns a copy of the HDU header.
func (h *HDU) Header() *header.Header { return h.hdr.Clone() }

// DataBytes returns the unpadded size of the data section.
func (h *HDU) DataBytes() int64 { return h.dataLen }

// IsTable reports whether the HDU is a binary table.
func (h *HDU) IsTable() bool {
	s, err := h.hdr.String("XTENSION")
	return err == nil && strings.TrimSpace(s) == "BINTABLE"
}

// File is an open FITS file.
type File struct {
	path string
	fd   *os.File
	mode Mode
	hdus []*HDU
}

// Open opens an existing FITS file and indexes its HDUs.
func Open(path string, mode Mode) (*File, error) {
	flag := os.O_RDONLY
	if mode == ModeReadWrite {
		flag = os.O_RDWR
	}
	fd, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, openError(path, err)
	}

	f := &File{path: path, fd: fd, mode: mode}
	if err := f.scan(); err != nil {
		fd.Close()
		return nil, err
	}
	debug.Debug("[fitsfile] opened %s with %d HDUs", path, len(f.hdus))
	return f, nil
}

// Create creates (or truncates) a file for writing. The file holds no
// HDUs until one is written.
func Create(path string) (*File, error) {
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, openError(path, err)
	}
	debug.Debug("[fitsfile] created %s", path)
	return &File{path: path, fd: fd, mode: ModeReadWrite}, nil
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Close releases the file handle.
func (f *File) Close() error {
	if f.fd == nil {
		return nil
	}
	err := f.fd.Close()
	f.fd = nil
	if err != nil {
		return newFileError(WriteFailed, f.path, -1, "failed to close file", err)
	}
	return nil
}

// NumHDUs returns the number of HDUs.
func (f *File) NumHDUs() int { return len(f.hdus) }

// HDU returns the HDU at index i.
func (f *File) HDU(i int) (*HDU, error) {
	if i < 0 || i >= len(f.hdus) {
		return nil, newFileError(InvalidStructure, f.path, i, fmt.Sprintf("no HDU %d in a file of %d HDUs", i, len(f.hdus)), nil)
	}
	return f.hdus[i], nil
}

// ExtensionName returns the name of HDU i.
func (f *File) ExtensionName(i int) (string, error) {
	h, err := f.HDU(i)
	if err != nil {
		return "", err
	}
	return h.Name, nil
}

// ExtensionNames returns the names of all HDUs in file order.
func (f *File) ExtensionNames() []string {
	out := make([]string, len(f.hdus))
	for i, h := range f.hdus {
		out[i] = h.Name
	}
	return out
}

// ExtensionIndex returns the index of the HDU with the given name.
func (f *File) ExtensionIndex(name string) (int, error) {
	for i, h := range f.hdus {
		if strings.EqualFold(h.Name, name) {
			return i, nil
		}
	}
	return -1, newFileError(InvalidStructure, f.path, -1, fmt.Sprintf("no %s extension", name), nil)
}

// ReadHeader returns a copy of the header of HDU i.
func (f *File) ReadHeader(i int) (*header.Header, error) {
	h, err := f.HDU(i)
	if err != nil {
		return nil, err
	}
	return h.Header(), nil
}

// end returns the offset just past the last HDU.
func (f *File) end() int64 {
	if len(f.hdus) == 0 {
		return 0
	}
	last := f.hdus[len(f.hdus)-1]
	return last.dataOff + padded(last.dataLen)
}

func (f *File) scan() error {
	st, err := f.fd.Stat()
	if err != nil {
		return newFileError(InvalidStructure, f.path, -1, "cannot stat file", err)
	}
	size := st.Size()
	if size%BlockSize != 0 {
		debug.Warn("[fitsfile] %s: size %d is not a multiple of %d", f.path, size, BlockSize)
	}

	var off int64
	for off+BlockSize <= size {
		h, err := f.readHDU(off, len(f.hdus))
		if err != nil {
			return err
		}
		f.hdus = append(f.hdus, h)
		off = h.dataOff + padded(h.dataLen)
		if off > size+BlockSize {
			return newFileError(InvalidStructure, f.path, h.Index, "data section runs past the end of the file", nil)
		}
	}
	if len(f.hdus) == 0 {
		return newFileError(InvalidStructure, f.path, -1, "file holds no FITS header", nil)
	}
	return nil
}

func (f *File) readHDU(off int64, idx int) (*HDU, error) {
	var images []string
	block := make([]byte, BlockSize)
	pos := off

read:
	for {
		if _, err := f.fd.ReadAt(block, pos); err != nil {
			return nil, newFileError(InvalidStructure, f.path, idx, "header has no END card", err)
		}
		pos += BlockSize
		for k := 0; k < cardsPerBlock; k++ {
			img := string(block[k*card.Width : (k+1)*card.Width])
			if strings.TrimRight(img, " ") == "END" {
				break read
			}
			images = append(images, img)
		}
	}

	name := "PRIMARY"
	if idx > 0 {
		name = fmt.Sprintf("HDU%d", idx)
	}
	hdr, err := header.Parse(name, groupContinued(images))
	if err != nil {
		return nil, newFileError(InvalidStructure, f.path, idx, "cannot parse header", err)
	}
	if s, err := hdr.String("EXTNAME"); err == nil && idx > 0 {
		name = strings.TrimSpace(s)
		hdr.SetExtension(name)
	}

	if idx == 0 && !hdr.Has("SIMPLE") {
		return nil, newFileError(InvalidStructure, f.path, idx, "primary header does not start with SIMPLE", nil)
	}
	if idx > 0 && !hdr.Has("XTENSION") {
		return nil, newFileError(InvalidStructure, f.path, idx, "extension header has no XTENSION", nil)
	}

	n, err := dataSize(hdr)
	if err != nil {
		return nil, newFileError(InvalidStructure, f.path, idx, "bad structural keywords", err)
	}
	return &HDU{
		Index:     idx,
		Name:      name,
		hdr:       hdr,
		headerOff: off,
		headerLen: pos - off,
		dataOff:   pos,
		dataLen:   n,
	}, nil
}

// groupContinued joins string cards with the CONTINUE images that follow them.
func groupContinued(images []string) []string {
	var out []string
	for _, img := range images {
		if strings.HasPrefix(img, "CONTINUE") && len(out) > 0 {
			prev := out[len(out)-1]
			if rec, err := card.Parse(prev); err == nil && rec.DType == card.DTypeCharacter && strings.HasSuffix(rec.Value.Str(), "&") {
				out[len(out)-1] = prev + img
				continue
			}
		}
		out = append(out, img)
	}
	return out
}

// dataSize computes the data section length from the structural keywords:
// |BITPIX|/8 * GCOUNT * (PCOUNT + NAXIS1*...*NAXISn).
func dataSize(h *header.Header) (int64, error) {
	bitpix, err := h.Int("BITPIX")
	if err != nil {
		return 0, err
	}
	naxis, err := h.Int("NAXIS")
	if err != nil {
		return 0, err
	}
	if naxis == 0 {
		return 0, nil
	}
	prod := int64(1)
	for i := int64(1); i <= naxis; i++ {
		n, err := h.Int(fmt.Sprintf("NAXIS%d", i))
		if err != nil {
			return 0, err
		}
		prod *= n
	}
	pcount, gcount := int64(0), int64(1)
	if h.Has("PCOUNT") {
		if pcount, err = h.Int("PCOUNT"); err != nil {
			return 0, err
		}
	}
	if h.Has("GCOUNT") {
		if gcount, err = h.Int("GCOUNT"); err != nil {
			return 0, err
		}
	}
	if bitpix < 0 {
		bitpix = -bitpix
	}
	return bitpix / 8 * gcount * (pcount + prod), nil
}

func padded(n int64) int64 {
	return (n + BlockSize - 1) / BlockSize * BlockSize
}

// Package header holds the ordered card records of one FITS header and
// synthesizes replacement records from template cards.
package header

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tacogips/psrfits/internal/card"
	"github.com/tacogips/psrfits/internal/debug"
)

// Field is one keyword/value edit.
type Field struct {
	Name  string
	Value card.Value
}

// F builds a Field from a Go value. It panics on unsupported types.
func F(name string, v interface{}) Field {
	return Field{Name: name, Value: card.MustValue(v)}
}

// Header is an ordered set of card records belonging to one extension.
// Valued keywords are unique; commentary cards may repeat.
type Header struct {
	extension string
	records   []card.Record
	index     map[string]int
}

// New returns an empty header for the named extension.
func New(extension string) *Header {
	return &Header{
		extension: extension,
		index:     make(map[string]int),
	}
}

// Parse builds a header from raw card texts. A text may hold a string card
// followed by its CONTINUE images. END and trailing blank cards are dropped.
func Parse(extension string, cards []string) (*Header, error) {
	h := New(extension)
	for _, raw := range cards {
		if strings.TrimSpace(raw) == "END" {
			break
		}
		rec, err := card.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s header: %w", extension, err)
		}
		h.Put(rec)
	}
	for len(h.records) > 0 {
		last := h.records[len(h.records)-1]
		if last.Name != "" || strings.TrimSpace(last.Comment) != "" {
			break
		}
		h.records = h.records[:len(h.records)-1]
	}
	return h, nil
}

// Extension returns the extension name.
func (h *Header) Extension() string { return h.extension }

// SetExtension renames the extension the header belongs to.
func (h *Header) SetExtension(name string) { h.extension = name }

// Len returns the number of records.
func (h *Header) Len() int { return len(h.records) }

// Records returns a copy of the records in order.
func (h *Header) Records() []card.Record {
	out := make([]card.Record, len(h.records))
	copy(out, h.records)
	return out
}

// Keys returns the valued keywords in order.
func (h *Header) Keys() []string {
	keys := make([]string, 0, len(h.index))
	for _, rec := range h.records {
		if !rec.IsCommentary() {
			keys = append(keys, rec.Name)
		}
	}
	return keys
}

// Cards returns the card text of every record in order.
func (h *Header) Cards() []string {
	out := make([]string, len(h.records))
	for i, rec := range h.records {
		out[i] = rec.Raw
	}
	return out
}

// Has reports whether the keyword is present.
func (h *Header) Has(name string) bool {
	_, ok := h.index[strings.ToUpper(name)]
	return ok
}

// Get returns the record for a keyword.
func (h *Header) Get(name string) (card.Record, bool) {
	i, ok := h.index[strings.ToUpper(name)]
	if !ok {
		return card.Record{}, false
	}
	return h.records[i], true
}

// Lookup is Get with a FieldNotFound error.
func (h *Header) Lookup(name string) (card.Record, error) {
	rec, ok := h.Get(name)
	if !ok {
		return card.Record{}, card.NewFieldNotFound(strings.ToUpper(name), h.extension)
	}
	return rec, nil
}

// Int returns the integer value of a keyword.
func (h *Header) Int(name string) (int64, error) {
	rec, err := h.Lookup(name)
	if err != nil {
		return 0, err
	}
	switch rec.Value.Kind() {
	case card.Integer, card.Float:
		return rec.Value.Int(), nil
	case card.String:
		if i, err := strconv.ParseInt(strings.TrimSpace(rec.Value.Str()), 10, 64); err == nil {
			return i, nil
		}
	}
	return 0, &card.CardError{Type: card.InvalidCard, Keyword: rec.Name, Text: rec.Raw, Message: "value is not an integer"}
}

// Float returns the numeric value of a keyword.
func (h *Header) Float(name string) (float64, error) {
	rec, err := h.Lookup(name)
	if err != nil {
		return 0, err
	}
	if !rec.Value.IsNumeric() {
		return 0, &card.CardError{Type: card.InvalidCard, Keyword: rec.Name, Text: rec.Raw, Message: "value is not numeric"}
	}
	return rec.Value.Float(), nil
}

// String returns the character value of a keyword.
func (h *Header) String(name string) (string, error) {
	rec, err := h.Lookup(name)
	if err != nil {
		return "", err
	}
	if rec.Value.Kind() != card.String {
		return "", &card.CardError{Type: card.InvalidCard, Keyword: rec.Name, Text: rec.Raw, Message: "value is not a string"}
	}
	return rec.Value.Str(), nil
}

// Put stores rec, overwriting an existing record with the same keyword in
// place or appending it. Commentary records are always appended.
func (h *Header) Put(rec card.Record) {
	if rec.IsCommentary() {
		h.records = append(h.records, rec)
		return
	}
	if i, ok := h.index[rec.Name]; ok {
		h.records[i] = rec
		return
	}
	h.index[rec.Name] = len(h.records)
	h.records = append(h.records, rec)
}

// Set adds a freshly rendered card for a keyword the header does not have,
// or replaces the value of one it does.
func (h *Header) Set(name string, v card.Value, comment string) error {
	if h.Has(name) {
		_, err := h.Replace(name, v)
		return err
	}
	rec, err := card.Parse(card.Render(name, v, comment))
	if err != nil {
		return err
	}
	h.Put(rec)
	return nil
}

// Replace rewrites the value of an existing keyword through MakeRecord and
// stores the result.
func (h *Header) Replace(name string, v card.Value) (card.Record, error) {
	rec, err := MakeRecord(h, name, v)
	if err != nil {
		return card.Record{}, err
	}
	h.Put(rec)
	return rec, nil
}

// Remove deletes a keyword. It reports whether the keyword was present.
func (h *Header) Remove(name string) bool {
	name = strings.ToUpper(name)
	i, ok := h.index[name]
	if !ok {
		return false
	}
	h.records = append(h.records[:i], h.records[i+1:]...)
	delete(h.index, name)
	for k, j := range h.index {
		if j > i {
			h.index[k] = j - 1
		}
	}
	return true
}

// Clone returns a deep copy.
func (h *Header) Clone() *Header {
	c := &Header{
		extension: h.extension,
		records:   make([]card.Record, len(h.records)),
		index:     make(map[string]int, len(h.index)),
	}
	copy(c.records, h.records)
	for k, v := range h.index {
		c.index[k] = v
	}
	return c
}

// MakeRecord looks up name in tmpl and returns a record whose card text
// carries newValue, formatted against the template card. The returned
// record's original value is newValue, so a later edit of the same record
// anchors on the latest text.
func MakeRecord(tmpl *Header, name string, newValue card.Value) (card.Record, error) {
	rec, err := tmpl.Lookup(name)
	if err != nil {
		return card.Record{}, err
	}

	text, err := card.Format(rec, newValue)
	if err != nil {
		return card.Record{}, fmt.Errorf("%s header: %w", tmpl.extension, err)
	}
	parsed, err := card.Parse(text)
	if err != nil {
		return card.Record{}, fmt.Errorf("%s header: %w", tmpl.extension, err)
	}

	out := card.Record{
		Name:     rec.Name,
		Value:    newValue,
		Original: newValue,
		Comment:  parsed.Comment,
		DType:    rec.DType,
		Raw:      text,
	}
	if out.DType == card.DTypeNone {
		out.DType = parsed.DType
	}
	debug.Debug("[header] %s.%s = %s", tmpl.extension, rec.Name, newValue.Text())
	return out, nil
}

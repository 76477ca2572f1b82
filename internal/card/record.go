// Package card parses, renders and rewrites 80-column FITS header cards.
//
// A Record keeps the exact card text it was read from. Format produces a
// new card for a changed value by substituting inside that text, so that
// alignment, comment placement and number style survive the edit.
package card

import (
	"strconv"
	"strings"
)

// Width is the length of one card image.
const Width = 80

// longStringLimit is the longest string content a single card can quote.
const longStringLimit = 68

// DType is the single-character datatype hint reported for a card value.
type DType byte

const (
	DTypeNone      DType = 0
	DTypeInteger   DType = 'I'
	DTypeFloat     DType = 'F'
	DTypeCharacter DType = 'C'
	DTypeLogical   DType = 'L'
)

// IsNumeric reports whether the hint denotes an integer or float card.
func (d DType) IsNumeric() bool { return d == DTypeInteger || d == DTypeFloat }

func (d DType) String() string {
	if d == DTypeNone {
		return ""
	}
	return string(rune(d))
}

// Record is one header card.
type Record struct {
	// Name is the upper-case keyword.
	Name string
	// Value is the current (draft) value.
	Value Value
	// Original is the value that the text in Raw reflects.
	Original Value
	// Comment is the text after the comment delimiter.
	Comment string
	// DType is the datatype hint.
	DType DType
	// Raw is the exact card text, one or more 80-column images.
	Raw string
}

// IsCommentary reports whether the card carries no value indicator
// (COMMENT, HISTORY, blank keywords).
func (r Record) IsCommentary() bool {
	return len(r.Raw) < 10 || r.Raw[8:10] != "= "
}

// Images splits Raw into its 80-column card images.
func (r Record) Images() []string {
	var out []string
	for i := 0; i < len(r.Raw); i += Width {
		end := i + Width
		if end > len(r.Raw) {
			end = len(r.Raw)
		}
		out = append(out, r.Raw[i:end])
	}
	return out
}

// Parse reads a card image. raw may hold a string card followed by its
// CONTINUE cards, in which case the continued string is reassembled.
// Short input is blank-padded to 80 columns.
func Parse(raw string) (Record, error) {
	if len(raw) < Width {
		raw += strings.Repeat(" ", Width-len(raw))
	}
	if len(raw)%Width != 0 {
		return Record{}, newCardError(InvalidCard, "", raw, "card text is not a whole number of 80-column images")
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < 0x20 || raw[i] > 0x7e {
			return Record{}, newCardError(InvalidCard, "", raw, "card contains non-printable characters")
		}
	}

	first := raw[:Width]
	rec := Record{
		Name: strings.ToUpper(strings.TrimSpace(first[:8])),
		Raw:  raw,
	}
	if rec.IsCommentary() {
		if len(raw) > Width {
			return Record{}, newCardError(InvalidCard, rec.Name, raw, "only string cards may continue")
		}
		rec.Comment = strings.TrimRight(first[8:], " ")
		return rec, nil
	}

	v, comment, dtype, err := parseValueField(rec.Name, first[10:])
	if err != nil {
		return Record{}, err
	}

	if len(raw) > Width {
		if dtype != DTypeCharacter {
			return Record{}, newCardError(InvalidCard, rec.Name, raw, "only string cards may continue")
		}
		s := v.Str()
		for i := Width; i < len(raw); i += Width {
			img := raw[i : i+Width]
			if strings.TrimSpace(img[:8]) != "CONTINUE" {
				return Record{}, newCardError(InvalidCard, rec.Name, img, "expected CONTINUE card")
			}
			if !strings.HasSuffix(s, "&") {
				return Record{}, newCardError(InvalidCard, rec.Name, img, "CONTINUE follows a string without '&'")
			}
			part, c, pdtype, err := parseValueField(rec.Name, img[10:])
			if err != nil {
				return Record{}, err
			}
			if pdtype != DTypeCharacter {
				return Record{}, newCardError(InvalidCard, rec.Name, img, "CONTINUE card does not hold a string")
			}
			s = strings.TrimSuffix(s, "&") + part.Str()
			if c != "" {
				comment = c
			}
		}
		v = StringValue(s)
	}

	rec.Value = v
	rec.Original = v
	rec.Comment = comment
	rec.DType = dtype
	return rec, nil
}

// parseValueField parses the text from column 11 onwards.
func parseValueField(name, field string) (Value, string, DType, error) {
	s := strings.TrimLeft(field, " ")
	if s == "" {
		return Value{}, "", DTypeNone, nil
	}

	if s[0] == '\'' {
		str, rest, ok := parseQuoted(s)
		if !ok {
			return Value{}, "", DTypeNone, newCardError(InvalidCard, name, field, "unterminated string value")
		}
		return StringValue(str), commentOf(rest), DTypeCharacter, nil
	}

	tok, comment := s, ""
	if j := strings.IndexByte(s, '/'); j >= 0 {
		tok, comment = s[:j], commentOf(s[j:])
	}
	tok = strings.TrimSpace(tok)

	switch {
	case tok == "":
		return Value{}, comment, DTypeNone, nil
	case tok == "T":
		return LogicalValue(true), comment, DTypeLogical, nil
	case tok == "F":
		return LogicalValue(false), comment, DTypeLogical, nil
	case isIntegerToken(tok):
		if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return IntValue(i), comment, DTypeInteger, nil
		}
	}

	f, err := strconv.ParseFloat(strings.Replace(strings.ToUpper(tok), "D", "E", 1), 64)
	if err != nil {
		// complex and other exotic values are kept verbatim
		return Value{}.WithText(tok), comment, DTypeNone, nil
	}
	return FloatValue(f), comment, DTypeFloat, nil
}

// parseQuoted reads a quoted string starting at s[0]. Doubled quotes are
// unescaped and trailing blanks dropped. rest is the text after the
// closing quote.
func parseQuoted(s string) (str, rest string, ok bool) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return strings.TrimRight(b.String(), " "), s[i+1:], true
	}
	return "", "", false
}

func commentOf(rest string) string {
	j := strings.IndexByte(rest, '/')
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(rest[j+1:])
}

func isIntegerToken(tok string) bool {
	if tok[0] == '+' || tok[0] == '-' {
		tok = tok[1:]
	}
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return false
		}
	}
	return true
}

// quotedSpan returns the indices of the opening and closing quote of the
// string value in a card image, or ok=false.
func quotedSpan(img string) (open, close int, ok bool) {
	open = -1
	for i := 10; i < len(img); i++ {
		if img[i] == ' ' {
			continue
		}
		if img[i] != '\'' {
			return 0, 0, false
		}
		open = i
		break
	}
	if open < 0 {
		return 0, 0, false
	}
	for i := open + 1; i < len(img); i++ {
		if img[i] != '\'' {
			continue
		}
		if i+1 < len(img) && img[i+1] == '\'' {
			i++
			continue
		}
		return open, i, true
	}
	return 0, 0, false
}

// commentIndex returns the position of the comment delimiter in a card
// image, skipping over a quoted value, or -1.
func commentIndex(img string) int {
	start := 10
	if _, close, ok := quotedSpan(img); ok {
		start = close + 1
	}
	if start >= len(img) {
		return -1
	}
	j := strings.IndexByte(img[start:], '/')
	if j < 0 {
		return -1
	}
	return start + j
}

package card

import (
	"strings"
)

// End is the END card image.
var End = pad("END")

// Render builds a fresh card in fixed format: strings start at column 11
// with the closing quote no earlier than column 20, other values are
// right-justified to column 30. Strings too long for one card are split
// over CONTINUE cards.
func Render(name string, v Value, comment string) string {
	name = strings.ToUpper(name)
	if v.Kind() == String && len(escape(v.Str())) > longStringLimit {
		return renderLong(name, v.Str(), comment)
	}

	var b strings.Builder
	b.WriteString(padRight(name, 8))
	b.WriteString("= ")
	b.WriteString(fieldText(v))
	if comment != "" {
		b.WriteString(" / ")
		b.WriteString(comment)
	}
	return fitCard(b.String())
}

// Commentary builds a COMMENT, HISTORY or blank-keyword card.
func Commentary(name, text string) string {
	return fitCard(padRight(strings.ToUpper(name), 8) + text)
}

// MustParse parses a card built by Render or Commentary.
func MustParse(raw string) Record {
	rec, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return rec
}

// fieldText renders v as it appears from column 11.
func fieldText(v Value) string {
	switch v.Kind() {
	case String:
		return quote(v.Str())
	case Undefined:
		return padLeft(v.Text(), 20)
	default:
		return padLeft(valueText(v), 20)
	}
}

// valueText is the card rendering of a non-string value: FITS exponents
// are upper case.
func valueText(v Value) string {
	if v.Kind() == Float {
		return strings.ToUpper(v.Text())
	}
	return v.Text()
}

func quote(s string) string {
	return "'" + padRight(escape(s), 8) + "'"
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func renderLong(name, s, comment string) string {
	const chunk = longStringLimit - 1

	var parts []string
	esc := escape(s)
	for len(esc) > 0 {
		n := chunk
		if n > len(esc) {
			n = len(esc)
		}
		// never split a doubled quote
		if n < len(esc) && esc[n-1] == '\'' && esc[n] == '\'' {
			n--
		}
		parts = append(parts, esc[:n])
		esc = esc[n:]
	}

	var b strings.Builder
	for i, p := range parts {
		key := name
		if i > 0 {
			key = "CONTINUE"
		}
		text := p
		if i < len(parts)-1 {
			text += "&"
		}
		line := padRight(key, 8)
		if i == 0 {
			line += "= "
		} else {
			line += "  "
		}
		line += "'" + text + "'"
		if i == len(parts)-1 && comment != "" {
			line += " / " + comment
		}
		b.WriteString(fitCard(line))
	}
	return b.String()
}

// fitCard brings a single card image to exactly 80 columns. Excess length
// is taken first from blanks before the comment delimiter (one is kept),
// then from trailing blanks; the comment is cut only as a last resort.
func fitCard(img string) string {
	if len(img) <= Width {
		return pad(img)
	}

	over := len(img) - Width
	if j := commentIndex(img); j > 0 {
		k := j
		for over > 0 && k-2 >= 10 && img[k-1] == ' ' && img[k-2] == ' ' {
			k--
			over--
		}
		img = img[:k] + img[j:]
	}
	for over > 0 && strings.HasSuffix(img, " ") {
		img = img[:len(img)-1]
		over--
	}
	if len(img) > Width {
		img = img[:Width]
	}
	return img
}

func pad(s string) string { return padRight(s, Width) }

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func padLeft(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat(" ", n-len(s)) + s
}

package card

import (
	"strings"

	"github.com/tacogips/psrfits/internal/debug"
)

// maxNumericWidth bounds the text of a substituted number.
const maxNumericWidth = 20

// Format returns the card text for rec with its value replaced by newValue.
//
// The new text is spliced into rec.Raw where the text of rec.Original sits.
// When the literal text is not present the following anchors are tried in
// order: the original text less a trailing zero, the upper-case then
// lower-case exponent form, and finally the whole span between "=" and the
// comment delimiter. TDIMn cards holding axis tuples are matched with all
// blanks removed. The result is always 80 columns (or a multiple of 80 for
// continued strings).
func Format(rec Record, newValue Value) (string, error) {
	if rec.Raw == "" {
		return Render(rec.Name, newValue, rec.Comment), nil
	}
	if rec.IsCommentary() {
		return "", newCardError(InvalidCard, rec.Name, rec.Raw, "commentary cards carry no value")
	}
	if newValue.Equal(rec.Original) {
		return rec.Raw, nil
	}

	if len(rec.Raw) > Width || (newValue.Kind() == String && len(escape(newValue.Str())) > longStringLimit) {
		debug.Debug("[card] %s: continued string re-rendered", rec.Name)
		return Render(rec.Name, newValue, rec.Comment), nil
	}

	switch {
	case isTupleKeyword(rec.Name):
		return formatTuple(rec, newValue)
	case rec.DType == DTypeCharacter:
		return formatString(rec, newValue)
	case rec.DType == DTypeNone && newValue.Kind() == String:
		return replaceCenter(rec, newValue)
	default:
		return formatNumeric(rec, newValue)
	}
}

func isTupleKeyword(name string) bool {
	return strings.HasPrefix(name, "TDIM")
}

func formatString(rec Record, newValue Value) (string, error) {
	img := rec.Raw
	open, close, ok := quotedSpan(img)
	if !ok {
		return replaceCenter(rec, newValue)
	}
	content := img[open+1 : close]
	oldText := escape(rec.Original.Text())
	newText := escape(newValue.Text())

	idx := strings.Index(content, oldText)
	if idx < 0 {
		return replaceCenter(rec, newValue)
	}
	if len(newText) < len(oldText) {
		newText = padRight(newText, len(oldText))
	}
	nc := content[:idx] + newText + content[idx+len(oldText):]
	if len(nc) > len(content) {
		// consume the padding inside the quotes before growing the field
		nc = padRight(strings.TrimRight(nc, " "), len(content))
	}
	return fitCard(img[:open+1] + nc + img[close:]), nil
}

func formatNumeric(rec Record, newValue Value) (string, error) {
	img := rec.Raw
	start, end := valueRegion(img)
	region := img[start:end]
	oldText := rec.Original.Text()
	newText := newValue.Text()
	if newValue.Kind() == String {
		newText = strings.TrimSpace(newText)
	}

	if oldText != "" && tokenIndex(region, oldText) >= 0 {
		return substituteNumeric(img, start, end, oldText, newText), nil
	}

	if strings.HasSuffix(oldText, "0") && len(oldText) > 1 {
		trunc := oldText[:len(oldText)-1]
		if tokenIndex(region, trunc) >= 0 {
			if strings.HasSuffix(trunc, ".") {
				newText = decimalize(newText)
			}
			debug.Debug("[card] %s: matched %q without its trailing zero", rec.Name, oldText)
			return substituteNumeric(img, start, end, trunc, newText), nil
		}
	}

	if hasExponent(rec.Value.Text()) || hasExponent(oldText) {
		upper := strings.ToUpper(newText)
		for _, anchor := range []string{strings.ToUpper(oldText), strings.ToLower(oldText)} {
			if tokenIndex(region, anchor) >= 0 {
				debug.Debug("[card] %s: matched exponent form %q", rec.Name, anchor)
				return substituteNumeric(img, start, end, anchor, upper), nil
			}
		}
	}

	return replaceCenter(rec, newValue)
}

// tokenIndex returns the index of the first occurrence of anchor in region
// that is a whole token: preceded by a blank, "=" or the region start and
// followed by a blank, "/" or the region end. It returns -1 otherwise.
func tokenIndex(region, anchor string) int {
	if anchor == "" {
		return -1
	}
	for from := 0; from <= len(region)-len(anchor); {
		i := strings.Index(region[from:], anchor)
		if i < 0 {
			return -1
		}
		i += from
		j := i + len(anchor)
		before := i == 0 || region[i-1] == ' ' || region[i-1] == '='
		after := j == len(region) || region[j] == ' ' || region[j] == '/'
		if before && after {
			return i
		}
		from = i + 1
	}
	return -1
}

// substituteNumeric replaces the first whole-token old in img[start:end]
// with new, shifting blank padding so the card keeps its width.
func substituteNumeric(img string, start, end int, old, new string) string {
	if len(new) > maxNumericWidth {
		new = new[:maxNumericWidth]
	}
	idx := start + tokenIndex(img[start:end], old)
	n := len(old)
	switch {
	case len(new) < len(old):
		new = padLeft(new, len(old))
	case len(new) > len(old):
		// take the growth from the blanks in front of the old text
		grow := len(new) - len(old)
		if idx-grow >= start && strings.TrimSpace(img[idx-grow:idx]) == "" {
			idx -= grow
			n += grow
		}
	}
	return fitCard(img[:idx] + new + img[idx+n:])
}

// replaceCenter rewrites everything between "= " and the comment
// delimiter with the right-justified new value.
func replaceCenter(rec Record, newValue Value) (string, error) {
	img := rec.Raw
	if len(img) < 10 || img[8:10] != "= " {
		return "", newCardError(CardFormatUnresolvable, rec.Name, img, "no value indicator to anchor the substitution")
	}

	text := valueText(newValue)
	if newValue.Kind() == String {
		text = quote(newValue.Str())
	}

	debug.Warn("[card] %s: value %q not found in card, value field rewritten", rec.Name, rec.Original.Text())
	end := commentIndex(img)
	if end < 0 {
		return fitCard(img[:10] + padLeft(text, Width-10)), nil
	}
	return fitCard(img[:10] + padLeft(text, end-11) + " " + img[end:]), nil
}

// formatTuple rewrites a parenthesized axis list such as "(1,2048,4,4096)".
func formatTuple(rec Record, newValue Value) (string, error) {
	img := rec.Raw
	open, close, ok := quotedSpan(img)
	if !ok {
		return "", newCardError(CardFormatUnresolvable, rec.Name, img, "axis tuple is not quoted")
	}
	content := img[open+1 : close]
	oldText := stripBlanks(rec.Original.Text())
	newText := stripBlanks(newValue.Text())
	if stripBlanks(content) != oldText {
		return "", newCardError(CardFormatUnresolvable, rec.Name, img, "axis tuple in card does not match "+oldText)
	}

	// the tuple is written flush against the opening quote
	nc := padRight(newText, len(content))
	return fitCard(img[:open+1] + nc + img[close:]), nil
}

// valueRegion returns the bounds of the value field of a non-string card.
func valueRegion(img string) (int, int) {
	end := commentIndex(img)
	if end < 0 {
		end = len(img)
	}
	if end < 10 {
		end = 10
	}
	return 10, end
}

func decimalize(s string) string {
	if strings.HasSuffix(s, ".0") {
		return s[:len(s)-1]
	}
	if !strings.ContainsAny(s, ".eE") {
		return s + "."
	}
	return s
}

func hasExponent(s string) bool {
	return strings.ContainsAny(s, "eE")
}

func stripBlanks(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

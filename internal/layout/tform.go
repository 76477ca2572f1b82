package layout

import (
	"strconv"
	"strings"
)

// Column is a binary-table column as declared in a header: TTYPEn, TFORMn
// and the optional TDIMn.
type Column struct {
	Name string
	Form string
	Dim  string
	Unit string
}

// ParseTFORM splits a TFORM value such as "2048E" into its repeat count
// and element type. Variable-length descriptors are not supported.
func ParseTFORM(form string) (int, ElementType, error) {
	s := strings.ToUpper(strings.TrimSpace(form))
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	repeat := 1
	if i > 0 {
		n, err := strconv.Atoi(s[:i])
		if err != nil {
			return 0, 0, &LayoutError{Type: InvalidFormat, Message: "bad repeat count in TFORM " + form, Cause: err}
		}
		repeat = n
	}
	if i >= len(s) {
		return 0, 0, newLayoutError(InvalidFormat, "", "TFORM %q has no type code", form)
	}
	t := ElementType(s[i])
	if !t.Valid() {
		return 0, 0, newLayoutError(InvalidFormat, "", "TFORM %q has unsupported type code %q", form, s[i])
	}
	return repeat, t, nil
}

// ParseTDIM parses a TDIM value such as "(1, 2048, 4, 4096)". Axes are
// returned in the order written, fastest varying first.
func ParseTDIM(dim string) ([]int, error) {
	s := strings.TrimSpace(dim)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, newLayoutError(InvalidFormat, "", "TDIM %q is not a parenthesized list", dim)
	}
	var axes []int
	for _, part := range strings.Split(s[1:len(s)-1], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, newLayoutError(InvalidFormat, "", "TDIM %q has a bad axis %q", dim, part)
		}
		axes = append(axes, n)
	}
	return axes, nil
}

// FormatTDIM renders axes in TDIM notation, e.g. "(1, 2048, 4, 4096)".
func FormatTDIM(axes ...int) string {
	parts := make([]string, len(axes))
	for i, a := range axes {
		parts[i] = strconv.Itoa(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FieldFromColumn converts a column declaration to a row field. A TDIM is
// turned into a row-major shape (last TDIM axis first); without one, a
// repeat count above one becomes a one-dimensional shape.
func FieldFromColumn(c Column) (Field, error) {
	repeat, t, err := ParseTFORM(c.Form)
	if err != nil {
		if le, ok := err.(*LayoutError); ok {
			le.Field = c.Name
		}
		return Field{}, err
	}
	f := Field{Name: strings.ToUpper(strings.TrimSpace(c.Name)), Type: t}

	if strings.TrimSpace(c.Dim) != "" {
		axes, err := ParseTDIM(c.Dim)
		if err != nil {
			return Field{}, &LayoutError{Type: InvalidFormat, Field: f.Name, Message: "bad TDIM", Cause: err}
		}
		n := 1
		for _, a := range axes {
			n *= a
		}
		if n != repeat {
			return Field{}, newLayoutError(InvalidFormat, f.Name, "TDIM %s holds %d elements but TFORM %s declares %d", c.Dim, n, c.Form, repeat)
		}
		for i := len(axes) - 1; i >= 0; i-- {
			f.Shape = append(f.Shape, axes[i])
		}
		return f, nil
	}

	if repeat != 1 {
		f.Shape = []int{repeat}
	}
	return f, nil
}

// FromColumns builds the native row layout of a table from its column
// declarations.
func FromColumns(cols []Column) (RowLayout, error) {
	fields := make([]Field, 0, len(cols))
	for _, c := range cols {
		f, err := FieldFromColumn(c)
		if err != nil {
			return RowLayout{}, err
		}
		fields = append(fields, f)
	}
	return New(fields...), nil
}

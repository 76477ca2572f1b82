// Package layout describes binary-table rows and derives the SUBINT row
// layout and its dependent header values from observation dimensions.
package layout

import (
	"fmt"
	"strings"
)

// ElementType is a FITS binary-table element type, named by its TFORM code.
type ElementType byte

const (
	Logical    ElementType = 'L'
	Bit        ElementType = 'X'
	Byte       ElementType = 'B'
	Int16      ElementType = 'I'
	Int32      ElementType = 'J'
	Int64      ElementType = 'K'
	Char       ElementType = 'A'
	Float32    ElementType = 'E'
	Float64    ElementType = 'D'
	Complex64  ElementType = 'C'
	Complex128 ElementType = 'M'
)

// Size returns the element size in bytes. Bit columns report 0; their
// storage is computed per field.
func (t ElementType) Size() int {
	switch t {
	case Logical, Byte, Char:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64, Complex64:
		return 8
	case Complex128:
		return 16
	}
	return 0
}

// Valid reports whether t is a fixed-size element type.
func (t ElementType) Valid() bool {
	return t == Bit || t.Size() > 0
}

// Code returns the TFORM letter.
func (t ElementType) Code() string { return string(rune(t)) }

func (t ElementType) String() string {
	switch t {
	case Logical:
		return "logical"
	case Bit:
		return "bit"
	case Byte:
		return "uint8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Char:
		return "char"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Complex64:
		return "complex64"
	case Complex128:
		return "complex128"
	}
	return fmt.Sprintf("ElementType(%q)", byte(t))
}

// Field is one column of a row: a name, an element type and an array
// shape. An empty shape is a scalar. Shape is row-major, slowest axis
// first, so it lists the TDIM axes in reverse.
type Field struct {
	Name  string
	Type  ElementType
	Shape []int
}

// Count returns the number of elements in the field.
func (f Field) Count() int {
	n := 1
	for _, d := range f.Shape {
		n *= d
	}
	return n
}

// Bytes returns the storage size of the field in a row.
func (f Field) Bytes() int {
	if f.Type == Bit {
		return (f.Count() + 7) / 8
	}
	return f.Count() * f.Type.Size()
}

// TFORM returns the column format code, e.g. "2048E".
func (f Field) TFORM() string {
	return fmt.Sprintf("%d%s", f.Count(), f.Type.Code())
}

func (f Field) clone() Field {
	f.Shape = append([]int(nil), f.Shape...)
	return f
}

func (f Field) String() string {
	return fmt.Sprintf("%s %s%v", f.Name, f.Type, f.Shape)
}

// RowLayout is an ordered list of fields. It is a value: the With
// methods return modified copies and never change the receiver.
type RowLayout struct {
	fields []Field
}

// New returns a layout of the given fields.
func New(fields ...Field) RowLayout {
	l := RowLayout{fields: make([]Field, len(fields))}
	for i, f := range fields {
		f.Name = strings.ToUpper(f.Name)
		l.fields[i] = f.clone()
	}
	return l
}

// Len returns the number of fields.
func (l RowLayout) Len() int { return len(l.fields) }

// Fields returns a copy of the fields.
func (l RowLayout) Fields() []Field {
	out := make([]Field, len(l.fields))
	for i, f := range l.fields {
		out[i] = f.clone()
	}
	return out
}

// Names returns the field names in order.
func (l RowLayout) Names() []string {
	out := make([]string, len(l.fields))
	for i, f := range l.fields {
		out[i] = f.Name
	}
	return out
}

// Index returns the position of the named field, or -1.
func (l RowLayout) Index(name string) int {
	name = strings.ToUpper(name)
	for i, f := range l.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field.
func (l RowLayout) Field(name string) (Field, bool) {
	i := l.Index(name)
	if i < 0 {
		return Field{}, false
	}
	return l.fields[i].clone(), true
}

// Bytes returns the byte length of one row.
func (l RowLayout) Bytes() int {
	n := 0
	for _, f := range l.fields {
		n += f.Bytes()
	}
	return n
}

// Offset returns the byte offset of the named field within a row.
func (l RowLayout) Offset(name string) (int, error) {
	i := l.Index(name)
	if i < 0 {
		return 0, newLayoutError(UnknownField, name, "field is not in the row layout")
	}
	off := 0
	for _, f := range l.fields[:i] {
		off += f.Bytes()
	}
	return off, nil
}

// With returns a copy of l with the named field's type and shape replaced.
func (l RowLayout) With(name string, t ElementType, shape ...int) (RowLayout, error) {
	i := l.Index(name)
	if i < 0 {
		return RowLayout{}, newLayoutError(UnknownField, name, "field is not in the row layout")
	}
	if !t.Valid() {
		return RowLayout{}, newLayoutError(InvalidFormat, name, "unsupported element type %q", byte(t))
	}
	for _, d := range shape {
		if d < 1 {
			return RowLayout{}, newLayoutError(InvalidDimension, name, "array dimensions must be positive, got %v", shape)
		}
	}
	out := New(l.fields...)
	out.fields[i].Type = t
	out.fields[i].Shape = append([]int(nil), shape...)
	return out, nil
}

// WithShape returns a copy of l with the named field's shape replaced.
func (l RowLayout) WithShape(name string, shape ...int) (RowLayout, error) {
	f, ok := l.Field(name)
	if !ok {
		return RowLayout{}, newLayoutError(UnknownField, name, "field is not in the row layout")
	}
	return l.With(name, f.Type, shape...)
}

// WithType returns a copy of l with the named field's element type replaced.
func (l RowLayout) WithType(name string, t ElementType) (RowLayout, error) {
	f, ok := l.Field(name)
	if !ok {
		return RowLayout{}, newLayoutError(UnknownField, name, "field is not in the row layout")
	}
	return l.With(name, t, f.Shape...)
}

// Equal reports whether two layouts agree on field names, types and
// element counts. Shapes with the same count are interchangeable on disk.
func (l RowLayout) Equal(o RowLayout) bool {
	if len(l.fields) != len(o.fields) {
		return false
	}
	for i := range l.fields {
		a, b := l.fields[i], o.fields[i]
		if a.Name != b.Name || a.Type != b.Type || a.Count() != b.Count() {
			return false
		}
	}
	return true
}

// String lists the fields, one per line.
func (l RowLayout) String() string {
	var b strings.Builder
	for _, f := range l.fields {
		fmt.Fprintf(&b, "%-10s %-10s %v (%d bytes)\n", f.Name, f.Type, f.Shape, f.Bytes())
	}
	return b.String()
}

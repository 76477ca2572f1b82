package app

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tacogips/psrfits/internal/header"
)

// Assignment is one header edit given on the command line as EXT.KEY=VALUE.
type Assignment struct {
	Extension string
	Field     header.Field
}

// ValidateOutputPath checks that an output path names a FITS file.
func ValidateOutputPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return fmt.Errorf("output path %s is a directory", path)
	}
	return nil
}

// ParseAssignment parses EXT.KEY=VALUE. A missing extension means PRIMARY.
func ParseAssignment(s string) (Assignment, error) {
	lhs, rhs, ok := strings.Cut(s, "=")
	if !ok {
		return Assignment{}, fmt.Errorf("invalid header assignment %q (want EXT.KEY=VALUE)", s)
	}
	lhs = strings.TrimSpace(lhs)
	ext, key := "PRIMARY", lhs
	if i := strings.LastIndex(lhs, "."); i >= 0 {
		ext, key = lhs[:i], lhs[i+1:]
	}
	ext = strings.ToUpper(strings.TrimSpace(ext))
	key = strings.ToUpper(strings.TrimSpace(key))
	if ext == "" || key == "" {
		return Assignment{}, fmt.Errorf("invalid header assignment %q (want EXT.KEY=VALUE)", s)
	}
	if len(key) > 8 {
		return Assignment{}, fmt.Errorf("keyword %s is longer than 8 characters", key)
	}
	return Assignment{Extension: ext, Field: header.F(key, ParseValue(rhs))}, nil
}

// ParseValue converts command-line text to the card value it most likely
// means: integer, float, T/F logical, else a string. Quotes force a string.
func ParseValue(s string) interface{} {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "T":
		return true
	case "F":
		return false
	}
	return s
}

// GroupAssignments groups edits by extension, keeping their order.
func GroupAssignments(as []Assignment) (order []string, byExt map[string][]header.Field) {
	byExt = make(map[string][]header.Field)
	for _, a := range as {
		if _, seen := byExt[a.Extension]; !seen {
			order = append(order, a.Extension)
		}
		byExt[a.Extension] = append(byExt[a.Extension], a.Field)
	}
	return order, byExt
}

// ParseMapping parses DEST=SRC extension pairs for appends.
func ParseMapping(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		dst, src, ok := strings.Cut(p, "=")
		dst, src = strings.TrimSpace(dst), strings.TrimSpace(src)
		if !ok || dst == "" || src == "" {
			return nil, fmt.Errorf("invalid extension mapping %q (want DEST=SRC)", p)
		}
		m[strings.ToUpper(dst)] = strings.ToUpper(src)
	}
	return m, nil
}

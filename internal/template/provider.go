package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/fitsfile"
	"github.com/tacogips/psrfits/internal/layout"
)

// BuiltinPrefix marks a reference to a generated standard template, as in
// "builtin:SEARCH".
const BuiltinPrefix = "builtin:"

// Ref is a resolved template reference.
type Ref struct {
	// Provider is "builtin" or "local".
	Provider string
	// Mode is the observation mode of a built-in template.
	Mode layout.Mode
	// Path is the template file path (local templates only).
	Path string
}

func (r Ref) String() string {
	if r.Provider == "builtin" {
		return BuiltinPrefix + string(r.Mode)
	}
	return r.Path
}

// Provider abstracts where template files come from.
type Provider interface {
	// Resolve converts a reference string to a Ref.
	Resolve(ref string) (Ref, error)

	// Validate checks that the referenced template is usable.
	Validate(ctx context.Context, ref Ref) error

	// Fetch returns the path of a FITS file holding the template.
	Fetch(ctx context.Context, ref Ref) (string, error)

	// Name returns the provider name.
	Name() string
}

// Config configures provider construction.
type Config struct {
	// BaseDir is the base directory for resolving relative local paths.
	BaseDir string
	// CacheDir is where built-in templates are generated.
	CacheDir string
}

// IsBuiltin reports whether ref names a built-in template.
func IsBuiltin(ref string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ref)), BuiltinPrefix)
}

// NewProvider returns the provider that serves ref.
func NewProvider(ref string, cfg Config) (Provider, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, NewInvalidRefError("", ref, fmt.Errorf("template reference cannot be empty"))
	}
	if IsBuiltin(ref) {
		return &BuiltinProvider{Dir: cfg.CacheDir}, nil
	}
	return &LocalProvider{BaseDir: cfg.BaseDir}, nil
}

// Resolve turns a reference into the path of a template file, generating
// built-in templates as needed.
func Resolve(ctx context.Context, ref string, cfg Config) (string, error) {
	p, err := NewProvider(ref, cfg)
	if err != nil {
		return "", err
	}
	r, err := p.Resolve(ref)
	if err != nil {
		return "", err
	}
	path, err := p.Fetch(ctx, r)
	if err != nil {
		return "", err
	}
	debug.Debug("[template] %s -> %s", ref, path)
	return path, nil
}

// BuiltinProvider generates the standard templates.
type BuiltinProvider struct {
	// Dir receives generated files. Empty means a directory under os.TempDir.
	Dir string
}

// Name returns the provider name.
func (p *BuiltinProvider) Name() string { return "builtin" }

// Resolve parses "builtin:<MODE>".
func (p *BuiltinProvider) Resolve(ref string) (Ref, error) {
	s := strings.TrimSpace(ref)
	if !IsBuiltin(s) {
		return Ref{}, NewInvalidRefError(p.Name(), ref, fmt.Errorf("reference must start with %q", BuiltinPrefix))
	}
	mode, err := layout.ParseMode(s[len(BuiltinPrefix):])
	if err != nil {
		return Ref{}, NewInvalidRefError(p.Name(), ref, err)
	}
	return Ref{Provider: p.Name(), Mode: mode}, nil
}

// Validate checks the mode of a built-in reference.
func (p *BuiltinProvider) Validate(ctx context.Context, ref Ref) error {
	if ref.Provider != p.Name() {
		return NewInvalidRefError(p.Name(), ref.String(),
			fmt.Errorf("invalid provider: expected '%s', got '%s'", p.Name(), ref.Provider))
	}
	if _, err := layout.ParseMode(string(ref.Mode)); err != nil {
		return NewInvalidRefError(p.Name(), ref.String(), err)
	}
	return nil
}

// Fetch writes the built-in template for ref.Mode unless it already exists.
func (p *BuiltinProvider) Fetch(ctx context.Context, ref Ref) (string, error) {
	if err := p.Validate(ctx, ref); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := p.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "psrfits-templates")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", NewTemplateError(TemplateGenerateFailed, p.Name(), ref.String(), "cannot create template directory", err)
	}

	path := filepath.Join(dir, FileName(ref.Mode))
	if _, err := os.Stat(path); err == nil {
		debug.Debug("[template] using cached %s", path)
		return path, nil
	}
	if err := Write(path, ref.Mode); err != nil {
		return "", NewTemplateError(TemplateGenerateFailed, p.Name(), ref.String(), "cannot write template", err)
	}
	return path, nil
}

// FileName returns the file name of the built-in template of a mode.
func FileName(mode layout.Mode) string {
	return "psrfits_template_" + strings.ToLower(string(mode)) + ".fits"
}

// LocalProvider serves template files from the filesystem.
type LocalProvider struct {
	// BaseDir is the base directory for resolving relative paths.
	// If empty, uses current working directory.
	BaseDir string
}

// Name returns the provider name.
func (p *LocalProvider) Name() string { return "local" }

// Resolve converts a path or file:// URL to a Ref with an absolute path.
func (p *LocalProvider) Resolve(ref string) (Ref, error) {
	debug.Debug("[template] resolving local path: %s", ref)
	path := strings.TrimSpace(ref)
	if strings.HasPrefix(path, "file://") {
		path = strings.TrimPrefix(path, "file://")
	}
	if path == "" {
		return Ref{}, NewInvalidRefError(p.Name(), ref, fmt.Errorf("path cannot be empty"))
	}

	abs, err := p.resolvePath(path)
	if err != nil {
		return Ref{}, NewInvalidRefError(p.Name(), ref, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Ref{}, NewNotFoundError(p.Name(), ref)
		}
		return Ref{}, NewTemplateError(TemplateInvalid, p.Name(), ref, "cannot stat template", err)
	}
	if info.IsDir() {
		return Ref{}, NewTemplateError(TemplateInvalid, p.Name(), ref, "template must be a FITS file, not a directory", nil)
	}
	return Ref{Provider: p.Name(), Path: abs}, nil
}

// Validate checks that the file is a PSRFITS file with a SUBINT table.
func (p *LocalProvider) Validate(ctx context.Context, ref Ref) error {
	if ref.Provider != p.Name() {
		return NewInvalidRefError(p.Name(), ref.String(),
			fmt.Errorf("invalid provider: expected '%s', got '%s'", p.Name(), ref.Provider))
	}
	f, err := fitsfile.Open(ref.Path, fitsfile.ModeRead)
	if err != nil {
		return NewTemplateError(TemplateInvalid, p.Name(), ref.Path, "cannot open template", err)
	}
	defer f.Close()

	i, err := f.ExtensionIndex("SUBINT")
	if err != nil {
		return NewTemplateError(TemplateInvalid, p.Name(), ref.Path, "template has no SUBINT table", err)
	}
	if _, err := f.RowLayout(i); err != nil {
		return NewTemplateError(TemplateInvalid, p.Name(), ref.Path, "template SUBINT columns are unreadable", err)
	}
	return nil
}

// Fetch validates the template and returns its path.
func (p *LocalProvider) Fetch(ctx context.Context, ref Ref) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := p.Validate(ctx, ref); err != nil {
		return "", err
	}
	return ref.Path, nil
}

// resolvePath makes a relative path absolute against BaseDir or the
// working directory.
func (p *LocalProvider) resolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	base := p.BaseDir
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		base = cwd
	}
	return filepath.Clean(filepath.Join(base, path)), nil
}

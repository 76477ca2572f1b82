package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tacogips/psrfits/internal/config"
)

// executeCommand runs the root command with args in an isolated home
// directory and returns what it printed.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	oldOut, oldErr := stdout, stderr
	stdout, stderr = &out, &errOut
	defer func() { stdout, stderr = oldOut, oldErr }()

	rootCmd.SetArgs(append([]string{"--no-color"}, args...))
	rootCmd.SetOut(&out)
	err := rootCmd.Execute()
	globalQuiet, globalNoColor = false, false
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	return home
}

func TestParseRows(t *testing.T) {
	tests := []struct {
		start   int
		end     string
		want    int
		wantErr bool
	}{
		{0, "", -1, false},
		{2, "5", 5, false},
		{0, " -2 ", -2, false},
		{-1, "", 0, true},
		{0, "3abc", 0, true},
	}
	for _, tt := range tests {
		s, e, err := parseRows(tt.start, tt.end)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseRows(%d, %q) succeeded", tt.start, tt.end)
			}
			continue
		}
		if err != nil || s != tt.start || e == nil || *e != tt.want {
			t.Errorf("parseRows(%d, %q) = %d, %v, %v", tt.start, tt.end, s, e, err)
		}
	}
}

func TestTemplateRef(t *testing.T) {
	tc := config.TemplatesConfig{Search: "builtin:SEARCH", Fold: "fold.fits", Cal: "builtin:CAL"}
	if got := templateRef("mine.fits", "PSR", tc); got != "mine.fits" {
		t.Errorf("flag not preferred: %s", got)
	}
	if got := templateRef("", "PSR", tc); got != "fold.fits" {
		t.Errorf("PSR template = %s", got)
	}
	if got := templateRef(" ", "", tc); got != "builtin:SEARCH" {
		t.Errorf("default template = %s", got)
	}
}

func TestDimFlags(t *testing.T) {
	var f dimFlags
	cmd := &cobra.Command{Use: "x"}
	f.register(cmd)
	if err := cmd.Flags().Parse([]string{"--nchan", "64", "--mode", "PSR", "--nbin", "256"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig().Dimensions
	got := f.resolve(cmd, cfg)
	if got.NChan != 64 || got.NBin != 256 || got.ObsMode != "PSR" {
		t.Errorf("flags not applied: %+v", got)
	}
	if got.NPol != cfg.NPol || got.NSubint != cfg.NSubint {
		t.Errorf("config defaults lost: %+v", got)
	}

	fold := foldDefaults(cmd, got)
	if fold.NSblk != 1 {
		t.Errorf("fold NSblk = %d", fold.NSblk)
	}
	if err := config.ValidateDimensions(fold); err != nil {
		t.Errorf("fold dimensions invalid: %v", err)
	}

	got.ObsMode = "SEARCH"
	if s := foldDefaults(cmd, got); s.NSblk != cfg.NSblk {
		t.Errorf("SEARCH NSblk changed to %d", s.NSblk)
	}
}

func TestValidators(t *testing.T) {
	v := intValidator(1)
	for in, wantErr := range map[string]bool{"4": false, " 12 ": false, "0": true, "x": true, "": true} {
		if err := v(in); (err != nil) != wantErr {
			t.Errorf("intValidator(1)(%q) error = %v", in, err)
		}
	}
	if err := v(3); err == nil {
		t.Error("non-string accepted")
	}

	a := assignmentValidator("PRIMARY.OBSERVER")
	if err := a(""); err != nil {
		t.Errorf("empty answer rejected: %v", err)
	}
	if err := a("Jocelyn"); err != nil {
		t.Errorf("valid answer rejected: %v", err)
	}
	if err := assignmentValidator("PRIMARY.TOOLONGKEY")("1"); err == nil {
		t.Error("invalid keyword accepted")
	}
}

func TestTemplateCommands(t *testing.T) {
	home := isolate(t)

	out, err := executeCommand(t, "template", "list")
	if err != nil {
		t.Fatalf("template list: %v", err)
	}
	for _, want := range []string{"builtin:SEARCH", "builtin:PSR", "builtin:CAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("template list output lacks %s:\n%s", want, out)
		}
	}

	path := filepath.Join(home, "search.fits")
	if _, err := executeCommand(t, "template", "write", "search", "-o", path); err != nil {
		t.Fatalf("template write: %v", err)
	}
	if _, err := executeCommand(t, "template", "write", "SEARCH", "-o", path); err == nil {
		t.Error("template write replaced a file without --force")
	}

	out, err = executeCommand(t, "template", "resolve", "builtin:CAL")
	if err != nil {
		t.Fatalf("template resolve: %v", err)
	}
	if _, err := os.Stat(strings.TrimSpace(out)); err != nil {
		t.Errorf("resolved template missing: %v", err)
	}
}

func TestCreateInspectBandpass(t *testing.T) {
	home := isolate(t)
	out := filepath.Join(home, "obs.fits")

	stdoutText, err := executeCommand(t, "create", "-o", out,
		"--nchan", "8", "--npol", "1", "--nsblk", "16", "--nsubint", "2",
		"--set", "SRC_NAME=B1937+21", "--set", "SUBINT.NCHNOFFS=0")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(stdoutText, "Wrote SEARCH") {
		t.Errorf("create output:\n%s", stdoutText)
	}

	if _, err := executeCommand(t, "create", "-o", out, "--nchan", "8", "--npol", "1", "--nsblk", "16", "--nsubint", "2", "--overwrite", "--mode", "SEARCH"); err != nil {
		t.Fatalf("create --overwrite: %v", err)
	}

	text, err := executeCommand(t, "inspect", out, "--check")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"SUBINT", "DAT_FREQ", "(1, 8, 1, 16)", "OBS_MODE=SEARCH"} {
		if !strings.Contains(text, want) {
			t.Errorf("inspect output lacks %q:\n%s", want, text)
		}
	}

	js, err := executeCommand(t, "inspect", out, "--json", "--ext", "SUBINT", "--cards")
	if err != nil {
		t.Fatalf("inspect --json: %v", err)
	}
	var parsed struct {
		Extensions []struct {
			Name  string   `json:"name"`
			Cards []string `json:"cards"`
		} `json:"extensions"`
	}
	if err := json.Unmarshal([]byte(js), &parsed); err != nil {
		t.Fatalf("inspect JSON: %v\n%s", err, js)
	}
	if len(parsed.Extensions) != 1 || parsed.Extensions[0].Name != "SUBINT" || len(parsed.Extensions[0].Cards) == 0 {
		t.Errorf("inspect JSON = %+v", parsed)
	}

	bp, err := executeCommand(t, "bandpass", out, "--json", "--downsample", "4")
	if err != nil {
		t.Fatalf("bandpass: %v", err)
	}
	var b struct {
		Spectra  int `json:"spectra"`
		Channels []struct {
			Mean float64 `json:"mean"`
		} `json:"channels"`
	}
	if err := json.Unmarshal([]byte(bp), &b); err != nil {
		t.Fatalf("bandpass JSON: %v\n%s", err, bp)
	}
	if b.Spectra != 4*2 || len(b.Channels) != 8 {
		t.Errorf("bandpass = %+v", b)
	}

	if _, err := executeCommand(t, "bandpass", out, "--freq-downsample", "3"); err == nil {
		t.Error("uneven frequency downsampling accepted")
	}
	if _, err := executeCommand(t, "create", "-o", filepath.Join(home, "bad.fits"), "--set", "NOEQUALS"); err == nil {
		t.Error("malformed --set accepted")
	}
}

func TestAppendCommand(t *testing.T) {
	home := isolate(t)
	a := filepath.Join(home, "a.fits")
	b := filepath.Join(home, "b.fits")
	for _, p := range []string{a, b} {
		if _, err := executeCommand(t, "create", "-o", p, "--nchan", "4", "--npol", "1", "--nsblk", "8", "--nsubint", "2"); err != nil {
			t.Fatalf("create %s: %v", p, err)
		}
	}

	all := filepath.Join(home, "all.fits")
	text, err := executeCommand(t, "append", "-o", all, a, b, "--map", "SUBINT=SUBINT")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !strings.Contains(text, "SUBINT") || !strings.Contains(text, "4 rows") {
		t.Errorf("append output:\n%s", text)
	}
	if _, err := executeCommand(t, "append", "-o", all, a, "--map", "SUBINT"); err == nil {
		t.Error("malformed --map accepted")
	}
}

func TestConfigCommands(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "cfg", "config.json")

	if _, err := executeCommand(t, "--config", path, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := executeCommand(t, "--config", path, "config", "init"); err == nil {
		t.Error("config init replaced a file without --force")
	}

	cfg := config.DefaultConfig()
	cfg.Dimensions.NChan = 96
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	out, err := executeCommand(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, `"nchan": 96`) {
		t.Errorf("config show output:\n%s", out)
	}

	if _, err := executeCommand(t, "--config", filepath.Join(home, "missing.json"), "config", "show"); err == nil {
		t.Error("missing explicit config accepted")
	}
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := executeCommand(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info map[string]interface{}
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("version JSON: %v\n%s", err, out)
	}
	if info["version"] == "" || info["go_version"] == nil {
		t.Errorf("version info = %v", info)
	}
}

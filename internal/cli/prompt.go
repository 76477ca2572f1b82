package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/tacogips/psrfits/internal/app"
	"github.com/tacogips/psrfits/internal/config"
)

// confirmOverwrite asks whether an existing output file may be replaced.
func confirmOverwrite(path string) (bool, error) {
	var ok bool
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%s already exists. Overwrite it?", path),
		Default: false,
		Help:    "Use --overwrite to skip this question.",
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// promptForDims asks for every SUBINT dimension, offering d as defaults.
func promptForDims(d config.DimensionsConfig) (config.DimensionsConfig, error) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Please provide the SUBINT dimensions:")
	fmt.Fprintln(stdout)

	fields := []struct {
		name string
		help string
		min  int
		dst  *int
	}{
		{"NBIN", "Pulse phase bins per profile; 1 for SEARCH data", 1, &d.NBin},
		{"NCHAN", "Frequency channels", 1, &d.NChan},
		{"NPOL", "Polarisations", 1, &d.NPol},
		{"NSBLK", "Samples per row; 1 for PSR and CAL data", 1, &d.NSblk},
		{"NSUBINT", "Rows in the SUBINT table", 1, &d.NSubint},
		{"Sample bytes", "SEARCH sample width (1, 2 or 4); 0 picks the mode default", 0, &d.SampleBytes},
	}
	for _, f := range fields {
		v, err := promptInt(f.name, f.help, *f.dst, f.min)
		if err != nil {
			return d, fmt.Errorf("failed to prompt for %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return d, nil
}

// promptForFields asks for the values of header keywords given as
// EXT.KEY. An empty answer leaves the template value in place.
func promptForFields(keys []string) ([]app.Assignment, error) {
	var out []app.Assignment
	for _, key := range keys {
		var answer string
		prompt := &survey.Input{
			Message: key,
			Help:    "Leave empty to keep the template value. Quote a value to force a string.",
		}
		if err := survey.AskOne(prompt, &answer, survey.WithValidator(assignmentValidator(key))); err != nil {
			return nil, fmt.Errorf("failed to prompt for %s: %w", key, err)
		}
		if strings.TrimSpace(answer) == "" {
			continue
		}
		a, err := app.ParseAssignment(key + "=" + answer)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// promptInt prompts for an integer of at least min.
func promptInt(name, help string, def, min int) (int, error) {
	var result string
	prompt := &survey.Input{
		Message: fmt.Sprintf("%s [>=%d]", name, min),
		Default: strconv.Itoa(def),
		Help:    help,
	}
	if err := survey.AskOne(prompt, &result, survey.WithValidator(intValidator(min))); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(result))
}

// intValidator accepts integers of at least min.
func intValidator(min int) survey.Validator {
	return func(val interface{}) error {
		str, ok := val.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
		num, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return fmt.Errorf("must be an integer")
		}
		if num < min {
			return fmt.Errorf("must be >= %d", min)
		}
		return nil
	}
}

// assignmentValidator accepts answers that form a valid header edit for
// key, and empty answers.
func assignmentValidator(key string) survey.Validator {
	return func(val interface{}) error {
		str, ok := val.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
		if strings.TrimSpace(str) == "" {
			return nil
		}
		_, err := app.ParseAssignment(key + "=" + str)
		return err
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tacogips/psrfits/internal/app"
	"github.com/tacogips/psrfits/internal/config"
	"github.com/tacogips/psrfits/internal/template"
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create -o OUTPUT",
	Short: "Write a new PSRFITS file from a template",
	Long: `Write a new PSRFITS file whose headers and tables follow a template.

The SUBINT table is resized to the requested dimensions: NBIN, NCHAN, NPOL,
NSBLK, NBITS, NAXIS1, the TFORM and TDIM declarations of the per-channel
columns and OBSNCHAN are rewritten, every other header card is kept as in
the template. Rows are blank, with unit weights and scales.

Dimensions and the template default to the configuration file.

Examples:
  psrfits create -o obs.fits
  psrfits create -o obs.fits --nchan 512 --nsblk 2048 --nsubint 10
  psrfits create -o fold.fits --template builtin:PSR --nbin 1024 --nchan 64
  psrfits create -o obs.fits --template ./guppi.fits --set SRC_NAME=B1937+21
  psrfits create -o obs.fits --ask PRIMARY.OBSERVER --interactive`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

// Create command flags
var (
	createOutput      string
	createTemplate    string
	createOverwrite   bool
	createSet         []string
	createAsk         []string
	createInteractive bool
	createJSON        bool
	createDims        dimFlags
)

func init() {
	createCmd.Flags().StringVarP(&createOutput, FlagOutput, "o", "", DescOutput)
	createCmd.Flags().StringVarP(&createTemplate, FlagTemplate, "t", "", DescTemplate)
	createCmd.Flags().BoolVar(&createOverwrite, FlagOverwrite, false, DescOverwrite)
	createCmd.Flags().StringArrayVar(&createSet, FlagSet, nil, DescSet)
	createCmd.Flags().StringArrayVar(&createAsk, FlagAsk, nil, DescAsk)
	createCmd.Flags().BoolVarP(&createInteractive, FlagInteractive, "i", false, DescInteractive)
	createCmd.Flags().BoolVar(&createJSON, FlagJSON, false, DescJSON)
	createDims.register(createCmd)
	_ = createCmd.MarkFlagRequired(FlagOutput)
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg := globalCfg
	dims := createDims.resolve(cmd, cfg.Dimensions)

	ref := templateRef(createTemplate, dims.ObsMode, cfg.Templates)
	if dims.ObsMode == "" && template.IsBuiltin(ref) {
		dims.ObsMode = strings.TrimSpace(ref)[len(template.BuiltinPrefix):]
	}
	dims = foldDefaults(cmd, dims)

	var set []app.Assignment
	for _, s := range createSet {
		a, err := app.ParseAssignment(s)
		if err != nil {
			return err
		}
		set = append(set, a)
	}
	for _, key := range createAsk {
		if _, err := app.ParseAssignment(key + "=0"); err != nil {
			return fmt.Errorf("--%s %s: %w", FlagAsk, key, err)
		}
	}

	if createInteractive {
		d, err := promptForDims(dims)
		if err != nil {
			return err
		}
		dims = d
	}
	if len(createAsk) > 0 {
		asked, err := promptForFields(createAsk)
		if err != nil {
			return err
		}
		set = append(set, asked...)
	}
	if err := config.ValidateDimensions(dims); err != nil {
		return err
	}

	overwrite, err := resolveOverwrite(createOutput, createOverwrite || cfg.Output.Overwrite)
	if err != nil {
		return err
	}

	if !createJSON {
		printProgress(fmt.Sprintf("Writing %s from %s", createOutput, ref))
		printVerbose(cfg.Output.Verbose, dims.Dims().String())
	}

	res, err := app.Create(context.Background(), app.CreateOptions{
		Template:  ref,
		Output:    createOutput,
		ObsMode:   dims.ObsMode,
		Dims:      dims.Dims(),
		Overwrite: overwrite,
		Set:       set,
		Templates: template.Config{CacheDir: cfg.Templates.CacheDir},
	})
	if err != nil {
		return err
	}

	if createJSON {
		return printJSON(res)
	}
	printSuccess(fmt.Sprintf("Wrote %s %s file %s", res.Mode, res.Derivation.Dims, res.Output))
	printInfo(fmt.Sprintf("  SUBINT row: %s (NAXIS1=%d, NBITS=%d)", formatBytes(int64(res.Derivation.NAXIS1)), res.Derivation.NAXIS1, res.Derivation.NBits))
	for _, h := range res.HDUs {
		printVerbose(cfg.Output.Verbose, fmt.Sprintf("HDU %d %s: %d cards, %d rows", h.Index, h.Name, h.Cards, h.Rows))
	}
	return nil
}

// resolveOverwrite decides whether an existing output may be replaced,
// asking the user when the flag was not given.
func resolveOverwrite(path string, overwrite bool) (bool, error) {
	if overwrite {
		return true, nil
	}
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	ok, err := confirmOverwrite(path)
	if err != nil {
		return false, fmt.Errorf("%s already exists (use --%s): %w", path, FlagOverwrite, err)
	}
	if !ok {
		return false, fmt.Errorf("%s already exists; not overwritten", path)
	}
	return true, nil
}

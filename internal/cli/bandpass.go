package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tacogips/psrfits/internal/app"
	"github.com/tacogips/psrfits/internal/reader"
)

// bandpassCmd represents the bandpass command
var bandpassCmd = &cobra.Command{
	Use:   "bandpass FILE",
	Short: "Summarize the bandpass of a SEARCH-mode file",
	Long: `Read the search-mode samples of FILE and print per-channel statistics of
one polarisation: mean, standard deviation, median, minimum and maximum over
all spectra.

Samples are scaled by DAT_SCL and offset by DAT_OFFS unless --raw is given.
--downsample averages samples in time before the statistics are taken and
--freq-downsample averages adjacent channels; it must divide NCHAN.

Examples:
  psrfits bandpass obs.fits
  psrfits bandpass obs.fits --pol 1 --start 10 --end 20
  psrfits bandpass obs.fits --freq-downsample 16 --plot bandpass.png`,
	Args: cobra.ExactArgs(1),
	RunE: runBandpass,
}

// Bandpass command flags
var (
	bandpassPol        int
	bandpassStart      int
	bandpassEnd        string
	bandpassDownsample int
	bandpassFreqDown   int
	bandpassRaw        bool
	bandpassPlot       string
	bandpassJSON       bool
)

func init() {
	bandpassCmd.Flags().IntVar(&bandpassPol, "pol", 0, "Polarisation to summarize")
	bandpassCmd.Flags().IntVar(&bandpassStart, "start", 0, "First SUBINT row")
	bandpassCmd.Flags().StringVar(&bandpassEnd, "end", "", "Last SUBINT row; negative counts from the end (default last row)")
	bandpassCmd.Flags().IntVar(&bandpassDownsample, "downsample", 0, "Time downsampling factor (default from config)")
	bandpassCmd.Flags().IntVar(&bandpassFreqDown, "freq-downsample", 0, "Channel downsampling factor (default from config)")
	bandpassCmd.Flags().BoolVar(&bandpassRaw, "raw", false, "Do not apply DAT_SCL and DAT_OFFS")
	bandpassCmd.Flags().StringVar(&bandpassPlot, "plot", "", "Write a bandpass plot (.png, .svg or .pdf)")
	bandpassCmd.Flags().BoolVar(&bandpassJSON, FlagJSON, false, DescJSON)
}

func runBandpass(cmd *cobra.Command, args []string) error {
	start, end, err := parseRows(bandpassStart, bandpassEnd)
	if err != nil {
		return err
	}
	rc := globalCfg.Read
	opts := reader.Options{
		StartRow:       start,
		EndRow:         end,
		Downsample:     rc.Downsample,
		FreqDownsample: rc.FreqDownsample,
		ApplyScales:    rc.ApplyScales && !bandpassRaw,
	}
	if cmd.Flags().Changed("downsample") {
		opts.Downsample = bandpassDownsample
	}
	if cmd.Flags().Changed("freq-downsample") {
		opts.FreqDownsample = bandpassFreqDown
	}

	res, err := app.Bandpass(context.Background(), app.BandpassOptions{
		Path:     args[0],
		Pol:      bandpassPol,
		Read:     opts,
		PlotPath: bandpassPlot,
	})
	if err != nil {
		return err
	}

	if bandpassJSON {
		return res.Bandpass.WriteJSON(stdout)
	}
	if !globalQuiet {
		if err := res.Bandpass.WriteTable(stdout); err != nil {
			return err
		}
	}
	if res.Plot != "" {
		printSuccess(fmt.Sprintf("Plot written to %s", res.Plot))
	}
	return nil
}

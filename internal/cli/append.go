package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tacogips/psrfits/internal/app"
)

// appendCmd represents the append command
var appendCmd = &cobra.Command{
	Use:   "append -o OUTPUT FIRST [MORE...]",
	Short: "Concatenate the rows of PSRFITS files",
	Long: `Write OUTPUT as a copy of FIRST and append the table rows of every
further file to it, extension by extension. NAXIS2 of each grown table is
updated in place.

Without --map every file must have the same extensions in the same order.
With --map only the mapped extensions are appended; each mapping pairs an
output extension with the extension of the appended files it takes rows
from.

Examples:
  psrfits append -o all.fits part1.fits part2.fits part3.fits
  psrfits append -o all.fits part1.fits part2.fits --map SUBINT=SUBINT`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAppend,
}

// Append command flags
var (
	appendOutput    string
	appendMap       []string
	appendOverwrite bool
	appendJSON      bool
)

func init() {
	appendCmd.Flags().StringVarP(&appendOutput, FlagOutput, "o", "", DescOutput)
	appendCmd.Flags().StringArrayVar(&appendMap, FlagMap, nil, DescMap)
	appendCmd.Flags().BoolVar(&appendOverwrite, FlagOverwrite, false, DescOverwrite)
	appendCmd.Flags().BoolVar(&appendJSON, FlagJSON, false, DescJSON)
	_ = appendCmd.MarkFlagRequired(FlagOutput)
}

func runAppend(cmd *cobra.Command, args []string) error {
	mapping, err := app.ParseMapping(appendMap)
	if err != nil {
		return err
	}
	overwrite, err := resolveOverwrite(appendOutput, appendOverwrite || globalCfg.Output.Overwrite)
	if err != nil {
		return err
	}

	if !appendJSON {
		printProgress(fmt.Sprintf("Appending %d file(s) to %s", len(args)-1, args[0]))
	}
	res, err := app.Append(context.Background(), app.AppendOptions{
		Output:    appendOutput,
		Sources:   args,
		Mapping:   mapping,
		Overwrite: overwrite,
	})
	if err != nil {
		return err
	}

	if appendJSON {
		return printJSON(res)
	}
	printSuccess(fmt.Sprintf("Wrote %s", res.Output))
	for _, h := range res.HDUs[1:] {
		printInfo(fmt.Sprintf("  %-10s %d rows", h.Name, h.Rows))
	}
	return nil
}

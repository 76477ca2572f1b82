package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tacogips/psrfits/internal/app"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Show the extensions and row layouts of a PSRFITS file",
	Long: `List the extensions of a FITS file with their binary-table columns and
check that each table's NAXIS1 equals the sum of its column sizes.

Examples:
  psrfits inspect obs.fits
  psrfits inspect obs.fits --ext SUBINT --cards
  psrfits inspect obs.fits --check --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

// Inspect command flags
var (
	inspectExt   []string
	inspectCards bool
	inspectCheck bool
	inspectJSON  bool
)

func init() {
	inspectCmd.Flags().StringArrayVar(&inspectExt, "ext", nil, "Only show this extension (repeatable)")
	inspectCmd.Flags().BoolVar(&inspectCards, "cards", false, "Print the header cards")
	inspectCmd.Flags().BoolVar(&inspectCheck, "check", false, "Fail when a table is inconsistent")
	inspectCmd.Flags().BoolVar(&inspectJSON, FlagJSON, false, DescJSON)
}

func runInspect(cmd *cobra.Command, args []string) error {
	res, err := app.Inspect(context.Background(), app.InspectOptions{
		Path:       args[0],
		Extensions: inspectExt,
		Cards:      inspectCards,
	})
	if err != nil {
		return err
	}

	if inspectJSON {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printInspect(res)
	}
	if inspectCheck && !res.Consistent() {
		return fmt.Errorf("%s has inconsistent tables", res.Path)
	}
	return nil
}

func printInspect(res *app.InspectResult) {
	printInfo(fmt.Sprintf("%s (OBS_MODE=%s)", res.Path, res.ObsMode))
	if d := res.Dims; d != nil {
		printInfo(fmt.Sprintf("  %s, %d-byte samples", d, d.SampleBytes))
	}
	for _, ext := range res.Extensions {
		printHeader(fmt.Sprintf("%d %s", ext.Index, ext.Name))
		if len(ext.Columns) > 0 {
			printInfo(fmt.Sprintf("%d rows of %s (NAXIS1=%d)", ext.Rows, formatBytes(int64(ext.RowSize)), ext.NAXIS1))
			if !globalQuiet {
				tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "COLUMN\tTFORM\tTDIM\tTYPE\tBYTES\tUNIT")
				for _, c := range ext.Columns {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", c.Name, c.TFORM, c.TDIM, c.Type, c.Bytes, c.Unit)
				}
				tw.Flush()
			}
		}
		for _, p := range ext.Problems {
			printWarning(p)
		}
		if len(ext.Cards) > 0 {
			printSeparator()
			printInfo(strings.Join(trimCards(ext.Cards), "\n"))
		}
	}
}

func trimCards(cards []string) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = strings.TrimRight(c, " ")
	}
	return out
}

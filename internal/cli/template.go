package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tacogips/psrfits/internal/app"
	"github.com/tacogips/psrfits/internal/layout"
	"github.com/tacogips/psrfits/internal/template"
)

// templateCmd represents the template command group
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Built-in template commands",
	Long: `Work with the standard built-in templates.

A built-in template is a complete PSRFITS file with PRIMARY, SUBINT,
HISTORY and PSRPARAM extensions (plus POLYCO for PSR and CAL) and a small
SUBINT table that create resizes.`,
}

// templateWriteCmd represents the template write command
var templateWriteCmd = &cobra.Command{
	Use:   "write MODE",
	Short: "Write a built-in template to a file",
	Long: `Write the built-in template of MODE (SEARCH, PSR or CAL) to a file.

Without --output the file is named psrfits_template_<MODE>.fits in the
current directory.

Examples:
  psrfits template write SEARCH
  psrfits template write PSR -o templates/fold.fits`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplateWrite,
}

// templateListCmd represents the template list command
var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplateList,
}

// templateResolveCmd represents the template resolve command
var templateResolveCmd = &cobra.Command{
	Use:   "resolve REF",
	Short: "Print the file a template reference resolves to",
	Long: `Resolve a template reference to a file, generating built-in templates
into the template cache directory.

Examples:
  psrfits template resolve builtin:CAL
  psrfits template resolve ./guppi.fits`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplateResolve,
}

// Template command flags
var (
	templateOutput string
	templateForce  bool
	templateJSON   bool
)

func init() {
	templateWriteCmd.Flags().StringVarP(&templateOutput, FlagOutput, "o", "", DescOutput)
	templateWriteCmd.Flags().BoolVar(&templateForce, FlagForce, false, DescForce)
	templateWriteCmd.Flags().BoolVar(&templateJSON, FlagJSON, false, DescJSON)

	templateCmd.AddCommand(templateWriteCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateResolveCmd)
}

func runTemplateWrite(cmd *cobra.Command, args []string) error {
	res, err := app.WriteTemplate(context.Background(), app.TemplateOptions{
		Mode:   args[0],
		Output: templateOutput,
		Force:  templateForce,
	})
	if err != nil {
		return err
	}
	if templateJSON {
		return printJSON(res)
	}
	printSuccess(fmt.Sprintf("Wrote %s template %s", res.Mode, res.Path))
	return nil
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REFERENCE\tNBIN\tNCHAN\tNPOL\tNSBLK\tNSUBINT\tSAMPLE BYTES")
	for _, mode := range []layout.Mode{layout.Search, layout.Fold, layout.Cal} {
		d := template.Dims(mode)
		fmt.Fprintf(tw, "%s%s\t%d\t%d\t%d\t%d\t%d\t%d\n", template.BuiltinPrefix, mode,
			d.NBin, d.NChan, d.NPol, d.NSblk, d.NSubint, d.SampleBytes)
	}
	return tw.Flush()
}

func runTemplateResolve(cmd *cobra.Command, args []string) error {
	path, err := template.Resolve(context.Background(), args[0], template.Config{CacheDir: globalCfg.Templates.CacheDir})
	if err != nil {
		return app.NewTemplateResolveError(fmt.Sprintf("cannot resolve template %s", args[0]), err)
	}
	fmt.Fprintln(stdout, path)
	return nil
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tacogips/psrfits/internal/config"
	"github.com/tacogips/psrfits/internal/debug"
)

// Global flags
var (
	globalNoColor bool
	globalQuiet   bool
	globalDebug   bool
	globalConfig  string
)

// globalCfg is the configuration loaded before every command runs.
var globalCfg = config.DefaultConfig()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "psrfits",
	Short: "PSRFITS file writer and inspector",
	Long: `psrfits writes new PSRFITS pulsar data files shaped after a template
file, appends subintegrations from other files and summarizes search-mode
data.

A template is any PSRFITS file or one of the standard built-in templates
(builtin:SEARCH, builtin:PSR, builtin:CAL). Output files keep every header
card of the template byte for byte except the keywords that change.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadGlobalConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVar(&globalNoColor, FlagNoColor, false, DescNoColor)
	rootCmd.PersistentFlags().BoolVarP(&globalQuiet, FlagQuiet, "q", false, DescQuiet)
	rootCmd.PersistentFlags().BoolVar(&globalDebug, FlagDebug, false, DescDebug)
	rootCmd.PersistentFlags().StringVar(&globalConfig, FlagConfig, "", DescConfig)

	// Add subcommands
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(bandpassCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadGlobalConfig reads the configuration file and applies its output
// settings. Flags given on the command line win over the file.
func loadGlobalConfig(cmd *cobra.Command, args []string) error {
	setupLogging(cmd, args)

	path := globalConfig
	if path == "" {
		path = config.DefaultConfigPath()
	}
	loader := config.NewLoader()
	var (
		cfg *config.Config
		err error
	)
	if globalConfig != "" {
		cfg, err = loader.Load(path)
	} else {
		cfg, err = loader.LoadOrDefault(path)
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	globalCfg = cfg

	flags := cmd.Flags()
	if !flags.Changed(FlagNoColor) && !cfg.Output.Color {
		globalNoColor = true
		debug.SetNoColor(true)
	}
	if !flags.Changed(FlagQuiet) && cfg.Output.Quiet {
		globalQuiet = true
	}
	debug.SetQuiet(globalQuiet)
	debug.DebugValue("[cli] config", path)
	return nil
}

// setupLogging applies the logging flags without reading the configuration.
func setupLogging(cmd *cobra.Command, args []string) {
	debug.SetDebug(globalDebug)
	debug.SetNoColor(globalNoColor)
}

// printError prints an error message to stderr
func printError(err error) {
	if globalQuiet {
		return
	}
	printErrorMsg(fmt.Sprintf("Error: %v", err))
}

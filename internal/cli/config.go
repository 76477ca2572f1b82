package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tacogips/psrfits/internal/app"
)

// configCmd represents the config command group
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration file commands",
	Long: `Manage the psrfits configuration file.

The configuration holds default SUBINT dimensions, the template used for
each observation mode, reader defaults and output settings. It is read from
~/.config/psrfits/config.json unless --config names another file.`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	// The file may not exist yet, or be broken and about to be replaced.
	PersistentPreRun: setupLogging,
	RunE:             runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// Config command flags
var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, FlagForce, false, DescForce)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := app.InitConfig(context.Background(), app.ConfigInitOptions{
		Path:  globalConfig,
		Force: configForce,
	})
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Configuration written to %s", path))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	return printJSON(globalCfg)
}

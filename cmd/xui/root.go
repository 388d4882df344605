package main

import (
	"fmt"
	"os"

	"github.com/aretw0/xui/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "xui",
	Short: "xui manages reactive session state and live collections",
	Long: `xui reads and writes the durable session slot, publishes collection
events and watches collections as they change.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the xui.yaml configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// newApp builds the App from the global flags.
func newApp(cmd *cobra.Command) (*cli.App, error) {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.NewApp(cli.Options{
		ConfigPath: configPath,
		Debug:      debug,
		Out:        cmd.OutOrStdout(),
	})
}

// withApp runs fn with a fresh App and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(app *cli.App) error) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

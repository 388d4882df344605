package main

import (
	"github.com/aretw0/xui/internal/cli"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <collection>",
	Short: "Print a collection every time it changes",
	Long:  `Subscribes to a collection over the configured transport and prints one EJSON line per snapshot.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return withApp(cmd, func(app *cli.App) error {
			return app.Watch(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

package main

import (
	"github.com/aretw0/xui/internal/cli"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish <collection> <ready|added|changed|removed> [document]",
	Short: "Publish one event to a collection",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.PublishOptions{Kind: args[1]}
		if len(args) == 3 {
			opts.Document = args[2]
		}
		opts.ChangeSet, _ = cmd.Flags().GetString("change-set")
		opts.Previous, _ = cmd.Flags().GetString("previous")

		return withApp(cmd, func(app *cli.App) error {
			return app.PublishEvent(cmd.Context(), args[0], opts)
		})
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().String("change-set", "", "EJSON object of changed fields (changed events)")
	publishCmd.Flags().String("previous", "", "EJSON previous document (changed events)")
}

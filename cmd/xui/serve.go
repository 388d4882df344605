package main

import (
	"github.com/aretw0/xui/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the collection hub",
	Long: `Starts an HTTP hub that keeps collections in memory and streams them
over Server-Sent Events and WebSockets.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bridges, _ := cmd.Flags().GetStringSlice("bridge")
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return withApp(cmd, func(app *cli.App) error {
			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				app.Config.Transport.Listen = listen
			}
			return app.Serve(ctx, bridges)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Address to listen on (overrides transport.listen)")
	serveCmd.Flags().StringSlice("bridge", nil, "Collections to relay from redis pub/sub")
}

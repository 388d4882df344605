package main

import (
	"github.com/aretw0/xui/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and change the durable session",
	Long:  `Show, read and write the session fields declared in the configuration file.`,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the whole session state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			return app.SessionShow(cmd.Context())
		})
	},
}

var sessionFieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the declared fields and their types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			return app.SessionFields(cmd.Context())
		})
	},
}

var sessionGetCmd = &cobra.Command{
	Use:   "get <field>",
	Short: "Print one field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			return app.SessionGet(cmd.Context(), args[0])
		})
	},
}

var sessionSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set one field",
	Long: `Set one field. The value is parsed according to the field type:
strings are taken as is, booleans with strconv.ParseBool, dates as RFC 3339
(or "now") and anything else as EJSON.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		persist, _ := cmd.Flags().GetBool("persist")
		return withApp(cmd, func(app *cli.App) error {
			return app.SessionSet(cmd.Context(), args[0], args[1], persist)
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionFieldsCmd)
	sessionCmd.AddCommand(sessionGetCmd)
	sessionCmd.AddCommand(sessionSetCmd)

	sessionSetCmd.Flags().Bool("persist", false, "Write the whole session to durable storage")
}

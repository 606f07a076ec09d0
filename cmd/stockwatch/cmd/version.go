package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the stockwatch CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "stockwatch version %s\n", version)
		fmt.Fprintln(out, "US Representatives' stock trades on Telegram")
		fmt.Fprintln(out, "https://github.com/rustyeddy/stockwatch")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

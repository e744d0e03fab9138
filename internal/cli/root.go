package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mpmigrate",
	Short: "Re-identify MemberPress CSV exports for import into a new site",
	Long: `mpmigrate takes the members, subscriptions, and transactions CSV
exports from one MemberPress site and rewrites them for import into
another: every record gets a new sequential ID, foreign keys follow,
and product/gateway identifiers are translated through the mapping
tables in the config file. Headers, column order, and row order come
out exactly as they went in.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

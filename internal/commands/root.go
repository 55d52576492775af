package commands

import (
	"github.com/spf13/cobra"

	"github.com/feeledger-dev/feeledger/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "feeledger",
		Short:   "School fee ledger with one-time opening-balance migration",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("repo", ".", "ledger directory")
	rootCmd.PersistentFlags().String("actor", "", "name recorded in the audit log (default $USER)")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newRosterCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newBillCommand())
	rootCmd.AddCommand(newMonthCommand())
	rootCmd.AddCommand(newLogCommand())

	return rootCmd
}

// Package cli holds the importsvc commands.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "importsvc",
		Short: "importsvc - refreshes the cards table from the Scryfall bulk data",
		Long: `importsvc downloads the Scryfall bulk card file and replaces the contents
of the cards table in a single transaction. Use "run" for a one-off import
and "schedule" to keep the service running on a daily cron slot.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.AddCommand(NewRunCmd(), NewScheduleCmd(), NewHistoryCmd())

	return rootCmd
}

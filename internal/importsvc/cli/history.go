package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	mongodb "github.com/avvvet/manavault/internal/db"
	"github.com/avvvet/manavault/internal/importsvc/history"
	"github.com/spf13/cobra"
)

func NewHistoryCmd() *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent import runs from MongoDB",
		RunE: func(c *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cfg.MongoURI == "" {
				return errors.New("MONGODB_URI is not set")
			}

			ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
			defer cancel()

			mdb, err := mongodb.ConnectToDB(ctx, cfg.MongoURI)
			if err != nil {
				return err
			}
			defer mongodb.Disconnect(mdb)

			runs, err := history.Recent(ctx, mdb.Collection(history.Collection), limit)
			if err != nil {
				return err
			}
			return printRuns(c.OutOrStdout(), runs)
		},
	}

	cmd.Flags().Int64VarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func printRuns(out io.Writer, runs []history.Run) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATE\tCARDS\tBATCHES\tDURATION\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Format(time.RFC3339), r.State, r.Inserted, r.Batches,
			time.Duration(r.DurationMs)*time.Millisecond, r.Error)
	}
	return tw.Flush()
}

package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/avvvet/manavault/internal/importsvc/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type ImportOptions struct {
	BulkType  string
	BatchSize int
}

// apply overrides cfg with flags the user actually set.
func (o *ImportOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("bulk-type") {
		cfg.BulkType = o.BulkType
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = o.BatchSize
	}
}

func addImportFlags(cmd *cobra.Command, opts *ImportOptions) {
	cmd.Flags().StringVarP(&opts.BulkType, "bulk-type", "t", "default_cards", "Bulk data type to import")
	cmd.Flags().IntVarP(&opts.BatchSize, "batch-size", "b", 1000, "Rows per INSERT statement")
}

func NewRunCmd() *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one import and exit",
		RunE: func(c *cobra.Command, args []string) error {
			cfg := loadConfig()
			opts.apply(c, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runImport(c.Context(), cfg)
		},
	}

	addImportFlags(cmd, opts)
	return cmd
}

func runImport(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.runOnce(ctx)
	if err != nil {
		return err
	}
	log.Infof("import %s finished: %d cards in %d batches (%s)", report.RunID, report.Inserted, report.Batches, report.Duration())
	return nil
}

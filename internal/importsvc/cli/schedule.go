package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/avvvet/manavault/internal/importsvc/config"
	"github.com/avvvet/manavault/internal/importsvc/importer"
	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type ScheduleOptions struct {
	ImportOptions
	Cron             string
	StartImmediately bool
}

func NewScheduleCmd() *cobra.Command {
	opts := &ScheduleOptions{}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Keep running and import on a cron schedule",
		RunE: func(c *cobra.Command, args []string) error {
			cfg := loadConfig()
			opts.apply(c, &cfg)
			if c.Flags().Changed("cron") {
				cfg.Cron = opts.Cron
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runSchedule(c.Context(), cfg, opts.StartImmediately)
		},
	}

	addImportFlags(cmd, &opts.ImportOptions)
	cmd.Flags().StringVar(&opts.Cron, "cron", "0 3 * * *", "Five-field cron expression for the import slot")
	cmd.Flags().BoolVar(&opts.StartImmediately, "now", false, "Also run an import right after start-up")
	return cmd
}

// newScheduler registers job on the cron slot in singleton mode, so a run
// still in progress when the next slot fires causes that slot to be skipped.
func newScheduler(cron string, startNow bool, job func()) (gocron.Scheduler, gocron.Job, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, nil, err
	}

	opts := []gocron.JobOption{
		gocron.WithName("card-import"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if startNow {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	j, err := s.NewJob(gocron.CronJob(cron, false), gocron.NewTask(job), opts...)
	if err != nil {
		s.Shutdown()
		return nil, nil, err
	}
	return s, j, nil
}

// addHeartbeat publishes liveness on a fixed interval, starting at once.
func addHeartbeat(s gocron.Scheduler, every time.Duration, beat func()) error {
	if every <= 0 {
		return nil
	}
	_, err := s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(beat),
		gocron.WithName("heartbeat"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	return err
}

func runSchedule(parent context.Context, cfg config.Config, startNow bool) error {
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

	metricsServer := s.serveMetrics()

	scheduler, job, err := newScheduler(cfg.Cron, startNow, func() {
		// failures are logged and reported by the importer itself
		if _, err := s.runOnce(ctx); errors.Is(err, importer.ErrImportInProgress) {
			log.Warn("previous import still running, slot skipped")
		}
	})
	if err != nil {
		return err
	}
	if s.bus != nil {
		err := addHeartbeat(scheduler, cfg.HeartbeatInterval, func() {
			next, _ := job.NextRun()
			if err := s.bus.PublishHeartbeat(s.heartbeat(next)); err != nil {
				log.Warnf("heartbeat not published: %v", err)
			}
		})
		if err != nil {
			scheduler.Shutdown()
			return err
		}
	}
	scheduler.Start()

	if next, err := job.NextRun(); err == nil {
		log.Infof("%s service scheduled %q, next run at %s", SERVICE_NAME, cfg.Cron, next.Format(time.RFC3339))
	}

	<-ctx.Done()
	if s.importer.Busy() {
		log.Warnf("%s service stopping during import (%s); the transaction will roll back", SERVICE_NAME, s.importer.State())
	} else {
		log.Infof("%s service stopping", SERVICE_NAME)
	}

	if err := scheduler.Shutdown(); err != nil {
		log.Errorf("scheduler shutdown: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	metricsServer.Shutdown(shutdownCtx)

	log.Infof("%s service gracefully stopped", SERVICE_NAME)
	return nil
}

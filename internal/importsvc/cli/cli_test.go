package cli

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avvvet/manavault/internal/importsvc/config"
	"github.com/avvvet/manavault/internal/importsvc/history"
	"github.com/avvvet/manavault/internal/importsvc/importer"
	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootHasCommands(t *testing.T) {
	root := NewRootCmd()

	names := []string{}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "schedule", "history"}, names)
}

func TestImportFlagsOverrideOnlyWhenSet(t *testing.T) {
	cmd := NewRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--batch-size", "250"}))

	cfg := config.Config{BulkType: "oracle_cards", BatchSize: 1000}
	opts := &ImportOptions{}
	opts.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	opts.BulkType, _ = cmd.Flags().GetString("bulk-type")
	opts.apply(cmd, &cfg)

	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, "oracle_cards", cfg.BulkType, "unset flag must keep the env value")
}

func TestNewSchedulerSingletonCron(t *testing.T) {
	s, job, err := newScheduler("0 3 * * *", false, func() {})
	require.NoError(t, err)
	defer s.Shutdown()

	assert.Equal(t, "card-import", job.Name())
	require.Len(t, s.Jobs(), 1)

	s.Start()
	next, err := job.NextRun()
	require.NoError(t, err)
	assert.Equal(t, 3, next.Hour())
	assert.Zero(t, next.Minute())
}

func TestNewSchedulerRejectsBadCron(t *testing.T) {
	_, _, err := newScheduler("every day", false, func() {})
	require.Error(t, err)
}

func TestPrintRuns(t *testing.T) {
	start := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)
	runs := []history.Run{
		{Report: importer.Report{State: "done", Inserted: 2500, Batches: 3, StartedAt: start}, DurationMs: 61000},
		{Report: importer.Report{State: "failed", StartedAt: start.Add(-24 * time.Hour), Error: "boom"}, DurationMs: 1500},
	}

	var buf bytes.Buffer
	require.NoError(t, printRuns(&buf, runs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "STARTED")
	assert.Contains(t, lines[1], "2026-05-01T03:00:00Z")
	assert.Contains(t, lines[1], "1m1s")
	assert.Contains(t, lines[2], "boom")
}

func TestAddHeartbeatPublishesOnInterval(t *testing.T) {
	s, err := gocron.NewScheduler()
	require.NoError(t, err)
	defer s.Shutdown()

	var beats atomic.Int32
	require.NoError(t, addHeartbeat(s, 20*time.Millisecond, func() { beats.Add(1) }))
	require.Len(t, s.Jobs(), 1)
	assert.Equal(t, "heartbeat", s.Jobs()[0].Name())

	s.Start()
	assert.Eventually(t, func() bool { return beats.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestAddHeartbeatDisabled(t *testing.T) {
	s, err := gocron.NewScheduler()
	require.NoError(t, err)
	defer s.Shutdown()

	require.NoError(t, addHeartbeat(s, 0, func() {}))
	assert.Empty(t, s.Jobs())
}

func TestServiceHeartbeat(t *testing.T) {
	svc := &service{
		id:       "inst-7",
		importer: importer.New(nil, nil, importer.Options{}),
	}
	next := time.Date(2026, 5, 2, 3, 0, 0, 0, time.UTC)

	hb := svc.heartbeat(next)
	assert.Equal(t, "inst-7", hb.ID)
	assert.Equal(t, SERVICE_NAME, hb.Service)
	assert.Equal(t, "idle", hb.State)
	assert.False(t, hb.Importing)
	assert.Equal(t, next, hb.NextRun)
	assert.False(t, hb.Timestamp.IsZero())
}

// Package importer runs the card import: fetch the bulk manifest, download
// the payload, map it to cards and hand it to the writer.
package importer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avvvet/manavault/internal/apisvc/models"
	"github.com/avvvet/manavault/internal/importsvc/scryfall"
	"github.com/avvvet/manavault/internal/importsvc/writer"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrImportInProgress = errors.New("card import already running")

type Source interface {
	FetchBulkManifest(ctx context.Context) ([]scryfall.BulkData, error)
	FetchBulkPayload(ctx context.Context, uri string) ([]scryfall.RawCard, error)
}

type Writer interface {
	ReplaceAll(ctx context.Context, records []models.Card, batchSize int) error
}

// Reporter is told about every finished run. Reporter failures are the
// reporter's problem; they never change the run's outcome.
type Reporter interface {
	Report(ctx context.Context, r Report)
}

type Report struct {
	RunID      string    `json:"run_id" bson:"run_id"`
	BulkType   string    `json:"bulk_type" bson:"bulk_type"`
	State      string    `json:"state" bson:"state"`
	Fetched    int       `json:"fetched" bson:"fetched"`
	Inserted   int       `json:"inserted" bson:"inserted"`
	Batches    int       `json:"batches" bson:"batches"`
	StartedAt  time.Time `json:"started_at" bson:"started_at"`
	FinishedAt time.Time `json:"finished_at" bson:"finished_at"`
	Error      string    `json:"error,omitempty" bson:"error,omitempty"`
}

func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r Report) Succeeded() bool {
	return r.State == StateDone.String()
}

type Options struct {
	BulkType  string
	BatchSize int
}

type Importer struct {
	source    Source
	writer    Writer
	opts      Options
	reporters []Reporter

	running sync.Mutex
	state   atomic.Int32
}

func New(source Source, writer Writer, opts Options, reporters ...Reporter) *Importer {
	if opts.BulkType == "" {
		opts.BulkType = scryfall.DefaultBulkType
	}
	return &Importer{
		source:    source,
		writer:    writer,
		opts:      opts,
		reporters: reporters,
	}
}

func (i *Importer) State() State {
	return State(i.state.Load())
}

// Busy reports whether a run is between start and a terminal state.
func (i *Importer) Busy() bool {
	s := i.State()
	return s != StateIdle && !s.Terminal()
}

func (i *Importer) setState(s State) {
	i.state.Store(int32(s))
}

// Run performs one full import. Only one run may be active per Importer;
// a concurrent call gets ErrImportInProgress without touching any state.
func (i *Importer) Run(ctx context.Context) (Report, error) {
	if !i.running.TryLock() {
		return Report{}, ErrImportInProgress
	}
	defer i.running.Unlock()

	i.setState(StateIdle)
	report := Report{
		RunID:     uuid.NewString(),
		BulkType:  i.opts.BulkType,
		StartedAt: time.Now(),
	}
	logger := log.WithFields(log.Fields{"run_id": report.RunID, "bulk_type": report.BulkType})

	err := i.run(ctx, logger, &report)

	report.FinishedAt = time.Now()
	if err != nil {
		i.setState(StateFailed)
		report.Error = err.Error()
		logger.Errorf("Error during card update: %v", err)
	} else {
		i.setState(StateDone)
		logger.Infof("Database updated successfully! %d cards in %s", report.Inserted, report.Duration())
	}
	report.State = i.State().String()

	for _, r := range i.reporters {
		r.Report(ctx, report)
	}
	return report, err
}

func (i *Importer) run(ctx context.Context, logger *log.Entry, report *Report) error {
	i.setState(StateFetchingManifest)
	logger.Info("Fetching bulk data metadata...")
	manifest, err := i.source.FetchBulkManifest(ctx)
	if err != nil {
		return err
	}

	target, err := scryfall.FindBulkData(manifest, i.opts.BulkType)
	if err != nil {
		return err
	}

	i.setState(StateFetchingPayload)
	logger.Infof("Downloading data from %s...", target.DownloadURI)
	raw, err := i.source.FetchBulkPayload(ctx, target.DownloadURI)
	if err != nil {
		return err
	}
	report.Fetched = len(raw)
	logger.Infof("Data downloaded, %d cards. Starting database update...", len(raw))

	cards := make([]models.Card, len(raw))
	for n, rc := range raw {
		cards[n] = ToCard(rc)
	}

	i.setState(StateWriting)
	if err := i.writer.ReplaceAll(ctx, cards, i.opts.BatchSize); err != nil {
		return err
	}

	report.Inserted = len(cards)
	report.Batches = batchCount(len(cards), i.opts.BatchSize)
	return nil
}

// ToCard copies the catalog fields into a Card. Values pass through as
// decoded; type_line becomes Type.
func ToCard(rc scryfall.RawCard) models.Card {
	return models.Card{
		ID:         rc.ID,
		Name:       rc.Name,
		Type:       rc.TypeLine,
		OracleText: rc.OracleText,
		ManaCost:   rc.ManaCost,
		Power:      rc.Power,
		Toughness:  rc.Toughness,
		Colors:     rc.Colors,
		Rarity:     rc.Rarity,
	}
}

func batchCount(n, size int) int {
	if size <= 0 {
		size = writer.DefaultBatchSize
	}
	return (n + size - 1) / size
}

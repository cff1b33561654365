// Package writer replaces the contents of the cards table in one
// transaction, inserting the new rows in fixed-size batches.
package writer

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/avvvet/manavault/internal/apisvc/models"
	"github.com/avvvet/manavault/internal/apisvc/store"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultBatchSize = 1000

	// Postgres caps a statement at 65535 bind parameters.
	MaxBatchSize = 65535 / 9
)

var ErrBatchTooLarge = errors.New("batch size exceeds bind parameter limit")

// WriteError reports which stage of the replace failed. Batch is the
// zero-based slice index for the insert stage, -1 otherwise.
type WriteError struct {
	Stage string
	Batch int
	Err   error
}

func (e *WriteError) Error() string {
	if e.Stage == "insert" {
		return fmt.Sprintf("write cards: insert batch %d: %v", e.Batch, e.Err)
	}
	return fmt.Sprintf("write cards: %s: %v", e.Stage, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Beginner is satisfied by *pgxpool.Pool.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Progress is called after each batch insert succeeds.
type Progress func(inserted, total int, took time.Duration)

type Writer struct {
	db       Beginner
	progress Progress
}

func New(db Beginner) *Writer {
	return &Writer{db: db}
}

// OnProgress registers a callback run after every inserted batch.
func (w *Writer) OnProgress(p Progress) {
	w.progress = p
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ReplaceAll truncates the cards table and inserts records in slices of
// batchSize inside a single transaction. Nothing is visible to other
// sessions unless every slice succeeds.
func (w *Writer) ReplaceAll(ctx context.Context, records []models.Card, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		return &WriteError{Stage: "validate", Batch: -1, Err: fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, batchSize, MaxBatchSize)}
	}

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return &WriteError{Stage: "begin", Batch: -1, Err: err}
	}
	defer tx.Rollback(ctx)

	log.Info("Clearing existing data...")
	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+store.CardsTable); err != nil {
		return &WriteError{Stage: "truncate", Batch: -1, Err: err}
	}

	log.Infof("Inserting %d cards in chunks of %d...", len(records), batchSize)
	inserted := 0
	for i, batch := range Batches(records, batchSize) {
		start := time.Now()

		query, args, err := insertStatement(batch)
		if err != nil {
			return &WriteError{Stage: "insert", Batch: i, Err: err}
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return &WriteError{Stage: "insert", Batch: i, Err: err}
		}

		inserted += len(batch)
		log.Infof("Inserted %d of %d cards", inserted, len(records))
		if w.progress != nil {
			w.progress(inserted, len(records), time.Since(start))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &WriteError{Stage: "commit", Batch: -1, Err: err}
	}
	return nil
}

// Batches splits records into consecutive slices of at most size elements.
// The slices share the backing array of records.
func Batches(records []models.Card, size int) [][]models.Card {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]models.Card, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		out = append(out, records[start:end])
	}
	return out
}

func insertStatement(batch []models.Card) (string, []any, error) {
	q := psql.Insert(store.CardsTable).Columns(store.CardColumns...)
	for _, c := range batch {
		q = q.Values(store.CardValues(c)...)
	}
	return q.ToSql()
}

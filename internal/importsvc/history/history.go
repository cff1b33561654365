// Package history keeps a rolling log of import runs in MongoDB.
package history

import (
	"context"
	"time"

	"github.com/avvvet/manavault/internal/importsvc/importer"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	Collection = "import_runs"

	DefaultRetention = 30 * 24 * time.Hour
)

type Run struct {
	importer.Report `bson:",inline"`
	DurationMs      int64     `bson:"duration_ms"`
	InstanceID      string    `bson:"instance_id"`
	ExpiresAt       time.Time `bson:"expires_at"`
}

// Inserter is the subset of *mongo.Collection the recorder needs.
type Inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type Recorder struct {
	coll       Inserter
	instanceID string
	retention  time.Duration
}

func NewRecorder(coll Inserter, instanceID string, retention time.Duration) *Recorder {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Recorder{coll: coll, instanceID: instanceID, retention: retention}
}

func (r *Recorder) Document(rep importer.Report) Run {
	return Run{
		Report:     rep,
		DurationMs: rep.Duration().Milliseconds(),
		InstanceID: r.instanceID,
		ExpiresAt:  rep.FinishedAt.Add(r.retention),
	}
}

// Report implements importer.Reporter.
func (r *Recorder) Report(ctx context.Context, rep importer.Report) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, r.Document(rep)); err != nil {
		log.Errorf("[history.Report] insert run %s: %v", rep.RunID, err)
	}
}

// Recent returns the latest runs, newest first.
func Recent(ctx context.Context, coll *mongo.Collection, limit int64) ([]Run, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(limit)
	cur, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	runs := []Run{}
	if err := cur.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

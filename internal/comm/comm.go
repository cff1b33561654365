package comm

import (
	"encoding/json"
	"time"
)

const (
	SubjectImport    = "cards.import"
	SubjectHeartbeat = "services.heartbeat"
)

// Envelope wraps every message published on the bus.
type Envelope struct {
	Type string          `json:"type"` // e.g. "import_finished"
	Data json.RawMessage `json:"data"`
	From string          `json:"from"` // service instance id
}

type ImportEvent struct {
	RunID      string    `json:"run_id"`
	BulkType   string    `json:"bulk_type"`
	State      string    `json:"state"`
	Fetched    int       `json:"fetched"`
	Inserted   int       `json:"inserted"`
	Batches    int       `json:"batches"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

type ServiceHeartbeat struct {
	ID        string    `json:"id"` // service id
	Service   string    `json:"service"`
	State     string    `json:"state"` // importer state
	Importing bool      `json:"importing"`
	NextRun   time.Time `json:"next_run,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

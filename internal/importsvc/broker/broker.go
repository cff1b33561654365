package broker

import (
	"context"

	"github.com/avvvet/manavault/internal/comm"
	"github.com/avvvet/manavault/internal/importsvc/importer"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subj string, data []byte) error
}

type Broker struct {
	Conn       Publisher
	InstanceID string
}

func NewBroker(conn Publisher, instanceID string) *Broker {
	return &Broker{Conn: conn, InstanceID: instanceID}
}

// Report implements importer.Reporter by publishing the run result on
// comm.SubjectImport.
func (b *Broker) Report(_ context.Context, r importer.Report) {
	if err := b.PublishImportEvent(ToEvent(r)); err != nil {
		log.Errorf("[Broker.Report] run %s: %s", r.RunID, err)
	}
}

func (b *Broker) PublishImportEvent(ev comm.ImportEvent) error {
	msgType := "import-finished"
	if ev.Error != "" {
		msgType = "import-failed"
	}
	return b.publishEnvelope(comm.SubjectImport, msgType, ev)
}

func (b *Broker) PublishHeartbeat(hb comm.ServiceHeartbeat) error {
	return b.publishEnvelope(comm.SubjectHeartbeat, "heartbeat", hb)
}

func (b *Broker) publishEnvelope(topic, msgType string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(&comm.Envelope{
		Type: msgType,
		Data: data,
		From: b.InstanceID,
	})
	if err != nil {
		return err
	}

	return b.Publish(topic, payload)
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

func ToEvent(r importer.Report) comm.ImportEvent {
	return comm.ImportEvent{
		RunID:      r.RunID,
		BulkType:   r.BulkType,
		State:      r.State,
		Fetched:    r.Fetched,
		Inserted:   r.Inserted,
		Batches:    r.Batches,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Error:      r.Error,
	}
}

// Package broker listens for import results so the API can report when the
// card table was last refreshed.
package broker

import (
	"sync"

	"github.com/avvvet/manavault/internal/comm"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn *nats.Conn

	mu          sync.RWMutex
	last        *comm.ImportEvent
	lastSuccess *comm.ImportEvent
	heartbeat   *comm.ServiceHeartbeat
}

func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{Conn: nc}
}

// SubscribeImports consumes comm.SubjectImport and comm.SubjectHeartbeat.
func (b *Broker) SubscribeImports() ([]*nats.Subscription, error) {
	var subs []*nats.Subscription
	for _, topic := range []string{comm.SubjectImport, comm.SubjectHeartbeat} {
		sub, err := b.Conn.Subscribe(topic, func(m *nats.Msg) {
			b.HandleMessage(m.Data)
		})
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			return nil, err
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

func (b *Broker) HandleMessage(data []byte) {
	env := comm.Envelope{}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	switch env.Type {
	case "import-finished", "import-failed":
		ev := comm.ImportEvent{}
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			log.Errorf("Error decoding import event from %s: %s", env.From, err)
			return
		}
		log.WithFields(log.Fields{"run_id": ev.RunID, "state": ev.State}).Info("card import finished")

		b.mu.Lock()
		b.last = &ev
		if ev.Error == "" {
			b.lastSuccess = &ev
		}
		b.mu.Unlock()
	case "heartbeat":
		hb := comm.ServiceHeartbeat{}
		if err := json.Unmarshal(env.Data, &hb); err != nil {
			log.Errorf("Error decoding heartbeat from %s: %s", env.From, err)
			return
		}

		b.mu.Lock()
		b.heartbeat = &hb
		b.mu.Unlock()
	default:
		log.Debugf("ignoring message type %q", env.Type)
	}
}

// LastImport returns the most recent run and the most recent successful
// run seen since start-up. Either may be nil.
func (b *Broker) LastImport() (last, lastSuccess *comm.ImportEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.lastSuccess
}

// ImporterHeartbeat returns the last heartbeat from the import service, or
// nil if none arrived yet.
func (b *Broker) ImporterHeartbeat() *comm.ServiceHeartbeat {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.heartbeat
}

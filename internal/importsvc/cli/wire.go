package cli

import (
	"context"
	"net/http"
	"time"

	configs "github.com/avvvet/manavault/configs"
	"github.com/avvvet/manavault/internal/apisvc/db"
	"github.com/avvvet/manavault/internal/apisvc/store"
	"github.com/avvvet/manavault/internal/comm"
	mongodb "github.com/avvvet/manavault/internal/db"
	"github.com/avvvet/manavault/internal/importsvc/broker"
	"github.com/avvvet/manavault/internal/importsvc/config"
	"github.com/avvvet/manavault/internal/importsvc/history"
	"github.com/avvvet/manavault/internal/importsvc/importer"
	"github.com/avvvet/manavault/internal/importsvc/notify"
	"github.com/avvvet/manavault/internal/importsvc/scryfall"
	"github.com/avvvet/manavault/internal/importsvc/writer"
	"github.com/avvvet/manavault/internal/metrics"
	nats "github.com/avvvet/manavault/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "import"

// service is everything one importsvc process owns.
type service struct {
	cfg       config.Config
	cards     *store.CardStore
	importer  *importer.Importer
	collector *metrics.Collector
	bus       *broker.Broker // nil without NATS
	id        string
	closers   []func()
}

func (s *service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// setup connects Postgres and every optional sink that is configured. Sink
// failures are logged and the sink skipped; only Postgres is required.
func setup(ctx context.Context, cfg config.Config) (*service, error) {
	instanceID := configs.GetInstanceId()
	s := &service{cfg: cfg, collector: metrics.NewCollector(), id: instanceID}

	dbpool, err := db.Connect(cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, db.ClosePool)
	log.Printf("pg connection established successfully")

	if err := db.Migrate(ctx, dbpool); err != nil {
		s.Close()
		return nil, err
	}

	s.cards = store.NewCardStore(dbpool)
	reporters := []importer.Reporter{s.collector}

	if cfg.NatsURL != "" {
		n, err := nats.Connect("manavault-" + SERVICE_NAME + "-" + instanceID)
		if err != nil {
			log.Errorf("Error: unable to connect to NATS server %v", err)
		} else {
			s.closers = append(s.closers, n.Close)
			s.bus = broker.NewBroker(n.Conn, instanceID)
			reporters = append(reporters, s.bus)
			log.Printf("NATS connection established successfully %s", n.Url)
		}
	}

	if cfg.MongoURI != "" {
		mdb, err := mongodb.ConnectToDB(ctx, cfg.MongoURI)
		if err != nil {
			log.Errorf("Error: unable to connect to MongoDB %v", err)
		} else {
			s.closers = append(s.closers, func() { mongodb.Disconnect(mdb) })
			if err := mongodb.CreateTTLIndexForCollection(ctx, mdb, history.Collection); err != nil {
				log.Warnf("unable to create TTL index on %s: %v", history.Collection, err)
			}
			reporters = append(reporters, history.NewRecorder(mdb.Collection(history.Collection), instanceID, cfg.HistoryTTL))
		}
	}

	if cfg.TelegramToken == "" || len(cfg.TelegramChatID) == 0 {
		log.Warn("Telegram token or chat IDs not set, notifications disabled")
	} else if tn, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID); err != nil {
		log.Errorf("Failed to initialize Telegram notifier: %v", err)
	} else {
		reporters = append(reporters, tn)
		log.Infof("Telegram notifier initialized with %d chat IDs", len(cfg.TelegramChatID))
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	source := scryfall.NewClient(httpClient, cfg.ScryfallURL)

	w := writer.New(dbpool)
	w.OnProgress(s.collector.ObserveBatch)

	s.importer = importer.New(source, w, importer.Options{
		BulkType:  cfg.BulkType,
		BatchSize: cfg.BatchSize,
	}, reporters...)

	return s, nil
}

// runOnce bounds a single import by cfg.Timeout and checks the committed
// row count against the report.
func (s *service) runOnce(ctx context.Context) (importer.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	report, err := s.importer.Run(ctx)
	if err != nil {
		return report, err
	}

	n, err := s.cards.Count(ctx)
	if err != nil {
		log.Warnf("unable to verify card count after run %s: %v", report.RunID, err)
	} else if n != int64(report.Inserted) {
		log.Errorf("run %s inserted %d cards but table holds %d", report.RunID, report.Inserted, n)
	}
	return report, nil
}

func (s *service) heartbeat(nextRun time.Time) comm.ServiceHeartbeat {
	return comm.ServiceHeartbeat{
		ID:        s.id,
		Service:   SERVICE_NAME,
		State:     s.importer.State().String(),
		Importing: s.importer.Busy(),
		NextRun:   nextRun,
		Timestamp: time.Now(),
	}
}

func (s *service) serveMetrics() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.collector.Handler())

	server := &http.Server{
		Addr:              ":" + s.cfg.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server: %v", err)
		}
	}()
	log.Infof("%s service metrics at port %s", SERVICE_NAME, s.cfg.MetricsPort)
	return server
}

func loadConfig() config.Config {
	configs.LoadEnv(SERVICE_NAME)
	configs.CreateUniqueInstance(SERVICE_NAME)
	configs.Logging(SERVICE_NAME + "_service")

	return config.Load()
}

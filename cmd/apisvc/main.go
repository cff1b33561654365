package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth"

	config "github.com/avvvet/manavault/configs"
	"github.com/avvvet/manavault/internal/apisvc/broker"
	apiconfig "github.com/avvvet/manavault/internal/apisvc/config"
	"github.com/avvvet/manavault/internal/apisvc/db"
	handlers "github.com/avvvet/manavault/internal/apisvc/handlers"
	"github.com/avvvet/manavault/internal/apisvc/mailer"
	"github.com/avvvet/manavault/internal/apisvc/service"
	"github.com/avvvet/manavault/internal/apisvc/store"
	"github.com/avvvet/manavault/internal/metrics"
	nats "github.com/avvvet/manavault/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "api"

var instanceId string

func init() {
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service")
}

func main() {
	cfg := apiconfig.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// pg connection
	dbpool, err := db.Connect(cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx, dbpool)
	cancelMigrate()
	if err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWTSecret), nil)

	userStore := store.NewUserStore(dbpool)
	userService := service.NewUserService(userStore, tokenAuth, mailer.NewSMTPMailer(cfg.Mail), cfg.JWTTTL)

	cardStore := store.NewCardStore(dbpool)
	cardService := service.NewCardService(cardStore)

	h := handlers.NewHandler(tokenAuth, userService, cardService, cfg.Port)

	// import events are optional for the API
	if nats.Enabled() {
		n, err := nats.Connect("manavault-" + SERVICE_NAME + "-" + instanceId)
		if err != nil {
			log.Errorf("Error: unable to connect to NATS server %v", err)
		} else {
			defer n.Close()
			log.Printf("NATS connection established successfully %s", n.Url)

			b := broker.NewBroker(n.Conn)
			if _, err := b.SubscribeImports(); err != nil {
				log.Errorf("Error: unable to subscribe to import events %v", err)
			} else {
				h.SetImportStatus(b)
			}
		}
	}

	collector := metrics.NewCollector()

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.CORSOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(collector.Middleware(routePattern))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))
	}

	h.SetRoutes(r, collector.Handler())

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

// routePattern labels metrics by chi route, e.g. /api/cards/search.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

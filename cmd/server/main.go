/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the chit settlement engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and environment configuration
  2. Apply command-line flag overrides, then validate
  3. Set up logging
  4. Open the SQLite store (migrations run on open)
  5. Wire metrics and event publishing as observers
  6. Build the chit services, API handler and router
  7. Optionally seed the demo group
  8. Serve until SIGINT/SIGTERM

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  PORT, DB_PATH, LOG_LEVEL, LOG_FORMAT, CORS_ORIGINS, SHUTDOWN_TIMEOUT,
  AMQP_URL, AMQP_EXCHANGE, CHIT_SEQUENTIAL_MONTHS, SEED_DEMO
  See config/config.go for defaults.

EVENTS:
  With AMQP_URL set, auction.settled and payment.recorded are published to
  AMQP_EXCHANGE. Without it they are written to the log.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (SHUTDOWN_TIMEOUT)
  3. Close the AMQP connection and the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/chit.db"

  # Run in memory with a demo group
  SEED_DEMO=true ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/warp/chit-engine/api"
	"github.com/warp/chit-engine/chit"
	"github.com/warp/chit-engine/config"
	"github.com/warp/chit-engine/events"
	"github.com/warp/chit-engine/logging"
	"github.com/warp/chit-engine/metrics"
	"github.com/warp/chit-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	cfg := config.Load()

	// Flags
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// Observers
	m := metrics.New()
	sender, closeSender, err := newSender(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSender()
	observers := chit.Observers{m, events.NewPublisher(sender)}

	// Services
	roster := chit.NewRoster(store)
	roster.Log = logging.Component(logger, "roster")
	auctions := &chit.AuctionService{
		Store:    store,
		Carry:    chit.CarryLedger{Sequential: cfg.SequentialMonths},
		Observer: observers,
		Log:      logging.Component(logger, "auctions"),
	}
	payments := chit.NewPaymentReconciler(store)
	payments.Observer = observers
	payments.Log = logging.Component(logger, "payments")

	handler := api.NewHandler(roster, auctions, payments)
	handler.Health = store
	handler.Log = logging.Component(logger, "api")

	if cfg.SeedDemo {
		g, err := api.SeedDemo(context.Background(), roster, auctions)
		if err != nil {
			return fmt.Errorf("failed to seed demo group: %w", err)
		}
		logger.Info("demo group seeded", "group_id", g.ID)
	}

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(handler, api.Options{CORSOrigins: cfg.CORSOrigins, Metrics: m}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", "http://localhost:"+cfg.Port, "db", cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// newSender publishes to AMQP when configured and to the log otherwise.
func newSender(cfg *config.Config, logger *slog.Logger) (events.Sender, func(), error) {
	log := logging.Component(logger, "events")
	if cfg.AMQPURL == "" {
		log.Info("AMQP disabled, events are logged only")
		return events.LogSender{Log: log}, func() {}, nil
	}

	sender, err := events.NewAMQPSender(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}
	return sender, func() {
		if err := sender.Close(); err != nil {
			log.Warn("failed to close AMQP connection", "error", err)
		}
	}, nil
}

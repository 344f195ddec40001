package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/pinpoint/internal/adapters/nats"
	"github.com/samirrijal/pinpoint/internal/adapters/postgres"
	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/pkg/config"
	"github.com/samirrijal/pinpoint/internal/pkg/logging"
	"github.com/samirrijal/pinpoint/internal/workflows"
)

// The archiver runs the confirmation archive workflow worker. It also
// consumes announced confirmations from JetStream and persists them, so
// records produced by API instances without database access still land
// in PostgreSQL. Saves are idempotent on the confirmation ID.
func main() {
	cfg, err := config.Load("pinpoint-archiver")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.FromEnv(cfg.Telemetry.ServiceName)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	repo := postgres.NewConfirmationRepo(db)

	activities := &workflows.ArchiveActivities{Confirmations: repo, Logger: logger}

	if cfg.NATS.Enabled {
		conn, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		defer func() { _ = conn.Drain() }()

		pub, err := natsadapter.NewPublisher(conn)
		if err != nil {
			log.Fatalf("jetstream: %v", err)
		}
		activities.Publisher = pub

		sub, err := natsadapter.NewSubscriber(conn)
		if err != nil {
			log.Fatalf("jetstream: %v", err)
		}
		defer sub.Close()

		err = sub.SubscribeConfirmations(ctx, "confirmation-archiver", func(ctx context.Context, c *domain.Confirmation) error {
			if err := repo.Save(ctx, c); err != nil {
				logger.Warn("persist announced confirmation failed", "confirmation_id", c.ID, "error", err)
				return err
			}
			return nil
		})
		if err != nil {
			log.Fatalf("subscribe confirmations: %v", err)
		}
		logger.Info("consuming announced confirmations", "stream", natsadapter.ConfirmationStream)
	}

	if !cfg.Temporal.Enabled {
		logger.Info("temporal disabled, running stream consumer only")
		<-ctx.Done()
		return
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ArchiveConfirmationWorkflow)
	w.RegisterActivity(activities)

	logger.Info("archiver worker started", "task_queue", cfg.Temporal.TaskQueue)
	interrupt := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(interrupt)
	}()
	if err := w.Run(interrupt); err != nil {
		slog.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

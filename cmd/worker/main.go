// billingd worker: consumes domain events from the per-event-type SQS queues
// and reacts to them, most importantly turning invoice.payment_requested
// into a paid invoice.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/billingd/internal/config"
	"github.com/ignite/billingd/internal/messaging"
	"github.com/ignite/billingd/internal/pkg/logger"
	"github.com/ignite/billingd/internal/service/invoice"
	"github.com/ignite/billingd/internal/service/user"
	"github.com/ignite/billingd/internal/storage"
	"github.com/ignite/billingd/internal/storage/gormstore"
	"github.com/ignite/billingd/internal/storage/postgres"
	"github.com/ignite/billingd/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	txm, userRepo, invoiceRepo, closeStore, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("storage init failed", "error", err)
	}
	defer closeStore()

	awsCfg, err := messaging.LoadAWSConfig(ctx, cfg.AWS.Region, cfg.AWS.EndpointURL)
	if err != nil {
		log.Fatal("aws config failed", "error", err)
	}
	publisher := messaging.NewSNSPublisher(
		messaging.NewSNSClient(awsCfg, cfg.AWS.EndpointURL), cfg.AWS.TopicARN, log)
	sqsClient := messaging.NewSQSClient(awsCfg, cfg.AWS.EndpointURL)

	// The worker drives invoice payment through the same service the API
	// uses, so the state machine and its events have exactly one home.
	invoiceSvc := invoice.NewService(invoiceRepo, userRepo, txm, publisher, log)

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}
	guard := worker.NewGuard(rdb, time.Duration(cfg.Worker.IdempotencyTTLHours)*time.Hour, log)

	registry := messaging.NewRegistry(log)
	w := worker.New(log)
	for eventType, handler := range worker.Handlers(invoiceSvc, log) {
		queueURL := cfg.Events.Queues[eventType]
		if queueURL == "" {
			log.Warn("no queue configured for event type, skipping", "event_type", eventType)
			continue
		}
		w.AddQueue(sqsClient, messaging.ConsumerConfig{
			EventType:    eventType,
			QueueURL:     queueURL,
			MaxMessages:  int32(cfg.Worker.MaxMessages),
			WaitTime:     time.Duration(cfg.Worker.WaitTimeSeconds) * time.Second,
			ErrorBackoff: time.Duration(cfg.Worker.ErrorBackoffSeconds) * time.Second,
		}, registry, guard.Wrap(handler))
	}
	if w.QueueCount() == 0 {
		log.Fatal("no queues configured, nothing to consume")
	}

	w.Run(ctx)
}

// openStorage builds the configured backend, mirroring the server binary.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.Manager, user.Repository, invoice.Repository, func(), error) {
	switch cfg.Database.Backend {
	case "postgres":
		store, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, log)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return store, postgres.NewUserRepository(), postgres.NewInvoiceRepository(),
			func() { store.Close() }, nil
	case "gorm":
		store, err := gormstore.Open(cfg.Database.URL)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return store, gormstore.NewUserRepository(), gormstore.NewInvoiceRepository(),
			func() { store.Close() }, nil
	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown database backend %q", cfg.Database.Backend)
	}
}

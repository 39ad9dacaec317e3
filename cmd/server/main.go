// billingd API server: user and invoice CRUD plus the payment actions,
// publishing domain events to SNS after each committed write.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/billingd/internal/api"
	"github.com/ignite/billingd/internal/config"
	"github.com/ignite/billingd/internal/messaging"
	"github.com/ignite/billingd/internal/pkg/logger"
	"github.com/ignite/billingd/internal/service/invoice"
	"github.com/ignite/billingd/internal/service/user"
	"github.com/ignite/billingd/internal/storage"
	"github.com/ignite/billingd/internal/storage/gormstore"
	"github.com/ignite/billingd/internal/storage/postgres"
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

	invoiceSvc := invoice.NewService(invoiceRepo, userRepo, txm, publisher, log)
	userSvc := user.NewService(userRepo, invoiceSvc, txm, publisher, log)

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: api.NewServer(userSvc, invoiceSvc, log).Router(),
	}

	go func() {
		log.Info("server listening",
			"addr", cfg.Server.Addr(),
			"backend", cfg.Database.Backend,
			"environment", cfg.Server.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("server stopped")
}

// openStorage builds the configured backend. Both return identical observable
// behavior; the choice is operational.
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

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"google.golang.org/grpc"

	grpcapi "rentloop-backend/internal/api/grpc"
	httpapi "rentloop-backend/internal/api/http"
	"rentloop-backend/internal/config"
	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/jobs"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
	"rentloop-backend/internal/repository/memory"
	"rentloop-backend/internal/repository/postgres"
	"rentloop-backend/internal/scheduler"
	"rentloop-backend/internal/security"
	"rentloop-backend/internal/service"
)

// backend is whichever store the config selects.
type backend struct {
	users   repository.UserRepository
	items   repository.ItemRepository
	rentals repository.RentalRepository
	ledger  repository.LedgerRepository
	cart    repository.CartRepository
	txm     repository.TxManager
	pinger  grpcapi.Pinger
	close   func() error
}

var defaultCategories = []domain.Category{
	{Name: "Cameras", Slug: "cameras"},
	{Name: "Tools", Slug: "tools"},
	{Name: "Outdoor", Slug: "outdoor"},
	{Name: "Music", Slug: "music"},
}

func openBackend(cfg *config.Config) (*backend, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using in-memory store; data is lost on exit")
		store := memory.NewStore()
		for _, c := range defaultCategories {
			store.AddCategory(c)
		}
		return &backend{
			users:   store.UserRepository,
			items:   store.ItemRepository,
			rentals: store.RentalRepository,
			ledger:  store.LedgerRepository,
			cart:    store.CartRepository,
			txm:     store,
			pinger:  store,
			close:   func() error { return nil },
		}, nil
	}

	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	return &backend{
		users:   store.UserRepository,
		items:   store.ItemRepository,
		rentals: store.RentalRepository,
		ledger:  store.LedgerRepository,
		cart:    store.CartRepository,
		txm:     store,
		pinger:  store,
		close:   db.Close,
	}, nil
}

func newEmailService(cfg *config.Config) service.EmailService {
	logger.Info("Email configuration", "provider", cfg.Email.Provider, "from", cfg.Email.FromEmail)
	switch cfg.Email.Provider {
	case config.EmailProviderSendGrid:
		return service.NewSendGridEmailService(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName)
	case config.EmailProviderSMTP:
		smtp := cfg.Email.SMTP
		return service.NewSMTPEmailService(smtp.Host, smtp.Port, smtp.User, smtp.Password, cfg.Email.FromEmail)
	default:
		return service.NewLogEmailService()
	}
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rentloop backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format, "driver", cfg.Database.Driver)

	be, err := openBackend(cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer be.close()

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())

	// Initialize Services
	rentalSvc := service.NewRentalService(be.txm, be.rentals, be.items, be.users, newEmailService(cfg))
	services := httpapi.Services{
		Auth:   service.NewAuthService(be.users, tokenManager),
		User:   service.NewUserService(be.users),
		Ledger: service.NewLedgerService(be.ledger, be.txm),
		Item:   service.NewItemService(be.items),
		Cart:   service.NewCartService(be.cart, be.items, rentalSvc),
		Rental: rentalSvc,
	}

	healthReporter := grpcapi.NewHealthReporter(be.pinger)
	if err := healthReporter.Check(context.Background()); err != nil {
		logger.Warn("Initial health check failed", "error", err)
	}

	router := httpapi.NewRouter(services, tokenManager, func(r *http.Request) error {
		return be.pinger.Ping(r.Context())
	})
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcServer *grpc.Server
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		grpcServer = grpcapi.NewServer(healthReporter)
		go func() {
			logger.Info("gRPC server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	var cronScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		cronScheduler, err = scheduler.NewScheduler(jobs.NewJobRunner(be.items, healthReporter, cfg))
		if err != nil {
			logger.Error("Failed to create scheduler", "error", err)
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		cronScheduler.Start()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info("Shutting down...", "signal", sig.String())
	case err := <-errCh:
		logger.Error("Server error", "error", err)
	}

	// Graceful shutdown
	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	healthReporter.Shutdown()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}

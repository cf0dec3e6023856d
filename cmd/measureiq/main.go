package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbonduro/measureiq/internal/auth"
	"github.com/vbonduro/measureiq/internal/catalog"
	"github.com/vbonduro/measureiq/internal/config"
	"github.com/vbonduro/measureiq/internal/db"
	"github.com/vbonduro/measureiq/internal/docstore"
	"github.com/vbonduro/measureiq/internal/docstore/file"
	"github.com/vbonduro/measureiq/internal/docstore/postgres"
	"github.com/vbonduro/measureiq/internal/docstore/redis"
	"github.com/vbonduro/measureiq/internal/docstore/s3"
	"github.com/vbonduro/measureiq/internal/docstore/sqlite"
	"github.com/vbonduro/measureiq/internal/domain"
	"github.com/vbonduro/measureiq/internal/logging"
	"github.com/vbonduro/measureiq/internal/metrics"
	"github.com/vbonduro/measureiq/internal/service"
	"github.com/vbonduro/measureiq/internal/store"
	"github.com/vbonduro/measureiq/internal/web"
)

const testModeSecret = "measureiq-test-mode-secret"

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	m := metrics.New()

	docs, closeDocs, err := newDocStore(cfg, database, logger)
	if err != nil {
		logger.Error("failed to initialize document store", "backend", cfg.DocBackend, "error", err)
		return
	}
	defer closeDocs()

	secret := cfg.JWTSecret
	if secret == "" && cfg.TestMode {
		logger.Warn("JWT_SECRET not set, using the test mode secret")
		secret = testModeSecret
	}
	authService := auth.NewService(
		store.NewUserStore(database),
		auth.NewTokens(secret, cfg.JWTTTL),
		newMailer(cfg, logger),
		auth.Config{ResetTokenTTL: cfg.ResetTokenTTL, FrontendBaseURL: cfg.FrontendBaseURL},
		logger,
	)

	accounts := service.NewAccountService(docstore.Instrument(docs, cfg.DocBackend, m), logger)
	autosaver := service.NewAutosaver(accounts, m, logger)
	defer autosaver.Close()

	server := web.NewServer(web.Options{
		Auth:     authService,
		Accounts: accounts,
		Autosave: autosaver,
		Catalog:  loadCatalog(cfg, logger),
		VATRate:  cfg.VATRate,
		Metrics:  m,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe(cfg.ListenAddr) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}
}

// newDocStore opens the configured document backend. The returned func
// releases backend connections.
func newDocStore(cfg *config.Config, database *sql.DB, logger *slog.Logger) (docstore.Store, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	noop := func() {}

	switch cfg.DocBackend {
	case "sqlite":
		logger.Info("using sqlite document store", "path", cfg.DBPath)
		return sqlite.New(database), noop, nil
	case "file":
		logger.Info("using file document store", "dir", cfg.DocDir)
		s, err := file.New(cfg.DocDir)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "postgres":
		logger.Info("using postgres document store")
		s, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, closer(s.Close, "postgres", logger), nil
	case "redis":
		logger.Info("using redis document store", "addr", cfg.RedisAddr)
		s, err := redis.Open(ctx, redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return nil, nil, err
		}
		return s, closer(s.Close, "redis", logger), nil
	case "s3":
		logger.Info("using s3 document store", "bucket", cfg.S3Bucket, "region", cfg.S3Region)
		s, err := s3.New(ctx, s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown document backend %q", cfg.DocBackend)
	}
}

func closer(fn func() error, name string, logger *slog.Logger) func() {
	return func() {
		if err := fn(); err != nil {
			logger.Error("failed to close document store", "backend", name, "error", err)
		}
	}
}

func newMailer(cfg *config.Config, logger *slog.Logger) auth.Mailer {
	if cfg.SMTPHost == "" {
		logger.Info("SMTP_HOST not set, reset mails will be logged")
		return auth.NewLogMailer(logger)
	}
	return auth.NewSMTPMailer(auth.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		FromName: "MeasureIQ",
	})
}

// loadCatalog reads the accessory catalog. A catalog that fails to load
// leaves the server running with no accessories.
func loadCatalog(cfg *config.Config, logger *slog.Logger) []domain.AccessoryCatalogEntry {
	var (
		entries []domain.AccessoryCatalogEntry
		err     error
	)
	if cfg.CatalogPath != "" {
		entries, err = catalog.LoadFile(cfg.CatalogPath)
	} else {
		entries, err = catalog.Default()
	}
	if err != nil {
		logger.Error("failed to load accessory catalog", "path", cfg.CatalogPath, "error", err)
		return nil
	}
	logger.Info("accessory catalog loaded", "entries", len(entries))
	return entries
}

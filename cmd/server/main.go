package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/mykana/wellness/internal/api"
	"github.com/mykana/wellness/internal/audit"
	"github.com/mykana/wellness/internal/auth"
	"github.com/mykana/wellness/internal/checkin"
	"github.com/mykana/wellness/internal/config"
	"github.com/mykana/wellness/internal/database"
	"github.com/mykana/wellness/internal/db/migrate"
	"github.com/mykana/wellness/internal/dose"
	"github.com/mykana/wellness/internal/encryption"
	"github.com/mykana/wellness/internal/medication"
	"github.com/mykana/wellness/internal/middleware"
	"github.com/mykana/wellness/internal/profile"
	"github.com/mykana/wellness/internal/report"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		logger.Fatal("security.jwt_secret is required")
	}
	gin.SetMode(cfg.Server.Mode)

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer database.Disconnect(db)

	if err := migrate.NewManager(db, nil, logger).Up(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	encryptService, err := encryption.NewService(cfg.Security.EncryptionKeys...)
	if err != nil {
		logger.Fatal("Failed to initialize encryption service", zap.Error(err))
	}
	if len(cfg.Security.EncryptionKeys) == 0 {
		logger.Warn("No encryption keys configured; stored profiles will not survive a restart")
	}

	auditService, err := newAuditService(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal("Failed to initialize audit service", zap.Error(err))
	}

	store, closeStore, err := openProfileStore(ctx, cfg, db, encryptService, logger)
	if err != nil {
		logger.Fatal("Failed to open profile store", zap.Error(err))
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	authService := auth.NewService(db, auditService, auth.AuthServiceConfig{
		JWTSecret:   cfg.Security.JWTSecret,
		TokenExpiry: cfg.Security.TokenExpiry,
	})
	checkinService := checkin.NewService(db, auditService)
	doseService := dose.NewService(db, auditService)

	handler := api.NewHandler(api.Services{
		Auth:        authService,
		Profiles:    profile.NewService(profile.NewDeriver(), store, auditService, profile.MustNewMetrics(registry)),
		Medications: medication.NewService(db, auditService),
		CheckIns:    checkinService,
		Doses:       doseService,
		Reports:     report.NewService(checkinService, doseService),
		Audit:       auditService,
	}, logger)

	router := api.NewRouter(handler, middleware.MustNewHTTPMetrics(registry), registry, api.RouterConfig{
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RequestTimeout:    cfg.Server.Timeout,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupRouter(logger),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	go func() {
		logger.Info("Starting server",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.Bool("tls", cfg.Server.TLS.Enabled),
		)
		var err error
		if cfg.Server.TLS.Enabled {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// newAuditService indexes into Elasticsearch when enabled and otherwise only
// writes the JSON audit log to stdout.
func newAuditService(cfg config.ElasticsearchConfig) (audit.Service, error) {
	auditLogger := logrus.New()
	auditLogger.SetFormatter(&logrus.JSONFormatter{})
	auditLogger.SetOutput(os.Stdout)

	if !cfg.Enabled {
		return audit.NewService(nil, auditLogger), nil
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	return audit.NewService(es, auditLogger), nil
}

// openProfileStore builds the configured profile backend behind an LRU cache.
// The returned func releases backend resources.
func openProfileStore(ctx context.Context, cfg *config.Config, db *pgxpool.Pool, sealer profile.Sealer, logger *zap.Logger) (profile.Store, func(), error) {
	var (
		backend profile.Store
		closer  = func() {}
	)

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		backend = profile.NewPostgresStore(db, sealer)
	case config.DriverMongo:
		client, err := database.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		backend = profile.NewMongoStore(client.Database(cfg.Mongo.Database), sealer)
		closer = func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("Failed to disconnect from MongoDB", zap.Error(err))
			}
		}
	case config.DriverSQLite:
		sqlite, err := profile.OpenSQLiteStore(ctx, cfg.Storage.SQLitePath, sealer)
		if err != nil {
			return nil, nil, err
		}
		backend = sqlite
		closer = closeQuietly(sqlite, logger)
	}

	if cfg.Storage.CacheSize <= 0 {
		return backend, closer, nil
	}
	cached, err := profile.NewCachedStore(backend, cfg.Storage.CacheSize)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return cached, closer, nil
}

func closeQuietly(c io.Closer, logger *zap.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close profile store", zap.Error(err))
		}
	}
}

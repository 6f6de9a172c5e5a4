package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/config"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository/postgres"
	redisrepo "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository/redis"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/service"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/events/kafka"
	handler "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/handler/http"
	pgconn "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/infrastructure/database/postgres"
	redisconn "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/infrastructure/database/redis"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/infrastructure/email"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/infrastructure/storage"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/utils/logger"
)

const defaultMigrationsPath = "migrations"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting signing service",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		migrationsPath := os.Getenv("MIGRATIONS_PATH")
		if migrationsPath == "" {
			migrationsPath = defaultMigrationsPath
		}
		if err := pgconn.RunMigrations(cfg.Database, migrationsPath); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
		log.Info("Migrations applied")
	}

	pool, err := pgconn.NewDBPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	redisClient, err := redisconn.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Repositories
	txManager := postgres.NewTxManager(pool)
	tokenRepo := postgres.NewTokenRepositoryPostgres(pool)
	otpRepo := postgres.NewOTPChallengeRepositoryPostgres(pool, txManager)
	envelopeRepo := postgres.NewEnvelopeRepositoryPostgres(pool)
	signerRepo := postgres.NewSignerRepositoryPostgres(pool)
	documentRepo := postgres.NewDocumentRepositoryPostgres(pool)
	signatureRepo := postgres.NewSignatureRepositoryPostgres(pool)
	auditRepo := postgres.NewAuditEventRepositoryPostgres(pool)
	sessionStore := redisrepo.NewSessionStoreRedis(redisClient, log)
	cooldownStore := redisrepo.NewCooldownStoreRedis(redisClient)

	// Events
	var events service.EventPublisher = service.NoopPublisher{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		events = producer
	}

	// Collaborators
	emailSender := email.NewLoggingSender(log)
	documentStore := storage.NewLocalDocumentStore()

	// Services
	auditService := service.NewAuditService(auditRepo, log)
	tokenService := service.NewTokenService(tokenRepo, auditService, cfg.Signing.MagicLinkTTL, log)
	sessionService := service.NewSessionService(sessionStore, cfg.Signing.SessionTTL, log)
	otpService := service.NewOTPService(
		&cfg.Signing, cfg.IsProduction(),
		otpRepo, signerRepo, cooldownStore,
		tokenService, sessionService, auditService, emailSender, log,
	)
	envelopeService := service.NewEnvelopeService(
		txManager, envelopeRepo, signerRepo, documentRepo, signatureRepo,
		tokenService, sessionService, auditService,
		documentStore, emailSender, events,
		cfg.Server.PublicBaseURL, log,
	)
	cleanupService := service.NewCleanupService(
		cfg.Signing.CleanupInterval,
		tokenRepo, otpRepo, envelopeRepo, signerRepo,
		auditService, events, log,
	)
	go cleanupService.Run(ctx)

	router := handler.SetupRouter(tokenService, otpService, sessionService, envelopeService, auditService, cfg, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
	log.Info("Signing service stopped")
}

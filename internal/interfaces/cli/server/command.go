package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	connectionUsecases "github.com/lumina-dash/lumina/internal/application/connection/usecases"
	"github.com/lumina-dash/lumina/internal/infrastructure/config"
	"github.com/lumina-dash/lumina/internal/infrastructure/crypto"
	"github.com/lumina-dash/lumina/internal/infrastructure/database"
	"github.com/lumina-dash/lumina/internal/infrastructure/migration"
	"github.com/lumina-dash/lumina/internal/infrastructure/oauth"
	"github.com/lumina-dash/lumina/internal/infrastructure/ratelimit"
	"github.com/lumina-dash/lumina/internal/infrastructure/repository"
	"github.com/lumina-dash/lumina/internal/infrastructure/scheduler"
	"github.com/lumina-dash/lumina/internal/infrastructure/vault"
	httpRouter "github.com/lumina-dash/lumina/internal/interfaces/http"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the Lumina connection service with the specified configuration.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("starting server", "environment", env, "auto_migrate", autoMigrate)

	cfg.Server.Mode = mapEnvToGinMode(env)
	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer database.Close()

	if autoMigrate || env == "development" {
		if err := migration.NewManager(env, cfg.Database.Driver).Migrate(database.Get()); err != nil {
			logger.Fatal("migration failed", "error", err)
		}
	}

	log := logger.NewLogger()

	cipher, err := crypto.NewCipher(cfg.EncryptionKey())
	if err != nil {
		logger.Fatal("failed to initialize vault cipher", "error", err)
	}

	registry, err := oauth.NewRegistry(cfg.Platforms, cfg.Server.BaseURL, cfg.AuthFlow, log.Named("oauth"))
	if err != nil {
		logger.Fatal("failed to initialize platform clients", "error", err)
	}

	ledger := repository.NewStateLedgerRepository(database.Get())
	connRepo := repository.NewConnectionRepository(database.Get())
	credVault := vault.NewCredentialVault(cipher, cfg.Vault.KeyVersion, connRepo, log.Named("vault"))
	codec := oauth.NewStateCodec(cipher)

	// Redis backs the rate limiter when configured; a single instance can
	// run on the in-process store.
	var counterStore ratelimit.CounterStore
	if cfg.Redis.Host != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		counterStore = ratelimit.NewRedisCounterStore(redisClient)
	} else {
		counterStore = ratelimit.NewMemoryCounterStore()
		logger.Warn("redis not configured, rate limits are per-instance only")
	}

	router := httpRouter.NewRouter(&httpRouter.RouterDeps{
		Config:         cfg,
		Registry:       registry,
		Codec:          codec,
		Ledger:         ledger,
		Vault:          credVault,
		ConnectionRepo: connRepo,
		CounterStore:   counterStore,
		Logger:         log,
	})

	refreshUC := connectionUsecases.NewRefreshExpiringConnectionsUseCase(
		&registryResolver{registry: registry},
		credVault,
		ratelimit.NewGovernor(counterStore, cfg.RateLimit),
		cfg.Refresh.Lookahead(),
		cfg.Refresh.BatchSize,
		cfg.Refresh.Workers,
		log.Named("refresh"),
	)
	sweepUC := connectionUsecases.NewSweepExpiredStatesUseCase(ledger, log.Named("sweep"))

	maintCtx, maintCancel := context.WithCancel(context.Background())
	defer maintCancel()

	maintenance := scheduler.NewMaintenanceScheduler(refreshUC, sweepUC, cfg.Refresh.Interval(), log.Named("scheduler"))
	maintenance.Start(maintCtx)
	defer maintenance.Stop()

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.Engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "address", cfg.Server.GetAddr(), "mode", cfg.Server.Mode)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server exited gracefully")
	return nil
}

func mapEnvToGinMode(env string) string {
	switch env {
	case "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

// registryResolver adapts oauth.Registry for the refresh use case.
type registryResolver struct {
	registry *oauth.Registry
}

func (r *registryResolver) Get(platform string) connectionUsecases.ProviderClient {
	client := r.registry.Get(platform)
	if client == nil {
		return nil
	}
	return client
}

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stockgate/stockgate/internal/config"
	"github.com/stockgate/stockgate/internal/logger"
	"github.com/stockgate/stockgate/internal/provider"
	"github.com/stockgate/stockgate/internal/ratelimit"
	"github.com/stockgate/stockgate/internal/server"
	"github.com/stockgate/stockgate/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the quote gateway server",
	Long:  `Start the stockgate HTTP server with all services`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "server host")
	serveCmd.Flags().Int("port", 8080, "server port")
	serveCmd.Flags().String("mode", "release", "server mode (debug/release/test)")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.mode", serveCmd.Flags().Lookup("mode"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting stockgate",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("environment", cfg.Environment),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	accounts, cleanup, err := openAccountStore(cfg, log)
	if err != nil {
		log.Error("Failed to open account store", zap.Error(err))
		return err
	}
	defer cleanup()

	limiter, limiterCleanup, err := openLimiter(cfg, log)
	if err != nil {
		log.Error("Failed to initialize rate limiter", zap.Error(err))
		return err
	}
	defer limiterCleanup()

	quotes, err := provider.NewAlphaVantage(provider.Config{
		BaseURL:           cfg.Provider.BaseURL,
		APIKey:            cfg.Provider.APIKey,
		Timeout:           cfg.Provider.Timeout,
		RequestsPerMinute: cfg.Provider.RequestsPerMinute,
	})
	if err != nil {
		log.Error("Failed to create provider client", zap.Error(err))
		return err
	}

	srv := server.New(cfg, log, accounts, limiter, quotes)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("Server started", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-stop
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	log.Info("Server stopped gracefully")
	return nil
}

// openAccountStore picks postgres when DB_URI is set, the in-memory
// store otherwise. In-memory accounts do not survive a restart; the
// warning makes that visible.
func openAccountStore(cfg *config.Config, log *zap.Logger) (storage.AccountStore, func(), error) {
	if cfg.Database.URI == "" {
		log.Warn("DB_URI not set; using in-memory account store, accounts are lost on restart")
		return storage.NewMemoryStore(), func() {}, nil
	}

	store, err := storage.NewPostgresStore(cfg.Database.URI)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Connected to postgres account store")
	return store, func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close account store", zap.Error(err))
		}
	}, nil
}

// openLimiter picks Redis-backed counters when REDIS_ADDR is set so
// several instances share one budget per key; otherwise counters live
// in process memory.
func openLimiter(cfg *config.Config, log *zap.Logger) (ratelimit.Limiter, func(), error) {
	rlCfg := ratelimit.Config{
		MaxPerSecond: cfg.RateLimit.MaxPerSecond,
		MaxPerMinute: cfg.RateLimit.MaxPerMinute,
	}

	if cfg.Redis.Addr != "" {
		limiter, err := ratelimit.NewRedisLimiter(rlCfg, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using redis rate limiter", zap.String("addr", cfg.Redis.Addr))
		return limiter, func() {
			if err := limiter.Close(); err != nil {
				log.Error("Failed to close redis limiter", zap.Error(err))
			}
		}, nil
	}

	limiter := ratelimit.NewMemoryLimiter(rlCfg)
	return limiter, limiter.Close, nil
}

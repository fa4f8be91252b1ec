package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eaglebank/ledger/ledger-service/internal/command"
	"github.com/eaglebank/ledger/ledger-service/internal/config"
	"github.com/eaglebank/ledger/ledger-service/internal/handler"
	"github.com/eaglebank/ledger/ledger-service/internal/query"
	"github.com/eaglebank/ledger/ledger-service/internal/repository"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/middleware"
	redisClient "github.com/eaglebank/ledger/shared/redis"
	"github.com/eaglebank/ledger/shared/utils"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("Configuration loaded", "config", cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("Ledger service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defaultBalance, err := cfg.DefaultBalance()
	if err != nil {
		return err
	}
	hasher, err := utils.NewPinHasher(cfg.PinHashing, cfg.BcryptCost)
	if err != nil {
		return err
	}

	store := repository.NewAccountStore()

	// Redis is optional: without it events are dropped and no read model is kept.
	var publisher command.EventPublisher = events.NopPublisher{}
	if cfg.RedisEnabled() {
		redis, err := redisClient.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer redis.Close()

		publisher = events.NewPublisher(redis.Client)
		projector := command.NewAccountProjector(repository.NewAccountReadRepository(redis.Client, logger), logger)

		go func() {
			subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
				Group:    "ledger-projection-group",
				Consumer: consumerName(),
				Stream:   events.LedgerEventsStream,
				Handler:  projector.HandleLedgerEvent,
				Logger:   logger,
			})
			if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Subscriber stopped", "error", err)
			}
		}()
	}

	commandSvc := command.NewLedgerCommandService(store, hasher, publisher,
		command.WithDefaultBalance(defaultBalance),
		command.WithLogger(logger),
	)
	querySvc := query.NewLedgerQueryService(store)

	var tokens handler.TokenIssuer
	if cfg.TokensEnabled() {
		tokens = query.NewTokenService([]byte(cfg.Jwt.Secret), cfg.Jwt.Expiry)
	}

	ledgerHandler := handler.NewLedgerHandler(commandSvc, querySvc, tokens, handler.Options{
		UniformAuthResponses: cfg.Auth.UniformResponses,
		RequireTransferAuth:  cfg.Auth.RequireForTransfer,
	}, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(ledgerHandler, store, []byte(cfg.Jwt.Secret), cfg.Auth.RequireForTransfer, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Ledger service starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func setupRouter(h *handler.LedgerHandler, store *repository.AccountStore, jwtSecret []byte, requireTransferAuth bool, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(logger))

	router.GET("/", h.Welcome)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "accounts": store.Len()})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/authenticate", h.Authenticate)
		v1.GET("/users", h.ListAccounts)
		if requireTransferAuth {
			v1.POST("/bank-transfer", middleware.AuthMiddleware(jwtSecret), h.Transfer)
		} else {
			v1.POST("/bank-transfer", h.Transfer)
		}
	}
	return router
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "ledger-consumer-1"
	}
	return "ledger-" + host
}

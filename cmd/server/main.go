// Command server runs the chat backend: REST API, WebSocket endpoint and
// the in-memory presence registry, backed by SQLite.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"webchat-backend/internal/cache"
	"webchat-backend/internal/config"
	"webchat-backend/internal/handlers"
	"webchat-backend/internal/repository/gormstore"
	"webchat-backend/internal/service/chat"
	"webchat-backend/internal/service/user"
	"webchat-backend/internal/ws"
	"webchat-backend/pkg/observability"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Hot-reload the config file when one is in use. Server settings are
	// bound at startup; reloads surface what changed so an operator knows
	// a restart is needed to apply them.
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		watcher, err := config.NewWatcher(path, cfg, logger)
		if err != nil {
			logger.Warn("Configuration hot reload unavailable", zap.Error(err))
		} else {
			defer watcher.Stop()
			watcher.OnChange(func(next config.Config) {
				logger.Info("Configuration reloaded",
					zap.String("addr", next.Server.Addr),
					zap.Duration("requestTimeout", next.Server.RequestTimeout.Std()),
					zap.Int("wsMaxConnections", next.WS.MaxConnections),
				)
			})
		}
	}

	db, err := gormstore.Open(cfg.DB.DSN)
	if err != nil {
		return err
	}
	if err := gormstore.Migrate(db); err != nil {
		return err
	}
	logger.Info("Database ready", zap.String("dsn", cfg.DB.DSN))

	metrics := observability.NewCollector("webchat")
	memCache := cache.New(logger)
	metrics.WatchCache(
		func() float64 { return float64(memCache.GetStats().Hits) },
		func() float64 { return float64(memCache.GetStats().Misses) },
		func() float64 { return float64(memCache.GetStats().Items) },
	)

	userStore := gormstore.NewUserStore(db)
	chatStore := gormstore.NewChatStore(db)
	messageStore := gormstore.NewMessageStore(db)

	userService := user.NewService(userStore, messageStore, memCache, cfg.Cache.UserTTL.Std(), logger)
	chatService := chat.NewService(chatStore, messageStore, userStore, memCache, chat.Config{
		ChatTTL:      cfg.Cache.ChatTTL.Std(),
		UserChatsTTL: cfg.Cache.UserChatsTTL.Std(),
	}, logger)

	hub := ws.NewHub(ws.NewRegistry(), chatService, logger, metrics)
	wsConfig := ws.DefaultServerConfig()
	wsConfig.MaxConnections = cfg.WS.MaxConnections
	wsServer := ws.NewServer(hub, wsConfig, logger)

	router := handlers.NewRouter(userService, chatService, wsServer, metrics, logger)
	router.AllowedOrigins = cfg.Server.AllowedOrigins
	router.RequestTimeout = cfg.Server.RequestTimeout.Std()

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router.Setup(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	hub.Stop()

	logger.Info("Server stopped gracefully")
	return nil
}

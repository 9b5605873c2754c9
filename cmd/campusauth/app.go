package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/campusauth/internal/db"
	"github.com/nkiryanov/campusauth/internal/handlers"
	"github.com/nkiryanov/campusauth/internal/logger"
	"github.com/nkiryanov/campusauth/internal/repository"
	"github.com/nkiryanov/campusauth/internal/repository/memory"
	"github.com/nkiryanov/campusauth/internal/repository/postgres"
	"github.com/nkiryanov/campusauth/internal/repository/redis"
	"github.com/nkiryanov/campusauth/internal/service/auth"
	"github.com/nkiryanov/campusauth/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/campusauth/internal/service/cleanup"
	"github.com/nkiryanov/campusauth/internal/service/user"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger  logger.Logger
	sweeper *cleanup.Sweeper

	// Release connections, called when server stopped
	closers []func()
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Opened connections are closed if app can't be started
	app := &ServerApp{ListenAddr: c.ListenAddr, logger: logger}
	started := false
	defer func() {
		if !started {
			app.close()
		}
	}()

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	app.closers = append(app.closers, pool.Close)

	// Initialize repositories
	storage := postgres.NewStorage(pool)
	sweepTargets := []cleanup.Target{{Name: "refresh_tokens", Sweep: storage.Refresh().DeleteExpired}}

	var revoked repository.RevocationRegistry
	switch c.RedisURL {
	case "":
		registry := memory.NewRevocationRegistry(nil)
		sweepTargets = append(sweepTargets, cleanup.Target{Name: "revocations", Sweep: registry.Purge})
		revoked = registry
		logger.Warn("Redis is not configured, revoked tokens are kept in memory")
	default:
		rdb, err := redis.Connect(ctx, c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		app.closers = append(app.closers, func() { _ = rdb.Close() })
		revoked = redis.NewRevocationRegistry(rdb, "", nil)
	}

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	userService := user.NewService(auth.DefaultHasher, storage.User())
	authService, err := auth.NewService(auth.Config{}, tokenManager, userService, storage.Refresh(), revoked, logger)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	app.Handler = handlers.NewRouter(authService, userService, logger, c.RequestTimeout)
	app.sweeper = cleanup.New(c.CleanupInterval, logger, sweepTargets...)

	started = true
	return app, nil
}

// Run starts http server and expired tokens sweeper, closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.close()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	sweeperStopped := s.sweeper.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-sweeperStopped

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *ServerApp) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/minibank/internal/db"
	"github.com/nkiryanov/minibank/internal/handlers"
	"github.com/nkiryanov/minibank/internal/logger"
	"github.com/nkiryanov/minibank/internal/notify"
	"github.com/nkiryanov/minibank/internal/repository/postgres"
	"github.com/nkiryanov/minibank/internal/service/account"
	"github.com/nkiryanov/minibank/internal/service/auth"
	"github.com/nkiryanov/minibank/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/minibank/internal/service/transfer"
	"github.com/nkiryanov/minibank/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger     logger.Logger
	pool       *pgxpool.Pool
	rdb        *redis.Client
	dispatcher *notify.Dispatcher
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	app, err := newServerApp(ctx, c, logger, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return app, nil
}

func newServerApp(ctx context.Context, c *Config, logger logger.Logger, pool *pgxpool.Pool) (*ServerApp, error) {
	storage := postgres.NewStorage(pool)

	// Notifications are sent by mail if SMTP configured, otherwise only logged
	var sender notify.Sender = notify.LogSender{Logger: logger}
	if c.SMTPAddr != "" {
		smtpSender, err := notify.NewSMTPSender(notify.SMTPConfig{
			Addr:     c.SMTPAddr,
			Username: c.SMTPUsername,
			Password: c.SMTPPassword,
			From:     c.SMTPFrom,
		})
		if err != nil {
			return nil, fmt.Errorf("error while creating smtp sender: %w", err)
		}
		sender = smtpSender
	}
	dispatcher := notify.NewDispatcher(sender, notify.Config{Workers: c.NotifyWorkers}, logger)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey}, storage.Refresh())
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager: %w", err)
	}
	userService := user.NewService(auth.DefaultHasher, storage, user.WithAdminEmails(c.AdminEmails...))
	authService := auth.NewService(auth.Config{}, tokenManager, userService)
	accountService := account.NewService(storage)
	transferService, err := transfer.NewService(transfer.Config{AccountType: c.TransferAccountType}, storage, dispatcher, logger)
	if err != nil {
		return nil, fmt.Errorf("error while creating transfer service: %w", err)
	}

	// Redis is optional, transfers stay idempotent on db level without it
	var rdb *redis.Client
	if c.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
	}

	router := handlers.NewRouter(handlers.Services{
		Auth:     authService,
		User:     userService,
		Account:  accountService,
		Transfer: transferService,
	}, rdb, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    router,
		logger:     logger,
		pool:       pool,
		rdb:        rdb,
		dispatcher: dispatcher,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
// Pending notifications are sent before return
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	notifyCtx, notifyCancel := context.WithCancel(ctx)
	defer notifyCancel()
	notifyStopped := s.dispatcher.Run(notifyCtx)

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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

	// Transfers are finished, so the queue is not refilled anymore
	notifyCancel()
	<-notifyStopped

	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	s.pool.Close()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

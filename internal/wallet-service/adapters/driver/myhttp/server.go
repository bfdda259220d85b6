package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"vtc-platform/internal/bm"
	"vtc-platform/internal/config"
	"vtc-platform/internal/middleware"
	"vtc-platform/internal/mylogger"
	walletbm "vtc-platform/internal/wallet-service/adapters/driven/bm"
	"vtc-platform/internal/wallet-service/adapters/driven/db"
	"vtc-platform/internal/wallet-service/adapters/driven/freemopay"
	"vtc-platform/internal/wallet-service/adapters/driver/myhttp/handle"
	"vtc-platform/internal/wallet-service/core/services"
)

const WaitTime = 10

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	mylog  mylogger.Logger
	db     *db.DB
	mb     *bm.RabbitMQ
	ctx    context.Context
	appCtx context.Context
	mu     sync.Mutex
}

func NewServer(ctx, appCtx context.Context, mylog mylogger.Logger, cfg *config.Config) *Server {
	return &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
		mux:    http.NewServeMux(),
	}
}

func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	database, err := db.New(s.ctx, s.cfg.DB, mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = database
	mylog.Info("Successful database connection")

	mb, err := bm.New(s.appCtx, *s.cfg.RabbitMq, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mb = mb
	mylog.Info("Successful message broker connection")

	if err := s.Configure(); err != nil {
		return err
	}

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.WalletServicePort),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.cfg.Srv.WalletServicePort)
	mylog.Info("server is running")
	return s.startHTTPServer()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Info("Shutting down HTTP server...")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Error("Failed to close message broker", err)
		}
	}

	if s.db != nil {
		s.db.Close()
		s.mylog.Info("Database closed")
	}

	s.mylog.Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Configure() error {
	walletRepo := db.NewWalletRepo(s.db)
	provider := freemopay.New(s.cfg.Payments, s.mylog)

	walletService := services.NewWalletService(s.appCtx, s.cfg, walletRepo, provider, s.mylog)
	walletHandler := handle.NewWalletHandler(walletService, s.mylog)
	authMiddleware := middleware.NewAuthMiddleware(s.cfg.App.JwtSecret)

	s.mux.Handle("GET /api/wallet/balance/", authMiddleware.Wrap("", walletHandler.Balance()))
	s.mux.Handle("POST /api/wallet/deposit/", authMiddleware.Wrap("", walletHandler.Deposit()))
	s.mux.Handle("POST /api/wallet/withdrawal/", authMiddleware.Wrap("", walletHandler.Withdrawal()))
	s.mux.Handle("GET /api/wallet/transactions/", authMiddleware.Wrap("", walletHandler.Transactions()))
	s.mux.Handle("GET /api/wallet/transactions/{reference}/", authMiddleware.Wrap("", walletHandler.TransactionByReference()))
	s.mux.Handle("POST /api/wallet/transactions/{reference}/check-status/", authMiddleware.Wrap("", walletHandler.CheckStatus()))

	consumer := walletbm.NewBonusConsumer(s.appCtx, s.mb, s.mylog, walletService)
	if err := consumer.SubscribeForMessages(); err != nil {
		return fmt.Errorf("subscribe bonus queue: %w", err)
	}
	return nil
}

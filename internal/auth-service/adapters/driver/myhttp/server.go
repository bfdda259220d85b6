package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"vtc-platform/internal/auth-service/adapters/driven/db"
	"vtc-platform/internal/auth-service/adapters/driver/myhttp/handle"
	"vtc-platform/internal/auth-service/core/service"
	"vtc-platform/internal/bm"
	"vtc-platform/internal/config"
	"vtc-platform/internal/mylogger"
	"vtc-platform/internal/notification"
	"vtc-platform/internal/session"
)

const WaitTime = 10

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	mylog  mylogger.Logger
	db     *db.DB
	mb     *bm.RabbitMQ
	sched  *notification.Scheduler
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
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.AuthServicePort),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.cfg.Srv.AuthServicePort)
	mylog.Info("server is running")
	return s.startHTTPServer()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Info("Shutting down HTTP server...")

	if s.sched != nil {
		s.sched.Stop()
	}

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
	authRepo := db.NewAuthRepo(s.db)
	sessions := session.New(s.cfg.Redis, time.Duration(s.cfg.App.SessionTTLHours)*time.Hour)
	publisher := bm.NewPublisher(s.appCtx, s.mb, s.mylog)

	s.sched = notification.NewScheduler()

	authService := service.NewAuthService(s.appCtx, s.cfg, authRepo, sessions, publisher, s.sched, s.mylog)
	authHandler := handle.NewAuthHandler(authService, s.mylog)

	s.mux.Handle("POST /api/auth/login/", authHandler.Login())
	s.mux.Handle("POST /api/auth/register/driver/", authHandler.RegisterDriver())
	s.mux.Handle("POST /api/auth/register/customer/", authHandler.RegisterCustomer())
	s.mux.Handle("POST /api/auth/logout/", authHandler.Logout())
	s.mux.Handle("POST /api/auth/otp/request/", authHandler.RequestOtp())
	s.mux.Handle("POST /api/auth/otp/verify/", authHandler.VerifyOtp())

	// The notification consumer runs next to auth: every outbound push/sms
	// it produces flows back through the same broker.
	provider := notification.NewLogProvider(s.mylog)
	consumer := notification.NewConsumer(s.appCtx, s.mb, s.mylog, provider, provider, provider)
	if err := consumer.SubscribeForMessages(); err != nil {
		return fmt.Errorf("subscribe notification queue: %w", err)
	}
	return nil
}

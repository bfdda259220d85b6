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
	"vtc-platform/internal/dispatch-service/adapters/driven/db"
	"vtc-platform/internal/dispatch-service/adapters/driver/myhttp/handle"
	"vtc-platform/internal/dispatch-service/adapters/driver/myhttp/ws"
	"vtc-platform/internal/dispatch-service/core/pricing"
	"vtc-platform/internal/dispatch-service/core/services"
	"vtc-platform/internal/middleware"
	"vtc-platform/internal/mylogger"
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

// Run initializes routes and starts listening. It returns when the server stops.
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

	s.Configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.DispatchServicePort),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.cfg.Srv.DispatchServicePort)
	mylog.Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
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

// Configure wires repositories, services and routes.
func (s *Server) Configure() {
	// Repositories
	orderRepo := db.NewOrderRepo(s.db)
	statusRepo := db.NewDriverStatusRepo(s.db)
	poolRepo := db.NewPoolRepo(s.db)
	trackingRepo := db.NewTrackingRepo(s.db)
	driverInfoRepo := db.NewDriverInfoRepo(s.db)

	// Shared infrastructure
	hub := ws.NewHub(s.mylog)
	publisher := bm.NewPublisher(s.appCtx, s.mb, s.mylog)
	sessions := session.New(s.cfg.Redis, time.Duration(s.cfg.App.SessionTTLHours)*time.Hour)
	calc := pricing.NewCalculator(s.cfg.Pricing, s.mylog)

	// Services
	statusService := services.NewStatusService(statusRepo, s.cfg.Dispatch, s.mylog)
	orderService := services.NewOrderService(s.appCtx, s.mylog, orderRepo, trackingRepo, driverInfoRepo,
		statusService, hub, publisher, calc)
	dispatchService := services.NewDispatchService(s.appCtx, s.mylog, poolRepo, orderService, statusService,
		hub, s.cfg.Dispatch)

	// Handlers
	orderHandler := handle.NewOrderHandler(s.appCtx, orderService, dispatchService, s.mylog)
	statusHandler := handle.NewDriverStatusHandler(statusService, s.mylog)
	overviewHandler := handle.NewOverviewHandler(orderService, s.mylog)
	authMiddleware := middleware.NewAuthMiddleware(s.cfg.App.JwtSecret)

	// REST routes
	s.mux.Handle("POST /api/orders", authMiddleware.Wrap("CUSTOMER", orderHandler.CreateOrder()))
	s.mux.Handle("POST /api/orders/{order_id}/cancel", authMiddleware.Wrap("CUSTOMER", orderHandler.CancelOrder()))
	s.mux.Handle("GET /api/orders/{order_id}", authMiddleware.Wrap("", orderHandler.GetOrder()))
	s.mux.Handle("POST /order/driver/status/online", authMiddleware.Wrap("DRIVER", statusHandler.GoOnline()))
	s.mux.Handle("POST /order/driver/status/offline", authMiddleware.Wrap("DRIVER", statusHandler.GoOffline()))
	s.mux.Handle("GET /api/admin/overview", authMiddleware.Wrap("ADMIN", overviewHandler.SystemOverview()))

	// Websocket routes
	broadcastPeriod := time.Duration(s.cfg.Dispatch.BroadcastPeriodSec) * time.Second
	s.mux.Handle("/ws/driver/{driver_id}/", ws.DriverHandler(s.appCtx, hub, s.mylog, driverInfoRepo,
		statusService, dispatchService, orderService, broadcastPeriod))
	s.mux.Handle("/ws/customer/{customer_id}/", ws.CustomerHandler(s.appCtx, hub, s.mylog, sessions))
}

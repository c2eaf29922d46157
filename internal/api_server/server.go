package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/aerae/accelerator/internal/config"
	handlers "github.com/aerae/accelerator/internal/handlers/v1alpha1"
	"github.com/aerae/accelerator/pkg/metrics"
	"github.com/aerae/accelerator/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	listener net.Listener
	handler  *handlers.ServiceHandler
}

// New returns a new instance of the assessment api server.
func New(
	cfg *config.Config,
	listener net.Listener,
	handler *handlers.ServiceHandler,
) *Server {
	return &Server{
		cfg:      cfg,
		listener: listener,
		handler:  handler,
	}
}

func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	if err := metricMiddleware.Register(nil); err != nil {
		zap.S().Named("api_server").Warnf("failed to register http metrics: %v", err)
	}

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Service.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, handlers.HealthReply{Status: "ok"})
	})
	handlers.RegisterApi(router, s.handler)

	return router
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: s.Router()}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	err := srv.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		// Serve returns as soon as Shutdown starts, in-flight requests are still running
		<-stopped
		return nil
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}

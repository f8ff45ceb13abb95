// =============================================================================
// Ventas Histórico - HTTP Server
// =============================================================================
//
// ENDPOINTS:
//   GET /                          capability listing
//   GET /historico                 ledger rows through the presentation layer
//   GET /reporte                   run a reconciliation
//   GET /descargar/historico       raw ledger download
//   GET /descargar/historico.xlsx  spreadsheet of the display rows
//   GET /salud                     liveness
//
// Every error response has the shape {"error": "<message>"}. Every response
// carries X-Request-ID.
//
// =============================================================================

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/ventas-historico/internal/config"
	"github.com/ginjaninja78/ventas-historico/internal/logging"
	"github.com/ginjaninja78/ventas-historico/internal/presentation"
	"github.com/ginjaninja78/ventas-historico/internal/reconcile"
	"github.com/ginjaninja78/ventas-historico/internal/store"
)

// shutdownTimeout bounds the drain of in-flight requests.
const shutdownTimeout = 15 * time.Second

// Server exposes the reconciler and the ledger over HTTP.
type Server struct {
	cfg        *config.Config
	reconciler *reconcile.Reconciler
	store      *store.Store
	strategy   presentation.Strategy
	logger     *logrus.Logger
	engine     *gin.Engine
}

// New builds the server and its routes.
func New(cfg *config.Config, rec *reconcile.Reconciler, st *store.Store, logger *logrus.Logger) (*Server, error) {
	strategy, err := presentation.New(cfg.Presentation)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		reconciler: rec,
		store:      st,
		strategy:   strategy,
		logger:     logging.OrDiscard(logger),
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(s.logger))
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(CORSMiddleware(s.cfg.Server.CORSAllowedOrigins))

	r.GET("/", s.home)
	r.GET("/salud", s.health)
	r.GET("/historico", s.historico)
	r.GET("/reporte", RateLimitMiddleware(s.cfg.Server.ReconcileRatePerMinute, s.logger), s.reporte)
	r.GET("/descargar/historico", s.descargarHistorico)
	r.GET("/descargar/historico.xlsx", s.descargarExcel)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	})

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"module":       "server",
			"addr":         srv.Addr,
			"presentation": s.strategy.Name(),
		}).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.WithField("module", "server").Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

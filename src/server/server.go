package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"AirQuality/src/config"
	"AirQuality/src/processor"
	"AirQuality/src/storage"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Server bundles the router and the dashboard dependencies.
type Server struct {
	cfg    *config.Config
	proc   *processor.DataProcessor
	data   *processor.Dataset
	logger *storage.Logger
	md     goldmark.Markdown
	engine *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg *config.Config, proc *processor.DataProcessor, data *processor.Dataset, logger *storage.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	s := &Server{
		cfg:    cfg,
		proc:   proc,
		data:   data,
		logger: logger,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		engine: engine,
	}
	s.registerRoutes()
	return s
}

// Engine exposes the gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api", s.requireData)
	api.GET("/stations", s.handleStations)
	api.GET("/parameters", s.handleParameters)
	api.GET("/stations/:name/table", s.handleStationTable)
	api.GET("/metrics", s.handleMetrics)
	api.GET("/missing", s.handleMissing)

	pages := s.engine.Group("/charts", s.requireData)
	pages.GET("/timeseries", s.handleTimeSeriesChart)
	pages.GET("/boxplot", s.handleBoxPlotChart)
	pages.GET("/missing", s.handleMissingChart)

	s.engine.GET("/about", s.handleAbout)
	s.engine.GET("/logs", s.handleLogs)
}

// requestLogger writes one INFO entry per request.
func requestLogger(logger *storage.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if logger == nil {
			return
		}
		logger.Info(c.Request.Method + " " + c.Request.URL.RequestURI() + " " +
			http.StatusText(c.Writer.Status()) + " " + time.Since(start).Round(time.Microsecond).String())
	}
}

// requireData answers 503 until the first dataset load succeeded.
func (s *Server) requireData(c *gin.Context) {
	if !s.data.Loaded() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "datasets not loaded yet"})
		return
	}
	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	snap := s.data.Snapshot()
	body := gin.H{"status": "ok", "loaded": s.data.Loaded()}
	if !snap.LoadedAt.IsZero() {
		body["loaded_at"] = snap.LoadedAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, body)
}

// Package server exposes the venue maps, the category catalog and contributions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/venuemap/internal/api"
	"github.com/UnknownOlympus/venuemap/internal/metrics"
	"github.com/UnknownOlympus/venuemap/internal/models"
	"github.com/UnknownOlympus/venuemap/internal/service"
	"github.com/UnknownOlympus/venuemap/internal/viewport"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Places is the part of the places API the handlers call directly. *api.Client satisfies it.
type Places interface {
	GetVenue(ctx context.Context, slug string) (*models.Venue, error)
	GetCategory(ctx context.Context, slug string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.CategorySummary, error)
	SearchCategories(ctx context.Context, term string) ([]models.CategorySummary, error)
	Profile(ctx context.Context) (*models.Profile, error)
	PendingContributions(ctx context.Context, category string) ([]models.Contribution, error)
	ApproveContribution(ctx context.Context, id int64) error
	RejectContribution(ctx context.Context, id int64, note string) error
}

// Contributions submits venue contributions and edit proposals. *service.ContributionService satisfies it.
type Contributions interface {
	Submit(ctx context.Context, submission models.VenueSubmission) (models.VenueSubmission, error)
	ProposeEdit(ctx context.Context, venue models.Venue, edit models.VenueSubmission) (models.VenueSubmission, error)
}

// Config holds the dependencies of a Server.
type Config struct {
	Places        Places              // Places API for catalog, detail and moderation calls
	Venues        viewport.Source     // Venue query service used by the map loaders
	Contributions Contributions       // Contribution service
	Loader        viewport.Options    // Template options for every map loader
	Metrics       *metrics.Metrics    // Metrics shared with the loaders
	Gatherer      prometheus.Gatherer // Registry served on /metrics
	Health        func(ctx context.Context) error
	Logger        *slog.Logger
}

// Server is the HTTP front of the venue map.
type Server struct {
	log           *slog.Logger
	places        Places
	contributions Contributions
	maps          *mapRegistry
	metrics       *metrics.Metrics
	gatherer      prometheus.Gatherer
	health        func(ctx context.Context) error
	router        *gin.Engine
}

// New creates the server and registers its routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.NewRegistry()
	}

	srv := &Server{
		log:           cfg.Logger,
		places:        cfg.Places,
		contributions: cfg.Contributions,
		maps:          newMapRegistry(cfg.Venues, cfg.Loader, cfg.Metrics, cfg.Logger),
		metrics:       cfg.Metrics,
		gatherer:      cfg.Gatherer,
		health:        cfg.Health,
	}
	srv.router = srv.routes()

	return srv
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/maps", s.openMap)
		apiGroup.GET("/maps/:id", s.getMap)
		apiGroup.POST("/maps/:id/bounds", s.mapBounds)
		apiGroup.PUT("/maps/:id/filters", s.mapFilters)
		apiGroup.DELETE("/maps/:id", s.closeMap)

		apiGroup.GET("/categories", s.listCategories)
		apiGroup.GET("/categories/search", s.searchCategories)
		apiGroup.GET("/categories/:slug", s.getCategory)
		apiGroup.GET("/venues/:slug", s.getVenue)
		apiGroup.POST("/venues/:slug/edit", s.proposeVenueEdit)

		apiGroup.GET("/profile", s.profile)
		apiGroup.POST("/contributions", s.submitContribution)
		apiGroup.GET("/moderation/pending", s.pendingContributions)
		apiGroup.POST("/moderation/:id/approve", s.approveContribution)
		apiGroup.POST("/moderation/:id/reject", s.rejectContribution)
	}

	return router
}

// Run serves on the given port until ctx is canceled, then shuts down and closes every open map.
func (s *Server) Run(ctx context.Context, port int) error {
	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "Starting HTTP server", "port", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.maps.closeAll()
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownTimeout := 10 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	s.maps.closeAll()
	if err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	s.log.InfoContext(ctx, "HTTP server stopped")
	return nil
}

// Close closes every open map.
func (s *Server) Close() {
	s.maps.closeAll()
}

func (s *Server) healthz(c *gin.Context) {
	ctx := c.Request.Context()
	s.log.DebugContext(ctx, "Performing health checks...")

	if s.health != nil {
		if err := s.health(ctx); err != nil {
			s.log.ErrorContext(ctx, "Health check failed", "error", err)
			c.String(http.StatusServiceUnavailable, "DB ping failed")
			return
		}
	}

	c.String(http.StatusOK, "OK")
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.DebugContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// writeError maps an error to a status code and a short message.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	message := "places API unavailable"

	var statusErr *api.StatusError
	switch {
	case errors.Is(err, service.ErrInvalidSubmission):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, api.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "not signed in"
	case errors.Is(err, api.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest:
		status, message = http.StatusBadRequest, statusErr.Body
	}

	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(c.Request.Context(), "Request failed", "path", c.FullPath(), "error", err)
	}

	c.JSON(status, gin.H{"error": message})
}

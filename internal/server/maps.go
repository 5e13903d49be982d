package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/UnknownOlympus/venuemap/internal/metrics"
	"github.com/UnknownOlympus/venuemap/internal/models"
	"github.com/UnknownOlympus/venuemap/internal/viewport"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// mapSession is one open category map.
type mapSession struct {
	id       string
	category *models.Category
	fields   []models.FieldDefinition
	loader   *viewport.Loader
	opened   time.Time

	mu        sync.Mutex
	lastError string
}

// StatusChanged is polled through the loader snapshot instead.
func (ms *mapSession) StatusChanged(viewport.Status) {}

// FetchFailed keeps the last failure for the status panel.
func (ms *mapSession) FetchFailed(err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.lastError = err.Error()
}

func (ms *mapSession) lastFailure() string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.lastError
}

var errRegistryClosed = errors.New("map registry closed")

type mapRegistry struct {
	venues  viewport.Source
	opts    viewport.Options
	metrics *metrics.Metrics
	log     *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*mapSession
	closed   bool
}

func newMapRegistry(venues viewport.Source, opts viewport.Options, m *metrics.Metrics, log *slog.Logger) *mapRegistry {
	return &mapRegistry{
		venues:   venues,
		opts:     opts,
		metrics:  m,
		log:      log,
		sessions: make(map[string]*mapSession),
	}
}

func (mr *mapRegistry) open(slug string, category *models.Category) (*mapSession, error) {
	session := &mapSession{
		id:       uuid.NewString(),
		category: category,
		fields:   category.FilterableFields(),
		opened:   time.Now(),
	}

	opts := mr.opts
	opts.Reporter = session
	opts.Metrics = mr.metrics
	opts.Logger = mr.log.With("map", session.id)
	session.loader = viewport.New(slug, mr.venues, opts)

	if err := session.loader.Start(); err != nil {
		return nil, fmt.Errorf("failed to start map loader: %w", err)
	}

	mr.mu.Lock()
	if mr.closed {
		mr.mu.Unlock()
		session.loader.Close()
		return nil, errRegistryClosed
	}
	mr.sessions[session.id] = session
	if mr.metrics != nil {
		mr.metrics.ActiveMaps.Inc()
	}
	mr.mu.Unlock()

	return session, nil
}

func (mr *mapRegistry) get(id string) (*mapSession, bool) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	session, ok := mr.sessions[id]
	return session, ok
}

func (mr *mapRegistry) close(id string) bool {
	mr.mu.Lock()
	session, ok := mr.sessions[id]
	delete(mr.sessions, id)
	mr.mu.Unlock()

	if !ok {
		return false
	}

	session.loader.Close()
	if mr.metrics != nil {
		mr.metrics.ActiveMaps.Dec()
	}

	return true
}

// closeAll closes every open map; maps can no longer be opened afterwards.
func (mr *mapRegistry) closeAll() {
	mr.mu.Lock()
	mr.closed = true
	ids := make([]string, 0, len(mr.sessions))
	for id := range mr.sessions {
		ids = append(ids, id)
	}
	mr.mu.Unlock()

	for _, id := range ids {
		mr.close(id)
	}
}

type openMapRequest struct {
	Category string `json:"category" binding:"required"`
}

type mapResponse struct {
	ID           string                   `json:"id"`
	CategorySlug string                   `json:"category_slug"`
	Category     *models.Category         `json:"category"`
	FilterFields []models.FieldDefinition `json:"filter_fields"`
	OpenedAt     time.Time                `json:"opened_at"`
	LastError    string                   `json:"last_error,omitempty"`
	viewport.Snapshot
}

func (s *Server) openMap(c *gin.Context) {
	var req openMapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field 'category'"})
		return
	}

	ctx := c.Request.Context()

	// The map opens without filters when the category metadata is unavailable.
	category, err := s.places.GetCategory(ctx, req.Category)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to load category metadata", "category", req.Category, "error", err)
		category = nil
	}

	session, err := s.maps.open(req.Category, category)
	if errors.Is(err, errRegistryClosed) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	s.log.InfoContext(ctx, "Map opened", "map", session.id, "category", req.Category)
	c.JSON(http.StatusCreated, s.mapView(session))
}

func (s *Server) getMap(c *gin.Context) {
	session, ok := s.lookupMap(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, s.mapView(session))
}

func (s *Server) mapBounds(c *gin.Context) {
	session, ok := s.lookupMap(c)
	if !ok {
		return
	}

	var box models.BoundingBox
	if err := c.ShouldBindJSON(&box); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bounding box"})
		return
	}

	err := session.loader.BoundsChanged(box)
	switch {
	case errors.Is(err, viewport.ErrInvalidBounds):
		c.JSON(http.StatusAccepted, gin.H{"accepted": false})
	case err != nil:
		c.JSON(http.StatusGone, gin.H{"error": "map is closed"})
	default:
		c.JSON(http.StatusAccepted, gin.H{"accepted": true})
	}
}

func (s *Server) mapFilters(c *gin.Context) {
	session, ok := s.lookupMap(c)
	if !ok {
		return
	}

	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filters must be a JSON object"})
		return
	}

	filters := filterSetFromJSON(raw).Restrict(session.fields)
	if err := session.loader.FiltersChanged(filters); err != nil {
		c.JSON(http.StatusGone, gin.H{"error": "map is closed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"filters": filters})
}

func (s *Server) closeMap(c *gin.Context) {
	id := c.Param("id")
	if !s.maps.close(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "map not found"})
		return
	}

	s.log.InfoContext(c.Request.Context(), "Map closed", "map", id)
	c.Status(http.StatusNoContent)
}

func (s *Server) lookupMap(c *gin.Context) (*mapSession, bool) {
	session, ok := s.maps.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "map not found"})
		return nil, false
	}

	return session, true
}

func (s *Server) mapView(session *mapSession) mapResponse {
	return mapResponse{
		ID:           session.id,
		CategorySlug: session.loader.Category(),
		Category:     session.category,
		FilterFields: session.fields,
		OpenedAt:     session.opened,
		LastError:    session.lastFailure(),
		Snapshot:     session.loader.Snapshot(),
	}
}

// filterSetFromJSON accepts booleans, numbers and strings; null and empty values clear a filter.
func filterSetFromJSON(raw map[string]any) models.FilterSet {
	filters := make(models.FilterSet, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case string:
			filters[name] = v
		case bool:
			filters[name] = strconv.FormatBool(v)
		case float64:
			filters[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
			filters[name] = ""
		default:
			filters[name] = fmt.Sprint(v)
		}
	}

	return filters
}

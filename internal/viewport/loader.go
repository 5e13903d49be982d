// Package viewport keeps the venue markers of one category map in sync with the visible bounding box.
//
// A Loader receives bounds and filter events from the map, fetches the venues of the
// visible box and merges them into the rendered set. Pans and zooms are debounced,
// results are cached per rounded box and filter set, and only the response of the most
// recently issued fetch is ever applied.
package viewport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/UnknownOlympus/venuemap/internal/metrics"
	"github.com/UnknownOlympus/venuemap/internal/models"
	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Defaults of Options.
const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultCacheSize    = 256
	DefaultFetchTimeout = 15 * time.Second
)

// Common errors of the loader.
var (
	ErrClosed        = errors.New("viewport loader is closed")
	ErrInvalidBounds = errors.New("invalid bounding box")
)

// Querier fetches the venues matching a query. *api.Client satisfies it.
type Querier interface {
	ListVenues(ctx context.Context, query models.VenueQuery) ([]models.Venue, error)
}

// Source is the venue query service used by a Loader.
type Source interface {
	Querier
	CountVenues(ctx context.Context, category string) (int, error)
}

// FreshQuerier is implemented by sources backed by a shared cache.
// ListVenuesFresh skips the cache read; filter reloads go through it.
type FreshQuerier interface {
	ListVenuesFresh(ctx context.Context, query models.VenueQuery) ([]models.Venue, error)
}

// Renderer receives the rendered venue set, ordered by ID, every time it changes.
type Renderer interface {
	Render(venues []models.Venue)
}

// Reporter receives status changes and fetch failures.
type Reporter interface {
	StatusChanged(status Status)
	FetchFailed(err error)
}

// Options configure a Loader. Zero values select the defaults.
type Options struct {
	Debounce        time.Duration    // Debounce is the idle window for pan/zoom events
	CacheSize       int              // CacheSize bounds the number of cached queries
	FetchTimeout    time.Duration    // FetchTimeout bounds every network fetch
	AbortSuperseded bool             // AbortSuperseded cancels an in-flight fetch when a newer one starts
	Clock           clock.Clock      // Clock drives the debounce timer
	Renderer        Renderer         // Renderer is notified when the rendered set changes
	Reporter        Reporter         // Reporter is notified of status changes and failures
	Metrics         *metrics.Metrics // Metrics for fetch outcomes and cache lookups
	Logger          *slog.Logger     // Logger for logging operations
}

// trigger tells what caused a load, which decides between merge and replace.
type trigger int

const (
	triggerViewport trigger = iota
	triggerFilter
)

// Loader maintains the rendered venue set of one category map.
// Renderer and Reporter are called with the loader's lock held; they must not call back into the Loader.
type Loader struct {
	category string
	source   Source
	opts     Options
	log      *slog.Logger
	metrics  *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	state          State
	started        bool
	bounds         models.BoundingBox
	hasBounds      bool
	filters        models.FilterSet
	cache          *lru.Cache[string, []models.Venue]
	cacheEpoch     uint64
	generation     uint64
	abortInFlight  context.CancelFunc
	loading        bool
	replacePending bool
	debounce       *clock.Timer
	debounceSeq    uint64
	rendered       map[int64]models.Venue
	version        uint64
	total          int
}

// New creates a Loader for one category. The category cannot change; open a new Loader instead.
func New(category string, source Source, opts Options) *Loader {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics(prometheus.NewRegistry())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	// lru.New fails only for a non-positive size
	cache, _ := lru.New[string, []models.Venue](opts.CacheSize)
	ctx, cancel := context.WithCancel(context.Background())

	return &Loader{
		category: category,
		source:   source,
		opts:     opts,
		log:      opts.Logger.With("category", category),
		metrics:  opts.Metrics,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateIdle,
		filters:  models.FilterSet{},
		cache:    cache,
		rendered: make(map[int64]models.Venue),
		total:    -1,
	}
}

// Category returns the category slug of the loader.
func (l *Loader) Category() string {
	return l.category
}

// Start mounts the loader: it fetches the total venue count of the category in the
// background and waits for the first bounds. Calling Start again has no effect.
func (l *Loader) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateClosed {
		return ErrClosed
	}
	if l.started {
		return nil
	}

	l.started = true
	if l.state == StateIdle {
		l.state = StateFirstLoadPending
	}

	l.wg.Add(1)
	go l.fetchTotal()

	return nil
}

// BoundsChanged handles a map ready, pan end or zoom end event.
// The first valid bounds load immediately; later bounds are debounced.
// Invalid bounds are ignored and reported as ErrInvalidBounds.
func (l *Loader) BoundsChanged(box models.BoundingBox) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateClosed {
		return ErrClosed
	}
	if !box.Valid() {
		l.log.Debug("Ignoring bounds of a map that is not ready", "bounds", box)
		return ErrInvalidBounds
	}

	l.bounds = box
	l.hasBounds = true

	if l.state != StateReady {
		l.state = StateReady
		l.log.Debug("First viewport received, loading immediately", "bbox", box.Param())
		l.load(triggerViewport)
		return nil
	}

	l.stopDebounce()
	seq := l.debounceSeq
	l.debounce = l.opts.Clock.AfterFunc(l.opts.Debounce, func() {
		l.debounced(seq)
	})

	return nil
}

// FiltersChanged replaces the filter set. A change clears the cache and, when the viewport
// is known, reloads it at once; the result replaces the rendered set.
func (l *Loader) FiltersChanged(filters models.FilterSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateClosed {
		return ErrClosed
	}

	active := filters.Active()
	if active.Equal(l.filters) {
		return nil
	}

	l.filters = active
	l.cache.Purge()
	l.cacheEpoch++
	l.replacePending = true

	l.log.Debug("Filters changed, cache cleared", "filters", active.Names())

	if !l.hasBounds {
		return nil
	}

	l.stopDebounce()
	l.load(triggerFilter)

	return nil
}

// Snapshot returns the current status and rendered set.
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	venues := l.sortedVenues()
	markers := make([]models.Marker, 0, len(venues))
	for _, venue := range venues {
		if marker, ok := models.NewMarker(l.category, venue); ok {
			markers = append(markers, marker)
		}
	}

	return Snapshot{
		Status:  l.status(),
		Filters: l.filters.Active(),
		Venues:  venues,
		Markers: markers,
	}
}

// Close stops the debounce timer, cancels in-flight fetches and waits for them to return.
// Responses arriving after Close are ignored.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		return
	}
	l.state = StateClosed
	l.stopDebounce()
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()

	l.log.Debug("Viewport loader closed")
}

// debounced runs when the pan/zoom idle window elapsed. seq identifies the timer,
// so a timer that fired while being replaced does nothing.
func (l *Loader) debounced(seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateClosed || seq != l.debounceSeq {
		return
	}

	l.debounce = nil
	l.load(triggerViewport)
}

// stopDebounce cancels a pending debounce timer. Callers hold mu.
func (l *Loader) stopDebounce() {
	l.debounceSeq++
	if l.debounce != nil {
		l.debounce.Stop()
		l.debounce = nil
	}
}

// load serves the current viewport from the cache or issues a fetch. Callers hold mu.
func (l *Loader) load(cause trigger) {
	query := models.VenueQuery{Category: l.category, BBox: l.bounds, Filters: l.filters}
	key := query.Key()

	if venues, ok := l.cache.Get(key); ok {
		l.metrics.ViewportCache.WithLabelValues("hit").Inc()
		l.log.Debug("Viewport served from cache", "key", key)
		l.apply(cause, venues)
		return
	}
	l.metrics.ViewportCache.WithLabelValues("miss").Inc()

	l.generation++
	generation := l.generation

	if l.opts.AbortSuperseded && l.abortInFlight != nil {
		l.abortInFlight()
	}

	ctx, cancel := context.WithTimeout(l.ctx, l.opts.FetchTimeout)
	l.abortInFlight = cancel
	l.setLoading(true)

	l.wg.Add(1)
	go l.fetch(ctx, cancel, fetchRequest{
		query:      query,
		key:        key,
		generation: generation,
		cacheEpoch: l.cacheEpoch,
		cause:      cause,
		fresh:      cause == triggerFilter || l.replacePending,
	})
}

// fetchRequest is what a fetch goroutine needs to settle its response.
type fetchRequest struct {
	query      models.VenueQuery
	key        string
	generation uint64
	cacheEpoch uint64
	cause      trigger
	fresh      bool // fresh skips a shared cache until a filter result has landed
}

func (l *Loader) fetch(ctx context.Context, cancel context.CancelFunc, req fetchRequest) {
	defer l.wg.Done()
	defer cancel()

	startTime := time.Now()
	venues, err := l.query(ctx, req)
	duration := time.Since(startTime)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateClosed {
		return
	}

	if err != nil {
		if req.generation != l.generation {
			l.metrics.VenueFetches.WithLabelValues("stale").Inc()
			return
		}

		l.metrics.VenueFetches.WithLabelValues("failure").Inc()
		l.log.Error("Failed to fetch venues", "bbox", req.query.BBox.Param(), "generation", req.generation, "error", err)
		l.setLoading(false)
		l.reporter().FetchFailed(fmt.Errorf("failed to fetch venues for %s: %w", req.query.BBox.Param(), err))
		return
	}

	// results of a request issued before the last filter change must not refill the cleared cache
	if req.cacheEpoch == l.cacheEpoch {
		l.cache.Add(req.key, venues)
	}

	if req.generation != l.generation {
		l.metrics.VenueFetches.WithLabelValues("stale").Inc()
		l.log.Debug("Discarding stale venue response", "generation", req.generation, "current", l.generation)
		return
	}

	l.metrics.VenueFetches.WithLabelValues("success").Inc()
	l.log.Debug("Venues fetched", "bbox", req.query.BBox.Param(), "count", len(venues), "duration", duration)

	l.apply(req.cause, venues)
	l.setLoading(false)
}

func (l *Loader) query(ctx context.Context, req fetchRequest) ([]models.Venue, error) {
	if fresh, ok := l.source.(FreshQuerier); ok && req.fresh {
		return fresh.ListVenuesFresh(ctx, req.query)
	}

	return l.source.ListVenues(ctx, req.query)
}

func (l *Loader) fetchTotal() {
	defer l.wg.Done()

	ctx, cancel := context.WithTimeout(l.ctx, l.opts.FetchTimeout)
	defer cancel()

	total, err := l.source.CountVenues(ctx, l.category)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateClosed {
		return
	}

	if err != nil {
		l.log.Error("Failed to fetch total venue count", "error", err)
		l.reporter().FetchFailed(fmt.Errorf("failed to count venues: %w", err))
		return
	}

	l.total = total
	l.reporter().StatusChanged(l.status())
}

// apply merges or replaces depending on what caused the load. A filter change that
// has not been applied yet, because its fetch was superseded, still forces a replace.
func (l *Loader) apply(cause trigger, venues []models.Venue) {
	if cause == triggerFilter || l.replacePending {
		l.applyFilterResult(venues)
		return
	}

	l.applyViewportResult(venues)
}

// applyViewportResult adds the venues not rendered yet. Rendered venues are kept as they are,
// including those outside the new box. Nothing is notified when no venue was added.
func (l *Loader) applyViewportResult(venues []models.Venue) {
	added := 0
	for _, venue := range venues {
		if _, ok := l.rendered[venue.ID]; ok {
			continue
		}
		l.rendered[venue.ID] = venue
		added++
	}

	if added == 0 {
		return
	}

	l.version++
	l.notifyRendered()
}

// applyFilterResult replaces the rendered set with the venues of the new filter.
func (l *Loader) applyFilterResult(venues []models.Venue) {
	rendered := make(map[int64]models.Venue, len(venues))
	for _, venue := range venues {
		if _, ok := rendered[venue.ID]; !ok {
			rendered[venue.ID] = venue
		}
	}

	l.rendered = rendered
	l.replacePending = false
	l.version++
	l.notifyRendered()
}

func (l *Loader) notifyRendered() {
	if l.opts.Renderer != nil {
		l.opts.Renderer.Render(l.sortedVenues())
	}
	l.reporter().StatusChanged(l.status())
}

func (l *Loader) setLoading(loading bool) {
	if l.loading == loading {
		return
	}

	l.loading = loading
	l.reporter().StatusChanged(l.status())
}

func (l *Loader) status() Status {
	return Status{
		State:      l.state,
		Loading:    l.loading,
		Visible:    len(l.rendered),
		Total:      l.total,
		Version:    l.version,
		Generation: l.generation,
	}
}

func (l *Loader) sortedVenues() []models.Venue {
	venues := make([]models.Venue, 0, len(l.rendered))
	for _, venue := range l.rendered {
		venues = append(venues, venue)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i].ID < venues[j].ID })

	return venues
}

func (l *Loader) reporter() Reporter {
	if l.opts.Reporter == nil {
		return nopReporter{}
	}
	return l.opts.Reporter
}

type nopReporter struct{}

func (nopReporter) StatusChanged(Status) {}
func (nopReporter) FetchFailed(error)    {}

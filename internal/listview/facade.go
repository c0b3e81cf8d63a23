package listview

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"patas/internal/api"
	"patas/internal/listview/metrics"
	"patas/pkg/platform/pubsub"
)

// State is one collection's published list-view state. Items never exceeds
// Size entries, and Total is at least len(Items) except while a request is
// in flight. A failed load leaves Items and Total at their last good values.
type State[T any] struct {
	Page    int
	Size    int
	Query   string
	Items   []T
	Total   int
	Loading bool
	Err     string
}

// ListFunc fetches one server-paginated page of the collection.
type ListFunc[T any] func(ctx context.Context, req api.PageRequest) (api.Page[T], error)

// Config sizes a Facade.
type Config struct {
	// Collection labels logs and metrics, e.g. "pets".
	Collection string
	// PageSize is the view's page length. Defaults to 10.
	PageSize int
	// SearchPageSize is the fixed large page size used for full-scan cache
	// builds. Defaults to 100.
	SearchPageSize int
	// MinSearchLen is the minimum trimmed query length that qualifies for
	// search mode. Defaults to 2.
	MinSearchLen int
}

type searchCache[T any] struct {
	query   string // normalized (trimmed, lower-cased)
	matches []T
}

// Facade owns one collection's paginated list view. It issues requests
// through the pipeline, discards responses of superseded request
// generations, and switches between server-side filtering and a client-side
// full-scan search cache depending on the query length.
//
// All methods are safe for concurrent use. Subscribers are notified
// synchronously after each committed state; a subscriber must not call a
// mutating facade method from inside its callback.
type Facade[T any] struct {
	cfg     Config
	list    ListFunc[T]
	nameOf  func(T) string
	logger  *slog.Logger
	metrics *metrics.Metrics

	state *pubsub.Value[State[T]]

	// mu serializes generation transitions, cache swaps, and state commits,
	// so a response is either applied while it is still the newest request
	// or not applied at all.
	mu    sync.Mutex
	gen   uint64
	cache *searchCache[T]
}

// Option configures the Facade.
type Option[T any] func(*Facade[T])

// WithMetrics attaches list facade metrics collectors.
func WithMetrics[T any](m *metrics.Metrics) Option[T] {
	return func(f *Facade[T]) { f.metrics = m }
}

// New builds a Facade over a page-fetching function. nameOf extracts the
// display-name field search mode filters on.
func New[T any](cfg Config, list ListFunc[T], nameOf func(T) string, logger *slog.Logger, opts ...Option[T]) *Facade[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.SearchPageSize <= 0 {
		cfg.SearchPageSize = 100
	}
	if cfg.MinSearchLen <= 0 {
		cfg.MinSearchLen = 2
	}

	f := &Facade[T]{
		cfg:    cfg,
		list:   list,
		nameOf: nameOf,
		logger: logger,
		state:  pubsub.NewValue(State[T]{Size: cfg.PageSize, Items: []T{}}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Snapshot returns the current list state.
func (f *Facade[T]) Snapshot() State[T] {
	return f.state.Get()
}

// Subscribe registers a listener notified after every committed state.
// There is no replay on subscribe; read Snapshot first.
func (f *Facade[T]) Subscribe(listener func(State[T])) func() {
	return f.state.Subscribe(listener)
}

// Load re-fetches the current page.
func (f *Facade[T]) Load(ctx context.Context) {
	f.LoadPage(ctx, f.state.Get().Page)
}

// LoadPage fetches the given page, from the server or, in search mode, from
// the search cache without a network call.
func (f *Facade[T]) LoadPage(ctx context.Context, page int) {
	s := f.state.Get()
	norm := normalize(s.Query)
	if len(norm) >= f.cfg.MinSearchLen {
		if c := f.cacheFor(norm); c != nil {
			f.serveFromCache(c, page)
			return
		}
		f.buildCacheAndServe(ctx, norm, page)
		return
	}
	f.serverLoad(ctx, page)
}

// SetQuery updates the active query (trimmed) and resets to page 0. Queries
// shorter than the search threshold drop any cache and load server-side;
// longer ones serve from the cache for that normalized query, building it
// first when needed.
func (f *Facade[T]) SetQuery(ctx context.Context, q string) {
	trimmed := strings.TrimSpace(q)
	norm := strings.ToLower(trimmed)

	f.state.Update(func(s State[T]) State[T] {
		s.Query = trimmed
		s.Page = 0
		return s
	})

	if len(norm) < f.cfg.MinSearchLen {
		f.mu.Lock()
		f.cache = nil
		f.mu.Unlock()
		f.serverLoad(ctx, 0)
		return
	}

	if c := f.cacheFor(norm); c != nil {
		f.serveFromCache(c, 0)
		return
	}
	f.buildCacheAndServe(ctx, norm, 0)
}

// NextPage advances one page, clamped to the last page.
func (f *Facade[T]) NextPage(ctx context.Context) {
	s := f.state.Get()
	last := totalPages(s.Total, s.Size) - 1
	next := s.Page + 1
	if next > last {
		next = last
	}
	f.LoadPage(ctx, next)
}

// PrevPage goes back one page, clamped to page 0.
func (f *Facade[T]) PrevPage(ctx context.Context) {
	s := f.state.Get()
	prev := s.Page - 1
	if prev < 0 {
		prev = 0
	}
	f.LoadPage(ctx, prev)
}

// serverLoad is the plain paginated path: one request, one staleness-guarded
// commit. The active query rides along as a server-side filter parameter.
func (f *Facade[T]) serverLoad(ctx context.Context, page int) {
	s := f.state.Get()
	gen := f.begin(page)
	f.metrics.IncrementLoads(f.cfg.Collection)

	result, err := f.list(ctx, api.PageRequest{Page: page, Size: s.Size, Query: s.Query})
	if err != nil {
		f.fail(gen, err)
		return
	}

	applied := f.commit(gen, func(s State[T]) State[T] {
		s.Items = result.Items
		s.Total = result.Total
		s.Page = result.Page
		if result.Size > 0 {
			s.Size = result.Size
		}
		s.Loading = false
		s.Err = ""
		return s
	})
	if !applied {
		f.metrics.IncrementStaleDrops(f.cfg.Collection)
	}
}

// buildCacheAndServe runs the full-scan search path as one staleness-guarded
// unit: scan every page, filter by name, swap the cache in, and serve the
// requested page, all under the generation captured at initiation.
func (f *Facade[T]) buildCacheAndServe(ctx context.Context, norm string, page int) {
	gen := f.begin(page)
	f.metrics.IncrementCacheBuilds(f.cfg.Collection)

	all, err := f.scanAll(ctx)
	if err != nil {
		f.fail(gen, err)
		return
	}

	matches := make([]T, 0, len(all))
	for _, item := range all {
		if strings.Contains(strings.ToLower(f.nameOf(item)), norm) {
			matches = append(matches, item)
		}
	}

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		f.metrics.IncrementStaleDrops(f.cfg.Collection)
		return
	}
	f.cache = &searchCache[T]{query: norm, matches: matches}
	f.state.Update(slicePage(f.cache, page))
	f.mu.Unlock()

	f.logger.Debug("search cache built",
		"collection", f.cfg.Collection,
		"query", norm,
		"matches", len(matches),
	)
}

// scanAll pages through the whole collection at the fixed scan page size.
// Page 0 is fetched first to learn the total; the remaining pages are
// fetched concurrently and recombined in page-index order, never in
// completion order.
func (f *Facade[T]) scanAll(ctx context.Context) ([]T, error) {
	size := f.cfg.SearchPageSize
	first, err := f.list(ctx, api.PageRequest{Page: 0, Size: size})
	if err != nil {
		return nil, err
	}

	pages := totalPages(first.Total, size)
	if pages <= 1 {
		return first.Items, nil
	}

	chunks := make([][]T, pages)
	chunks[0] = first.Items

	g, gctx := errgroup.WithContext(ctx)
	for p := 1; p < pages; p++ {
		p := p
		g.Go(func() error {
			result, err := f.list(gctx, api.PageRequest{Page: p, Size: size})
			if err != nil {
				return err
			}
			chunks[p] = result.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]T, 0, first.Total)
	for _, chunk := range chunks {
		all = append(all, chunk...)
	}
	return all, nil
}

// serveFromCache slices the requested page out of an existing cache. This
// still starts a new generation so a slower in-flight load cannot overwrite
// the sliced result afterwards.
func (f *Facade[T]) serveFromCache(c *searchCache[T], page int) {
	f.mu.Lock()
	f.gen++
	f.state.Update(slicePage(c, page))
	f.mu.Unlock()
	f.metrics.IncrementCacheServes(f.cfg.Collection)
}

// slicePage clamps page into the cache's range and produces the committed
// state: total comes from the match count, items from the page window.
func slicePage[T any](c *searchCache[T], page int) func(State[T]) State[T] {
	return func(s State[T]) State[T] {
		last := totalPages(len(c.matches), s.Size) - 1
		if page > last {
			page = last
		}
		if page < 0 {
			page = 0
		}

		start := page * s.Size
		end := start + s.Size
		if start > len(c.matches) {
			start = len(c.matches)
		}
		if end > len(c.matches) {
			end = len(c.matches)
		}

		s.Items = c.matches[start:end]
		s.Total = len(c.matches)
		s.Page = page
		s.Loading = false
		s.Err = ""
		return s
	}
}

// begin starts a new request generation and publishes the loading state.
func (f *Facade[T]) begin(page int) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	gen := f.gen
	f.state.Update(func(s State[T]) State[T] {
		s.Page = page
		s.Loading = true
		s.Err = ""
		return s
	})
	return gen
}

// commit applies fn only when gen is still the newest generation. The check
// and the state write happen under the same lock, so a superseded response
// can never land after the response that superseded it.
func (f *Facade[T]) commit(gen uint64, fn func(State[T]) State[T]) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return false
	}
	f.state.Update(fn)
	return true
}

// fail records a non-stale failure in the published state. Items and Total
// keep their last good values: errors never wipe previously displayed data.
func (f *Facade[T]) fail(gen uint64, err error) {
	applied := f.commit(gen, func(s State[T]) State[T] {
		s.Loading = false
		s.Err = err.Error()
		return s
	})
	if applied {
		f.metrics.IncrementLoadFailures(f.cfg.Collection)
		f.logger.Warn("list load failed",
			"collection", f.cfg.Collection,
			"error", err,
		)
		return
	}
	f.metrics.IncrementStaleDrops(f.cfg.Collection)
}

func (f *Facade[T]) cacheFor(norm string) *searchCache[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache != nil && f.cache.query == norm {
		return f.cache
	}
	return nil
}

func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func totalPages(total, size int) int {
	if size <= 0 {
		return 1
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

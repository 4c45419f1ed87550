// Package fetch owns pagination and the list request lifecycle of a view session.
package fetch

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/cache"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/metrics"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/query"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

// Status is the fetch lifecycle state
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// DefaultLimit is the page size when none is configured
const DefaultLimit = 50

// Lister fetches one page of calls
type Lister interface {
	ListCalls(ctx context.Context, q url.Values) (*types.CallPage, error)
}

// StateSource provides the current filter state. State is called with the
// controller lock held and must not call back into the controller.
type StateSource interface {
	State() types.FilterState
}

// Snapshot is the observable state of the controller
type Snapshot struct {
	Status     Status       `json:"status"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int          `json:"total"`
	TotalPages int          `json:"totalPages"`
	Rows       []types.Call `json:"rows"`
	Error      string       `json:"error,omitempty"`
}

// Listener is called after every status change, outside the lock
type Listener func(Snapshot)

// Options configures a Controller
type Options struct {
	Limit int
	// UTCOffset returns the client offset in minutes east of UTC
	UTCOffset func() int
}

// Controller issues list fetches and tracks pagination. Every fetch is
// tagged with a generation; a response older than the newest issued fetch
// is discarded.
type Controller struct {
	mu         sync.Mutex
	lister     Lister
	source     StateSource
	rows       *cache.RowCache
	utcOffset  func() int
	status     Status
	page       int
	limit      int
	total      int
	totalPages int
	lastErr    string
	lastKey    string
	generation uint64

	listenerMu sync.RWMutex
	listeners  []Listener

	logger zerolog.Logger
}

// NewController creates a controller at page 1
func NewController(lister Lister, source StateSource, rows *cache.RowCache, opts Options, logger zerolog.Logger) *Controller {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := opts.UTCOffset
	if offset == nil {
		offset = func() int { return query.LocalOffsetMinutes(time.Now()) }
	}
	return &Controller{
		lister:     lister,
		source:     source,
		rows:       rows,
		utcOffset:  offset,
		status:     StatusIdle,
		page:       1,
		limit:      limit,
		totalPages: 1,
		logger:     logger.With().Str("component", "fetch").Logger(),
	}
}

// Subscribe registers a listener
func (c *Controller) Subscribe(l Listener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Controller) notify() {
	snap := c.Snapshot()

	c.listenerMu.RLock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.listenerMu.RUnlock()

	for _, l := range listeners {
		l(snap)
	}
}

// Snapshot returns the current state with a copy of the rows
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Status:     c.status,
		Page:       c.page,
		Limit:      c.limit,
		Total:      c.total,
		TotalPages: c.totalPages,
		Rows:       c.rows.Rows(),
		Error:      c.lastErr,
	}
}

// Page returns the current page
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// ResetPage moves back to page 1 and fetches if the query changed
func (c *Controller) ResetPage(ctx context.Context) error {
	c.mu.Lock()
	c.page = 1
	c.mu.Unlock()
	return c.Sync(ctx)
}

// ChangePage moves to page n and fetches. Pages outside [1, totalPages]
// are ignored and reported as false.
func (c *Controller) ChangePage(ctx context.Context, n int) (bool, error) {
	c.mu.Lock()
	if n < 1 || n > c.totalPages {
		c.mu.Unlock()
		return false, nil
	}
	c.page = n
	c.mu.Unlock()
	return true, c.Sync(ctx)
}

// SetLimit changes the page size and returns to page 1
func (c *Controller) SetLimit(ctx context.Context, n int) (bool, error) {
	if n <= 0 {
		return false, nil
	}
	c.mu.Lock()
	c.limit = n
	c.page = 1
	c.mu.Unlock()
	return true, c.Sync(ctx)
}

// Sync fetches when the query differs from the last issued one. An
// incomplete custom range withholds the fetch silently.
func (c *Controller) Sync(ctx context.Context) error {
	return c.run(ctx, false)
}

// Refresh refetches the current page even when the query is unchanged
func (c *Controller) Refresh(ctx context.Context) error {
	return c.run(ctx, true)
}

func (c *Controller) run(ctx context.Context, force bool) error {
	// State read, query build and generation assignment happen as one step
	// so a fetch built from older filters can never take a newer generation.
	c.mu.Lock()
	params := query.Params{Page: c.page, Limit: c.limit, UTCOffsetMinutes: c.utcOffset()}
	q, err := query.Build(c.source.State(), params)
	if errors.Is(err, query.ErrIncompleteCustomRange) {
		c.mu.Unlock()
		c.logger.Debug().Msg("custom range incomplete, fetch withheld")
		metrics.Get().RecordFetchWithheld()
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		return err
	}
	key := query.Key(q)
	if !force && key == c.lastKey {
		c.mu.Unlock()
		return nil
	}
	c.generation++
	gen := c.generation
	c.lastKey = key
	c.status = StatusLoading
	c.mu.Unlock()
	c.notify()

	start := time.Now()
	page, err := c.lister.ListCalls(ctx, q)
	metrics.Get().RecordFetch(time.Since(start), err)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug().Uint64("generation", gen).Msg("discarding stale response")
		metrics.Get().RecordStaleResponse()
		return nil
	}

	if err != nil {
		c.status = StatusError
		c.lastErr = err.Error()
		// forget the key so the next Sync retries
		c.lastKey = ""
		c.mu.Unlock()
		c.logger.Warn().Err(err).Msg("list fetch failed, keeping previous rows")
		c.notify()
		return err
	}

	c.rows.Replace(page.Calls)
	if p := page.Pagination; p != nil {
		c.total = p.Total
		// a missing or zero page count keeps the last known one
		if p.TotalPages > 0 {
			c.totalPages = p.TotalPages
		}
	}
	c.status = StatusSuccess
	c.lastErr = ""
	c.mu.Unlock()

	c.logger.Debug().Int("rows", len(page.Calls)).Uint64("generation", gen).Msg("list fetched")
	c.notify()
	return nil
}

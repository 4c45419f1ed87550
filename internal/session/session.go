// Package session wires the per-user view stores together: filter state,
// layout, persistence, fetching and optimistic edits.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/cache"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/fetch"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/filters"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/labels"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/metrics"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/mutation"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/settings"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/storage"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/view"
)

// Backend is everything a session needs from the calls backend
type Backend interface {
	fetch.Lister
	mutation.Updater
	labels.Source
	settings.Remote
	Employees(ctx context.Context) ([]types.Employee, error)
}

// Event types pushed to subscribers
const (
	EventSnapshot = "snapshot"
	EventFetch    = "fetch"
	EventNotice   = "notice"
)

// Event is a push message for the user's connected clients
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EventListener receives session events
type EventListener func(Event)

// Options configures new sessions
type Options struct {
	Limit                int
	Debounce             time.Duration
	ResetOnSegmentDelete bool
	// UTCOffset returns the client offset in minutes east of UTC. Defaults
	// to the server's local zone.
	UTCOffset func() int
	Now       func() time.Time
}

// Snapshot is the full observable state of a session
type Snapshot struct {
	UserID               string                     `json:"userId"`
	Filters              types.FilterState          `json:"filters"`
	Segments             []types.Segment            `json:"segments"`
	ActiveSegmentID      string                     `json:"activeSegmentId"`
	FilterOrder          []string                   `json:"filterOrder"`
	VisibleFilters       []string                   `json:"visibleFilters"`
	ColumnOrder          []string                   `json:"columnOrder"`
	VisibleColumns       []string                   `json:"visibleColumns"`
	ColumnWidths         map[string]int             `json:"columnWidths"`
	ContactColumnOptions types.ContactColumnOptions `json:"contactColumnOptions"`
	Fetch                fetch.Snapshot             `json:"fetch"`
	RecentlyOpened       []string                   `json:"recentlyOpened"`
	SettingsPending      bool                       `json:"settingsPending"`
}

// Session is one user's calls view
type Session struct {
	userID string

	filters   *filters.Store
	filterBar *view.List
	columns   *view.Columns
	settings  *settings.Adapter
	rows      *cache.RowCache
	fetch     *fetch.Controller
	mutations *mutation.Layer
	arrivals  *cache.ArrivalTracker
	labels    *labels.Catalog
	backend   Backend

	// opMu serialises store mutations. resetPending and dirty are set by
	// store listeners, which run inside an operation.
	opMu         sync.Mutex
	resetPending bool
	dirty        bool

	empMu     sync.Mutex
	employees []types.Employee

	listenerMu sync.RWMutex
	listeners  []EventListener

	logger zerolog.Logger
}

// New creates a session at the defaults. Call Load before serving it.
func New(userID string, backend Backend, store storage.Store, opts Options, logger zerolog.Logger) *Session {
	logger = logger.With().Str("user", userID).Logger()

	rows := cache.NewRowCache()
	s := &Session{
		userID:    userID,
		filters:   filters.NewStore(filters.Options{ResetOnSegmentDelete: opts.ResetOnSegmentDelete}, logger),
		filterBar: view.NewDefaultFilterBar(logger),
		columns:   view.NewDefaultColumns(logger),
		settings:  settings.NewAdapter(store, backend, userID, opts.Debounce, logger),
		rows:      rows,
		arrivals:  cache.NewArrivalTracker(opts.Now),
		labels:    labels.NewCatalog(backend, logger),
		backend:   backend,
		logger:    logger.With().Str("component", "session").Logger(),
	}
	s.fetch = fetch.NewController(backend, s.filters, rows, fetch.Options{
		Limit:     opts.Limit,
		UTCOffset: opts.UTCOffset,
	}, logger)
	s.mutations = mutation.NewLayer(rows, backend, s.labels, logger)
	s.settings.OnRemoteSave = metrics.Get().RecordRemoteSave

	s.filters.Subscribe(func(c filters.Change) {
		s.dirty = true
		if c.ResetPage {
			s.resetPending = true
		}
	})
	layoutChanged := func(view.Change) { s.dirty = true }
	s.filterBar.Subscribe(layoutChanged)
	s.columns.Subscribe(layoutChanged)

	s.fetch.Subscribe(func(snap fetch.Snapshot) {
		s.publish(Event{Type: EventFetch, Data: snap})
	})
	s.mutations.Subscribe(func(n mutation.Notice) {
		s.publish(Event{Type: EventNotice, Data: n})
	})
	return s
}

// UserID returns the owner of the session
func (s *Session) UserID() string { return s.userID }

func (s *Session) Filters() *filters.Store     { return s.filters }
func (s *Session) FilterBar() *view.List       { return s.filterBar }
func (s *Session) Columns() *view.Columns      { return s.columns }
func (s *Session) Fetch() *fetch.Controller    { return s.fetch }
func (s *Session) Mutations() *mutation.Layer  { return s.mutations }
func (s *Session) Settings() *settings.Adapter { return s.settings }

// Subscribe registers a listener for pushed events
func (s *Session) Subscribe(fn EventListener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) publish(ev Event) {
	s.listenerMu.RLock()
	listeners := make([]EventListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Load restores persisted settings (local first, then remote) and the
// recently opened calls, then fetches the first page.
func (s *Session) Load(ctx context.Context) {
	cfg := s.settings.Load(ctx)
	s.opMu.Lock()
	s.applyConfig(cfg)
	s.opMu.Unlock()

	arrivals, err := s.settings.LoadArrivals(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load recently opened calls")
	}
	s.arrivals.Load(arrivals)

	if err := s.fetch.Sync(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("initial fetch failed")
	}
	s.logger.Info().Msg("session loaded")
}

func (s *Session) applyConfig(cfg settings.PageConfig) {
	segments := []types.Segment{}
	if cfg.Segments != nil {
		segments = *cfg.Segments
	}
	var active string
	if cfg.ActiveSegmentID != nil {
		active = *cfg.ActiveSegmentID
	}
	s.filters.Load(cfg.FilterState(), segments, active)

	s.filterBar.Load(derefList(cfg.FilterOrder), derefList(cfg.VisibleFilters))
	s.columns.Load(derefList(cfg.ColumnOrder), derefList(cfg.VisibleColumns))
	s.columns.LoadWidths(cfg.ColumnWidths)
	if cfg.ContactColumnOptions != nil {
		s.columns.LoadOptions(*cfg.ContactColumnOptions)
	}
}

func derefList(p *[]string) []string {
	if p == nil {
		return nil
	}
	return *p
}

// PageConfig captures the persisted part of the session
func (s *Session) PageConfig() settings.PageConfig {
	cfg := settings.PageConfig{}.WithFilterState(s.filters.State())

	segments := s.filters.Segments()
	active := s.filters.ActiveSegmentID()
	filterOrder, visibleFilters := s.filterBar.Order(), s.filterBar.Visible()
	columnOrder, visibleColumns := s.columns.Order(), s.columns.Visible()
	options := s.columns.Options()

	cfg.Segments = &segments
	cfg.ActiveSegmentID = &active
	cfg.FilterOrder = &filterOrder
	cfg.VisibleFilters = &visibleFilters
	cfg.ColumnOrder = &columnOrder
	cfg.VisibleColumns = &visibleColumns
	cfg.ColumnWidths = s.columns.Widths()
	cfg.ContactColumnOptions = &options
	return cfg
}

// Update runs fn against the session stores as one operation. Afterwards the
// configuration is persisted if anything changed, and the list is brought
// in line with the filters: back to page 1 after a filter change, otherwise
// only refetched if the query moved. fn's error is returned; fetch failures
// are reported through the snapshot instead.
func (s *Session) Update(ctx context.Context, fn func() error) error {
	s.opMu.Lock()
	err := fn()
	reset, dirty := s.resetPending, s.dirty
	s.resetPending, s.dirty = false, false
	s.opMu.Unlock()

	if dirty {
		s.persist(ctx)
	}

	var ferr error
	if reset {
		ferr = s.fetch.ResetPage(ctx)
	} else if dirty {
		ferr = s.fetch.Sync(ctx)
	}
	if ferr != nil {
		s.logger.Debug().Err(ferr).Msg("fetch after update failed")
	}

	if dirty || reset {
		s.publish(Event{Type: EventSnapshot, Data: s.Snapshot()})
	}
	return err
}

func (s *Session) persist(ctx context.Context) {
	err := s.settings.Save(ctx, s.PageConfig())
	metrics.Get().RecordLocalWrite(err)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to write local settings")
	}
}

// ResetView restores the default filters, segments and layout, clears the
// recently opened calls and drops the user's stored settings. The remote blob
// is overwritten with the defaults right away.
func (s *Session) ResetView(ctx context.Context) error {
	s.opMu.Lock()
	s.applyConfig(settings.PageConfig{})
	s.columns.LoadOptions(types.DefaultContactColumnOptions())
	s.arrivals.Load(nil)
	s.resetPending, s.dirty = false, false
	cfg := s.PageConfig()
	s.opMu.Unlock()

	err := s.settings.Reset(ctx, cfg)
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings reset incomplete")
	}
	if ferr := s.fetch.ResetPage(ctx); ferr != nil {
		s.logger.Debug().Err(ferr).Msg("fetch after reset failed")
	}
	s.publish(Event{Type: EventSnapshot, Data: s.Snapshot()})
	return err
}

// Release ends any drag or resize capture. Called when the pointer is
// released or leaves the window.
func (s *Session) Release() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.filterBar.DragEnd()
	s.columns.Release()
}

// Refresh refetches the current page without resetting it
func (s *Session) Refresh(ctx context.Context) error {
	return s.fetch.Refresh(ctx)
}

// Click marks a call as recently opened and persists the tracker locally
func (s *Session) Click(ctx context.Context, callID string) error {
	s.arrivals.Click(callID)
	err := s.settings.SaveArrivals(ctx, s.arrivals.Snapshot())
	metrics.Get().RecordLocalWrite(err)
	return err
}

// IsRecentlyOpened reports whether the call was opened within the window
func (s *Session) IsRecentlyOpened(callID string) bool {
	return s.arrivals.IsRecent(callID)
}

// SuggestLabels ranks known labels for a typed prefix
func (s *Session) SuggestLabels(ctx context.Context, prefix string, limit int) []string {
	return s.labels.Suggest(ctx, prefix, limit)
}

// Employees returns the employee list, fetched once per session
func (s *Session) Employees(ctx context.Context) ([]types.Employee, error) {
	s.empMu.Lock()
	defer s.empMu.Unlock()

	if s.employees != nil {
		return append([]types.Employee(nil), s.employees...), nil
	}
	list, err := s.backend.Employees(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []types.Employee{}
	}
	s.employees = list
	return append([]types.Employee(nil), list...), nil
}

// Snapshot returns the full session state
func (s *Session) Snapshot() Snapshot {
	fetchSnap := s.fetch.Snapshot()

	recent := []string{}
	for _, row := range fetchSnap.Rows {
		if s.arrivals.IsRecent(row.ID) {
			recent = append(recent, row.ID)
		}
	}

	return Snapshot{
		UserID:               s.userID,
		Filters:              s.filters.State(),
		Segments:             s.filters.Segments(),
		ActiveSegmentID:      s.filters.ActiveSegmentID(),
		FilterOrder:          s.filterBar.Order(),
		VisibleFilters:       s.filterBar.Visible(),
		ColumnOrder:          s.columns.Order(),
		VisibleColumns:       s.columns.Visible(),
		ColumnWidths:         s.columns.Widths(),
		ContactColumnOptions: s.columns.Options(),
		Fetch:                fetchSnap,
		RecentlyOpened:       recent,
		SettingsPending:      s.settings.Pending(),
	}
}

// Close sends any pending remote save
func (s *Session) Close(ctx context.Context) error {
	s.Release()
	return s.settings.Flush(ctx)
}

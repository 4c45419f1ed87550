// Package view holds the per-surface layout customisation: which filters and
// columns are shown, their order, and the column widths.
package view

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ErrUnknownKey is returned for keys outside the surface's default key set
var ErrUnknownKey = errors.New("unknown view key")

// Surface names
const (
	SurfaceFilters = "filters"
	SurfaceColumns = "columns"
)

// Change describes a layout mutation. Layout changes never reset the page.
type Change struct {
	Surface string `json:"surface"`
	Field   string `json:"field"` // order, visible, widths, options
}

// Listener is called synchronously after each change
type Listener func(Change)

// List is an ordered, partly visible key list. Order is always a
// permutation of the default key set.
type List struct {
	mu             sync.Mutex
	surface        string
	defaults       []string
	defaultVisible []string
	order          []string
	visible        map[string]bool
	dragged        string

	listenerMu sync.RWMutex
	listeners  []Listener

	logger zerolog.Logger
}

// NewList creates a list at its defaults
func NewList(surface string, defaults, defaultVisible []string, logger zerolog.Logger) *List {
	l := &List{
		surface:        surface,
		defaults:       append([]string(nil), defaults...),
		defaultVisible: append([]string(nil), defaultVisible...),
		logger:         logger.With().Str("component", "view").Str("surface", surface).Logger(),
	}
	l.order, l.visible = toState(Migrate(nil, nil, defaults, defaultVisible))
	return l
}

func toState(order, visible []string) ([]string, map[string]bool) {
	set := make(map[string]bool, len(visible))
	for _, k := range visible {
		set[k] = true
	}
	return order, set
}

// Surface returns the surface name
func (l *List) Surface() string {
	return l.surface
}

// Subscribe registers a listener
func (l *List) Subscribe(fn Listener) {
	l.listenerMu.Lock()
	defer l.listenerMu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *List) notify(field string) {
	l.listenerMu.RLock()
	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.listenerMu.RUnlock()

	c := Change{Surface: l.surface, Field: field}
	for _, fn := range listeners {
		fn(c)
	}
}

// Order returns a copy of the current order
func (l *List) Order() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

// Visible returns the visible keys in display order
func (l *List) Visible() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visibleLocked()
}

func (l *List) visibleLocked() []string {
	out := make([]string, 0, len(l.visible))
	for _, k := range l.order {
		if l.visible[k] {
			out = append(out, k)
		}
	}
	return out
}

// IsVisible reports whether key is shown
func (l *List) IsVisible(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible[key]
}

func (l *List) known(key string) bool {
	for _, k := range l.defaults {
		if k == key {
			return true
		}
	}
	return false
}

// ToggleVisible flips key in the visible set. Order is never touched.
func (l *List) ToggleVisible(key string) error {
	if !l.known(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	l.mu.Lock()
	if l.visible[key] {
		delete(l.visible, key)
	} else {
		l.visible[key] = true
	}
	l.mu.Unlock()

	l.notify("visible")
	return nil
}

// DragStart records the dragged key
func (l *List) DragStart(key string) error {
	if !l.known(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	l.mu.Lock()
	l.dragged = key
	l.mu.Unlock()
	return nil
}

// DragOver moves the dragged key to the index target currently occupies.
// Each hover commits immediately; there is no separate drop step.
func (l *List) DragOver(target string) {
	l.mu.Lock()
	dragged := l.dragged
	if dragged == "" || dragged == target {
		l.mu.Unlock()
		return
	}
	from, to := indexOf(l.order, dragged), indexOf(l.order, target)
	if from < 0 || to < 0 {
		l.mu.Unlock()
		return
	}
	l.order = move(l.order, from, to)
	l.mu.Unlock()

	l.notify("order")
}

// DragEnd clears the dragged key. The order is already committed.
func (l *List) DragEnd() {
	l.mu.Lock()
	l.dragged = ""
	l.mu.Unlock()
}

// Dragging returns the key being dragged, or ""
func (l *List) Dragging() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dragged
}

// Load replaces order and visibility with persisted values after migration.
// Listeners are not notified.
func (l *List) Load(order, visible []string) {
	o, v := Migrate(order, visible, l.defaults, l.defaultVisible)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.order, l.visible = toState(o, v)
	l.dragged = ""
}

// Reset restores the defaults
func (l *List) Reset() {
	l.mu.Lock()
	l.order, l.visible = toState(Migrate(nil, nil, l.defaults, l.defaultVisible))
	l.dragged = ""
	l.mu.Unlock()

	l.notify("order")
}

func indexOf(list []string, key string) int {
	for i, k := range list {
		if k == key {
			return i
		}
	}
	return -1
}

// move removes the element at from and re-inserts it at to
func move(list []string, from, to int) []string {
	out := make([]string, 0, len(list))
	item := list[from]
	rest := append(append([]string(nil), list[:from]...), list[from+1:]...)
	out = append(out, rest[:to]...)
	out = append(out, item)
	out = append(out, rest[to:]...)
	return out
}

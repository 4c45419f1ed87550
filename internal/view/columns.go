package view

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

type resizeCapture struct {
	column     string
	startX     int
	startWidth int
}

// Columns is the table column layout: a List plus widths and contact options
type Columns struct {
	*List

	defaultWidths map[string]int
	widths        map[string]int
	resizing      *resizeCapture
	options       types.ContactColumnOptions
}

// NewColumns creates the column layout at its defaults
func NewColumns(defaults, defaultVisible []string, defaultWidths map[string]int, logger zerolog.Logger) *Columns {
	c := &Columns{
		List:          NewList(SurfaceColumns, defaults, defaultVisible, logger),
		defaultWidths: copyWidths(defaultWidths),
		options:       types.DefaultContactColumnOptions(),
	}
	c.widths = copyWidths(defaultWidths)
	return c
}

// NewDefaultColumns creates the call table layout
func NewDefaultColumns(logger zerolog.Logger) *Columns {
	return NewColumns(types.DefaultColumnKeys, types.DefaultVisibleColumnKeys, types.DefaultColumnWidths, logger)
}

// NewDefaultFilterBar creates the filter bar layout
func NewDefaultFilterBar(logger zerolog.Logger) *List {
	return NewList(SurfaceFilters, types.DefaultFilterKeys, types.DefaultVisibleFilterKeys, logger)
}

// Widths returns a copy of the column widths
func (c *Columns) Widths() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyWidths(c.widths)
}

func (c *Columns) widthLocked(column string) int {
	if w, ok := c.widths[column]; ok {
		return w
	}
	if w, ok := c.defaultWidths[column]; ok {
		return w
	}
	return types.MinColumnWidth
}

// ResizeStart captures the column, pointer position and current width
func (c *Columns) ResizeStart(column string, x int) error {
	if !c.known(column) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, column)
	}
	c.mu.Lock()
	c.resizing = &resizeCapture{column: column, startX: x, startWidth: c.widthLocked(column)}
	c.mu.Unlock()
	return nil
}

// ResizeMove writes max(50, startWidth + x - startX) for the captured
// column. Without an active capture it does nothing and returns false.
func (c *Columns) ResizeMove(x int) (int, bool) {
	c.mu.Lock()
	if c.resizing == nil {
		c.mu.Unlock()
		return 0, false
	}
	r := c.resizing
	width := r.startWidth + (x - r.startX)
	if width < types.MinColumnWidth {
		width = types.MinColumnWidth
	}
	changed := c.widths[r.column] != width
	c.widths[r.column] = width
	c.mu.Unlock()

	if changed {
		c.notify("widths")
	}
	return width, true
}

// ResizeEnd releases the capture
func (c *Columns) ResizeEnd() {
	c.mu.Lock()
	c.resizing = nil
	c.mu.Unlock()
}

// Resizing returns the captured column, or ""
func (c *Columns) Resizing() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resizing == nil {
		return ""
	}
	return c.resizing.column
}

// Release ends any drag or resize in progress. Called on pointer-up and
// when the pointer leaves the window.
func (c *Columns) Release() {
	c.DragEnd()
	c.ResizeEnd()
}

// LoadWidths replaces widths from persisted values. Unknown columns are
// dropped and values below the minimum are clamped.
func (c *Columns) LoadWidths(widths map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.widths = copyWidths(c.defaultWidths)
	for k, w := range widths {
		if !c.known(k) {
			continue
		}
		if w < types.MinColumnWidth {
			w = types.MinColumnWidth
		}
		c.widths[k] = w
	}
}

// Options returns the contact column options
func (c *Columns) Options() types.ContactColumnOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.options
}

// SetOptions replaces the contact column options
func (c *Columns) SetOptions(o types.ContactColumnOptions) {
	c.mu.Lock()
	changed := c.options != o
	c.options = o
	c.mu.Unlock()

	if changed {
		c.notify("options")
	}
}

// LoadOptions sets the options without notifying
func (c *Columns) LoadOptions(o types.ContactColumnOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options = o
}

func copyWidths(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

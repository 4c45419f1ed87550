package cache

import (
	"sync"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

// RowCache holds the rows of the current page. A successful fetch replaces
// it wholesale; optimistic edits patch rows in place between fetches.
type RowCache struct {
	rows []types.Call
	mu   sync.RWMutex
}

// NewRowCache creates an empty row cache
func NewRowCache() *RowCache {
	return &RowCache{
		rows: make([]types.Call, 0, 50),
	}
}

// Replace swaps in a freshly fetched page
func (c *RowCache) Replace(rows []types.Call) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rows = make([]types.Call, len(rows))
	copy(c.rows, rows)
}

// Rows returns a copy of the cached rows in server order
func (c *RowCache) Rows() []types.Call {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.Call, len(c.rows))
	copy(out, c.rows)
	return out
}

// Get returns the row with id
func (c *RowCache) Get(id string) (types.Call, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.rows {
		if r.ID == id {
			return r, true
		}
	}
	return types.Call{}, false
}

// Patch applies fn to the row with id and returns the row as it was before
func (c *RowCache) Patch(id string, fn func(*types.Call)) (types.Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.rows {
		if c.rows[i].ID == id {
			before := c.rows[i]
			fn(&c.rows[i])
			return before, true
		}
	}
	return types.Call{}, false
}

// PatchWhere applies fn to every row matching pred and returns the
// pre-patch rows keyed by id
func (c *RowCache) PatchWhere(pred func(types.Call) bool, fn func(*types.Call)) map[string]types.Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := make(map[string]types.Call)
	for i := range c.rows {
		if pred(c.rows[i]) {
			before[c.rows[i].ID] = c.rows[i]
			fn(&c.rows[i])
		}
	}
	return before
}

// Size returns the number of cached rows
func (c *RowCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

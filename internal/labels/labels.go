// Package labels handles the comma-joined label field and label suggestions.
//
// The wire format has no escaping: a label containing a comma cannot be told
// apart from two labels. Split and Join keep that behaviour as-is because the
// format is shared with the backend.
package labels

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"
)

// Builtin is the fallback suggestion list used when the backend list is unavailable
var Builtin = []string{
	"Interested",
	"Not Interested",
	"Follow Up",
	"Callback",
	"Hot Lead",
	"Cold Lead",
	"Converted",
	"Wrong Number",
	"Busy",
	"No Answer",
}

// Split parses a comma-joined label field. Empty segments are dropped.
func Split(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Join renders labels in wire form. Duplicates keep their first position.
func Join(labels []string) string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return strings.Join(out, ",")
}

// AmbiguousLabel reports whether a label would split into several on the wire
func AmbiguousLabel(label string) bool {
	return strings.Contains(label, ",")
}

// Suggest ranks candidates for a typed prefix. Case-insensitive prefix
// matches come first in candidate order, then the rest by edit distance
// up to maxDistance. An empty prefix returns every candidate.
func Suggest(candidates []string, prefix string, maxDistance, limit int) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return capped(append([]string(nil), candidates...), limit)
	}

	type scored struct {
		label string
		dist  int
		index int
	}

	var prefixed []string
	var near []scored
	for i, c := range candidates {
		lc := strings.ToLower(c)
		if strings.HasPrefix(lc, prefix) {
			prefixed = append(prefixed, c)
			continue
		}
		// compare against the head of the candidate so long labels are not penalised
		head := lc
		if len(head) > len(prefix) {
			head = head[:len(prefix)]
		}
		if d := levenshtein.ComputeDistance(prefix, head); d <= maxDistance {
			near = append(near, scored{label: c, dist: d, index: i})
		}
	}

	sort.SliceStable(near, func(i, j int) bool {
		if near[i].dist != near[j].dist {
			return near[i].dist < near[j].dist
		}
		return near[i].index < near[j].index
	})

	out := prefixed
	for _, s := range near {
		out = append(out, s.label)
	}
	return capped(out, limit)
}

func capped(in []string, limit int) []string {
	if in == nil {
		in = []string{}
	}
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

// Source fetches the distinct labels known to the backend
type Source interface {
	Labels(ctx context.Context) ([]string, error)
}

// RetryAfter is how long a failed list fetch is trusted before the backend
// is asked again. The builtin list is served meanwhile.
const RetryAfter = 30 * time.Second

// Catalog caches the label list, falling back to Builtin on failure
type Catalog struct {
	mu      sync.RWMutex
	source  Source
	labels  []string
	loaded  bool
	retryAt time.Time
	now     func() time.Time
	logger  zerolog.Logger
}

// NewCatalog creates a catalog over source
func NewCatalog(source Source, logger zerolog.Logger) *Catalog {
	return &Catalog{
		source: source,
		now:    time.Now,
		logger: logger.With().Str("component", "labels").Logger(),
	}
}

// Refresh reloads the list from the backend. On error the builtin list is
// used until the next attempt, and the error is returned for logging only.
func (c *Catalog) Refresh(ctx context.Context) error {
	list, err := c.source.Labels(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.loaded = false
		c.retryAt = c.now().Add(RetryAfter)
		c.labels = mergeUnique(Builtin, c.labels)
		c.logger.Warn().Err(err).Msg("label list unavailable, using builtin suggestions")
		return err
	}
	c.loaded = true
	if len(list) == 0 {
		c.labels = mergeUnique(Builtin, c.labels)
		return nil
	}
	c.labels = mergeUnique(list, nil)
	return nil
}

// All returns the cached list, loading it on first use and again once a
// failed load has aged past RetryAfter
func (c *Catalog) All(ctx context.Context) []string {
	c.mu.RLock()
	stale := !c.loaded && !c.now().Before(c.retryAt)
	c.mu.RUnlock()
	if stale {
		_ = c.Refresh(ctx)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.labels...)
}

// Remember adds labels seen on a local edit so they show up before the next refresh
func (c *Catalog) Remember(labels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labels = mergeUnique(c.labels, labels)
}

// Suggest ranks the cached labels for prefix
func (c *Catalog) Suggest(ctx context.Context, prefix string, limit int) []string {
	return Suggest(c.All(ctx), prefix, 2, limit)
}

func mergeUnique(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, l := range list {
			l = strings.TrimSpace(l)
			if l == "" || seen[l] {
				continue
			}
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

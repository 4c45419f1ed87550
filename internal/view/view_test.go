package view

import (
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

var testKeys = []string{"a", "b", "c", "d"}

func isPermutation(t *testing.T, got, want []string) {
	t.Helper()
	g := append([]string(nil), got...)
	w := append([]string(nil), want...)
	sort.Strings(g)
	sort.Strings(w)
	assert.Equal(t, w, g, "order must be a permutation of the default keys")
}

func TestToggleVisibleNeverTouchesOrder(t *testing.T) {
	l := NewList(SurfaceFilters, testKeys, []string{"a", "b"}, zerolog.Nop())
	before := l.Order()

	require.NoError(t, l.ToggleVisible("c"))
	assert.Equal(t, []string{"a", "b", "c"}, l.Visible())

	require.NoError(t, l.ToggleVisible("a"))
	assert.Equal(t, []string{"b", "c"}, l.Visible())

	assert.Equal(t, before, l.Order())
	assert.ErrorIs(t, l.ToggleVisible("z"), ErrUnknownKey)
}

func TestDragReorder(t *testing.T) {
	tests := []struct {
		name   string
		drag   string
		hovers []string
		want   []string
	}{
		{"forward", "a", []string{"c"}, []string{"b", "c", "a", "d"}},
		{"backward", "d", []string{"b"}, []string{"a", "d", "b", "c"}},
		{"to end", "a", []string{"d"}, []string{"b", "c", "d", "a"}},
		{"self is no-op", "b", []string{"b"}, []string{"a", "b", "c", "d"}},
		{"live reorder", "a", []string{"b", "c", "d"}, []string{"b", "c", "d", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewList(SurfaceColumns, testKeys, testKeys, zerolog.Nop())
			require.NoError(t, l.DragStart(tt.drag))
			for _, h := range tt.hovers {
				l.DragOver(h)
				isPermutation(t, l.Order(), testKeys)
			}
			l.DragEnd()

			assert.Equal(t, tt.want, l.Order())
			assert.Empty(t, l.Dragging())
		})
	}
}

func TestDragOverWithoutStart(t *testing.T) {
	l := NewList(SurfaceColumns, testKeys, testKeys, zerolog.Nop())
	l.DragOver("c")
	assert.Equal(t, testKeys, l.Order())
}

func TestMigrate(t *testing.T) {
	defaults := []string{"a", "b", "c", "d"}
	defaultVisible := []string{"a", "c", "d"}

	tests := []struct {
		name        string
		order       []string
		visible     []string
		wantOrder   []string
		wantVisible []string
	}{
		{
			name:        "nothing persisted",
			wantOrder:   []string{"a", "b", "c", "d"},
			wantVisible: []string{"a", "c", "d"},
		},
		{
			name:        "new default key appended",
			order:       []string{"c", "a", "b"},
			visible:     []string{"c"},
			wantOrder:   []string{"c", "a", "b", "d"},
			wantVisible: []string{"c", "d"},
		},
		{
			name:        "unknown and duplicate keys dropped",
			order:       []string{"b", "x", "b", "a", "c", "d"},
			visible:     []string{"x", "b"},
			wantOrder:   []string{"b", "a", "c", "d"},
			wantVisible: []string{"b"},
		},
		{
			name:        "user hidden key stays hidden",
			order:       []string{"a", "b", "c", "d"},
			visible:     []string{},
			wantOrder:   []string{"a", "b", "c", "d"},
			wantVisible: []string{},
		},
		{
			name:        "order without visible",
			order:       []string{"d", "c", "b", "a"},
			wantOrder:   []string{"d", "c", "b", "a"},
			wantVisible: []string{"d", "c", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, visible := Migrate(tt.order, tt.visible, defaults, defaultVisible)
			assert.Equal(t, tt.wantOrder, order)
			assert.Equal(t, tt.wantVisible, visible)
			isPermutation(t, order, defaults)
		})
	}
}

func TestLoadDoesNotNotify(t *testing.T) {
	l := NewList(SurfaceFilters, testKeys, testKeys, zerolog.Nop())
	var changes []Change
	l.Subscribe(func(c Change) { changes = append(changes, c) })

	l.Load([]string{"d", "c"}, []string{"d"})

	assert.Equal(t, []string{"d", "c", "a", "b"}, l.Order())
	assert.Equal(t, []string{"d", "a", "b"}, l.Visible())
	assert.Empty(t, changes)
}

func TestResize(t *testing.T) {
	c := NewDefaultColumns(zerolog.Nop())
	start := types.DefaultColumnWidths["note"]

	require.NoError(t, c.ResizeStart("note", 100))

	w, ok := c.ResizeMove(160)
	require.True(t, ok)
	assert.Equal(t, start+60, w)

	// clamped at the minimum, no upper bound
	w, _ = c.ResizeMove(-10000)
	assert.Equal(t, types.MinColumnWidth, w)
	w, _ = c.ResizeMove(100 + 5000)
	assert.Equal(t, start+5000, w)

	c.ResizeEnd()
	_, ok = c.ResizeMove(0)
	assert.False(t, ok, "move after release must not resize")
	assert.Equal(t, start+5000, c.Widths()["note"])
}

func TestReleaseClearsCaptures(t *testing.T) {
	c := NewDefaultColumns(zerolog.Nop())
	require.NoError(t, c.DragStart("note"))
	require.NoError(t, c.ResizeStart("labels", 0))

	c.Release()

	assert.Empty(t, c.Dragging())
	assert.Empty(t, c.Resizing())
}

func TestLoadWidthsClamps(t *testing.T) {
	c := NewDefaultColumns(zerolog.Nop())
	c.LoadWidths(map[string]int{"note": 10, "bogus": 300, "labels": 400})

	widths := c.Widths()
	assert.Equal(t, types.MinColumnWidth, widths["note"])
	assert.Equal(t, 400, widths["labels"])
	assert.NotContains(t, widths, "bogus")
	assert.Equal(t, types.DefaultColumnWidths["contact"], widths["contact"])
}

func TestSetOptionsNotifiesOnChange(t *testing.T) {
	c := NewDefaultColumns(zerolog.Nop())
	var changes []Change
	c.Subscribe(func(ch Change) { changes = append(changes, ch) })

	c.SetOptions(types.DefaultContactColumnOptions())
	assert.Empty(t, changes)

	c.SetOptions(types.ContactColumnOptions{ShowPhone: true, ShowDuration: true})
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Surface: SurfaceColumns, Field: "options"}, changes[0])
}

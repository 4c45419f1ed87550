package cache

import (
	"testing"
	"time"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

func TestRowCacheReplace(t *testing.T) {
	c := NewRowCache()
	rows := []types.Call{{ID: "1"}, {ID: "2"}}
	c.Replace(rows)

	// caller's slice is not aliased
	rows[0].Note = "changed"
	if got, _ := c.Get("1"); got.Note != "" {
		t.Errorf("expected cache to hold its own copy, got note %q", got.Note)
	}

	c.Replace([]types.Call{{ID: "3"}})
	if c.Size() != 1 {
		t.Errorf("expected 1 row after replace, got %d", c.Size())
	}
	if _, ok := c.Get("1"); ok {
		t.Error("expected old rows to be gone after replace")
	}
}

func TestRowCachePatch(t *testing.T) {
	c := NewRowCache()
	c.Replace([]types.Call{{ID: "1", Labels: "VIP"}})

	before, ok := c.Patch("1", func(r *types.Call) { r.Labels = "VIP,Callback" })
	if !ok {
		t.Fatal("expected row to be patched")
	}
	if before.Labels != "VIP" {
		t.Errorf("expected pre-patch labels VIP, got %q", before.Labels)
	}
	if got, _ := c.Get("1"); got.Labels != "VIP,Callback" {
		t.Errorf("expected patched labels, got %q", got.Labels)
	}

	if _, ok := c.Patch("missing", func(r *types.Call) {}); ok {
		t.Error("expected patch of missing row to report false")
	}
}

func TestRowCachePatchWhere(t *testing.T) {
	c := NewRowCache()
	c.Replace([]types.Call{
		{ID: "1", PhoneNumber: "+1555", ContactName: "A"},
		{ID: "2", PhoneNumber: "+1555", ContactName: "B"},
		{ID: "3", PhoneNumber: "+1666", ContactName: "C"},
	})

	before := c.PatchWhere(
		func(r types.Call) bool { return r.PhoneNumber == "+1555" },
		func(r *types.Call) { r.ContactName = "Ravi" },
	)

	if len(before) != 2 || before["1"].ContactName != "A" || before["2"].ContactName != "B" {
		t.Errorf("unexpected captured rows: %+v", before)
	}
	if got, _ := c.Get("3"); got.ContactName != "C" {
		t.Errorf("expected unrelated row untouched, got %q", got.ContactName)
	}
}

func TestArrivalTrackerWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr := NewArrivalTracker(func() time.Time { return now })

	tr.Click("a")
	now = now.Add(9 * time.Minute)
	if !tr.IsRecent("a") {
		t.Error("expected a to be recent after 9 minutes")
	}

	now = now.Add(2 * time.Minute)
	tr.Click("b")

	snap := tr.Snapshot()
	if _, ok := snap["a"]; ok {
		t.Error("expected a to be pruned after 11 minutes")
	}
	if _, ok := snap["b"]; !ok {
		t.Error("expected b in snapshot")
	}
}

func TestArrivalTrackerLoad(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr := NewArrivalTracker(func() time.Time { return now })

	tr.Load(map[string]int64{
		"fresh": now.Add(-time.Minute).UnixMilli(),
		"stale": now.Add(-time.Hour).UnixMilli(),
	})

	if !tr.IsRecent("fresh") {
		t.Error("expected fresh entry kept")
	}
	if tr.IsRecent("stale") {
		t.Error("expected stale entry dropped")
	}
}

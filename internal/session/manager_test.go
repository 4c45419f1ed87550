package session

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/backend/backendtest"
)

func TestManagerOneSessionPerUser(t *testing.T) {
	fx := newFixture(t)
	m := NewManager(fx.client, fx.store, fx.opts, zerolog.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	got := make([]*Session, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = m.Get(ctx, "user-1")
		}(i)
	}
	wg.Wait()

	for _, s := range got[1:] {
		if s != got[0] {
			t.Fatal("expected the same session for concurrent first requests")
		}
	}
	if m.Count() != 1 {
		t.Errorf("expected 1 session, got %d", m.Count())
	}
	if fx.fake.ListCount() != 1 {
		t.Errorf("expected a single initial fetch, got %d", fx.fake.ListCount())
	}

	m.Get(ctx, "user-2")
	if m.Count() != 2 {
		t.Errorf("expected 2 sessions, got %d", m.Count())
	}
}

func TestManagerLookup(t *testing.T) {
	fx := newFixture(t)
	m := NewManager(fx.client, fx.store, fx.opts, zerolog.Nop())

	if _, ok := m.Lookup("user-1"); ok {
		t.Error("expected no session before Get")
	}
	s := m.Get(context.Background(), "user-1")
	if got, ok := m.Lookup("user-1"); !ok || got != s {
		t.Error("expected Lookup to return the loaded session")
	}
}

func TestManagerRefreshAll(t *testing.T) {
	fx := newFixture(t)
	m := NewManager(fx.client, fx.store, fx.opts, zerolog.Nop())
	ctx := context.Background()
	m.Get(ctx, "user-1")
	m.Get(ctx, "user-2")
	before := fx.fake.ListCount()

	if failed := m.RefreshAll(ctx); failed != 0 {
		t.Errorf("expected no failures, got %d", failed)
	}
	if got := fx.fake.ListCount() - before; got != 2 {
		t.Errorf("expected 2 refreshes, got %d", got)
	}

	fx.fake.Set(func(f *backendtest.Fake) { f.FailList = true })
	if failed := m.RefreshAll(ctx); failed != 2 {
		t.Errorf("expected 2 failures, got %d", failed)
	}
}

func TestManagerForwardsEvents(t *testing.T) {
	fx := newFixture(t)
	m := NewManager(fx.client, fx.store, fx.opts, zerolog.Nop())

	var mu sync.Mutex
	users := map[string]int{}
	m.OnEvent = func(userID string, ev Event) {
		mu.Lock()
		users[userID]++
		mu.Unlock()
	}

	s := m.Get(context.Background(), "user-1")
	s.Update(context.Background(), func() error { return s.Filters().SetSearch("x") })

	mu.Lock()
	defer mu.Unlock()
	if users["user-1"] == 0 {
		t.Error("expected events forwarded for user-1")
	}
}

func TestManagerCloseFlushes(t *testing.T) {
	fx := newFixture(t)
	m := NewManager(fx.client, fx.store, fx.opts, zerolog.Nop())
	ctx := context.Background()

	s := m.Get(ctx, "user-1")
	s.Update(ctx, func() error { return s.Columns().ToggleVisible("device") })

	if err := m.Close(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.fake.SavedBlobs != 1 {
		t.Errorf("expected 1 remote save, got %d", fx.fake.SavedBlobs)
	}
}

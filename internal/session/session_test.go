package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/backend"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/backend/backendtest"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/settings"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/storage"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

type fixture struct {
	fake   *backendtest.Fake
	client *backend.Client
	store  *storage.MemoryStore
	opts   Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := backendtest.New()
	t.Cleanup(f.Close)

	f.Calls = []types.Call{
		{ID: "1", PhoneNumber: "+1555"},
		{ID: "2", PhoneNumber: "+1666"},
	}
	f.Pagination = &types.Pagination{Total: 500, TotalPages: 10}

	return &fixture{
		fake:   f,
		client: backend.NewClient(f.URL(), "", time.Second, zerolog.Nop()),
		store:  storage.NewMemoryStore(),
		opts: Options{
			Limit:                50,
			Debounce:             time.Hour,
			ResetOnSegmentDelete: true,
			UTCOffset:            func() int { return 0 },
		},
	}
}

func (fx *fixture) session(t *testing.T) *Session {
	t.Helper()
	s := New("user-1", fx.client, fx.store, fx.opts, zerolog.Nop())
	s.Load(context.Background())
	return s
}

func localKey(t *testing.T, store storage.Store, field string) []byte {
	t.Helper()
	v, ok, err := store.Get(context.Background(), "user-1", settings.LocalPrefix+field)
	if err != nil || !ok {
		t.Fatalf("expected local key %q, ok=%v err=%v", field, ok, err)
	}
	return v
}

func TestLoadAppliesRemoteConfig(t *testing.T) {
	fx := newFixture(t)
	fx.fake.Settings[settings.RemoteKey] = json.RawMessage(`{"direction":"inbound","columnOrder":["type","contact"]}`)

	s := fx.session(t)
	snap := s.Snapshot()

	if snap.Filters.Direction != types.DirectionInbound {
		t.Errorf("expected inbound direction, got %s", snap.Filters.Direction)
	}
	if snap.ColumnOrder[0] != "type" || snap.ColumnOrder[1] != "contact" {
		t.Errorf("expected persisted order first, got %v", snap.ColumnOrder)
	}
	if len(snap.ColumnOrder) != len(types.DefaultColumnKeys) {
		t.Errorf("expected missing columns appended, got %v", snap.ColumnOrder)
	}
	if got := fx.fake.LastListQuery().Get("direction"); got != "inbound" {
		t.Errorf("expected initial fetch with direction=inbound, got %q", got)
	}
	if len(snap.Fetch.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(snap.Fetch.Rows))
	}
}

func TestLocalThenRemoteOnLoad(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.store.Set(ctx, "user-1", settings.LocalPrefix+"direction", []byte(`"missed"`))
	fx.store.Set(ctx, "user-1", settings.LocalPrefix+"durationFilter", []byte(`"over_5m"`))
	fx.fake.Settings[settings.RemoteKey] = json.RawMessage(`{"direction":"outbound"}`)

	st := fx.session(t).Filters().State()
	if st.Direction != types.DirectionOutbound {
		t.Errorf("expected remote direction to win, got %s", st.Direction)
	}
	if st.DurationFilter != types.DurationOver5m {
		t.Errorf("expected local duration kept, got %s", st.DurationFilter)
	}
}

func TestFilterChangeResetsPageAndPersists(t *testing.T) {
	fx := newFixture(t)
	s := fx.session(t)
	ctx := context.Background()

	if ok, _ := s.Fetch().ChangePage(ctx, 3); !ok {
		t.Fatal("expected page 3 accepted")
	}

	err := s.Update(ctx, func() error {
		return s.Filters().SetReviewed(types.ReviewedNotReviewed)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Fetch().Page() != 1 {
		t.Errorf("expected page 1 after filter change, got %d", s.Fetch().Page())
	}
	q := fx.fake.LastListQuery()
	if q.Get("page") != "1" || q.Get("reviewed") != "unreviewed" {
		t.Errorf("unexpected query %v", q)
	}
	if got := string(localKey(t, fx.store, "reviewedFilter")); got != `"not_reviewed"` {
		t.Errorf("expected local reviewedFilter written, got %s", got)
	}
	if !s.Snapshot().SettingsPending {
		t.Error("expected remote save pending")
	}
}

func TestUnchangedFilterDoesNothing(t *testing.T) {
	fx := newFixture(t)
	s := fx.session(t)
	ctx := context.Background()
	s.Fetch().ChangePage(ctx, 4)
	lists := fx.fake.ListCount()

	s.Update(ctx, func() error { return s.Filters().SetDirection(types.DirectionAll) })

	if fx.fake.ListCount() != lists {
		t.Errorf("expected no fetch, got %d new", fx.fake.ListCount()-lists)
	}
	if s.Fetch().Page() != 4 {
		t.Errorf("expected page kept, got %d", s.Fetch().Page())
	}
	if s.Settings().Pending() {
		t.Error("expected nothing scheduled")
	}
}

func TestLayoutChangeKeepsPage(t *testing.T) {
	fx := newFixture(t)
	s := fx.session(t)
	ctx := context.Background()
	s.Fetch().ChangePage(ctx, 3)
	lists := fx.fake.ListCount()

	err := s.Update(ctx, func() error { return s.Columns().ToggleVisible("device") })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Fetch().Page() != 3 || fx.fake.ListCount() != lists {
		t.Errorf("expected no refetch, page=%d lists=%d", s.Fetch().Page(), fx.fake.ListCount()-lists)
	}
	var visible []string
	json.Unmarshal(localKey(t, fx.store, "visibleColumns"), &visible)
	found := false
	for _, k := range visible {
		found = found || k == "device"
	}
	if !found {
		t.Errorf("expected device persisted visible, got %v", visible)
	}
}

func TestUpdateReturnsOperationError(t *testing.T) {
	fx := newFixture(t)
	s := fx.session(t)

	err := s.Update(context.Background(), func() error {
		_, err := s.Filters().SaveSegment("  ")
		return err
	})
	if err == nil {
		t.Fatal("expected blank name error")
	}
}

func TestCloseFlushesRemote(t *testing.T) {
	fx := newFixture(t)
	s := fx.session(t)
	ctx := context.Background()

	s.Update(ctx, func() error { return s.Filters().SetLabelFilter("VIP") })
	if fx.fake.SavedSetting(settings.RemoteKey) != nil {
		t.Fatal("expected remote save to be debounced")
	}

	if err := s.Close(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var cfg settings.PageConfig
	if err := json.Unmarshal(fx.fake.SavedSetting(settings.RemoteKey), &cfg); err != nil {
		t.Fatalf("expected saved blob: %v", err)
	}
	if cfg.LabelFilter == nil || *cfg.LabelFilter != "VIP" {
		t.Errorf("expected labelFilter VIP in blob, got %+v", cfg.LabelFilter)
	}
}

func TestEventsPublished(t *testing.T) {
	fx := newFixture(t)
	s := fx.session(t)
	ctx := context.Background()

	var mu sync.Mutex
	seen := map[string]int{}
	s.Subscribe(func(ev Event) {
		mu.Lock()
		seen[ev.Type]++
		mu.Unlock()
	})

	s.Update(ctx, func() error { return s.Filters().SetSearch("ravi") })
	s.Mutations().SetNote(ctx, "1", "call back")

	mu.Lock()
	defer mu.Unlock()
	if seen[EventSnapshot] != 1 {
		t.Errorf("expected 1 snapshot event, got %d", seen[EventSnapshot])
	}
	if seen[EventFetch] < 2 {
		t.Errorf("expected loading and success fetch events, got %d", seen[EventFetch])
	}
	if seen[EventNotice] != 2 {
		t.Errorf("expected pending and success notices, got %d", seen[EventNotice])
	}
}

func TestRecentlyOpenedSurvivesReload(t *testing.T) {
	fx := newFixture(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	fx.opts.Now = func() time.Time { return now }

	s := fx.session(t)
	if err := s.Click(context.Background(), "2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded := fx.session(t)
	if !reloaded.IsRecentlyOpened("2") {
		t.Error("expected click restored from the local tier")
	}
	if got := reloaded.Snapshot().RecentlyOpened; len(got) != 1 || got[0] != "2" {
		t.Errorf("expected recently opened [2], got %v", got)
	}
}

func TestEmployeesCached(t *testing.T) {
	fx := newFixture(t)
	fx.fake.Employees = []types.Employee{{ID: "7", Name: "Asha"}}
	s := fx.session(t)
	ctx := context.Background()

	first, err := s.Employees(ctx)
	if err != nil || len(first) != 1 {
		t.Fatalf("unexpected employees %v err=%v", first, err)
	}

	fx.fake.Set(func(f *backendtest.Fake) { f.Employees = nil })
	second, _ := s.Employees(ctx)
	if len(second) != 1 || second[0].Name != "Asha" {
		t.Errorf("expected cached employees, got %v", second)
	}
}

func TestSuggestLabelsFallsBackToBuiltin(t *testing.T) {
	fx := newFixture(t)
	fx.fake.FailLabels = true
	s := fx.session(t)

	got := s.SuggestLabels(context.Background(), "Hot", 5)
	if len(got) == 0 || got[0] != "Hot Lead" {
		t.Errorf("expected builtin suggestion, got %v", got)
	}
}

func TestResetViewRestoresDefaults(t *testing.T) {
	fx := newFixture(t)
	fx.fake.Settings[settings.RemoteKey] = json.RawMessage(`{"direction":"inbound"}`)
	s := fx.session(t)
	ctx := context.Background()

	if err := s.Update(ctx, func() error {
		return s.Filters().SetReviewed(types.ReviewedNotReviewed)
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Click(ctx, "2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Fetch().ChangePage(ctx, 3)
	saves := fx.fake.SavedBlobs

	if err := s.ResetView(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := s.Snapshot()
	if snap.Filters.Direction != types.DirectionAll || snap.Filters.Reviewed != types.ReviewedAll {
		t.Errorf("expected default filters, got %+v", snap.Filters)
	}
	if len(snap.RecentlyOpened) != 0 || s.IsRecentlyOpened("2") {
		t.Errorf("expected recently opened cleared, got %v", snap.RecentlyOpened)
	}
	if s.Fetch().Page() != 1 {
		t.Errorf("expected page 1, got %d", s.Fetch().Page())
	}
	if _, ok, _ := fx.store.Get(ctx, "user-1", settings.LocalPrefix+"reviewedFilter"); ok {
		t.Error("expected local tier cleared")
	}
	if fx.fake.SavedBlobs != saves+1 {
		t.Errorf("expected one remote save, got %d", fx.fake.SavedBlobs-saves)
	}
	if s.Settings().Pending() {
		t.Error("expected nothing left scheduled")
	}
	if q := fx.fake.LastListQuery(); q.Get("page") != "1" || q.Get("direction") != "" {
		t.Errorf("unexpected query after reset %v", q)
	}
}

package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/storage"
)

// DefaultDebounce is the remote save coalescing window
const DefaultDebounce = 2 * time.Second

// remoteTimeout bounds a debounced remote save, which runs without a caller context
const remoteTimeout = 10 * time.Second

// Remote is the user_settings endpoint of the backend
type Remote interface {
	GetUserSettings(ctx context.Context, key string) (json.RawMessage, error)
	SaveUserSettings(ctx context.Context, key string, value json.RawMessage) error
}

// Adapter persists one user's page configuration
type Adapter struct {
	store     storage.Store
	remote    Remote
	namespace string
	debouncer *Debouncer

	mu      sync.Mutex
	pending *PageConfig

	// OnRemoteSave, when set, is called after every remote save attempt
	OnRemoteSave func(err error)

	logger zerolog.Logger
}

// NewAdapter creates an adapter for namespace (the user id)
func NewAdapter(store storage.Store, remote Remote, namespace string, debounce time.Duration, logger zerolog.Logger) *Adapter {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Adapter{
		store:     store,
		remote:    remote,
		namespace: namespace,
		debouncer: NewDebouncer(debounce),
		logger:    logger.With().Str("component", "settings").Str("user", namespace).Logger(),
	}
}

// Load reads the local tier, then overlays the remote blob. A failing tier
// is logged and skipped; Load itself never fails.
func (a *Adapter) Load(ctx context.Context) PageConfig {
	local, err := a.LoadLocal(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to read local settings")
	}

	remote, err := a.LoadRemote(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to read remote settings, using local")
		return local
	}
	return Merge(local, remote)
}

// LoadLocal assembles a PageConfig from the per-field local keys. Keys that
// fail to decode are skipped.
func (a *Adapter) LoadLocal(ctx context.Context) (PageConfig, error) {
	var cfg PageConfig

	entries, err := a.store.List(ctx, a.namespace)
	if err != nil {
		return cfg, fmt.Errorf("list local settings: %w", err)
	}

	for key, value := range entries {
		if key == ArrivalsKey || !strings.HasPrefix(key, LocalPrefix) {
			continue
		}
		field := strings.TrimPrefix(key, LocalPrefix)
		name, err := json.Marshal(field)
		if err != nil {
			continue
		}
		doc := make([]byte, 0, len(name)+len(value)+3)
		doc = append(doc, '{')
		doc = append(doc, name...)
		doc = append(doc, ':')
		doc = append(doc, value...)
		doc = append(doc, '}')
		if err := json.Unmarshal(doc, &cfg); err != nil {
			a.logger.Warn().Err(err).Str("key", key).Msg("skipping corrupt local setting")
		}
	}
	return cfg, nil
}

// LoadRemote fetches and decodes the remote blob. A missing blob is an empty config.
func (a *Adapter) LoadRemote(ctx context.Context) (PageConfig, error) {
	var cfg PageConfig

	blob, err := a.remote.GetUserSettings(ctx, RemoteKey)
	if err != nil {
		return cfg, err
	}
	if blob == nil {
		return cfg, nil
	}
	if err := json.Unmarshal(blob, &cfg); err != nil {
		return PageConfig{}, fmt.Errorf("decode remote settings: %w", err)
	}
	return cfg, nil
}

// SaveLocal writes every present field of cfg to its own local key
func (a *Adapter) SaveLocal(ctx context.Context, cfg PageConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	for name, value := range fields {
		if err := a.store.Set(ctx, a.namespace, LocalPrefix+name, value); err != nil {
			return err
		}
	}
	return nil
}

// Schedule records cfg as the latest snapshot and (re)starts the remote
// save timer. Only the last snapshot in a burst is sent.
func (a *Adapter) Schedule(cfg PageConfig) {
	a.mu.Lock()
	a.pending = &cfg
	a.mu.Unlock()

	a.debouncer.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		a.saveRemote(ctx)
	})
}

// Save writes cfg locally right away and schedules the remote save
func (a *Adapter) Save(ctx context.Context, cfg PageConfig) error {
	a.Schedule(cfg)
	return a.SaveLocal(ctx, cfg)
}

// Pending reports whether a remote save is scheduled
func (a *Adapter) Pending() bool {
	return a.debouncer.Pending()
}

// Flush sends the pending snapshot now, if any
func (a *Adapter) Flush(ctx context.Context) error {
	if !a.debouncer.Stop() {
		return nil
	}
	return a.saveRemote(ctx)
}

func (a *Adapter) saveRemote(ctx context.Context) error {
	a.mu.Lock()
	cfg := a.pending
	a.pending = nil
	a.mu.Unlock()
	if cfg == nil {
		return nil
	}

	data, err := json.Marshal(cfg)
	if err == nil {
		err = a.remote.SaveUserSettings(ctx, RemoteKey, data)
	}
	if err != nil {
		a.logger.Warn().Err(err).Msg("remote settings save failed")
	} else {
		a.logger.Debug().Int("bytes", len(data)).Msg("remote settings saved")
	}
	if a.OnRemoteSave != nil {
		a.OnRemoteSave(err)
	}
	return err
}

// Reset drops every local key of the user, cancels any scheduled remote save
// and replaces the remote blob with cfg
func (a *Adapter) Reset(ctx context.Context, cfg PageConfig) error {
	a.debouncer.Stop()
	a.mu.Lock()
	a.pending = &cfg
	a.mu.Unlock()

	if err := a.store.Truncate(ctx, a.namespace); err != nil {
		return fmt.Errorf("truncate local settings: %w", err)
	}
	return a.saveRemote(ctx)
}

// SaveArrivals writes the recently opened calls map to the local tier. An
// empty map removes the key.
func (a *Adapter) SaveArrivals(ctx context.Context, arrivals map[string]int64) error {
	if len(arrivals) == 0 {
		return a.store.Delete(ctx, a.namespace, ArrivalsKey)
	}
	data, err := json.Marshal(arrivals)
	if err != nil {
		return fmt.Errorf("encode arrivals: %w", err)
	}
	return a.store.Set(ctx, a.namespace, ArrivalsKey, data)
}

// LoadArrivals reads the recently opened calls map. A missing key is an empty map.
func (a *Adapter) LoadArrivals(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	data, ok, err := a.store.Get(ctx, a.namespace, ArrivalsKey)
	if err != nil || !ok {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]int64{}, fmt.Errorf("decode arrivals: %w", err)
	}
	return out, nil
}

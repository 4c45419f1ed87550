package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "u1", "calls_direction"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "u1", "calls_direction", []byte(`"inbound"`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Set(ctx, "u1", "calls_direction", []byte(`"missed"`)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if err := s.Set(ctx, "u2", "calls_direction", []byte(`"outbound"`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	v, ok, err := s.Get(ctx, "u1", "calls_direction")
	if err != nil || !ok || string(v) != `"missed"` {
		t.Errorf("expected \"missed\", got %s ok=%v err=%v", v, ok, err)
	}

	s.Set(ctx, "u1", "calls_search", []byte(`""`))
	all, err := s.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 keys for u1, got %d", len(all))
	}

	if err := s.Delete(ctx, "u1", "calls_search"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "u1", "calls_search"); ok {
		t.Error("expected key deleted")
	}

	if err := s.Truncate(ctx, "u1"); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	all, _ = s.List(ctx, "u1")
	if len(all) != 0 {
		t.Errorf("expected u1 empty after truncate, got %d", len(all))
	}
	if _, ok, _ := s.Get(ctx, "u2", "calls_direction"); !ok {
		t.Error("expected other namespace untouched")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	runStoreContract(t, s)

	s.Close()
	if err := s.Set(context.Background(), "u1", "k", []byte("1")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	s, err := NewSQLiteStore(context.Background(), path, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer s.Close()

	runStoreContract(t, s)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")

	s, err := NewSQLiteStore(ctx, path, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	s.Set(ctx, "u1", "calls_columnWidths", []byte(`{"note":300}`))
	s.Close()

	s, err = NewSQLiteStore(ctx, path, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to reopen sqlite store: %v", err)
	}
	defer s.Close()

	v, ok, err := s.Get(ctx, "u1", "calls_columnWidths")
	if err != nil || !ok || string(v) != `{"note":300}` {
		t.Errorf("expected persisted widths, got %s ok=%v err=%v", v, ok, err)
	}
}

func TestLoadStoreConfig(t *testing.T) {
	t.Setenv("STORE_MODE", "bogus")
	t.Setenv("DYNAMO_MODE", "aws")
	t.Setenv("DYNAMO_SETTINGS_TABLE", "custom-table")

	cfg := LoadStoreConfig()
	if cfg.Mode != StoreModeMemory {
		t.Errorf("expected unknown mode to fall back to memory, got %s", cfg.Mode)
	}
	if cfg.Dynamo.Mode != DynamoModeAWS || cfg.Dynamo.SettingsTable != "custom-table" {
		t.Errorf("unexpected dynamo config: %+v", cfg.Dynamo)
	}
}

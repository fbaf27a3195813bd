package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"famfin/internal/config"
	"famfin/internal/core"
)

const seedJSON = `{
  "families": [{"id": "fam-1", "name": "Rossi"}],
  "categories": [{"id": "food", "family_id": "fam-1", "name": "Food", "kind": "expense"}],
  "wallets": [{"id": "w1", "family_id": "fam-1", "name": "Checking", "balance": "1500.00"}],
  "entries": [
    {"id": "e1", "family_id": "fam-1", "kind": "expense", "amount": "42.50",
     "occurred_at": "2025-03-10T00:00:00Z", "category_id": "food", "wallet_id": "w1"}
  ]
}`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(seedJSON), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", SeedFile: "seed.json"})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.SeedFile != "seed.json" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 2 || got[0] != "sqlite" || got[1] != "memory" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	seed := writeSeed(t)
	factory := NewFactory(nil)

	tests := []struct {
		name   string
		config Config
	}{
		{"memory seeded", Config{Type: MemoryBackend, SeedFile: seed}},
		{"sqlite seeded", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "famfin.db"), SeedFile: seed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := factory.CreateBackend(ctx, tt.config)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			if res.Cleanup != nil {
				defer res.Cleanup()
			}

			entries, err := res.Store.ListEntries(ctx, "fam-1", core.EntryFilter{})
			if err != nil {
				t.Fatalf("ListEntries() error = %v", err)
			}
			if len(entries) != 1 || entries[0].Amount.String() != "42.5" {
				t.Errorf("entries = %+v, want one entry of 42.5", entries)
			}

			ids, err := res.Store.ListFamilyIDs(ctx)
			if err != nil {
				t.Fatalf("ListFamilyIDs() error = %v", err)
			}
			if len(ids) != 1 || ids[0] != "fam-1" {
				t.Errorf("family ids = %v, want [fam-1]", ids)
			}
		})
	}
}

func TestCreateBackend_Errors(t *testing.T) {
	ctx := context.Background()
	factory := NewFactory(nil)

	if _, err := factory.CreateBackend(ctx, Config{Type: MemoryBackend, SeedFile: "/non/existent.json"}); err == nil {
		t.Error("expected error for missing memory seed file")
	}
	if _, err := factory.CreateBackend(ctx, Config{Type: SQLiteBackend}); err == nil {
		t.Error("expected error for sqlite without path")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(t.TempDir(), "famfin.db")
	if _, err := factory.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: dbPath, SeedFile: bad}); err == nil {
		t.Error("expected error for malformed seed file")
	}
}

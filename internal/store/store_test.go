package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckExists(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name      string
		setup     func(string) error
		wantExist bool
		wantError error
	}{
		{
			name: "database exists",
			setup: func(dbPath string) error {
				f, err := os.Create(dbPath)
				if err != nil {
					return err
				}
				return f.Close()
			},
			wantExist: true,
		},
		{
			name: "database does not exist",
			setup: func(dbPath string) error {
				return nil
			},
			wantExist: false,
		},
		{
			name: "database path is directory",
			setup: func(dbPath string) error {
				return os.Mkdir(dbPath, 0755)
			},
			wantExist: false,
			wantError: ErrIsDirectory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testDir := filepath.Join(tmpDir, tt.name)
			if err := os.Mkdir(testDir, 0755); err != nil {
				t.Fatalf("failed to create test dir: %v", err)
			}
			dbPath := filepath.Join(testDir, DefaultDBFile)

			if err := tt.setup(dbPath); err != nil {
				t.Fatalf("setup failed: %v", err)
			}

			exists, err := CheckExists(dbPath)

			if tt.wantError != nil && !errors.Is(err, tt.wantError) {
				t.Errorf("got error %v, want %v", err, tt.wantError)
			}
			if tt.wantError == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if exists != tt.wantExist {
				t.Errorf("got exists=%v, want %v", exists, tt.wantExist)
			}
		})
	}
}

func TestResolvePaths(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, DefaultDBFile)

	p, err := ResolvePaths(dbPath, DefaultConnectionFile, DefaultVisualizerDir, DefaultVisualizerEnvFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(p.DBAbs) {
		t.Errorf("DBAbs %q is not absolute", p.DBAbs)
	}
	if p.DB != dbPath {
		t.Errorf("got DB %q, want %q", p.DB, dbPath)
	}
	want := filepath.Join(DefaultVisualizerDir, DefaultVisualizerEnvFile)
	if p.VisualizerEnv != want {
		t.Errorf("got VisualizerEnv %q, want %q", p.VisualizerEnv, want)
	}
}

func TestResolvePathsRelative(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	p, err := ResolvePaths(DefaultDBFile, DefaultConnectionFile, DefaultVisualizerDir, DefaultVisualizerEnvFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := p.DBAbs, filepath.Join(wd, DefaultDBFile); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCatalogHas(t *testing.T) {
	c := Catalog{Tables: []string{"thoughts"}, Indexes: []string{"idx_thoughts_created_at"}}
	if !c.Has("thoughts") || !c.Has("idx_thoughts_created_at") {
		t.Error("expected catalog to contain thoughts and idx_thoughts_created_at")
	}
	if c.Has("users") {
		t.Error("catalog should not contain users")
	}
}

func TestStoreStateString(t *testing.T) {
	if got := StateVersionMismatch.String(); got != "version mismatch" {
		t.Errorf("got %q, want %q", got, "version mismatch")
	}
	if got := StoreState(42).String(); got != "unknown" {
		t.Errorf("got %q, want %q", got, "unknown")
	}
}

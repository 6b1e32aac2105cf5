package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leonmak/strongbox/internal/errdefs"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.StorageDir == "" {
		t.Error("StorageDir should not be empty")
	}
	if cfg.ListenAddr == "" {
		t.Error("ListenAddr should not be empty")
	}
	if len(cfg.Repositories) == 0 {
		t.Error("default config should have at least one repository")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_CreatesDefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.toml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if _, err := os.Stat(cfgPath); err != nil {
		t.Errorf("expected default config file to be created: %v", err)
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.ListenAddr = ":9999"
	cfg.StorageDir = filepath.Join(tmpDir, "indexes")
	cfg.Repositories = []Repository{
		{ID: "releases", BaseDir: filepath.Join(tmpDir, "releases"), Searchable: true},
		{ID: "snapshots", BaseDir: filepath.Join(tmpDir, "snapshots"), TrustExisting: true},
	}

	if err := cfg.Save(cfgPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %v, want :9999", loaded.ListenAddr)
	}
	if len(loaded.Repositories) != 2 {
		t.Fatalf("Repositories = %d, want 2", len(loaded.Repositories))
	}
	if loaded.Repositories[1].ID != "snapshots" {
		t.Errorf("Repositories[1].ID = %v, want snapshots", loaded.Repositories[1].ID)
	}
	if !loaded.Repositories[1].TrustExisting {
		t.Error("Repositories[1].TrustExisting should be true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "no repositories",
			mutate: func(c *Config) {
				c.Repositories = nil
			},
			wantErr: true,
		},
		{
			name: "empty repository id",
			mutate: func(c *Config) {
				c.Repositories[0].ID = ""
			},
			wantErr: true,
		},
		{
			name: "empty basedir",
			mutate: func(c *Config) {
				c.Repositories[0].BaseDir = ""
			},
			wantErr: true,
		},
		{
			name: "duplicate repository id",
			mutate: func(c *Config) {
				c.Repositories = append(c.Repositories, c.Repositories[0])
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errdefs.IsType(err, errdefs.ErrTypeInvalidConfig) {
				t.Errorf("Validate() error type = %v, want ErrTypeInvalidConfig", err)
			}
		})
	}
}

func TestIndexDirFor(t *testing.T) {
	cfg := Default()
	cfg.StorageDir = "/var/lib/strongbox/indexes"

	repo := Repository{ID: "releases", BaseDir: "/srv/releases"}
	if got := cfg.IndexDirFor(repo); got != filepath.Join("/var/lib/strongbox/indexes", "releases") {
		t.Errorf("IndexDirFor() = %v", got)
	}

	repo.IndexDir = "/custom/index"
	if got := cfg.IndexDirFor(repo); got != "/custom/index" {
		t.Errorf("IndexDirFor() with override = %v", got)
	}
}

func TestFindRepository(t *testing.T) {
	cfg := Default()

	if _, ok := cfg.FindRepository(cfg.Repositories[0].ID); !ok {
		t.Error("FindRepository should find the configured repository")
	}
	if _, ok := cfg.FindRepository("no-such-repo"); ok {
		t.Error("FindRepository should not find unknown id")
	}
}

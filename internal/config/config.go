package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/leonmak/strongbox/internal/errdefs"
	"github.com/leonmak/strongbox/internal/log"
)

// Repository binds a filesystem-backed artifact repository to an index
// storage location.
type Repository struct {
	ID      string `toml:"id"`
	BaseDir string `toml:"basedir"`

	// IndexDir overrides the per-repository index location. Empty means
	// <storage_dir>/<id>.
	IndexDir string `toml:"index_dir,omitempty"`

	// Searchable controls whether this repository participates in
	// non-targeted (federated) search.
	Searchable bool `toml:"searchable"`

	// TrustExisting opens the index storage as-is instead of validating
	// and rebuilding it. Only safe when the store is known to be fresh or
	// verified elsewhere.
	TrustExisting bool `toml:"trust_existing"`
}

type Config struct {
	StorageDir   string       `toml:"storage_dir"`
	ListenAddr   string       `toml:"listen_addr"`
	Repositories []Repository `toml:"repositories"`
	Watch        bool         `toml:"watch"`
}

func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		StorageDir: getDefaultStorageDir(),
		ListenAddr: ":48080",
		Watch:      true,
		Repositories: []Repository{
			{
				ID:         "releases",
				BaseDir:    filepath.Join(home, ".strongbox", "storage", "releases"),
				Searchable: true,
			},
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.Save(path); err != nil {
			log.Warnf("failed to create default config at %s: %v", path, err)
		} else {
			log.Infof("created default config at %s", path)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	f.WriteString("# Strongbox Configuration\n")
	f.WriteString("# Artifact repository indexing service\n\n")

	return toml.NewEncoder(f).Encode(c)
}

func (c *Config) Validate() error {
	if len(c.Repositories) == 0 {
		return errdefs.NewCustomError(errdefs.ErrTypeInvalidConfig, "no repositories configured", nil)
	}

	seen := make(map[string]bool, len(c.Repositories))
	for _, repo := range c.Repositories {
		if repo.ID == "" {
			return errdefs.NewCustomError(errdefs.ErrTypeInvalidConfig, "repository id must not be empty", nil)
		}
		if repo.BaseDir == "" {
			return errdefs.NewCustomError(errdefs.ErrTypeInvalidConfig, "repository "+repo.ID+" has no basedir", nil)
		}
		if seen[repo.ID] {
			return errdefs.NewCustomError(errdefs.ErrTypeInvalidConfig, "duplicate repository id: "+repo.ID, nil)
		}
		seen[repo.ID] = true
	}

	return nil
}

// IndexDirFor resolves the index storage location for a repository.
func (c *Config) IndexDirFor(repo Repository) string {
	if repo.IndexDir != "" {
		return repo.IndexDir
	}
	return filepath.Join(c.StorageDir, repo.ID)
}

func (c *Config) FindRepository(id string) (Repository, bool) {
	for _, repo := range c.Repositories {
		if repo.ID == id {
			return repo, true
		}
	}
	return Repository{}, false
}

func getDefaultStorageDir() string {
	var base string
	if runtime.GOOS == "windows" {
		base = os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
	} else {
		base = os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".cache")
		}
	}
	return filepath.Join(base, "strongbox", "indexes")
}

func GetDefaultConfigPath() string {
	var base string
	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "strongbox", "config.toml")
}

package repo

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/leonmak/strongbox/internal/errdefs"
	"github.com/leonmak/strongbox/internal/index"
	"github.com/leonmak/strongbox/internal/log"
	"github.com/leonmak/strongbox/internal/metastore"
	"github.com/leonmak/strongbox/internal/scan"
)

// Manager owns the repository indexers and enforces one live index
// context per repository id. The indexer, searcher and scanner are
// shared; each repository gets its own context and metastore.
type Manager struct {
	schema   index.Schema
	indexer  *index.Indexer
	searcher *index.Searcher
	scanner  *scan.Scanner

	mu    sync.RWMutex
	repos map[string]*RepositoryIndexer
}

type RepositoryStats struct {
	ID         string `json:"id"`
	BaseDir    string `json:"basedir"`
	Artifacts  uint64 `json:"artifacts"`
	Searchable bool   `json:"searchable"`
}

func NewManager() *Manager {
	schema := index.DefaultSchema()
	return &Manager{
		schema:   schema,
		indexer:  index.NewIndexer(schema),
		searcher: index.NewSearcher(schema),
		scanner:  scan.New(),
		repos:    make(map[string]*RepositoryIndexer),
	}
}

// Open creates the index context and metastore for a repository. A
// second Open with the same id fails until the first context is closed.
func (m *Manager) Open(opts index.Options) (*RepositoryIndexer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.repos[opts.ID]; ok {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeInvalidConfig,
			"index context already open for repository "+opts.ID, nil)
	}

	ctx, err := index.Open(opts, m.schema)
	if err != nil {
		return nil, err
	}

	metaPath := filepath.Join(filepath.Dir(opts.IndexDir), opts.ID+"-meta.db")
	meta, err := metastore.Open(metaPath)
	if err != nil {
		ctx.Close(false)
		return nil, errdefs.NewCustomError(errdefs.ErrTypeIndexWrite,
			"failed to open metastore for "+opts.ID, err)
	}

	ri := NewRepositoryIndexer(ctx, m.indexer, m.searcher, m.scanner, meta, metaPath)
	m.repos[opts.ID] = ri
	return ri, nil
}

func (m *Manager) Get(id string) (*RepositoryIndexer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ri, ok := m.repos[id]
	return ri, ok
}

// Resolve finds the repository whose base directory contains path.
func (m *Manager) Resolve(path string) (*RepositoryIndexer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clean := filepath.Clean(path)
	for _, ri := range m.repos {
		base := filepath.Clean(ri.BaseDir())
		if clean == base || strings.HasPrefix(clean, base+string(filepath.Separator)) {
			return ri, true
		}
	}
	return nil, false
}

func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.repos))
	for id := range m.repos {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) All() []*RepositoryIndexer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*RepositoryIndexer, 0, len(m.repos))
	for _, ri := range m.repos {
		all = append(all, ri)
	}
	return all
}

// SearchAllText runs a free-text query across every searchable
// repository and collapses results by coordinate identity.
func (m *Manager) SearchAllText(queryText string) (*index.Result, error) {
	if err := index.ValidateQueryText(queryText); err != nil {
		return nil, err
	}

	merged := &index.Result{}
	seen := make(map[string]bool)

	for _, ri := range m.All() {
		if !ri.Searchable() {
			continue
		}
		res, err := ri.SearchText(queryText)
		if err != nil {
			return nil, err
		}
		for _, a := range res.Artifacts {
			if seen[a.GAVCP()] {
				continue
			}
			seen[a.GAVCP()] = true
			merged.Artifacts = append(merged.Artifacts, a)
		}
	}

	merged.Total = uint64(len(merged.Artifacts))
	return merged, nil
}

func (m *Manager) Stats() []RepositoryStats {
	stats := make([]RepositoryStats, 0)
	for _, ri := range m.All() {
		count, err := ri.DocCount()
		if err != nil {
			log.Warnf("failed to count documents for %s: %v", ri.ID(), err)
		}
		stats = append(stats, RepositoryStats{
			ID:         ri.ID(),
			BaseDir:    ri.BaseDir(),
			Artifacts:  count,
			Searchable: ri.Searchable(),
		})
	}
	return stats
}

// Close shuts one repository down and frees its id for reopening.
func (m *Manager) Close(id string, deleteFiles bool) error {
	m.mu.Lock()
	ri, ok := m.repos[id]
	if ok {
		delete(m.repos, id)
	}
	m.mu.Unlock()

	if !ok {
		return errdefs.NewCustomError(errdefs.ErrTypeContextClosed,
			"no open index context for repository "+id, nil)
	}
	return ri.Close(deleteFiles)
}

func (m *Manager) CloseAll(deleteFiles bool) {
	for _, id := range m.IDs() {
		if err := m.Close(id, deleteFiles); err != nil {
			log.Errorf("failed to close repository %s: %v", id, err)
		}
	}
}

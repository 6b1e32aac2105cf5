package index

import (
	"os"
	"sync"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/leonmak/strongbox/internal/errdefs"
	"github.com/leonmak/strongbox/internal/log"
)

type Options struct {
	ID                string
	RepositoryBaseDir string
	IndexDir          string

	// Searchable marks the context as a participant in non-targeted
	// (federated) search.
	Searchable bool

	// TrustExisting opens the stored index as-is. When false, a store
	// that fails to open is wiped and rebuilt empty instead.
	TrustExisting bool
}

// Context is the persistent binding between one repository base
// directory and one index storage location. Searches take the read
// lock; add and delete serialize through the write lock.
type Context struct {
	id         string
	baseDir    string
	indexDir   string
	searchable bool
	schema     Schema

	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

func Open(opts Options, schema Schema) (*Context, error) {
	if opts.ID == "" || opts.RepositoryBaseDir == "" || opts.IndexDir == "" {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeInvalidConfig,
			"index context requires id, repository basedir and index dir", nil)
	}

	idx, err := openIndex(opts, schema)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		id:         opts.ID,
		baseDir:    opts.RepositoryBaseDir,
		indexDir:   opts.IndexDir,
		searchable: opts.Searchable,
		schema:     schema,
		index:      idx,
	}

	log.Infof("repository index context opened; id: %s; dir: %s", opts.ID, opts.IndexDir)
	return ctx, nil
}

func openIndex(opts Options, schema Schema) (bleve.Index, error) {
	idx, err := bleve.Open(opts.IndexDir)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return createIndex(opts.IndexDir, schema)
	}
	if err != nil {
		if opts.TrustExisting {
			return nil, errdefs.NewCustomError(errdefs.ErrTypeIndexCorrupted, opts.IndexDir, err)
		}
		log.Warnf("index at %s failed validation, rebuilding: %v", opts.IndexDir, err)
		if rmErr := os.RemoveAll(opts.IndexDir); rmErr != nil {
			return nil, errdefs.NewCustomError(errdefs.ErrTypeIndexCorrupted, opts.IndexDir, rmErr)
		}
		return createIndex(opts.IndexDir, schema)
	}
	return idx, nil
}

func createIndex(path string, schema Schema) (bleve.Index, error) {
	idx, err := bleve.NewUsing(path, buildIndexMapping(schema), "scorch", "scorch", nil)
	if err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeIndexWrite, "failed to create index at "+path, err)
	}
	log.Infof("created new index at %s", path)
	return idx, nil
}

func (c *Context) ID() string {
	return c.id
}

func (c *Context) BaseDir() string {
	return c.baseDir
}

func (c *Context) IndexDir() string {
	return c.indexDir
}

func (c *Context) Searchable() bool {
	return c.searchable
}

func (c *Context) DocCount() (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return 0, errdefs.ErrContextClosed
	}
	return c.index.DocCount()
}

// Close releases the backend index. With deleteFiles set, the on-disk
// contents are removed as well. Every later operation on the context
// fails with a context-closed error.
func (c *Context) Close(deleteFiles bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errdefs.ErrContextClosed
	}
	c.closed = true

	if err := c.index.Close(); err != nil {
		return errdefs.NewCustomError(errdefs.ErrTypeIndexWrite, "failed to close index "+c.id, err)
	}

	if deleteFiles {
		if err := os.RemoveAll(c.indexDir); err != nil {
			return errdefs.NewCustomError(errdefs.ErrTypeIndexWrite, "failed to delete index files for "+c.id, err)
		}
		log.Infof("deleted index files for %s at %s", c.id, c.indexDir)
	}

	log.Infof("repository index context closed; id: %s", c.id)
	return nil
}

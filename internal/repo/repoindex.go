// Package repo ties the scanner, indexer and query engine together into
// the per-repository indexing facade.
package repo

import (
	"os"

	"github.com/leonmak/strongbox/internal/artifact"
	"github.com/leonmak/strongbox/internal/index"
	"github.com/leonmak/strongbox/internal/log"
	"github.com/leonmak/strongbox/internal/metastore"
	"github.com/leonmak/strongbox/internal/scan"
)

// RepositoryIndexer is the caller-facing API for one repository: index a
// subtree, search by coordinates or text, retract artifacts, close. All
// collaborators are supplied at construction.
type RepositoryIndexer struct {
	ctx      *index.Context
	indexer  *index.Indexer
	searcher *index.Searcher
	scanner  *scan.Scanner
	meta     *metastore.Store
	metaPath string
}

func NewRepositoryIndexer(ctx *index.Context, indexer *index.Indexer, searcher *index.Searcher,
	scanner *scan.Scanner, meta *metastore.Store, metaPath string) *RepositoryIndexer {
	return &RepositoryIndexer{
		ctx:      ctx,
		indexer:  indexer,
		searcher: searcher,
		scanner:  scanner,
		meta:     meta,
		metaPath: metaPath,
	}
}

func (r *RepositoryIndexer) ID() string {
	return r.ctx.ID()
}

func (r *RepositoryIndexer) BaseDir() string {
	return r.ctx.BaseDir()
}

func (r *RepositoryIndexer) Searchable() bool {
	return r.ctx.Searchable()
}

func (r *RepositoryIndexer) DocCount() (uint64, error) {
	return r.ctx.DocCount()
}

// Index scans the tree rooted at startingPath (the whole repository when
// empty) and adds every discovered artifact. The returned result carries
// the count of successfully indexed files plus the extraction-error
// list; a failed add is logged, leaves the count untouched and never
// aborts the scan.
func (r *RepositoryIndexer) Index(startingPath string) (*scan.Result, error) {
	listener := &reindexListener{indexer: r.indexer, meta: r.meta}
	return r.scanner.Scan(r.ctx, startingPath, listener)
}

func (r *RepositoryIndexer) SearchCoordinates(groupID, artifactID, version string) (*index.Result, error) {
	return r.searcher.SearchCoordinates(r.ctx, groupID, artifactID, version)
}

func (r *RepositoryIndexer) SearchText(queryText string) (*index.Result, error) {
	return r.searcher.SearchText(r.ctx, queryText)
}

func (r *RepositoryIndexer) Delete(artifacts []artifact.ArtifactInfo) error {
	return r.indexer.Delete(r.ctx, artifacts)
}

// Add indexes one artifact file, recording its metadata for later
// incremental syncs. Used by the filesystem watcher.
func (r *RepositoryIndexer) Add(path string, info *artifact.ArtifactInfo) error {
	if err := r.indexer.Add(r.ctx, []artifact.ArtifactInfo{*info}); err != nil {
		return err
	}
	recordFileMeta(r.meta, path)
	return nil
}

// Remove retracts one artifact and drops its metastore entry.
func (r *RepositoryIndexer) Remove(path string, info *artifact.ArtifactInfo) error {
	if err := r.indexer.Delete(r.ctx, []artifact.ArtifactInfo{*info}); err != nil {
		return err
	}
	if r.meta != nil {
		if err := r.meta.Delete(path); err != nil {
			log.Warnf("failed to drop file meta for %s: %v", path, err)
		}
	}
	return nil
}

// Close releases the index context and the metastore. With deleteFiles
// set, both on-disk stores are removed.
func (r *RepositoryIndexer) Close(deleteFiles bool) error {
	if r.meta != nil {
		if err := r.meta.Close(); err != nil {
			log.Warnf("failed to close metastore for %s: %v", r.ID(), err)
		}
		if deleteFiles && r.metaPath != "" {
			if err := os.Remove(r.metaPath); err != nil && !os.IsNotExist(err) {
				log.Warnf("failed to delete metastore for %s: %v", r.ID(), err)
			}
		}
	}
	return r.ctx.Close(deleteFiles)
}

// reindexListener wires scan discoveries into the indexer: one add per
// artifact, issued immediately, counted only on success.
type reindexListener struct {
	indexer    *index.Indexer
	meta       *metastore.Store
	ctx        *index.Context
	totalFiles int
}

func (l *reindexListener) ScanningStarted(ctx *index.Context) {
	l.ctx = ctx
}

func (l *reindexListener) ArtifactDiscovered(path string, info *artifact.ArtifactInfo) {
	log.Debugf("adding artifact: %s; ctx id: %s", info, l.ctx.ID())

	if err := l.indexer.Add(l.ctx, []artifact.ArtifactInfo{*info}); err != nil {
		log.Errorf("artifact index error for %s: %v", path, err)
		return
	}

	l.totalFiles++
	recordFileMeta(l.meta, path)
}

func (l *reindexListener) ArtifactError(path string, err error) {
	log.Errorf("artifact error at %s: %v", path, err)
}

func (l *reindexListener) ScanningFinished(ctx *index.Context, result *scan.Result) {
	result.TotalFiles = l.totalFiles
	log.Debugf("scanning finished; ctx id: %s; total files: %d; has errors: %v",
		ctx.ID(), result.TotalFiles, result.HasErrors())
}

func recordFileMeta(meta *metastore.Store, path string) {
	if meta == nil {
		return
	}
	stat, err := os.Stat(path)
	if err != nil {
		log.Warnf("failed to stat %s for metastore: %v", path, err)
		return
	}
	if err := meta.Put(path, metastore.FileMeta{ModTime: stat.ModTime(), Size: stat.Size()}); err != nil {
		log.Warnf("failed to record file meta for %s: %v", path, err)
	}
}

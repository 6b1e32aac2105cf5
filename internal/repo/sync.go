package repo

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/leonmak/strongbox/internal/artifact"
	"github.com/leonmak/strongbox/internal/errdefs"
	"github.com/leonmak/strongbox/internal/log"
	"github.com/leonmak/strongbox/internal/metastore"
)

type SyncResult struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// Sync reconciles the index with the repository tree: new and changed
// artifact files are re-added, unchanged ones are skipped, and index
// entries whose files vanished are retracted. Change detection uses the
// per-file metastore snapshots recorded at index time.
func (r *RepositoryIndexer) Sync() (*SyncResult, error) {
	if r.meta == nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeScanFailed,
			"incremental sync requires a metastore", nil)
	}

	result := &SyncResult{}
	seen := make(map[string]bool)

	err := filepath.WalkDir(r.BaseDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := artifact.FromRepositoryPath(r.BaseDir(), path)
		if err != nil {
			if !errdefs.IsType(err, errdefs.ErrTypeNotAnArtifact) {
				log.Debugf("skipping malformed artifact %s during sync: %v", path, err)
			}
			return nil
		}

		seen[path] = true

		stat, err := os.Stat(path)
		if err != nil {
			log.Debugf("failed to stat %s during sync: %v", path, err)
			return nil
		}

		prior, found, err := r.meta.Get(path)
		if err != nil {
			return err
		}
		if found && prior.ModTime.Equal(stat.ModTime()) && prior.Size == stat.Size() {
			result.Unchanged++
			return nil
		}

		if err := r.indexer.Add(r.ctx, []artifact.ArtifactInfo{*info}); err != nil {
			log.Errorf("failed to index %s during sync: %v", path, err)
			return nil
		}
		if err := r.meta.Put(path, metastore.FileMeta{ModTime: stat.ModTime(), Size: stat.Size()}); err != nil {
			log.Warnf("failed to record file meta for %s: %v", path, err)
		}

		if found {
			result.Updated++
		} else {
			result.Added++
		}
		return nil
	})
	if err != nil {
		return result, errdefs.NewCustomError(errdefs.ErrTypeScanFailed, "sync walk of "+r.BaseDir()+" failed", err)
	}

	// Retract index entries whose backing files are gone.
	var stale []string
	err = r.meta.ForEach(func(path string, meta metastore.FileMeta) error {
		if !seen[path] {
			stale = append(stale, path)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	for _, path := range stale {
		info, err := artifact.FromRepositoryPath(r.BaseDir(), path)
		if err == nil {
			if err := r.indexer.Delete(r.ctx, []artifact.ArtifactInfo{*info}); err != nil {
				log.Errorf("failed to retract %s during sync: %v", path, err)
				continue
			}
			result.Deleted++
		}
		if err := r.meta.Delete(path); err != nil {
			log.Warnf("failed to drop file meta for %s: %v", path, err)
		}
	}

	log.Infof("incremental sync of %s complete: +%d new, ~%d updated, -%d deleted, =%d unchanged",
		r.ID(), result.Added, result.Updated, result.Deleted, result.Unchanged)
	return result, nil
}

package scan

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/leonmak/strongbox/internal/artifact"
	"github.com/leonmak/strongbox/internal/errdefs"
	"github.com/leonmak/strongbox/internal/index"
	"github.com/leonmak/strongbox/internal/log"
)

// Listener receives scan lifecycle events. ArtifactDiscovered and
// ArtifactError fire exactly once per candidate file; ScanningFinished
// runs after traversal and is where listeners record their processed
// total on the result.
type Listener interface {
	ScanningStarted(ctx *index.Context)
	ArtifactDiscovered(path string, info *artifact.ArtifactInfo)
	ArtifactError(path string, err error)
	ScanningFinished(ctx *index.Context, result *Result)
}

type Error struct {
	Path string `json:"path"`
	Err  error  `json:"error"`
}

// Result is the outcome of one scan pass. Errors collects per-artifact
// extraction failures; they never abort the traversal.
type Result struct {
	TotalFiles int     `json:"totalFiles"`
	Errors     []Error `json:"errors,omitempty"`
}

func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Scanner walks a repository tree and reports artifact discoveries. It
// knows nothing about indexing; listeners decide what a discovery means.
type Scanner struct{}

func New() *Scanner {
	return &Scanner{}
}

// Scan traverses the tree rooted at startingPath (the context's
// repository base directory when empty), invoking the extractor for
// every file. Traversal is sequential and lexical, so the callback
// order is deterministic within a run. A malformed artifact is reported
// through ArtifactError and the walk continues.
func (s *Scanner) Scan(ctx *index.Context, startingPath string, listener Listener) (*Result, error) {
	root := startingPath
	if root == "" {
		root = ctx.BaseDir()
	}

	result := &Result{}
	listener.ScanningStarted(ctx)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				log.Debugf("permission denied: %s", path)
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

		info, err := artifact.FromRepositoryPath(ctx.BaseDir(), path)
		if err != nil {
			if errdefs.IsType(err, errdefs.ErrTypeNotAnArtifact) {
				return nil
			}
			result.Errors = append(result.Errors, Error{Path: path, Err: err})
			listener.ArtifactError(path, err)
			return nil
		}

		listener.ArtifactDiscovered(path, info)
		return nil
	})

	if err != nil {
		return result, errdefs.NewCustomError(errdefs.ErrTypeScanFailed, "scan of "+root+" failed", err)
	}

	listener.ScanningFinished(ctx, result)
	log.Debugf("scanning finished; total files: %d; errors: %d", result.TotalFiles, len(result.Errors))
	return result, nil
}

// Package watcher keeps repository indexes current as artifact files
// appear and disappear on disk.
package watcher

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/leonmak/strongbox/internal/artifact"
	"github.com/leonmak/strongbox/internal/errdefs"
	"github.com/leonmak/strongbox/internal/log"
	"github.com/leonmak/strongbox/internal/repo"
)

// Resolver maps a filesystem path to the repository containing it.
type Resolver interface {
	Resolve(path string) (*repo.RepositoryIndexer, bool)
	All() []*repo.RepositoryIndexer
}

type Watcher struct {
	watcher  *fsnotify.Watcher
	resolver Resolver
	running  bool
	mu       sync.Mutex
	done     chan struct{}
}

func New(resolver Resolver) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeWatcherFailed, "failed to create watcher", err)
	}

	return &Watcher{
		watcher:  w,
		resolver: resolver,
		done:     make(chan struct{}),
	}, nil
}

func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	// Create a new watcher if the previous one was closed
	if w.watcher == nil {
		newWatcher, err := fsnotify.NewWatcher()
		if err != nil {
			w.mu.Unlock()
			return errdefs.NewCustomError(errdefs.ErrTypeWatcherFailed, "failed to create watcher", err)
		}
		w.watcher = newWatcher
		w.done = make(chan struct{})
	}

	w.running = true
	w.mu.Unlock()

	for _, ri := range w.resolver.All() {
		if err := w.addWatches(ri.BaseDir()); err != nil {
			return err
		}
	}

	go w.eventLoop()
	log.Infof("repository watcher started")
	return nil
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.done)
	err := w.watcher.Close()
	w.watcher = nil // Allow recreation on next Start()
	log.Infof("repository watcher stopped")
	return err
}

func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) addWatches(root string) error {
	watchCount := 0
	errorCount := 0

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				log.Debugf("permission denied: %s", path)
				return nil
			}
			return err
		}

		if !info.IsDir() {
			return nil
		}

		if err := w.watcher.Add(path); err != nil {
			errorCount++
			if errorCount == 1 {
				log.Warnf("failed to add watch for %s: %v", path, err)
			}
			return nil
		}

		watchCount++
		return nil
	})

	if errorCount > 0 {
		log.Warnf("failed to add %d watches (added %d successfully)", errorCount, watchCount)
	} else {
		log.Infof("added %d directory watches under %s", watchCount, root)
	}

	return err
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Op&fsnotify.Create == fsnotify.Create {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				log.Debugf("failed to watch new dir %s: %v", path, err)
			}
			return
		}
		w.addArtifact(path)
	}

	if event.Op&fsnotify.Write == fsnotify.Write {
		w.addArtifact(path)
	}

	if event.Op&fsnotify.Remove == fsnotify.Remove || event.Op&fsnotify.Rename == fsnotify.Rename {
		w.removeArtifact(path)
	}
}

func (w *Watcher) addArtifact(path string) {
	ri, info, ok := w.extract(path)
	if !ok {
		return
	}
	if err := ri.Add(path, info); err != nil {
		log.Errorf("failed to index %s: %v", path, err)
	} else {
		log.Debugf("indexed %s in %s", info, ri.ID())
	}
}

func (w *Watcher) removeArtifact(path string) {
	ri, info, ok := w.extract(path)
	if !ok {
		return
	}
	if err := ri.Remove(path, info); err != nil {
		log.Errorf("failed to retract %s: %v", info, err)
	} else {
		log.Debugf("retracted %s from %s", info, ri.ID())
	}
}

// extract resolves the owning repository and derives coordinates.
// Non-artifact files and files outside any repository are ignored.
func (w *Watcher) extract(path string) (*repo.RepositoryIndexer, *artifact.ArtifactInfo, bool) {
	ri, ok := w.resolver.Resolve(path)
	if !ok {
		return nil, nil, false
	}

	info, err := artifact.FromRepositoryPath(ri.BaseDir(), path)
	if err != nil {
		if !errdefs.IsType(err, errdefs.ErrTypeNotAnArtifact) {
			log.Debugf("ignoring malformed artifact %s: %v", path, err)
		}
		return nil, nil, false
	}
	return ri, info, true
}

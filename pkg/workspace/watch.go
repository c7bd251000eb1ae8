package workspace

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher notifies a callback whenever a .firm file under root changes,
// so a host can trigger a rebuild without polling. Grounded on
// cmd/sprocket/main.go's fsnotify setup in the teacher codebase.
type Watcher struct {
	fsw    *fsnotify.Watcher
	log    *logrus.Entry
	done   chan struct{}
	onFire func(path string)
}

// NewWatcher recursively watches root (and any directory created under it
// later) for writes/creates/removes of .firm files.
func NewWatcher(root string, log *logrus.Entry, onFire func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs, err := discoverDirs(root)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return &Watcher{fsw: fsw, log: log, done: make(chan struct{}), onFire: onFire}, nil
}

// Run blocks, dispatching onFire for every relevant event, until Stop is
// called.
func (w *Watcher) Run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if dirs, err := discoverDirs(event.Name); err == nil {
						for _, dir := range dirs {
							w.fsw.Add(dir)
						}
					}
					continue
				}
			}
			if filepath.Ext(event.Name) != ".firm" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.log != nil {
				w.log.WithField("path", event.Name).Info("workspace source changed")
			}
			w.onFire(event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.WithField("error", err).Warn("watcher error")
			}
		case <-w.done:
			return
		}
	}
}

// Stop ends Run and releases the underlying OS watch handles.
func (w *Watcher) Stop() {
	close(w.done)
	w.fsw.Close()
}

// discoverDirs lists root and every directory beneath it, so fsnotify can
// watch each one individually — fsnotify has no native recursive mode.
func discoverDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

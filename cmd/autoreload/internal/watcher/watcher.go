// Package watcher reports debounced file changes under a directory tree.
package watcher

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change is one debounced batch of file changes; Path is the last file that
// changed in the batch.
type Change struct {
	Path  string
	Count int
}

// Watcher watches for file changes
type Watcher struct {
	dir      string
	include  []string
	exclude  []string
	debounce time.Duration

	fsw    *fsnotify.Watcher
	events chan Change
	errors chan error
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// New starts watching dir recursively. Paths are matched relative to dir,
// with forward slashes.
func New(dir string, include, exclude []string, debounce time.Duration) (*Watcher, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("watcher: not a directory: " + absDir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:      absDir,
		include:  include,
		exclude:  exclude,
		debounce: debounce,
		fsw:      fsw,
		events:   make(chan Change, 1),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}
	if err := w.addTree(absDir); err != nil {
		fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Events returns the debounced change channel.
func (w *Watcher) Events() <-chan Change {
	return w.events
}

// Errors returns the errors channel
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel := w.rel(path); rel != "." && w.shouldExclude(rel+"/") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending Change
	)

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.sendError(err)
					}
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}

			rel := w.rel(ev.Name)
			if !w.shouldWatch(rel) {
				continue
			}
			pending.Path = rel
			pending.Count++
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			select {
			case w.events <- pending:
			case <-w.done:
				return
			}
			pending = Change{}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

func (w *Watcher) shouldWatch(path string) bool {
	if len(w.include) > 0 {
		matched := false
		for _, pattern := range w.include {
			if matchPattern(pattern, path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return !w.shouldExclude(path)
}

func (w *Watcher) shouldExclude(path string) bool {
	for _, pattern := range w.exclude {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern supports "**/*.go" (recursive), "*.go" (any base name),
// "dir/**" (subtree) and exact paths.
func matchPattern(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		parts := strings.SplitN(pattern, "**", 2)
		prefix := strings.TrimSuffix(parts[0], "/")
		suffix := strings.TrimPrefix(parts[1], "/")

		if prefix != "" && path != prefix && !strings.HasPrefix(path, prefix+"/") {
			return false
		}
		if suffix == "" {
			return true
		}
		ok, _ := filepath.Match(suffix, pathBase(path))
		return ok
	}

	if !strings.Contains(pattern, "/") {
		ok, _ := filepath.Match(pattern, pathBase(path))
		return ok
	}

	ok, _ := filepath.Match(pattern, path)
	return ok
}

func pathBase(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

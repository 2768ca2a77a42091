// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch re-runs a callback when the .docx files of a folder change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// handledOps are the event kinds that can change the merge input.
const handledOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watcher watches one folder, non-recursively.
type Watcher struct {
	dir      string
	debounce time.Duration
	ignore   map[string]bool
	fsw      *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// Ignoring skips events for the given file paths, e.g. a merged output
// written into the watched folder.
func Ignoring(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			w.ignore[filepath.Clean(p)] = true
		}
	}
}

// New starts watching dir. Events arriving within debounce of each other
// are coalesced into one callback.
func New(dir string, debounce time.Duration, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	w := &Watcher{
		dir:      dir,
		debounce: debounce,
		ignore:   map[string]bool{},
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run calls fn once after every burst of relevant changes until ctx is
// cancelled or the watcher fails. fn runs on the calling goroutine, so
// bursts arriving while it runs are handled after it returns.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context)) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", w.dir, err)

		case <-fire:
			fire = nil
			fn(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&handledOps == 0 {
		return false
	}
	if w.ignore[filepath.Clean(ev.Name)] {
		return false
	}
	return IsSourceName(filepath.Base(ev.Name))
}

// IsSourceName reports whether a file name is a merge input: a .docx file
// that is neither hidden nor an office lock file (~$name.docx).
func IsSourceName(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".docx")
}

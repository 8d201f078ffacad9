// Package watcher polls source directories and reports batches of changed
// files.
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Op is the kind of change observed for a path.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
)

// Event represents a file change event.
type Event struct {
	Path string
	Op   Op
}

// DefaultPollInterval is the default polling interval for file change detection.
const DefaultPollInterval = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Dirs       []string
	Extensions []string // e.g. [".ts", ".tsx"]
	// Filter, when set, must return true for a path to be watched.
	Filter       func(path string) bool
	Debounce     time.Duration
	PollInterval time.Duration
}

// Watcher watches directories for file changes by polling. node_modules and
// dot-directories are never descended into.
type Watcher struct {
	opts     Options
	onChange func(ctx context.Context, events []Event)
}

// New creates a new file watcher. onChange receives each debounced batch,
// sorted by path. Batches are delivered one at a time.
func New(opts Options, onChange func(ctx context.Context, events []Event)) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Watcher{opts: opts, onChange: onChange}
}

// Watch polls until ctx is done. It returns ctx.Err() on cancellation.
func (w *Watcher) Watch(ctx context.Context) error {
	snapshot := w.buildSnapshot()

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	var pending []Event
	var fire <-chan time.Time
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			next := w.buildSnapshot()
			if events := diff(snapshot, next); len(events) > 0 {
				pending = append(pending, events...)
				if debounce == nil {
					debounce = time.NewTimer(w.opts.Debounce)
				} else {
					debounce.Reset(w.opts.Debounce)
				}
				fire = debounce.C
			}
			snapshot = next
		case <-fire:
			fire = nil
			batch := coalesce(pending)
			pending = nil
			if len(batch) > 0 && w.onChange != nil {
				w.onChange(ctx, batch)
			}
		}
	}
}

type fileInfo struct {
	modTime time.Time
	size    int64
}

func (w *Watcher) buildSnapshot() map[string]fileInfo {
	snap := make(map[string]fileInfo)
	for _, dir := range w.opts.Dirs {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				name := d.Name()
				if path != dir && (name == "node_modules" || strings.HasPrefix(name, ".")) {
					return filepath.SkipDir
				}
				return nil
			}
			if !slices.Contains(w.opts.Extensions, filepath.Ext(path)) {
				return nil
			}
			if w.opts.Filter != nil && !w.opts.Filter(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			snap[path] = fileInfo{modTime: info.ModTime(), size: info.Size()}
			return nil
		})
	}
	return snap
}

func diff(prev, next map[string]fileInfo) []Event {
	var events []Event

	for path, cur := range next {
		if was, ok := prev[path]; ok {
			if cur.modTime != was.modTime || cur.size != was.size {
				events = append(events, Event{Path: path, Op: OpWrite})
			}
		} else {
			events = append(events, Event{Path: path, Op: OpCreate})
		}
	}

	for path := range prev {
		if _, ok := next[path]; !ok {
			events = append(events, Event{Path: path, Op: OpRemove})
		}
	}

	return events
}

// coalesce keeps the last event per path and sorts the batch by path.
func coalesce(events []Event) []Event {
	last := make(map[string]Op, len(events))
	for _, e := range events {
		last[e.Path] = e.Op
	}
	out := make([]Event, 0, len(last))
	for path, op := range last {
		out = append(out, Event{Path: path, Op: op})
	}
	slices.SortFunc(out, func(a, b Event) int { return strings.Compare(a.Path, b.Path) })
	return out
}

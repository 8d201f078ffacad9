package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_BuildSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "root.ts"), "export const a = 1;")
	writeFile(t, filepath.Join(dir, "sub", "nested.tsx"), "export const b = 2;")
	writeFile(t, filepath.Join(dir, "sub", "style.css"), "body {}")
	writeFile(t, filepath.Join(dir, "node_modules", "lib", "index.ts"), "")
	writeFile(t, filepath.Join(dir, ".cache", "tmp.ts"), "")
	writeFile(t, filepath.Join(dir, "skip.spec.ts"), "")

	w := New(Options{
		Dirs:       []string{dir},
		Extensions: []string{".ts", ".tsx"},
		Filter:     func(path string) bool { return !strings.HasSuffix(path, ".spec.ts") },
	}, nil)
	snap := w.buildSnapshot()

	if len(snap) != 2 {
		t.Fatalf("expected 2 files in snapshot, got %d: %v", len(snap), snap)
	}
	for _, want := range []string{"root.ts", filepath.Join("sub", "nested.tsx")} {
		if _, ok := snap[filepath.Join(dir, want)]; !ok {
			t.Errorf("expected %s in snapshot", want)
		}
	}
}

func TestDiff(t *testing.T) {
	now := time.Now()
	prev := map[string]fileInfo{
		"/a.ts": {modTime: now, size: 10},
		"/b.ts": {modTime: now, size: 20},
		"/d.ts": {modTime: now, size: 40},
		"/e.ts": {modTime: now, size: 50},
	}
	next := map[string]fileInfo{
		"/a.ts": {modTime: now.Add(time.Second), size: 15},
		"/c.ts": {modTime: now, size: 30},
		"/d.ts": {modTime: now, size: 40},
		"/e.ts": {modTime: now, size: 51},
	}

	got := coalesce(diff(prev, next))
	want := []Event{
		{Path: "/a.ts", Op: OpWrite},
		{Path: "/b.ts", Op: OpRemove},
		{Path: "/c.ts", Op: OpCreate},
		{Path: "/e.ts", Op: OpWrite},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	if events := diff(prev, prev); len(events) != 0 {
		t.Errorf("expected no events for an unchanged snapshot, got %v", events)
	}
}

func TestCoalesce_LastOpWins(t *testing.T) {
	got := coalesce([]Event{
		{Path: "/a.ts", Op: OpCreate},
		{Path: "/a.ts", Op: OpWrite},
		{Path: "/a.ts", Op: OpRemove},
	})
	if len(got) != 1 || got[0].Op != OpRemove {
		t.Errorf("expected a single remove, got %v", got)
	}
}

func TestWatcher_Watch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ts"), "export const a = 1;")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batches := make(chan []Event, 4)
	w := New(Options{
		Dirs:         []string{dir},
		Extensions:   []string{".ts"},
		Debounce:     20 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}, func(ctx context.Context, events []Event) {
		batches <- events
	})

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Let the initial snapshot be taken before changing anything.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "b.ts"), "export const b = 2;")

	select {
	case events := <-batches:
		if len(events) != 1 || events[0].Op != OpCreate || filepath.Base(events[0].Path) != "b.ts" {
			t.Errorf("expected create of b.ts, got %v", events)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for change batch")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

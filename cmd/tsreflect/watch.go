package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	shimincremental "github.com/microsoft/typescript-go/shim/execute/incremental"

	"github.com/tsreflect/tsreflect/internal/config"
	"github.com/tsreflect/tsreflect/internal/pipeline"
	"github.com/tsreflect/tsreflect/internal/runner"
	"github.com/tsreflect/tsreflect/internal/watcher"
)

// watchedExtensions covers sources, tsconfig files and tsreflect configs.
var watchedExtensions = []string{".ts", ".tsx", ".mts", ".cts", ".json", ".yaml", ".yml"}

type WatchCmd struct {
	NoCheck  bool          `name:"no-check" help:"Skip type checking and report syntax errors only."`
	Debounce time.Duration `help:"Quiet period before a rebuild starts." default:"100ms"`
	Poll     time.Duration `help:"Polling interval for file changes." default:"500ms"`
	Exec     string        `help:"Command to (re)start after every successful build, such as node dist/index.js." placeholder:"CMD"`
}

// watchState is carried from one build to the next. The rewrite cache is
// not: every cycle starts from an empty one.
type watchState struct {
	previous *shimincremental.Program
	outDir   string
	runner   *runner.Runner
}

func (c *WatchCmd) Run(ctx context.Context, g *Globals) error {
	state := &watchState{}
	if c.Exec != "" {
		r, err := runner.New(c.Exec, runner.Options{
			Stdout: g.Stdout,
			Stderr: g.Stderr,
			Logger: g.logger(),
		})
		if err != nil {
			return err
		}
		state.runner = r
		defer r.Stop()
	}
	c.build(ctx, g, state)

	projectDir, err := filepath.Abs(filepath.Dir(g.Project))
	if err != nil {
		return err
	}

	w := watcher.New(watcher.Options{
		Dirs:       []string{projectDir},
		Extensions: watchedExtensions,
		Filter: func(path string) bool {
			return state.outDir == "" || !isWithin(path, state.outDir)
		},
		Debounce:     c.Debounce,
		PollInterval: c.Poll,
	}, func(ctx context.Context, events []watcher.Event) {
		fmt.Fprintf(g.Stderr, "\nchange detected in %d file(s), rebuilding...\n", len(events))
		c.build(ctx, g, state)
	})

	fmt.Fprintf(g.Stderr, "watching %s for changes\n", projectDir)
	if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// build runs one cycle. Failures are printed and the watch goes on.
func (c *WatchCmd) build(ctx context.Context, g *Globals, state *watchState) {
	start := time.Now()
	report, err := c.run(ctx, g, state)
	if err != nil {
		fmt.Fprintf(g.Stderr, "error: %v\n", err)
		return
	}
	if !report.Skipped {
		state.previous = report.Program
		state.outDir = report.OutDir
		fmt.Fprintf(g.Stderr, "build finished in %s\n", time.Since(start).Round(time.Millisecond))
	}
	if report.TypeErrors() > 0 {
		return
	}
	c.restart(g, state, report.Skipped)
}

// restart brings the --exec command up to date with the last good build. A
// skipped build only starts the command when it is not running yet.
func (c *WatchCmd) restart(g *Globals, state *watchState, skipped bool) {
	r := state.runner
	if r == nil || (skipped && r.Running()) {
		return
	}
	fmt.Fprintf(g.Stderr, "starting %s\n", r)
	if err := r.Restart(); err != nil {
		fmt.Fprintf(g.Stderr, "error: starting %s: %v\n", r, err)
	}
}

func (c *WatchCmd) run(ctx context.Context, g *Globals, state *watchState) (*pipeline.Report, error) {
	// The config is reloaded every cycle so edits to it take effect.
	s, err := g.open()
	if err != nil {
		return nil, err
	}
	collector, err := s.collector(g.Stderr, false, false)
	if err != nil {
		return nil, err
	}

	req := s.request(g, collector)
	req.NoCheck = c.NoCheck
	req.Incremental = s.cfg.Output.Mode == config.ModeEmit
	req.Previous = state.previous

	report, err := pipeline.Run(ctx, req)
	collector.WriteTo(g.Stderr)
	if err != nil {
		return nil, err
	}
	reportTypeErrors(g.Stderr, s.cwd, report)
	return report, nil
}

func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

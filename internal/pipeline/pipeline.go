// Package pipeline runs a tsreflect build: it parses the tsconfig, creates a
// program, rewrites the selected source files and writes the output the
// config asks for.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/microsoft/typescript-go/shim/ast"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	shimincremental "github.com/microsoft/typescript-go/shim/execute/incremental"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/microsoft/typescript-go/shim/vfs"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tsreflect/tsreflect/internal/analyzer"
	"github.com/tsreflect/tsreflect/internal/buildcache"
	"github.com/tsreflect/tsreflect/internal/compiler"
	"github.com/tsreflect/tsreflect/internal/config"
	"github.com/tsreflect/tsreflect/internal/diagnostic"
	"github.com/tsreflect/tsreflect/internal/plugin"
	"github.com/tsreflect/tsreflect/internal/reflector"
	"github.com/tsreflect/tsreflect/internal/rewrite"
)

// ErrRewriteFailed is returned when the rewrite reported error diagnostics.
var ErrRewriteFailed = errors.New("rewrite failed")

// Request describes one build.
type Request struct {
	// Dir is the working directory. Relative paths resolve against it.
	Dir string
	// Project is the tsconfig path. Defaults to tsconfig.json.
	Project string

	// Config is the loaded tsreflect config; nil selects the defaults.
	Config *config.Config
	// ConfigPath is the config file the build read, if any. It is part of
	// the build cache inputs and anchors output.dir.
	ConfigPath string

	// NoCheck skips semantic diagnostics.
	NoCheck bool
	// Force ignores the build cache.
	Force bool
	// Clean removes the output directory before building.
	Clean          bool
	SingleThreaded bool

	// FS replaces the OS filesystem.
	FS vfs.FS
	// Incremental emits incrementally even when the tsconfig does not ask
	// for it. Previous is the incremental program of the last watch cycle.
	Incremental bool
	Previous    *shimincremental.Program

	Diagnostics *diagnostic.Collector
	Logger      *slog.Logger
	// Progress receives one line per build step. Nil discards them.
	Progress io.Writer

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Report is the outcome of a build.
type Report struct {
	TSConfig string
	// OutDir is where the build writes, or "" when outputs sit next to
	// their sources.
	OutDir string
	// Skipped is set when the build cache proved nothing changed.
	Skipped bool

	Files           []*rewrite.FileResult
	Outputs         []string
	AliasesResolved int
	TSDiagnostics   []*ast.Diagnostic

	// Program is the incremental program of this build, for the next watch
	// cycle. It is nil unless the build emitted incrementally.
	Program *shimincremental.Program

	Timing Timing
}

// Markers returns the number of marker calls replaced.
func (r *Report) Markers() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Markers)
	}
	return n
}

// ImportsRenamed returns the number of import specifiers renamed.
func (r *Report) ImportsRenamed() int {
	n := 0
	for _, f := range r.Files {
		n += f.ImportsRenamed
	}
	return n
}

// Changed returns the files whose text the rewrite changed.
func (r *Report) Changed() []*rewrite.FileResult {
	var changed []*rewrite.FileResult
	for _, f := range r.Files {
		if f.Changed {
			changed = append(changed, f)
		}
	}
	return changed
}

// TypeErrors returns the number of error diagnostics reported by the
// TypeScript compiler.
func (r *Report) TypeErrors() int {
	return compiler.CountErrors(r.TSDiagnostics)
}

type build struct {
	req       Request
	cfg       *config.Config
	log       *slog.Logger
	progress  io.Writer
	fs        vfs.FS
	configDir string
	report    *Report
}

// Run executes the build described by req.
func Run(ctx context.Context, req Request) (*Report, error) {
	b, err := newBuild(req)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { b.report.Timing.Total = time.Since(start) }()

	parsed, host, err := b.parseTSConfig()
	if err != nil {
		return nil, err
	}

	b.report.OutDir = b.outputDir(parsed)
	if b.req.Clean {
		if err := b.clean(); err != nil {
			return nil, err
		}
	}

	cacheKey, cachePath, inputs, err := b.checkCache(parsed)
	if err != nil {
		return nil, err
	}
	if b.report.Skipped {
		return b.report, nil
	}

	program, err := b.createProgram(ctx, parsed, host)
	if err != nil {
		return nil, err
	}
	if err := b.rewrite(ctx, program); err != nil {
		return nil, err
	}
	if err := b.output(ctx, parsed, program); err != nil {
		return nil, err
	}

	if cachePath != "" && b.report.TypeErrors() == 0 {
		if err := buildcache.Save(cachePath, buildcache.New(cacheKey, inputs, b.report.Outputs)); err != nil {
			b.log.Warn("saving build cache", "path", cachePath, "error", err)
		}
	}
	return b.report, nil
}

func newBuild(req Request) (*build, error) {
	if req.Dir == "" {
		return nil, errors.New("pipeline: Dir is required")
	}
	if req.Project == "" {
		req.Project = "tsconfig.json"
	}
	cfg := req.Config
	if cfg == nil {
		def := config.DefaultConfig()
		cfg = &def
	}
	log := req.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	progress := req.Progress
	if progress == nil {
		progress = io.Discard
	}
	fs := req.FS
	if fs == nil {
		fs = compiler.CreateDefaultFS()
	}
	configDir := req.Dir
	if req.ConfigPath != "" {
		configDir = filepath.Dir(req.ConfigPath)
	}
	return &build{
		req:       req,
		cfg:       cfg,
		log:       log,
		progress:  progress,
		fs:        fs,
		configDir: configDir,
		report:    &Report{TSConfig: tspath.ResolvePath(req.Dir, req.Project)},
	}, nil
}

func (b *build) parseTSConfig() (*tsoptions.ParsedCommandLine, shimcompiler.CompilerHost, error) {
	start := time.Now()
	defer func() { b.report.Timing.TSConfig = time.Since(start) }()

	fmt.Fprintf(b.progress, "compiling with tsconfig: %s\n", b.req.Project)
	host := compiler.CreateDefaultHost(b.req.Dir, b.fs)
	parsed, err := compiler.ParseTSConfig(b.fs, b.req.Dir, b.req.Project, host, nil)
	if err != nil {
		return nil, nil, err
	}
	return parsed, host, nil
}

// checkCache marks the report skipped when the previous build over the same
// inputs is still valid. Dry runs are never cached.
func (b *build) checkCache(parsed *tsoptions.ParsedCommandLine) (key, path string, inputs map[string]string, err error) {
	if b.cfg.Output.Mode == config.ModeNone {
		return "", "", nil, nil
	}

	hash, err := b.cfg.Hash()
	if err != nil {
		return "", "", nil, err
	}
	key = plugin.CacheKey(hash)
	path = buildcache.CachePath(b.report.OutDir, b.report.TSConfig)

	files := append([]string{b.report.TSConfig}, parsed.FileNames()...)
	if b.req.ConfigPath != "" {
		files = append(files, b.req.ConfigPath)
	}
	inputs = buildcache.HashFiles(files)

	if b.req.Force {
		return key, path, inputs, nil
	}
	if buildcache.Load(path).IsValid(key, inputs) {
		fmt.Fprintln(b.progress, "no changes since last build, skipping")
		b.log.Debug("build cache hit", "path", path)
		b.report.Skipped = true
	}
	return key, path, inputs, nil
}

func (b *build) createProgram(ctx context.Context, parsed *tsoptions.ParsedCommandLine, host shimcompiler.CompilerHost) (*shimcompiler.Program, error) {
	start := time.Now()
	program, err := compiler.CreateProgramFromConfig(parsed, host, b.req.SingleThreaded)
	if err != nil {
		return nil, err
	}
	b.report.Timing.Program = time.Since(start)

	start = time.Now()
	b.report.TSDiagnostics = compiler.GatherDiagnostics(ctx, program, b.req.NoCheck)
	b.report.Timing.Diagnostics = time.Since(start)
	return program, nil
}

// selected reports whether the rewrite visits sf.
func (b *build) selected(sf *ast.SourceFile) bool {
	rel, err := filepath.Rel(filepath.Dir(b.report.TSConfig), sf.FileName())
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return analyzer.MatchesGlob(rel, b.cfg.Include, b.cfg.Exclude)
}

func (b *build) rewrite(ctx context.Context, program *shimcompiler.Program) error {
	start := time.Now()
	checker, release := shimcompiler.Program_GetTypeChecker(program, ctx)
	if checker == nil {
		return errors.New("could not get type checker")
	}
	defer release()
	b.report.Timing.Checker = time.Since(start)

	start = time.Now()
	defer func() { b.report.Timing.Rewrite = time.Since(start) }()

	policy, err := reflector.ParsePolicy(b.cfg.FlagPolicy)
	if err != nil {
		return err
	}
	rw := rewrite.New(analyzer.NewTypeQuery(checker), rewrite.Options{
		Marker:          b.cfg.Marker,
		SentinelImport:  b.cfg.SentinelImport,
		CanonicalImport: b.cfg.CanonicalImport,
		Reflector: reflector.Options{
			Policy:   policy,
			MaxDepth: b.cfg.MaxDepth,
		},
		Diagnostics:    b.req.Diagnostics,
		Logger:         b.log,
		TracerProvider: b.req.TracerProvider,
		MeterProvider:  b.req.MeterProvider,
	})

	for _, sf := range compiler.SourceFiles(program) {
		if !b.selected(sf) {
			continue
		}
		res, err := rw.RewriteFile(ctx, sf)
		if err != nil {
			return err
		}
		b.report.Files = append(b.report.Files, res)
	}

	if b.req.Diagnostics.HasErrors() {
		return fmt.Errorf("%w: %s", ErrRewriteFailed, b.req.Diagnostics.Summary())
	}
	if n := b.report.Markers(); n > 0 || b.report.ImportsRenamed() > 0 {
		fmt.Fprintf(b.progress, "rewrote %d marker(s) and %d import(s) in %d file(s)\n",
			n, b.report.ImportsRenamed(), len(b.report.Changed()))
	}
	return nil
}

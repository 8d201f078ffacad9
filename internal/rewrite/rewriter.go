// Package rewrite replaces marker calls in TypeScript sources with string
// literals holding the JSON description of the marker's type argument, and
// renames sentinel import specifiers to the canonical runtime name.
//
// A rewrite is a pure function of the source text and the checker: edits are
// collected during one pre-order traversal and spliced into a copy of the
// original text. No state survives between calls to RewriteFile.
package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/microsoft/typescript-go/shim/ast"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tsreflect/tsreflect/internal/diagnostic"
	"github.com/tsreflect/tsreflect/internal/reflector"
)

const (
	DefaultMarker          = "$schema"
	DefaultSentinelImport  = "$validate"
	DefaultCanonicalImport = "validate"
)

// TypeResolver resolves a marker's type argument node to a reflectable type.
// analyzer.TypeQuery is the checker-backed implementation.
type TypeResolver interface {
	TypeOfNode(node *ast.Node) reflector.Type
}

// Options configures a Rewriter. Zero values select the defaults.
type Options struct {
	Marker          string
	SentinelImport  string
	CanonicalImport string

	Reflector   reflector.Options
	Diagnostics *diagnostic.Collector
	Logger      *slog.Logger

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Rewriter rewrites source files bound to one program's checker.
type Rewriter struct {
	resolver TypeResolver
	opts     Options
	log      *slog.Logger
	tel      *telemetry
}

// New creates a Rewriter.
func New(resolver TypeResolver, opts Options) *Rewriter {
	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}
	if opts.SentinelImport == "" {
		opts.SentinelImport = DefaultSentinelImport
	}
	if opts.CanonicalImport == "" {
		opts.CanonicalImport = DefaultCanonicalImport
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Rewriter{
		resolver: resolver,
		opts:     opts,
		log:      log,
		tel:      newTelemetry(opts.TracerProvider, opts.MeterProvider),
	}
}

// MarkerSite is one replaced marker call.
type MarkerSite struct {
	Pos      int // offset of the callee's first character
	End      int
	Line     int // 1-based
	TypeText string
	// JSON is the compact description, before quoting.
	JSON        string
	Description *reflector.Description
	Cached      bool
}

// FileResult is the outcome of rewriting one file.
type FileResult struct {
	FileName       string
	Text           string
	Changed        bool
	Markers        []MarkerSite
	ImportsRenamed int
	// Reflections counts reflector invocations; CacheHits counts markers
	// answered from the per-pass cache.
	Reflections int
	CacheHits   int
}

// cacheEntry is one RewriteCache slot keyed by the type argument's source
// text.
type cacheEntry struct {
	literal string
	json    string
	desc    *reflector.Description
}

// pass holds the state of one RewriteFile call.
type pass struct {
	rw     *Rewriter
	sf     *ast.SourceFile
	text   string
	refl   *reflector.Reflector
	cache  map[string]cacheEntry
	edits  []edit
	result *FileResult
	err    error

	// site locates the marker being reflected, for diagnostics raised by
	// the reflector.
	site diagnostic.Position
}

// RewriteFile rewrites sf. The returned error is fatal for the file: no
// partial text is returned with it.
func (r *Rewriter) RewriteFile(ctx context.Context, sf *ast.SourceFile) (*FileResult, error) {
	fileName := sf.FileName()
	ctx, span := r.tel.tracer.Start(ctx, "rewrite.file",
		trace.WithAttributes(attribute.String("tsreflect.file", fileName)),
	)
	defer span.End()
	start := time.Now()

	p := &pass{
		rw:     r,
		sf:     sf,
		text:   sf.Text(),
		cache:  make(map[string]cacheEntry),
		result: &FileResult{FileName: fileName},
	}
	ropts := r.opts.Reflector
	ropts.Unrepresentable = p.unrepresentable
	p.refl = reflector.New(ropts)

	sf.AsNode().ForEachChild(p.visit)

	r.tel.record(ctx, p.result, time.Since(start), p.err)
	if p.err != nil {
		span.RecordError(p.err)
		span.SetStatus(codes.Error, p.err.Error())
		return nil, p.err
	}

	p.result.Text = applyEdits(p.text, p.edits)
	p.result.Changed = len(p.edits) > 0
	span.SetAttributes(
		attribute.Int("tsreflect.markers", len(p.result.Markers)),
		attribute.Int("tsreflect.imports.renamed", p.result.ImportsRenamed),
	)
	span.SetStatus(codes.Ok, "")

	r.log.DebugContext(ctx, "rewrote file",
		"file", fileName,
		"markers", len(p.result.Markers),
		"reflections", p.result.Reflections,
		"cacheHits", p.result.CacheHits,
		"importsRenamed", p.result.ImportsRenamed,
	)
	return p.result, nil
}

func (p *pass) unrepresentable(display string) {
	p.rw.opts.Diagnostics.Add(diagnostic.Diagnostic{
		Severity: diagnostic.SeverityInfo,
		Category: diagnostic.CategoryTypeUnrepresentable,
		Position: p.site,
		Message:  fmt.Sprintf("type %q has no declaration symbol: it is dropped from unions and described without children elsewhere", display),
	})
}

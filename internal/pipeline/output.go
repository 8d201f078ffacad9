package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/core"
	"github.com/microsoft/typescript-go/shim/tsoptions"

	"github.com/tsreflect/tsreflect/internal/compiler"
	"github.com/tsreflect/tsreflect/internal/config"
	"github.com/tsreflect/tsreflect/internal/pathalias"
)

// Timing collects the duration of each build phase.
type Timing struct {
	TSConfig    time.Duration
	Program     time.Duration
	Diagnostics time.Duration
	Checker     time.Duration
	Rewrite     time.Duration
	Emit        time.Duration
	Aliases     time.Duration
	Total       time.Duration
}

// Print writes the timing breakdown to w.
func (t *Timing) Print(w io.Writer) {
	fmt.Fprintf(w, "\n--- timing ---\n")
	fmt.Fprintf(w, "  tsconfig:      %s\n", t.TSConfig.Round(time.Millisecond))
	fmt.Fprintf(w, "  program:       %s\n", t.Program.Round(time.Millisecond))
	fmt.Fprintf(w, "  diagnostics:   %s\n", t.Diagnostics.Round(time.Millisecond))
	fmt.Fprintf(w, "  checker:       %s\n", t.Checker.Round(time.Millisecond))
	fmt.Fprintf(w, "  rewrite:       %s\n", t.Rewrite.Round(time.Millisecond))
	fmt.Fprintf(w, "  emit:          %s\n", t.Emit.Round(time.Millisecond))
	fmt.Fprintf(w, "  aliases:       %s\n", t.Aliases.Round(time.Millisecond))
	fmt.Fprintf(w, "  total:         %s\n", t.Total.Round(time.Millisecond))
}

// outputDir returns the directory the build writes to, or "" when outputs
// sit next to their sources.
func (b *build) outputDir(parsed *tsoptions.ParsedCommandLine) string {
	switch b.cfg.Output.Mode {
	case config.ModeSource:
		return b.sourceOutputDir()
	case config.ModeEmit:
		return parsed.CompilerOptions().OutDir
	}
	return ""
}

func (b *build) sourceOutputDir() string {
	if filepath.IsAbs(b.cfg.Output.Dir) {
		return b.cfg.Output.Dir
	}
	return filepath.Join(b.configDir, b.cfg.Output.Dir)
}

// clean removes the output directory. The project directory and anything
// above it are never removed.
func (b *build) clean() error {
	dir := b.report.OutDir
	if dir == "" {
		return nil
	}
	dir = filepath.Clean(dir)
	projectDir := filepath.Dir(b.report.TSConfig)
	if dir == "/" || dir == "." || dir == ".." || dir == projectDir || strings.HasPrefix(projectDir, dir+string(filepath.Separator)) {
		return fmt.Errorf("refusing to clean %s: it contains the project", dir)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	fmt.Fprintf(b.progress, "cleaning output directory: %s\n", dir)
	return os.RemoveAll(dir)
}

func (b *build) output(ctx context.Context, parsed *tsoptions.ParsedCommandLine, program *shimcompiler.Program) error {
	switch b.cfg.Output.Mode {
	case config.ModeEmit:
		return b.emit(ctx, parsed, program)
	case config.ModeSource:
		return b.writeSources(parsed)
	case config.ModeNone:
		return nil
	default:
		return fmt.Errorf("unknown output mode %q", b.cfg.Output.Mode)
	}
}

// emit compiles the rewritten sources to JavaScript. Rewritten texts are
// served to a second program through an overlay; files the rewrite left
// alone are read from disk as usual.
func (b *build) emit(ctx context.Context, parsed *tsoptions.ParsedCommandLine, program *shimcompiler.Program) error {
	start := time.Now()
	defer func() { b.report.Timing.Emit = time.Since(start) - b.report.Timing.Aliases }()

	var host shimcompiler.CompilerHost
	if changed := b.report.Changed(); len(changed) > 0 {
		overlay := make(map[string]string, len(changed))
		for _, f := range changed {
			overlay[f.FileName] = f.Text
		}
		var err error
		host, _ = compiler.CreateOverlayHost(b.req.Dir, b.fs, overlay)
		program, err = compiler.CreateProgramFromConfig(parsed, host, b.req.SingleThreaded)
		if err != nil {
			return fmt.Errorf("creating emit program: %w", err)
		}
	} else {
		host = compiler.CreateDefaultHost(b.req.Dir, b.fs)
	}

	opts := parsed.CompilerOptions()
	aliases := pathalias.FromCompilerOptions(opts, b.req.Dir, parsed.FileNames())
	// The emitter calls writeFile from its worker goroutines.
	var mu sync.Mutex
	aliased := 0
	writeFile := func(fileName string, text string, bom bool, _ *shimcompiler.WriteFileData) error {
		var n int
		var spent time.Duration
		if isJavaScript(fileName) && !aliases.Empty() {
			aliasStart := time.Now()
			text, n = aliases.Rewrite(fileName, text)
			spent = time.Since(aliasStart)
		}
		if err := writeFileToDisk(fileName, text, bom); err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		if n > 0 {
			aliased++
		}
		b.report.Timing.Aliases += spent
		b.report.Outputs = append(b.report.Outputs, fileName)
		return nil
	}

	var result *compiler.EmitResult
	if opts.Incremental == core.TSTrue || b.req.Incremental || b.req.Previous != nil {
		incr := compiler.CreateIncrementalProgram(program, b.req.Previous, host, parsed)
		result = compiler.EmitIncrementalProgram(ctx, incr, writeFile)
		b.report.Program = incr
	} else {
		result = compiler.EmitProgram(ctx, program, writeFile)
	}
	b.report.TSDiagnostics = append(b.report.TSDiagnostics, result.Diagnostics...)
	b.report.AliasesResolved = aliased
	slices.Sort(b.report.Outputs)

	if len(b.report.Outputs) > 0 {
		fmt.Fprintf(b.progress, "emitted %d file(s)\n", len(b.report.Outputs))
	} else {
		fmt.Fprintln(b.progress, "no files emitted")
	}
	if aliased > 0 {
		fmt.Fprintf(b.progress, "resolved path aliases in %d file(s)\n", aliased)
	}
	return nil
}

// writeSources writes every selected file, rewritten or not, under
// output.dir. Paths mirror the sources relative to rootDir, or to their
// common directory when the tsconfig sets none.
func (b *build) writeSources(parsed *tsoptions.ParsedCommandLine) error {
	start := time.Now()
	defer func() { b.report.Timing.Emit = time.Since(start) }()

	outDir := b.sourceOutputDir()
	root := parsed.CompilerOptions().RootDir
	if root == "" {
		names := make([]string, len(b.report.Files))
		for i, f := range b.report.Files {
			names[i] = f.FileName
		}
		root = pathalias.InferRootDir(names)
	}
	if root == "" {
		root = filepath.Dir(b.report.TSConfig)
	}

	for _, f := range b.report.Files {
		rel, err := filepath.Rel(root, f.FileName)
		if err != nil || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("%s is outside the source root %s", f.FileName, root)
		}
		dest := filepath.Join(outDir, rel)
		if err := writeFileToDisk(dest, f.Text, false); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}
		b.report.Outputs = append(b.report.Outputs, dest)
	}
	fmt.Fprintf(b.progress, "wrote %d source file(s) to %s\n", len(b.report.Outputs), outDir)
	return nil
}

func isJavaScript(fileName string) bool {
	for _, ext := range []string{".js", ".mjs", ".cjs"} {
		if strings.HasSuffix(fileName, ext) {
			return true
		}
	}
	return false
}

func writeFileToDisk(fileName string, text string, writeByteOrderMark bool) error {
	if err := os.MkdirAll(filepath.Dir(fileName), 0o755); err != nil {
		return err
	}
	if writeByteOrderMark {
		text = "\xEF\xBB\xBF" + text
	}
	return os.WriteFile(fileName, []byte(text), 0o644)
}

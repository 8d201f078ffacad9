// Package pathalias rewrites tsconfig "paths" aliases in emitted JavaScript
// into relative specifiers, so the output runs without a runtime resolver.
//
// Matching follows TypeScript's tryLoadModuleUsingPaths:
//  1. Exact patterns are checked first.
//  2. Wildcard patterns are matched by longest prefix, ties broken by longest
//     suffix.
//  3. The text matched by the wildcard is substituted into each target.
//
// Targets are resolved against the paths base directory (baseUrl, or the
// tsconfig directory) and then mapped from rootDir to outDir.
package pathalias

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/microsoft/typescript-go/shim/core"
)

// Config holds the resolved tsconfig values needed for alias resolution.
type Config struct {
	BaseDir string
	OutDir  string
	RootDir string
	Paths   map[string][]string
}

type wildcard struct {
	prefix  string
	suffix  string
	targets []string
}

// Resolver rewrites aliased module specifiers.
type Resolver struct {
	baseDir   string
	outDir    string
	rootDir   string
	exact     map[string][]string
	wildcards []wildcard
}

// New creates a Resolver. Wildcard patterns are ordered once here so that
// matching is deterministic regardless of map iteration order.
func New(cfg Config) *Resolver {
	r := &Resolver{
		baseDir: cfg.BaseDir,
		outDir:  cfg.OutDir,
		rootDir: cfg.RootDir,
		exact:   make(map[string][]string),
	}
	for pattern, targets := range cfg.Paths {
		if len(targets) == 0 {
			continue
		}
		prefix, suffix, ok := strings.Cut(pattern, "*")
		if !ok {
			r.exact[pattern] = targets
			continue
		}
		r.wildcards = append(r.wildcards, wildcard{prefix: prefix, suffix: suffix, targets: targets})
	}
	sort.Slice(r.wildcards, func(i, j int) bool {
		a, b := r.wildcards[i], r.wildcards[j]
		if len(a.prefix) != len(b.prefix) {
			return len(a.prefix) > len(b.prefix)
		}
		return len(a.suffix) > len(b.suffix)
	})
	return r
}

// FromCompilerOptions builds a Resolver from parsed compiler options. rootDir
// falls back to the common directory of fileNames when the tsconfig leaves
// it unset. It returns nil when the tsconfig declares no paths.
func FromCompilerOptions(opts *core.CompilerOptions, cwd string, fileNames []string) *Resolver {
	if opts.Paths == nil || opts.Paths.Size() == 0 {
		return nil
	}
	paths := make(map[string][]string, opts.Paths.Size())
	for k, v := range opts.Paths.Entries() {
		paths[k] = v
	}
	rootDir := opts.RootDir
	if rootDir == "" && opts.OutDir != "" {
		rootDir = InferRootDir(fileNames)
	}
	return New(Config{
		BaseDir: opts.GetPathsBasePath(cwd),
		OutDir:  opts.OutDir,
		RootDir: rootDir,
		Paths:   paths,
	})
}

// Empty reports whether r has no aliases. A nil Resolver is empty.
func (r *Resolver) Empty() bool {
	return r == nil || (len(r.exact) == 0 && len(r.wildcards) == 0)
}

// specifierRE matches the module specifier of static imports and exports,
// side-effect imports, dynamic import() and require().
var specifierRE = regexp.MustCompile(`(?:\b(?:from|import)\s*|\b(?:require|import)\s*\(\s*)(?:"([^"\r\n]*)"|'([^'\r\n]*)')`)

// Rewrite resolves every aliased specifier in the JavaScript text of
// fileName, an output path. It returns the new text and the number of
// specifiers rewritten.
func (r *Resolver) Rewrite(fileName, text string) (string, int) {
	if r.Empty() {
		return text, 0
	}

	var b strings.Builder
	count, last := 0, 0
	for _, m := range specifierRE.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		if start < 0 {
			start, end = m[4], m[5]
		}
		resolved, ok := r.Resolve(text[start:end], fileName)
		if !ok {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(resolved)
		last = end
		count++
	}
	if count == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), count
}

// Resolve maps one specifier imported from fromFile. Relative and absolute
// specifiers are never aliases.
func (r *Resolver) Resolve(specifier, fromFile string) (string, bool) {
	if r.Empty() || specifier == "" || strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") {
		return "", false
	}

	if targets, ok := r.exact[specifier]; ok {
		if rel, ok := r.firstTarget(targets, "", fromFile); ok {
			return rel, true
		}
	}

	for _, w := range r.wildcards {
		if len(specifier) < len(w.prefix)+len(w.suffix) ||
			!strings.HasPrefix(specifier, w.prefix) || !strings.HasSuffix(specifier, w.suffix) {
			continue
		}
		matched := specifier[len(w.prefix) : len(specifier)-len(w.suffix)]
		return r.firstTarget(w.targets, matched, fromFile)
	}
	return "", false
}

func (r *Resolver) firstTarget(targets []string, matched string, fromFile string) (string, bool) {
	for _, target := range targets {
		target = strings.Replace(strings.TrimPrefix(target, "./"), "*", matched, 1)
		if rel, ok := r.relativeTo(filepath.Join(r.baseDir, target), fromFile); ok {
			return rel, true
		}
	}
	return "", false
}

func (r *Resolver) relativeTo(sourcePath string, fromFile string) (string, bool) {
	rel, err := filepath.Rel(filepath.Dir(fromFile), r.outputPath(sourcePath))
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel, true
}

// outputPath maps a source path to where the compiler writes it.
func (r *Resolver) outputPath(sourcePath string) string {
	if r.outDir == "" {
		return sourcePath
	}
	if r.rootDir != "" {
		if rel, err := filepath.Rel(r.rootDir, sourcePath); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.Join(r.outDir, rel)
		}
	}
	return filepath.Join(r.outDir, filepath.Base(sourcePath))
}

// InferRootDir returns the deepest directory containing every file, or ""
// when the files share no directory below the filesystem root.
func InferRootDir(fileNames []string) string {
	if len(fileNames) == 0 {
		return ""
	}

	common := filepath.Dir(fileNames[0])
	for _, f := range fileNames[1:] {
		dir := filepath.Dir(f)
		for !within(dir, common) {
			parent := filepath.Dir(common)
			if parent == common {
				return ""
			}
			common = parent
		}
	}
	if common == "." || common == "/" {
		return ""
	}
	return common
}

func within(dir, root string) bool {
	return dir == root || strings.HasPrefix(dir, strings.TrimSuffix(root, "/")+"/")
}

// Package testutil builds tsgo programs from inline TypeScript sources for
// tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/microsoft/typescript-go/shim/ast"
	"github.com/microsoft/typescript-go/shim/bundled"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/microsoft/typescript-go/shim/vfs"
	"github.com/microsoft/typescript-go/shim/vfs/osvfs"
	"github.com/tsreflect/tsreflect/internal/compiler"
)

// DefaultTSConfig is the tsconfig used when a test provides none.
const DefaultTSConfig = `{
  "compilerOptions": {
    "strict": true,
    "target": "es2022",
    "module": "esnext",
    "noEmit": true
  },
  "include": ["**/*.ts"]
}`

// Program is an inline TypeScript program with its checker.
type Program struct {
	RootDir string
	Program *shimcompiler.Program
	Checker *shimchecker.Checker
	FS      vfs.FS
}

// NewDefaultOverlayVFS layers virtual files over the bundled OS filesystem,
// which provides the TypeScript lib files.
func NewDefaultOverlayVFS(virtualFiles map[string]string) vfs.FS {
	return compiler.NewOverlayFS(bundled.WrapFS(osvfs.FS()), virtualFiles)
}

// NewProgram compiles files (relative path → source) under a fresh
// temporary root. A tsconfig.json is added unless files contains one.
// The checker is released when the test ends.
func NewProgram(t *testing.T, files map[string]string) *Program {
	t.Helper()

	rootDir := tspath.NormalizePath(t.TempDir())
	virtual := make(map[string]string, len(files)+1)
	for name, src := range files {
		virtual[tspath.ResolvePath(rootDir, name)] = src
	}
	configPath := tspath.ResolvePath(rootDir, "tsconfig.json")
	if _, ok := virtual[configPath]; !ok {
		virtual[configPath] = DefaultTSConfig
	}

	fs := NewDefaultOverlayVFS(virtual)
	project, err := compiler.CreateProject(fs, rootDir, "tsconfig.json", true)
	if err != nil {
		t.Fatalf("creating program: %v", err)
	}

	checker, release := shimcompiler.Program_GetTypeChecker(project.Program, context.Background())
	if checker == nil {
		t.Fatal("failed to get type checker")
	}
	t.Cleanup(release)

	return &Program{
		RootDir: rootDir,
		Program: project.Program,
		Checker: checker,
		FS:      fs,
	}
}

// NewSingleFileProgram compiles one file named test.ts.
func NewSingleFileProgram(t *testing.T, source string) (*Program, *ast.SourceFile) {
	t.Helper()
	p := NewProgram(t, map[string]string{"test.ts": source})
	return p, p.SourceFile(t, "test.ts")
}

// SourceFile returns the program's source file for a path relative to the root.
func (p *Program) SourceFile(t *testing.T, name string) *ast.SourceFile {
	t.Helper()
	sf := p.Program.GetSourceFile(tspath.ResolvePath(p.RootDir, name))
	if sf == nil {
		t.Fatalf("source file %q not found in program", name)
	}
	return sf
}

// WriteFiles writes files (relative path → contents) under dir on disk.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

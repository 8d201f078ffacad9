// Package compiler wraps the typescript-go program lifecycle: tsconfig
// parsing, program creation, diagnostics and emit.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/core"
	shimincremental "github.com/microsoft/typescript-go/shim/execute/incremental"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/microsoft/typescript-go/shim/vfs"
)

// Diagnostic is a config or program diagnostic reduced to text.
type Diagnostic struct {
	FilePath string
	Message  string
}

func (d Diagnostic) String() string {
	if d.FilePath != "" {
		return fmt.Sprintf("%s: %s", d.FilePath, d.Message)
	}
	return d.Message
}

// DiagnosticsError carries diagnostics that prevented a program from being built.
type DiagnosticsError struct {
	Stage       string
	Diagnostics []Diagnostic
}

func (e *DiagnosticsError) Error() string {
	return fmt.Sprintf("%s failed:\n%s", e.Stage, FormatDiagnostics(e.Diagnostics))
}

// Project is a created program together with the config it came from.
type Project struct {
	Program      *shimcompiler.Program
	ParsedConfig *tsoptions.ParsedCommandLine
	Host         shimcompiler.CompilerHost
}

// ParseTSConfig parses a tsconfig.json file using tsgo's JSONC parser,
// following extends chains. Non-nil overrides take precedence over the
// file's compiler options, like tsc command line flags.
func ParseTSConfig(fs vfs.FS, cwd string, tsconfigPath string, host shimcompiler.CompilerHost, overrides *core.CompilerOptions) (*tsoptions.ParsedCommandLine, error) {
	resolved := tspath.ResolvePath(cwd, tsconfigPath)
	if !fs.FileExists(resolved) {
		return nil, fmt.Errorf("could not find tsconfig at %v", resolved)
	}
	if overrides == nil {
		overrides = &core.CompilerOptions{}
	}

	parsed, diags := tsoptions.GetParsedCommandLineOfConfigFile(tsconfigPath, overrides, nil, host, nil)
	if len(diags) > 0 {
		return nil, &DiagnosticsError{Stage: "tsconfig", Diagnostics: convertDiagnostics(diags)}
	}
	if parsed == nil {
		return nil, fmt.Errorf("tsconfig %v produced no configuration", resolved)
	}
	if len(parsed.Errors) > 0 {
		return nil, &DiagnosticsError{Stage: "tsconfig", Diagnostics: convertDiagnostics(parsed.Errors)}
	}
	return parsed, nil
}

// CreateProgramFromConfig creates and binds a program from a parsed tsconfig.
func CreateProgramFromConfig(parsed *tsoptions.ParsedCommandLine, host shimcompiler.CompilerHost, singleThreaded bool) (*shimcompiler.Program, error) {
	opts := shimcompiler.ProgramOptions{
		Config:                      parsed,
		SingleThreaded:              core.TSFalse,
		Host:                        host,
		UseSourceOfProjectReference: true,
	}
	if singleThreaded {
		opts.SingleThreaded = core.TSTrue
	}

	program := shimcompiler.NewProgram(opts)
	if program == nil {
		return nil, errors.New("failed to create program")
	}
	if diags := program.GetProgramDiagnostics(); len(diags) > 0 {
		return nil, &DiagnosticsError{Stage: "program", Diagnostics: convertDiagnostics(diags)}
	}

	program.BindSourceFiles()
	return program, nil
}

// CreateProject parses tsconfigPath and creates its program.
func CreateProject(fs vfs.FS, cwd string, tsconfigPath string, singleThreaded bool) (*Project, error) {
	host := CreateDefaultHost(cwd, fs)
	parsed, err := ParseTSConfig(fs, cwd, tsconfigPath, host, nil)
	if err != nil {
		return nil, err
	}
	program, err := CreateProgramFromConfig(parsed, host, singleThreaded)
	if err != nil {
		return nil, err
	}
	return &Project{Program: program, ParsedConfig: parsed, Host: host}, nil
}

// EmitResult is the outcome of an emit.
type EmitResult struct {
	EmittedFiles []string
	Diagnostics  []*ast.Diagnostic
	EmitSkipped  bool
}

// EmitProgram emits the program. A non-nil writeFile replaces the host's
// WriteFile.
func EmitProgram(ctx context.Context, program *shimcompiler.Program, writeFile shimcompiler.WriteFile) *EmitResult {
	result := program.Emit(ctx, shimcompiler.EmitOptions{WriteFile: writeFile})
	return &EmitResult{
		EmittedFiles: result.EmittedFiles,
		Diagnostics:  result.Diagnostics,
		EmitSkipped:  result.EmitSkipped,
	}
}

// CreateIncrementalProgram wraps program with incremental state. With a nil
// oldProgram the previous state is read from .tsbuildinfo when present;
// watch mode passes the program of the previous cycle instead.
func CreateIncrementalProgram(
	program *shimcompiler.Program,
	oldProgram *shimincremental.Program,
	host shimcompiler.CompilerHost,
	parsed *tsoptions.ParsedCommandLine,
) *shimincremental.Program {
	if oldProgram == nil {
		reader := shimincremental.NewBuildInfoReader(host)
		oldProgram = shimincremental.ReadBuildInfoProgram(parsed, reader, host)
	}
	return shimincremental.NewProgram(program, oldProgram, shimincremental.CreateHost(host), false)
}

// EmitIncrementalProgram emits the files affected since the previous state
// and writes the updated .tsbuildinfo.
func EmitIncrementalProgram(ctx context.Context, incr *shimincremental.Program, writeFile shimcompiler.WriteFile) *EmitResult {
	result := incr.Emit(ctx, shimcompiler.EmitOptions{WriteFile: writeFile})
	return &EmitResult{
		EmittedFiles: result.EmittedFiles,
		Diagnostics:  result.Diagnostics,
		EmitSkipped:  result.EmitSkipped,
	}
}

// GatherDiagnostics collects diagnostics using the same cascade as tsgo
// (config, syntactic, program, bind, options, global, semantic, declaration).
// With noCheck only syntactic diagnostics are collected, which avoids
// creating checkers for every file.
func GatherDiagnostics(ctx context.Context, program *shimcompiler.Program, noCheck bool) []*ast.Diagnostic {
	if noCheck {
		return shimcompiler.Program_GetSyntacticDiagnostics(program, ctx, nil)
	}
	return shimcompiler.GetDiagnosticsOfAnyProgram(
		ctx,
		program,
		nil,
		false,
		func(ctx context.Context, file *ast.SourceFile) []*ast.Diagnostic {
			// Binding already ran in CreateProgramFromConfig.
			return nil
		},
		func(ctx context.Context, file *ast.SourceFile) []*ast.Diagnostic {
			return shimcompiler.Program_GetSemanticDiagnostics(program, ctx, file)
		},
	)
}

// SourceFiles returns the program's source files, excluding declaration files.
func SourceFiles(program *shimcompiler.Program) []*ast.SourceFile {
	var files []*ast.SourceFile
	for _, f := range program.GetSourceFiles() {
		if !f.IsDeclarationFile {
			files = append(files, f)
		}
	}
	return files
}

func convertDiagnostics(tsdiags []*ast.Diagnostic) []Diagnostic {
	diags := make([]Diagnostic, len(tsdiags))
	for i, d := range tsdiags {
		var filePath string
		if d.File() != nil {
			filePath = d.File().FileName()
		}
		diags[i] = Diagnostic{FilePath: filePath, Message: d.String()}
	}
	return diags
}

// FormatDiagnostics renders diagnostics one per line.
func FormatDiagnostics(diags []Diagnostic) string {
	var sb strings.Builder
	for _, d := range diags {
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

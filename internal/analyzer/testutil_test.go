package analyzer_test

import (
	"testing"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	"github.com/tsreflect/tsreflect/internal/analyzer"
	"github.com/tsreflect/tsreflect/internal/reflector"
	"github.com/tsreflect/tsreflect/internal/testutil"
)

// queryEnv holds a compiled inline program and a TypeQuery over its checker.
type queryEnv struct {
	sourceFile *ast.SourceFile
	checker    *shimchecker.Checker
	query      *analyzer.TypeQuery
}

// setupQuery compiles tsSource as test.ts and binds a TypeQuery to it.
func setupQuery(t *testing.T, tsSource string) *queryEnv {
	t.Helper()
	p, sf := testutil.NewSingleFileProgram(t, tsSource)
	return &queryEnv{
		sourceFile: sf,
		checker:    p.Checker,
		query:      analyzer.NewTypeQuery(p.Checker),
	}
}

// lookup resolves a top-level type alias, interface, class or enum by name.
func (env *queryEnv) lookup(t *testing.T, typeName string) reflector.Type {
	t.Helper()

	for _, stmt := range env.sourceFile.Statements.Nodes {
		switch stmt.Kind {
		case ast.KindTypeAliasDeclaration:
			decl := stmt.AsTypeAliasDeclaration()
			if decl.Name().Text() == typeName {
				return env.query.TypeOfNode(decl.Type)
			}
		case ast.KindInterfaceDeclaration:
			decl := stmt.AsInterfaceDeclaration()
			if decl.Name().Text() == typeName {
				return env.query.TypeOfSymbol(env.checker.GetSymbolAtLocation(decl.Name()))
			}
		case ast.KindClassDeclaration:
			decl := stmt.AsClassDeclaration()
			if decl.Name() != nil && decl.Name().Text() == typeName {
				return env.query.TypeOfSymbol(env.checker.GetSymbolAtLocation(decl.Name()))
			}
		case ast.KindEnumDeclaration:
			decl := stmt.AsEnumDeclaration()
			if decl.Name().Text() == typeName {
				return env.query.TypeOfSymbol(env.checker.GetSymbolAtLocation(decl.Name()))
			}
		}
	}

	t.Fatalf("type %q not found in source file", typeName)
	return nil
}

// reflect resolves typeName and reflects it with default options.
func (env *queryEnv) reflect(t *testing.T, typeName string) *reflector.Description {
	t.Helper()
	d, err := reflector.New(reflector.Options{}).Reflect(env.lookup(t, typeName))
	if err != nil {
		t.Fatalf("Reflect(%s): %v", typeName, err)
	}
	return d
}

func assertRecord(t *testing.T, d *reflector.Description) *reflector.Record {
	t.Helper()
	rec, ok := d.Children.(*reflector.Record)
	if !ok {
		t.Fatalf("expected record children for %s, got %T", d.Type, d.Children)
	}
	return rec
}

func assertSequence(t *testing.T, d *reflector.Description, n int) reflector.Sequence {
	t.Helper()
	seq, ok := d.Children.(reflector.Sequence)
	if !ok {
		t.Fatalf("expected sequence children for %s, got %T", d.Type, d.Children)
	}
	if len(seq) != n {
		t.Fatalf("expected %d entries for %s, got %d", n, d.Type, len(seq))
	}
	return seq
}

func entry(t *testing.T, rec *reflector.Record, name string) *reflector.Description {
	t.Helper()
	d, ok := rec.Get(name)
	if !ok {
		t.Fatalf("property %q missing; have %v", name, rec.Keys())
	}
	return d
}

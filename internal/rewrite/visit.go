package rewrite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimscanner "github.com/microsoft/typescript-go/shim/scanner"

	"github.com/tsreflect/tsreflect/internal/diagnostic"
	"github.com/tsreflect/tsreflect/internal/reflector"
)

// visit is an ast.Visitor. Returning true stops the traversal, which only
// happens after a fatal error.
func (p *pass) visit(node *ast.Node) bool {
	if p.err != nil {
		return true
	}

	switch node.Kind {
	case ast.KindCallExpression:
		if p.visitCall(node) {
			return p.err != nil
		}
	case ast.KindImportSpecifier:
		p.visitImportSpecifier(node)
		return false
	}

	node.ForEachChild(p.visit)
	return p.err != nil
}

// visitCall handles a call expression. It returns true when the call was a
// marker and has been replaced, in which case its children are not visited.
func (p *pass) visitCall(node *ast.Node) bool {
	call := node.AsCallExpression()
	if p.nodeText(call.Expression) != p.rw.opts.Marker {
		return false
	}

	var typeArgs []*ast.Node
	if call.TypeArguments != nil {
		typeArgs = call.TypeArguments.Nodes
	}
	if len(typeArgs) != 1 {
		p.rw.opts.Diagnostics.Add(diagnostic.Diagnostic{
			Severity: diagnostic.SeverityWarning,
			Category: diagnostic.CategoryMarkerArity,
			Position: p.position(node),
			Message:  fmt.Sprintf("%s call has %d type arguments; expected exactly 1", p.rw.opts.Marker, len(typeArgs)),
			Hint:     fmt.Sprintf("write %s<T>() with a single type argument", p.rw.opts.Marker),
		})
		return false
	}

	start := p.tokenStart(node)
	site := MarkerSite{
		Pos:      start,
		End:      node.End(),
		Line:     p.position(node).Line,
		TypeText: p.nodeText(typeArgs[0]),
	}

	entry, hit := p.cache[site.TypeText]
	if hit {
		p.result.CacheHits++
		site.Cached = true
	} else {
		var err error
		entry, err = p.reflect(node, typeArgs[0], site.TypeText)
		if err != nil {
			p.err = err
			return true
		}
		p.cache[site.TypeText] = entry
		p.result.Reflections++
	}

	site.JSON = entry.json
	site.Description = entry.desc
	p.result.Markers = append(p.result.Markers, site)
	p.edits = append(p.edits, edit{pos: start, end: node.End(), text: entry.literal})
	return true
}

func (p *pass) reflect(call, typeArg *ast.Node, typeText string) (cacheEntry, error) {
	pos := p.position(call)
	p.site = pos

	t := p.rw.resolver.TypeOfNode(typeArg)
	if t == nil {
		return cacheEntry{}, fmt.Errorf("%s: cannot resolve type argument %q", pos, typeText)
	}

	desc, err := p.refl.Reflect(t)
	if err != nil {
		if errors.Is(err, reflector.ErrDepthExceeded) {
			p.rw.opts.Diagnostics.Errorf(diagnostic.CategoryDepthExceeded, pos, "%s<%s>: %v", p.rw.opts.Marker, typeText, err)
		}
		return cacheEntry{}, fmt.Errorf("%s: reflecting %s: %w", pos, typeText, err)
	}
	data, err := reflector.Encode(desc)
	if err != nil {
		return cacheEntry{}, fmt.Errorf("%s: encoding %s: %w", pos, typeText, err)
	}
	lit, err := reflector.Quote(data)
	if err != nil {
		return cacheEntry{}, fmt.Errorf("%s: quoting %s: %w", pos, typeText, err)
	}
	return cacheEntry{literal: lit, json: string(data), desc: desc}, nil
}

// visitImportSpecifier renames a specifier mentioning the sentinel. The
// whole specifier is replaced, so an alias is dropped along with it.
func (p *pass) visitImportSpecifier(node *ast.Node) {
	text := p.nodeText(node)
	if !strings.Contains(text, p.rw.opts.SentinelImport) {
		return
	}
	p.edits = append(p.edits, edit{
		pos:  p.tokenStart(node),
		end:  node.End(),
		text: p.rw.opts.CanonicalImport,
	})
	p.result.ImportsRenamed++
}

// tokenStart returns the offset of node's first token, past leading trivia.
func (p *pass) tokenStart(node *ast.Node) int {
	return skipTrivia(p.text, node.Pos())
}

// nodeText returns node's source text without leading trivia.
func (p *pass) nodeText(node *ast.Node) string {
	if node == nil {
		return ""
	}
	return p.text[p.tokenStart(node):node.End()]
}

func (p *pass) position(node *ast.Node) diagnostic.Position {
	line, char := shimscanner.GetECMALineAndCharacterOfPosition(p.sf, p.tokenStart(node))
	return diagnostic.Position{
		File:   p.sf.FileName(),
		Line:   int(line) + 1,
		Column: int(char) + 1,
	}
}

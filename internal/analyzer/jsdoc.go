package analyzer

import (
	"strings"
	"unicode"

	"github.com/microsoft/typescript-go/shim/ast"
	"github.com/tsreflect/tsreflect/internal/reflector"
	"golang.org/x/text/unicode/norm"
)

// PropertyTags returns the documentation tags attached to a property
// declaration as [tag, comment, field] triples, flattened across every JSDoc
// block in source order. Other declaration kinds have no tags.
func PropertyTags(decl *ast.Node, field string) []reflector.Tag {
	if decl == nil {
		return nil
	}
	if decl.Kind != ast.KindPropertySignature && decl.Kind != ast.KindPropertyDeclaration {
		return nil
	}

	var tags []reflector.Tag
	for _, doc := range decl.JSDoc(nil) {
		jsdoc := doc.AsJSDoc()
		if jsdoc == nil || jsdoc.Tags == nil {
			continue
		}
		for _, tagNode := range jsdoc.Tags.Nodes {
			name, comment := extractJSDocTagInfo(tagNode)
			if name == "" {
				continue
			}
			tags = append(tags, reflector.NewTag(name, normalizeComment(comment), field))
		}
	}
	return tags
}

// extractJSDocTagInfo returns a tag's name and comment text.
func extractJSDocTagInfo(tagNode *ast.Node) (tagName string, comment string) {
	if tagNode == nil {
		return "", ""
	}

	switch tagNode.Kind {
	case ast.KindJSDocTag:
		unknownTag := tagNode.AsJSDocUnknownTag()
		if unknownTag == nil || unknownTag.TagName == nil {
			return "", ""
		}
		tagName = unknownTag.TagName.Text()
		if unknownTag.Comment != nil {
			comment = extractNodeListText(unknownTag.Comment)
		}
		return tagName, comment

	case ast.KindJSDocParameterTag:
		paramTag := tagNode.AsJSDocParameterOrPropertyTag()
		if paramTag != nil && paramTag.Comment != nil {
			comment = extractNodeListText(paramTag.Comment)
		}
		return "param", comment

	case ast.KindJSDocTypeTag:
		typeTag := tagNode.AsJSDocTypeTag()
		if typeTag != nil && typeTag.Comment != nil {
			if text := extractNodeListText(typeTag.Comment); text != "" {
				return "type", text
			}
		}
		return tagFromSource(tagNode)
	}

	return tagFromSource(tagNode)
}

// tagFromSource reads "@name comment" from the tag's source range. It covers
// the built-in tag kinds (@deprecated, @see, @returns, ...) that have no
// dedicated accessor above.
func tagFromSource(tagNode *ast.Node) (string, string) {
	sf := ast.GetSourceFileOfNode(tagNode)
	if sf == nil {
		return "", ""
	}
	text := sf.Text()
	start, end := tagNode.Pos(), tagNode.End()
	if start < 0 || end > len(text) || start >= end {
		return "", ""
	}
	raw := text[start:end]

	at := strings.IndexByte(raw, '@')
	if at < 0 {
		return "", ""
	}
	raw = raw[at+1:]
	nameEnd := strings.IndexFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == '{' || r == '*'
	})
	if nameEnd < 0 {
		return raw, ""
	}
	return raw[:nameEnd], stripCommentDecoration(raw[nameEnd:])
}

// stripCommentDecoration removes the leading "*" of continuation lines and
// a trailing "*/".
func stripCommentDecoration(s string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), "*/")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractNodeListText concatenates the text of JSDoc comment nodes.
func extractNodeListText(nodeList *ast.NodeList) string {
	if nodeList == nil {
		return ""
	}
	var parts []string
	for _, commentNode := range nodeList.Nodes {
		switch commentNode.Kind {
		case ast.KindJSDocText:
			parts = append(parts, commentNode.Text())
		case ast.KindJSDocLink, ast.KindJSDocLinkCode, ast.KindJSDocLinkPlain:
			parts = append(parts, commentNode.Text())
		}
	}
	return strings.Join(parts, "")
}

// normalizeComment trims and NFC-normalizes tag comments so that visually
// identical comments encode identically.
func normalizeComment(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

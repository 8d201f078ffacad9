package rewrite

import (
	"cmp"
	"slices"
	"strings"
)

// edit replaces text[pos:end] with text.
type edit struct {
	pos  int
	end  int
	text string
}

// applyEdits splices non-overlapping edits into a copy of text.
func applyEdits(text string, edits []edit) string {
	if len(edits) == 0 {
		return text
	}
	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b edit) int { return cmp.Compare(a.pos, b.pos) })

	var sb strings.Builder
	sb.Grow(len(text))
	last := 0
	for _, e := range sorted {
		sb.WriteString(text[last:e.pos])
		sb.WriteString(e.text)
		last = e.end
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// skipTrivia returns the first offset at or after pos that is not
// whitespace or a comment.
func skipTrivia(text string, pos int) int {
	for pos < len(text) {
		switch c := text[pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			pos++
		case strings.HasPrefix(text[pos:], "//"):
			nl := strings.IndexByte(text[pos:], '\n')
			if nl < 0 {
				return len(text)
			}
			pos += nl + 1
		case strings.HasPrefix(text[pos:], "/*"):
			end := strings.Index(text[pos+2:], "*/")
			if end < 0 {
				return len(text)
			}
			pos += 2 + end + 2
		case strings.HasPrefix(text[pos:], "\ufeff"):
			pos += len("\ufeff")
		default:
			return pos
		}
	}
	return pos
}

package analyzer

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// MatchesGlob checks if a file path matches any of the include patterns
// and does not match any of the exclude patterns. Paths are matched as
// given, so callers pass them relative to the project root. Patterns
// without a directory part match against the base name.
func MatchesGlob(filePath string, includePatterns []string, excludePatterns []string) bool {
	if len(includePatterns) == 0 {
		return false
	}

	filePath = filepath.ToSlash(filePath)

	for _, pattern := range excludePatterns {
		if globMatch(filePath, pattern) {
			return false
		}
	}
	for _, pattern := range includePatterns {
		if globMatch(filePath, pattern) {
			return true
		}
	}
	return false
}

// ValidPattern reports whether pattern is a well-formed glob. The pattern is
// matched against its own text so that every component gets parsed.
func ValidPattern(pattern string) bool {
	pattern = filepath.ToSlash(pattern)
	_, err := doublestar.Match(pattern, pattern)
	return err == nil
}

func globMatch(filePath, pattern string) bool {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	if matched, err := doublestar.Match(pattern, filePath); err == nil && matched {
		return true
	}
	if !strings.Contains(pattern, "/") {
		base := filePath
		if i := strings.LastIndexByte(filePath, '/'); i >= 0 {
			base = filePath[i+1:]
		}
		matched, err := doublestar.Match(pattern, base)
		return err == nil && matched
	}
	return false
}

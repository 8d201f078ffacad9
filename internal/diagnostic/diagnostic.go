// Package diagnostic collects non-fatal findings produced while rewriting a
// project: malformed marker calls, types that cannot be described, and
// configuration problems.
package diagnostic

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Category classifies diagnostics for filtering.
type Category string

const (
	// CategoryMarkerArity flags marker-named calls that do not carry exactly
	// one type argument. Such calls are left in place.
	CategoryMarkerArity Category = "marker-arity"
	// CategoryTypeUnrepresentable flags symbol-less, non-literal types whose
	// description has no children.
	CategoryTypeUnrepresentable Category = "type-unrepresentable"
	CategoryConfigInvalid       Category = "config-invalid"
	CategoryDepthExceeded       Category = "depth-exceeded"
)

// Position locates a diagnostic in a source file. Line and Column are 1-based;
// zero means unknown.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File == "" {
		return ""
	}
	switch {
	case p.Line > 0 && p.Column > 0:
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	case p.Line > 0:
		return fmt.Sprintf("%s:%d", p.File, p.Line)
	default:
		return p.File
	}
}

// Diagnostic represents a structured diagnostic message.
type Diagnostic struct {
	Severity Severity
	Category Category
	Position
	Message string
	Hint    string // optional suggestion for fixing the issue
}

// String formats the diagnostic for display.
func (d Diagnostic) String() string {
	var sb strings.Builder

	if loc := d.Position.String(); loc != "" {
		sb.WriteString(loc)
		sb.WriteString(" - ")
	}

	sb.WriteString(d.Severity.String())
	sb.WriteString(": ")

	if d.Category != "" {
		fmt.Fprintf(&sb, "[%s] ", d.Category)
	}

	sb.WriteString(d.Message)

	if d.Hint != "" {
		sb.WriteString("\n  hint: ")
		sb.WriteString(d.Hint)
	}

	return sb.String()
}

// Collector gathers diagnostics. A nil *Collector discards everything, so
// callers that do not care about diagnostics can pass nil. It is safe for
// concurrent use.
type Collector struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
	strict      bool // warnings become errors
	quiet       bool // warnings and infos are dropped
}

// NewCollector creates a new diagnostic collector.
func NewCollector(strict, quiet bool) *Collector {
	return &Collector{
		strict: strict,
		quiet:  quiet,
	}
}

// Add records d, applying the strict and quiet modes.
func (c *Collector) Add(d Diagnostic) {
	if c == nil {
		return
	}
	if c.quiet && d.Severity != SeverityError {
		return
	}
	if c.strict && d.Severity == SeverityWarning {
		d.Severity = SeverityError
	}
	c.mu.Lock()
	c.diagnostics = append(c.diagnostics, d)
	c.mu.Unlock()
}

// Warnf adds a warning diagnostic.
func (c *Collector) Warnf(category Category, pos Position, format string, args ...any) {
	c.Add(Diagnostic{
		Severity: SeverityWarning,
		Category: category,
		Position: pos,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Errorf adds an error diagnostic.
func (c *Collector) Errorf(category Category, pos Position, format string, args ...any) {
	c.Add(Diagnostic{
		Severity: SeverityError,
		Category: category,
		Position: pos,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Infof adds an informational diagnostic.
func (c *Collector) Infof(category Category, pos Position, format string, args ...any) {
	c.Add(Diagnostic{
		Severity: SeverityInfo,
		Category: category,
		Position: pos,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Diagnostics returns a copy of the collected diagnostics ordered by file,
// line and column. Diagnostics without a file come first.
func (c *Collector) Diagnostics() []Diagnostic {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	out := slices.Clone(c.diagnostics)
	c.mu.Unlock()

	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Column, b.Column),
		)
	})
	return out
}

// Count returns the number of diagnostics with the given severity.
func (c *Collector) Count(sev Severity) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error-level diagnostic was recorded.
func (c *Collector) HasErrors() bool {
	return c.Count(SeverityError) > 0
}

// WriteTo writes every diagnostic on its own line.
func (c *Collector) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, d := range c.Diagnostics() {
		n, err := fmt.Fprintln(w, d.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Summary returns a summary line like "1 error(s), 2 warning(s)".
func (c *Collector) Summary() string {
	errors := c.Count(SeverityError)
	warnings := c.Count(SeverityWarning)

	var parts []string
	if errors > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errors))
	}
	if warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warnings))
	}
	if len(parts) == 0 {
		return "no issues"
	}
	return strings.Join(parts, ", ")
}

package compiler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/microsoft/typescript-go/shim/ast"
	shimscanner "github.com/microsoft/typescript-go/shim/scanner"
)

// DiagnosticCategory mirrors tsgo's diagnostics.Category, which lives in an
// internal package.
type DiagnosticCategory int

const (
	CategoryWarning    DiagnosticCategory = 0
	CategoryError      DiagnosticCategory = 1
	CategorySuggestion DiagnosticCategory = 2
	CategoryMessage    DiagnosticCategory = 3
)

func (c DiagnosticCategory) Name() string {
	switch c {
	case CategoryError:
		return "error"
	case CategoryWarning:
		return "warning"
	case CategorySuggestion:
		return "suggestion"
	case CategoryMessage:
		return "message"
	}
	return "unknown"
}

func (c DiagnosticCategory) color() string {
	switch c {
	case CategoryError:
		return colorRed
	case CategoryWarning:
		return colorYellow
	case CategorySuggestion:
		return colorGrey
	case CategoryMessage:
		return colorBlue
	}
	return ""
}

func categoryOf(d *ast.Diagnostic) DiagnosticCategory {
	return DiagnosticCategory(ast.Diagnostic_Category(d))
}

// ANSI colors matching tsgo's diagnosticwriter.
const (
	colorReset  = "\u001b[0m"
	colorRed    = "\u001b[91m"
	colorYellow = "\u001b[93m"
	colorBlue   = "\u001b[94m"
	colorCyan   = "\u001b[96m"
	colorGrey   = "\u001b[90m"
	colorGutter = "\u001b[7m"
)

// IsPrettyOutput mirrors tsgo's shouldBePretty: NO_COLOR, FORCE_COLOR, then
// whether stderr is a terminal.
func IsPrettyOutput() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Reporter prints tsgo diagnostics the way tsc does.
type Reporter struct {
	w      io.Writer
	cwd    string
	pretty bool
}

// NewReporter creates a Reporter. Pretty output adds colors and code
// snippets; plain output is `file(line,col): error TS2322: message`.
func NewReporter(w io.Writer, cwd string, pretty bool) *Reporter {
	return &Reporter{w: w, cwd: cwd, pretty: pretty}
}

// Report writes one diagnostic.
func (r *Reporter) Report(d *ast.Diagnostic) {
	if r.pretty {
		r.writePretty(d)
		fmt.Fprint(r.w, "\n")
		return
	}
	r.writePlain(d)
}

// ReportAll writes every diagnostic and, in pretty mode, the error summary.
func (r *Reporter) ReportAll(diags []*ast.Diagnostic) {
	for _, d := range diags {
		r.Report(d)
	}
	if r.pretty {
		r.WriteErrorSummary(diags)
	}
}

func (r *Reporter) writePlain(d *ast.Diagnostic) {
	if file := d.File(); file != nil {
		line, char := shimscanner.GetECMALineAndCharacterOfPosition(file, d.Pos())
		fmt.Fprintf(r.w, "%s(%d,%d): ", relativePath(file.FileName(), r.cwd), line+1, char+1)
	}
	fmt.Fprintf(r.w, "%s TS%d: %s\n", categoryOf(d).Name(), d.Code(), d.String())
}

func (r *Reporter) writePretty(d *ast.Diagnostic) {
	cat := categoryOf(d)
	file := d.File()

	if file != nil {
		line, char := shimscanner.GetECMALineAndCharacterOfPosition(file, d.Pos())
		fmt.Fprintf(r.w, "%s%s%s:%s%d%s:%s%d%s - ",
			colorCyan, relativePath(file.FileName(), r.cwd), colorReset,
			colorYellow, line+1, colorReset,
			colorYellow, char+1, colorReset)
	}

	fmt.Fprintf(r.w, "%s%s%s %sTS%d:%s %s",
		cat.color(), cat.Name(), colorReset,
		colorGrey, d.Code(), colorReset,
		d.String())

	if file != nil && d.Len() > 0 {
		fmt.Fprint(r.w, "\n")
		writeCodeSnippet(r.w, file, d.Pos(), d.Len(), cat.color())
		fmt.Fprint(r.w, "\n")
	}
}

// writeCodeSnippet writes the affected lines with a line-number gutter and
// squiggles under the span. Spans longer than five lines are elided in the
// middle, as tsgo does.
func writeCodeSnippet(w io.Writer, file *ast.SourceFile, start int, length int, squiggleColor string) {
	firstLine, firstChar := shimscanner.GetECMALineAndCharacterOfPosition(file, start)
	lastLine, lastChar := shimscanner.GetECMALineAndCharacterOfPosition(file, start+length)
	if length == 0 {
		lastChar++
	}

	text := file.Text()
	lastLineOfFile := shimscanner.GetECMALineOfPosition(file, len(text))

	elide := lastLine-firstLine >= 4
	gutterWidth := len(strconv.Itoa(lastLine + 1))
	if elide && gutterWidth < 3 {
		gutterWidth = 3
	}

	for i := firstLine; i <= lastLine; i++ {
		if elide && firstLine+1 < i && i < lastLine-1 {
			fmt.Fprintf(w, "%s%*s%s \n", colorGutter, gutterWidth, "...", colorReset)
			i = lastLine - 1
		}

		lineStart := shimscanner.GetECMAPositionOfLineAndCharacter(file, i, 0)
		lineEnd := len(text)
		if i < lastLineOfFile {
			lineEnd = shimscanner.GetECMAPositionOfLineAndCharacter(file, i+1, 0)
		}
		content := strings.TrimRightFunc(text[lineStart:lineEnd], unicode.IsSpace)
		content = strings.ReplaceAll(content, "\t", " ")

		fmt.Fprintf(w, "%s%*d%s %s\n", colorGutter, gutterWidth, i+1, colorReset, content)
		fmt.Fprintf(w, "%s%*s%s %s", colorGutter, gutterWidth, "", colorReset, squiggleColor)

		switch i {
		case firstLine:
			end := lastChar
			if i != lastLine {
				end = len(content)
			}
			fmt.Fprint(w, strings.Repeat(" ", firstChar))
			fmt.Fprint(w, strings.Repeat("~", max(end-firstChar, 1)))
		case lastLine:
			fmt.Fprint(w, strings.Repeat("~", max(lastChar, 0)))
		default:
			fmt.Fprint(w, strings.Repeat("~", len(content)))
		}
		fmt.Fprint(w, colorReset)
	}
}

// WriteErrorSummary writes tsgo's "Found N errors" line. Only errors count.
func (r *Reporter) WriteErrorSummary(diags []*ast.Diagnostic) {
	var first *ast.Diagnostic
	errorCount := 0
	files := make(map[string]bool)
	for _, d := range diags {
		if categoryOf(d) != CategoryError {
			continue
		}
		errorCount++
		if first == nil {
			first = d
		}
		if d.File() != nil {
			files[d.File().FileName()] = true
		}
	}
	if errorCount == 0 {
		return
	}

	location := ""
	if first.File() != nil {
		line := shimscanner.GetECMALineOfPosition(first.File(), first.Pos())
		location = fmt.Sprintf("%s%s:%d%s", relativePath(first.File().FileName(), r.cwd), colorGrey, line+1, colorReset)
	}

	fmt.Fprint(r.w, "\n")
	switch {
	case errorCount == 1 && location != "":
		fmt.Fprintf(r.w, "Found 1 error in %s\n", location)
	case errorCount == 1:
		fmt.Fprintln(r.w, "Found 1 error.")
	case len(files) <= 1 && location != "":
		fmt.Fprintf(r.w, "Found %d errors in the same file, starting at: %s\n", errorCount, location)
	case len(files) <= 1:
		fmt.Fprintf(r.w, "Found %d errors.\n", errorCount)
	default:
		fmt.Fprintf(r.w, "Found %d errors in %d files.\n", errorCount, len(files))
	}
	fmt.Fprint(r.w, "\n")
}

// CountErrors returns the number of error diagnostics.
func CountErrors(diags []*ast.Diagnostic) int {
	count := 0
	for _, d := range diags {
		if categoryOf(d) == CategoryError {
			count++
		}
	}
	return count
}

func relativePath(absPath string, cwd string) string {
	if cwd == "" {
		return absPath
	}
	rel, err := filepath.Rel(cwd, absPath)
	if err != nil {
		return absPath
	}
	return rel
}

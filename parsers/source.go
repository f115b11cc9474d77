package parsers

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/flanksource/quality-unit/models"
)

// SourceParser is a heuristic, line-based parser adapter covering Go,
// Python and JavaScript. It extracts just enough structure (functions,
// types, imports, nesting) for the built-in analyzers; full AST
// extraction is a separate concern outside this engine.
type SourceParser struct{}

// NewSourceParser creates the default parser adapter
func NewSourceParser() *SourceParser {
	return &SourceParser{}
}

var (
	goFuncRe   = regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)`)
	goTypeRe   = regexp.MustCompile(`^type\s+([A-Za-z_][A-Za-z0-9_]*)\s+(?:struct|interface)\b`)
	goImportRe = regexp.MustCompile(`^\s*(?:import\s+)?"([^"]+)"`)
	pyDefRe    = regexp.MustCompile(`^(\s*)def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)`)
	pyClassRe  = regexp.MustCompile(`^(\s*)class\s+([A-Za-z_][A-Za-z0-9_]*)`)
	pyImportRe = regexp.MustCompile(`^\s*(?:import|from)\s+([A-Za-z0-9_.]+)`)
	jsFuncRe   = regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*\(([^)]*)`)
	jsClassRe  = regexp.MustCompile(`^\s*(?:export\s+)?class\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	jsImportRe = regexp.MustCompile(`^\s*import\b.*?from\s+['"]([^'"]+)['"]`)
)

// Parse reads and extracts structure from a single source file
func (p *SourceParser) Parse(path string) (models.ParsedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ParsedFile{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	content := string(data)
	lines := strings.Split(content, "\n")

	parsed := models.ParsedFile{
		Path:      path,
		Language:  models.DetectLanguage(path),
		Content:   content,
		LineCount: len(lines),
	}

	switch parsed.Language {
	case "go":
		p.extractBraced(&parsed, lines, goFuncRe, goTypeRe, goImportRe, "//")
	case "javascript":
		p.extractBraced(&parsed, lines, jsFuncRe, jsClassRe, jsImportRe, "//")
	case "python":
		p.extractPython(&parsed, lines)
	}

	return parsed, nil
}

// extractBraced handles brace-delimited languages. Function extents are
// tracked by brace depth from the declaration line.
func (p *SourceParser) extractBraced(parsed *models.ParsedFile, lines []string, funcRe, typeRe, importRe *regexp.Regexp, comment string) {
	for i, line := range lines {
		lineNo := i + 1

		if m := importRe.FindStringSubmatch(line); m != nil {
			parsed.Imports = append(parsed.Imports, models.Import{Module: m[1], Line: lineNo})
			continue
		}

		if m := typeRe.FindStringSubmatch(line); m != nil {
			end, _ := braceExtent(lines, i)
			parsed.Classes = append(parsed.Classes, models.Class{
				Name:      m[1],
				LineStart: lineNo,
				LineEnd:   end,
				Exported:  isExported(m[1]),
				HasDoc:    hasDocAbove(lines, i, comment),
			})
			continue
		}

		if m := funcRe.FindStringSubmatch(line); m != nil {
			end, depth := braceExtent(lines, i)
			parsed.Functions = append(parsed.Functions, models.Function{
				Name:         m[1],
				LineStart:    lineNo,
				LineEnd:      end,
				Parameters:   countParams(m[2]),
				NestingDepth: depth,
				Exported:     isExported(m[1]),
				HasDoc:       hasDocAbove(lines, i, comment),
			})
		}
	}
}

// extractPython handles indentation-delimited blocks. A def's extent
// runs until the next non-blank line at or below its indent.
func (p *SourceParser) extractPython(parsed *models.ParsedFile, lines []string) {
	for i, line := range lines {
		lineNo := i + 1

		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			parsed.Imports = append(parsed.Imports, models.Import{Module: m[1], Line: lineNo})
			continue
		}

		if m := pyClassRe.FindStringSubmatch(line); m != nil {
			end, _ := indentExtent(lines, i, len(m[1]))
			parsed.Classes = append(parsed.Classes, models.Class{
				Name:      m[2],
				LineStart: lineNo,
				LineEnd:   end,
				Exported:  !strings.HasPrefix(m[2], "_"),
				HasDoc:    pythonHasDoc(lines, i),
			})
			continue
		}

		if m := pyDefRe.FindStringSubmatch(line); m != nil {
			end, depth := indentExtent(lines, i, len(m[1]))
			parsed.Functions = append(parsed.Functions, models.Function{
				Name:         m[2],
				LineStart:    lineNo,
				LineEnd:      end,
				Parameters:   countParams(m[3]),
				NestingDepth: depth,
				Exported:     !strings.HasPrefix(m[2], "_"),
				HasDoc:       pythonHasDoc(lines, i),
			})
		}
	}
}

// braceExtent returns the 1-based end line of the block opened on line
// start, plus the maximum brace nesting depth observed inside it
func braceExtent(lines []string, start int) (endLine, maxDepth int) {
	depth := 0
	opened := false
	maxDepth = 0

	for i := start; i < len(lines); i++ {
		for _, ch := range lines[i] {
			switch ch {
			case '{':
				depth++
				opened = true
				if depth > maxDepth {
					maxDepth = depth
				}
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return i + 1, maxDepth
		}
	}
	return len(lines), maxDepth
}

// indentExtent returns the 1-based end line of a Python block with the
// given indent, plus the deepest relative indent level (4-space units)
func indentExtent(lines []string, start, indent int) (endLine, maxDepth int) {
	endLine = start + 1
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		lineIndent := len(lines[i]) - len(strings.TrimLeft(lines[i], " \t"))
		if lineIndent <= indent {
			break
		}
		endLine = i + 1
		if depth := (lineIndent - indent) / 4; depth > maxDepth {
			maxDepth = depth
		}
	}
	return endLine, maxDepth
}

func countParams(params string) int {
	params = strings.TrimSpace(params)
	if params == "" {
		return 0
	}
	count := 1
	depth := 0
	for _, ch := range params {
		switch ch {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				count++
			}
		}
	}
	return count
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper(rune(name[0]))
}

func hasDocAbove(lines []string, i int, comment string) bool {
	for j := i - 1; j >= 0; j-- {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			continue
		}
		return strings.HasPrefix(trimmed, comment)
	}
	return false
}

func pythonHasDoc(lines []string, i int) bool {
	for j := i + 1; j < len(lines) && j <= i+2; j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			continue
		}
		return strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, `'''`)
	}
	return false
}

package models

import (
	"path/filepath"
	"strings"
)

// Function is a function or method declaration found in a source file
type Function struct {
	Name       string `json:"name"`
	LineStart  int    `json:"line_start"`
	LineEnd    int    `json:"line_end"`
	Parameters int    `json:"parameters"`
	// NestingDepth is the deepest block nesting observed in the body
	NestingDepth int  `json:"nesting_depth"`
	Exported     bool `json:"exported"`
	HasDoc       bool `json:"has_doc"`
}

// LineCount returns the number of lines the function body spans
func (f Function) LineCount() int {
	if f.LineEnd < f.LineStart {
		return 0
	}
	return f.LineEnd - f.LineStart + 1
}

// Class is a type, class or struct declaration
type Class struct {
	Name      string `json:"name"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	Exported  bool   `json:"exported"`
	HasDoc    bool   `json:"has_doc"`
}

// Import is a single import/require/include statement
type Import struct {
	Module string `json:"module"`
	Line   int    `json:"line"`
}

// ParsedFile is the language-agnostic parse result the engine operates on
type ParsedFile struct {
	Path      string     `json:"path"`
	Language  string     `json:"language"`
	Content   string     `json:"content,omitempty"`
	LineCount int        `json:"line_count"`
	Functions []Function `json:"functions,omitempty"`
	Classes   []Class    `json:"classes,omitempty"`
	Imports   []Import   `json:"imports,omitempty"`
}

// DetectLanguage maps a file extension to a language name, empty if unknown
func DetectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".jsx", ".ts", ".tsx":
		return "javascript"
	case ".java":
		return "java"
	default:
		return ""
	}
}

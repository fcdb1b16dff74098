package task

import (
	"fmt"
)

// ResultKind tags the shape of a stored execution result.
type ResultKind string

const (
	// KindText is a plain text result.
	KindText ResultKind = "text"
	// KindTable is a columnar result.
	KindTable ResultKind = "table"
	// KindDocument is free-form content with a sub type (mermaid, json, ...).
	KindDocument ResultKind = "document"
	// KindData is structured data content with a sub type.
	KindData ResultKind = "data"
)

// IsValid checks if the kind is known. The empty kind marks the legacy
// untagged {content} shape written by old versions of the product.
func (k ResultKind) IsValid() bool {
	switch k {
	case KindText, KindTable, KindDocument, KindData, "":
		return true
	default:
		return false
	}
}

// ExecutionResult is the stored outcome of one task execution.
//
// It is a tagged union keyed by Kind. Text carries the text kind; Columns and
// Rows carry the table kind; Content plus SubType carry the document and data
// kinds. Legacy records have no Kind and only Content set. Created once by the
// executor on task completion and immutable afterward.
type ExecutionResult struct {
	Kind    ResultKind          `json:"kind,omitempty" yaml:"kind,omitempty"`
	Text    string              `json:"text,omitempty" yaml:"text,omitempty"`
	Columns []string            `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows    []map[string]string `json:"rows,omitempty" yaml:"rows,omitempty"`
	Content string              `json:"content,omitempty" yaml:"content,omitempty"`
	SubType string              `json:"sub_type,omitempty" yaml:"sub_type,omitempty"`
}

// NewTextResult creates a text-kind result.
func NewTextResult(text string) *ExecutionResult {
	return &ExecutionResult{Kind: KindText, Text: text}
}

// NewTableResult creates a table-kind result.
func NewTableResult(columns []string, rows []map[string]string) *ExecutionResult {
	return &ExecutionResult{Kind: KindTable, Columns: columns, Rows: rows}
}

// NewDocumentResult creates a document-kind result with a sub type such as
// mermaid, json, yaml, svg, html or markdown.
func NewDocumentResult(content, subType string) *ExecutionResult {
	return &ExecutionResult{Kind: KindDocument, Content: content, SubType: subType}
}

// NewDataResult creates a data-kind result with a sub type.
func NewDataResult(content, subType string) *ExecutionResult {
	return &ExecutionResult{Kind: KindData, Content: content, SubType: subType}
}

// IsLegacy reports whether the result uses the untagged {content} shape.
func (r *ExecutionResult) IsLegacy() bool {
	return r.Kind == ""
}

// Validate checks the union is internally consistent.
func (r *ExecutionResult) Validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("invalid result kind: %s", r.Kind)
	}
	if r.Kind == KindTable && len(r.Columns) == 0 {
		return fmt.Errorf("table result requires at least one column")
	}
	return nil
}

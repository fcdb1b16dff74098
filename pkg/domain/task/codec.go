package task

import (
	"encoding/json"
	"strings"
)

// Result codec: converts a stored ExecutionResult into both a canonical value
// and a language-appropriate escaped literal. Resolved values are spliced into
// source text that is itself interpreted (a script body or a prompt string),
// so every substitution escapes backslashes, double quotes and newlines
// before insertion.

// CanonicalContent extracts the canonical string value of a result.
//
// The second return value is false when the result is nil or carries no
// extractable content; callers then leave the referencing macro token
// unresolved rather than substituting an empty value.
func CanonicalContent(r *ExecutionResult) (string, bool) {
	if r == nil {
		return "", false
	}

	switch r.Kind {
	case KindText:
		return r.Text, true
	case KindTable:
		return encodeTableCSV(r.Columns, r.Rows), true
	case KindDocument, KindData:
		return r.Content, true
	default:
		// Legacy untagged {content} shape.
		if r.Content != "" {
			return r.Content, true
		}
		return "", false
	}
}

// SerializedContent returns the full raw structured result serialized as JSON.
// Used by {{task.N.output}}.
func SerializedContent(r *ExecutionResult) (string, bool) {
	if r == nil {
		return "", false
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// SummarizedContent returns a truncated form of the canonical content,
// cutting at maxLen runes with an ellipsis marker. Used by the .summary
// macro variants.
func SummarizedContent(r *ExecutionResult, maxLen int) (string, bool) {
	content, ok := CanonicalContent(r)
	if !ok {
		return "", false
	}
	if maxLen <= 0 {
		maxLen = 500
	}
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content, true
	}
	return string(runes[:maxLen]) + "...", true
}

// encodeTableCSV renders a table result as "header\nrow1\nrow2...", joining
// columns with commas and rows with newlines. Missing cells render as the
// empty string. Cell values are taken verbatim; the board UI already keeps
// commas out of table cells.
func encodeTableCSV(columns []string, rows []map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(columns, ","))

	cells := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			cells[i] = row[col]
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(cells, ","))
	}
	return b.String()
}

// EscapeLiteral escapes a value for splicing into interpreted source text:
// backslashes, double quotes, and newlines become two-character escape
// sequences.
func EscapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// QuoteLiteral escapes a value and wraps it in double quotes, for contexts
// that expect a string literal.
func QuoteLiteral(s string) string {
	return `"` + EscapeLiteral(s) + `"`
}

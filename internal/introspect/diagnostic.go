package introspect

// DiagnosticKind classifies a parse diagnostic.
type DiagnosticKind string

const (
	DiagDanglingForeignKey DiagnosticKind = "dangling-foreign-key"
	DiagDuplicateColumn    DiagnosticKind = "duplicate-column"
	DiagDuplicateTable     DiagnosticKind = "duplicate-table"
	DiagInternal           DiagnosticKind = "internal"
)

// Diagnostic describes one statement the parser could not use as-is.
// Diagnostics never stop a parse.
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind"`
	Statement string         `json:"statement,omitempty"`
	Message   string         `json:"message"`
}

// String returns the human-readable form of the diagnostic.
func (d Diagnostic) String() string {
	return d.Message
}

// Messages flattens diagnostics into their human-readable strings.
func Messages(diags []Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.String())
	}
	return out
}

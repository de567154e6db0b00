package introspect

import "strings"

// Source records where a foreign key was discovered.
type Source string

const (
	// SourceInline is a REFERENCES clause on a column definition.
	SourceInline Source = "inline"
	// SourceTableConstraint is a FOREIGN KEY clause inside a CREATE TABLE body.
	SourceTableConstraint Source = "table-constraint"
	// SourceAlterTable is an ALTER TABLE ... ADD CONSTRAINT ... FOREIGN KEY statement.
	SourceAlterTable Source = "alter-table"
	// SourceCatalog is a key read from a live database catalog.
	SourceCatalog Source = "catalog"
)

// Column represents a table column.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	SourceLine string `json:"source_line,omitempty"`
	Nullable   bool   `json:"nullable"`
	PK         bool   `json:"pk"`
}

// ForeignKey represents a foreign key relationship.
type ForeignKey struct {
	FromSchema string `json:"from_schema,omitempty"`
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToSchema   string `json:"to_schema,omitempty"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
	Constraint string `json:"constraint,omitempty"`
	SourceLine string `json:"source_line,omitempty"`
	OnDelete   string `json:"on_delete,omitempty"`
	OnUpdate   string `json:"on_update,omitempty"`
	Source     Source `json:"source"`
}

// Table represents a database table and its columns.
type Table struct {
	Schema        string   `json:"schema,omitempty"`
	Name          string   `json:"name"`
	RawDefinition string   `json:"raw_definition,omitempty"`
	Columns       []Column `json:"columns"`
	Rows          int64    `json:"rows,omitempty"`        // optional row estimate/counted value
	Comment       *string  `json:"comment,omitempty"`     // optional table comment
	Size8kPages   int64    `json:"size8kPages,omitempty"` // optional size in 8k pages
}

// Column returns the named column, if present.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Schema is the full DB schema extracted for visualization.
// Tables keep the order in which they were first seen.
type Schema struct {
	Tables      []Table      `json:"tables"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// Table returns a pointer to the named table, if present.
func (s *Schema) Table(name string) (*Table, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// HasTable reports whether name is one of the schema's tables.
func (s *Schema) HasTable(name string) bool {
	_, ok := s.Table(name)
	return ok
}

// TableNames returns the table names in schema order.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// NormalizeAction upper-cases a referential action and collapses
// whitespace and underscores, so "no_action" and "No  Action" both
// become "NO ACTION". An empty input stays empty.
func NormalizeAction(action string) string {
	action = strings.ReplaceAll(action, "_", " ")
	return strings.ToUpper(strings.Join(strings.Fields(action), " "))
}

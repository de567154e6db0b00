// Package sqlparse recovers tables, columns and foreign keys from SQL
// dump text. It is a set of independent pattern rules applied to the
// whole text, not a grammar-aware SQL parser.
package sqlparse

import (
	"fmt"
	"strings"

	"erdsql/internal/introspect"
)

// Options controls validation policy per foreign key provenance.
type Options struct {
	// ValidateInline drops inline and table-constraint references to
	// tables that never appear in the dump, with a diagnostic. ALTER TABLE
	// foreign keys are always validated.
	ValidateInline bool
}

// Result is the outcome of a parse: whatever could be recovered plus
// the diagnostics for what could not.
type Result struct {
	Schema      introspect.Schema       `json:"schema"`
	Diagnostics []introspect.Diagnostic `json:"diagnostics"`
}

// Errors returns the diagnostics as plain messages.
func (r Result) Errors() []string {
	return introspect.Messages(r.Diagnostics)
}

// Parser parses SQL dumps with a fixed set of options.
type Parser struct {
	opts Options
}

// New returns a Parser using opts.
func New(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Parse parses sql with default options.
func Parse(sql string) Result {
	return New(Options{}).Parse(sql)
}

// parseState accumulates results so a recovered panic still returns
// everything parsed before it.
type parseState struct {
	res   *Result
	index map[string]int
}

func (st *parseState) diag(kind introspect.DiagnosticKind, stmt, format string, args ...interface{}) {
	st.res.Diagnostics = append(st.res.Diagnostics, introspect.Diagnostic{
		Kind:      kind,
		Statement: stmt,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Parse extracts the schema from sql. It never fails: unmatched
// statements are skipped, dangling ALTER TABLE foreign keys are reported
// as diagnostics, and a panic in any rule becomes an internal diagnostic
// with the partial result returned.
func (p *Parser) Parse(sql string) (res Result) {
	res.Schema.Tables = []introspect.Table{}
	res.Schema.ForeignKeys = []introspect.ForeignKey{}
	res.Diagnostics = []introspect.Diagnostic{}
	st := &parseState{res: &res, index: map[string]int{}}

	defer func() {
		if r := recover(); r != nil {
			st.diag(introspect.DiagInternal, "", "Parsing error: %v", r)
		}
	}()

	text := StripComments(sql)

	var pending []introspect.ForeignKey
	for _, stmt := range MatchCreateTables(text) {
		pending = append(pending, st.addTable(stmt)...)
	}
	for _, fk := range pending {
		if p.opts.ValidateInline && !res.Schema.HasTable(fk.ToTable) {
			st.diag(introspect.DiagDanglingForeignKey, fk.SourceLine,
				"FK parsing issue: %s.%s references unknown table %s", fk.FromTable, fk.FromColumn, fk.ToTable)
			continue
		}
		res.Schema.ForeignKeys = append(res.Schema.ForeignKeys, fk)
	}

	for _, stmt := range MatchAlterPrimaryKeys(text) {
		if t, ok := res.Schema.Table(stmt.Table); ok {
			markPrimaryKey(t, stmt.Columns)
		}
	}

	for _, stmt := range MatchAlterForeignKeys(text) {
		if !res.Schema.HasTable(stmt.Table) || !res.Schema.HasTable(stmt.RefTable) {
			st.diag(introspect.DiagDanglingForeignKey, stmt.Text, "FK parsing issue: %s", stmt.Text)
			continue
		}
		res.Schema.ForeignKeys = append(res.Schema.ForeignKeys, introspect.ForeignKey{
			FromTable:  stmt.Table,
			FromColumn: stmt.Columns,
			ToTable:    stmt.RefTable,
			ToColumn:   stmt.RefColumns,
			Constraint: stmt.Constraint,
			SourceLine: stmt.Text,
			OnDelete:   stmt.OnDelete,
			OnUpdate:   stmt.OnUpdate,
			Source:     introspect.SourceAlterTable,
		})
	}

	return res
}

// addTable registers one CREATE TABLE statement and returns the foreign
// keys declared inside it.
func (st *parseState) addTable(stmt CreateTableStmt) []introspect.ForeignKey {
	table := introspect.Table{Name: stmt.Name, Columns: []introspect.Column{}}
	lines := []string{stmt.Name}
	var fks []introspect.ForeignKey
	var pkCols []string

	for _, frag := range SplitTopLevel(stmt.Body) {
		lines = append(lines, frag)

		if IsTableConstraint(frag) {
			if cols, ok := MatchPrimaryKeyColumns(frag); ok {
				pkCols = append(pkCols, cols...)
			}
			if ref, ok := MatchTableForeignKey(frag); ok {
				fks = append(fks, introspect.ForeignKey{
					FromTable:  stmt.Name,
					FromColumn: ref.Columns,
					ToTable:    ref.RefTable,
					ToColumn:   ref.RefColumns,
					Constraint: ref.Constraint,
					SourceLine: frag,
					OnDelete:   ref.OnDelete,
					OnUpdate:   ref.OnUpdate,
					Source:     introspect.SourceTableConstraint,
				})
			}
			continue
		}

		col, ok := ParseColumn(frag)
		if !ok {
			continue
		}
		if _, dup := table.Column(col.Name); dup {
			st.diag(introspect.DiagDuplicateColumn, frag,
				"duplicate column %s in table %s; keeping the first definition", col.Name, stmt.Name)
			continue
		}
		table.Columns = append(table.Columns, col)

		if ref, ok := MatchInlineReference(frag); ok {
			fks = append(fks, introspect.ForeignKey{
				FromTable:  stmt.Name,
				FromColumn: col.Name,
				ToTable:    ref.RefTable,
				ToColumn:   ref.RefColumns,
				SourceLine: frag,
				OnDelete:   ref.OnDelete,
				OnUpdate:   ref.OnUpdate,
				Source:     introspect.SourceInline,
			})
		}
	}

	markPrimaryKey(&table, pkCols)
	table.RawDefinition = strings.Join(lines, "\n")

	if i, seen := st.index[stmt.Name]; seen {
		st.diag(introspect.DiagDuplicateTable, stmt.Text,
			"table %s defined more than once; keeping the last definition", stmt.Name)
		st.res.Schema.Tables[i] = table
	} else {
		st.index[stmt.Name] = len(st.res.Schema.Tables)
		st.res.Schema.Tables = append(st.res.Schema.Tables, table)
	}
	return fks
}

func markPrimaryKey(t *introspect.Table, cols []string) {
	for _, name := range cols {
		if c, ok := t.Column(name); ok {
			c.PK = true
			c.Nullable = false
		}
	}
}

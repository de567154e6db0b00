package sqlparse

import (
	"regexp"
	"strings"

	"erdsql/internal/introspect"
)

// Each rule below is a standalone matcher over raw SQL text. They are
// exported so tests can target one rule at a time.

const (
	ident  = `["\w.]+`
	action = `(?:SET\s+NULL|SET\s+DEFAULT|NO\s+ACTION|CASCADE|RESTRICT)`
	// trailing clauses allowed after REFERENCES t(c), in any order
	fkTail = `((?:\s+(?:NOT\s+VALID|ON\s+(?:DELETE|UPDATE)\s+` + action +
		`|NOT\s+DEFERRABLE|DEFERRABLE|INITIALLY\s+(?:DEFERRED|IMMEDIATE)|MATCH\s+(?:FULL|SIMPLE|PARTIAL)))*)`
)

var (
	createTablePattern = regexp.MustCompile(
		`(?is)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?(` + ident + `)\s*\((.*?)\);`)

	alterForeignKeyPattern = regexp.MustCompile(
		`(?is)ALTER\s+TABLE\s+(?:ONLY\s+)?(` + ident + `)\s+ADD\s+CONSTRAINT\s+(` + ident + `)\s+` +
			`FOREIGN\s+KEY\s*\(([^;]*?)\)\s*REFERENCES\s+(` + ident + `)\s*\(([^;]*?)\)` + fkTail + `\s*;`)

	alterPrimaryKeyPattern = regexp.MustCompile(
		`(?is)ALTER\s+TABLE\s+(?:ONLY\s+)?(` + ident + `)\s+ADD\s+CONSTRAINT\s+` + ident + `\s+` +
			`PRIMARY\s+KEY\s*\(([^;]*?)\)\s*;`)

	inlineReferencePattern = regexp.MustCompile(`(?i)REFERENCES\s+(` + ident + `)\s*\((` + ident + `)\)`)

	tableForeignKeyPattern = regexp.MustCompile(
		`(?is)^(?:CONSTRAINT\s+(` + ident + `)\s+)?FOREIGN\s+KEY\s*\(([^)]*)\)\s*REFERENCES\s+(` + ident + `)\s*\(([^)]*)\)`)

	tablePrimaryKeyPattern = regexp.MustCompile(`(?is)^(?:CONSTRAINT\s+` + ident + `\s+)?PRIMARY\s+KEY\s*\(([^)]*)\)`)

	tableConstraintPattern = regexp.MustCompile(
		`(?i)^(?:PRIMARY\s+KEY|FOREIGN\s+KEY|CONSTRAINT\s|UNIQUE\s*\(|CHECK\s*\(|EXCLUDE\s)`)

	columnTypePattern = regexp.MustCompile(
		`(?i)^(\w+(?:\([^)]*\))?(?:\s+with\s+\w+(?:\s+\w+)*?)?)\s*(?:NOT\s+NULL|DEFAULT|UNIQUE|PRIMARY|REFERENCES|CHECK|$)`)

	onDeletePattern   = regexp.MustCompile(`(?i)ON\s+DELETE\s+(` + action + `)`)
	onUpdatePattern   = regexp.MustCompile(`(?i)ON\s+UPDATE\s+(` + action + `)`)
	notNullPattern    = regexp.MustCompile(`(?i)\bNOT\s+NULL\b`)
	primaryKeyPattern = regexp.MustCompile(`(?i)\bPRIMARY\s+KEY\b`)
)

// words that end the type portion of a column definition
var typeStopWords = map[string]bool{
	"NOT": true, "DEFAULT": true, "UNIQUE": true, "PRIMARY": true, "REFERENCES": true, "CHECK": true,
}

// CreateTableStmt is one matched CREATE TABLE statement.
type CreateTableStmt struct {
	Name string
	Body string
	Text string
}

// AlterForeignKeyStmt is one matched ALTER TABLE ... FOREIGN KEY statement.
type AlterForeignKeyStmt struct {
	Table      string
	Constraint string
	Columns    string
	RefTable   string
	RefColumns string
	OnDelete   string
	OnUpdate   string
	Text       string
}

// AlterPrimaryKeyStmt is one matched ALTER TABLE ... PRIMARY KEY statement.
type AlterPrimaryKeyStmt struct {
	Table   string
	Columns []string
	Text    string
}

// Reference is a foreign key target found inside a CREATE TABLE body.
type Reference struct {
	Constraint string
	Columns    string
	RefTable   string
	RefColumns string
	OnDelete   string
	OnUpdate   string
}

// Unquote removes double quotes from an identifier, including the ones
// around each part of a qualified name.
func Unquote(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), `"`, "")
}

// StripComments blanks out -- line comments and /* */ block comments.
// Quoted strings and identifiers are left alone.
func StripComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			b.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			if i < len(sql) {
				b.WriteByte('\n')
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			i += end + 3
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// MatchCreateTables finds every CREATE TABLE statement. The body runs
// up to the first ");", so a statement missing its terminator swallows
// nothing and is simply not returned.
func MatchCreateTables(sql string) []CreateTableStmt {
	var out []CreateTableStmt
	for _, m := range createTablePattern.FindAllStringSubmatch(sql, -1) {
		out = append(out, CreateTableStmt{
			Name: Unquote(m[1]),
			Body: m[2],
			Text: m[0],
		})
	}
	return out
}

// SplitTopLevel splits a table body on commas that are not nested in
// parentheses or quotes. Fragments are trimmed and empty ones dropped.
func SplitTopLevel(body string) []string {
	var parts []string
	var quote byte
	depth, start := 0, 0
	flush := func(end int) {
		if frag := strings.TrimSpace(body[start:end]); frag != "" {
			parts = append(parts, frag)
		}
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(body))
	return parts
}

// IsTableConstraint reports whether a body fragment is a table-level
// constraint rather than a column definition.
func IsTableConstraint(fragment string) bool {
	return tableConstraintPattern.MatchString(strings.TrimSpace(fragment))
}

// ColumnType extracts the type from the text following a column name:
// a word with optional (args) and optional "with ..." qualifier, up to the
// first constraint keyword. Failing that it takes words until a keyword.
func ColumnType(remainder string) string {
	if m := columnTypePattern.FindStringSubmatch(remainder); m != nil {
		return strings.TrimSpace(m[1])
	}
	var words []string
	for _, w := range strings.Fields(remainder) {
		if typeStopWords[strings.ToUpper(w)] {
			break
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

// ParseColumn turns a column definition fragment into a Column. The
// name may be a quoted identifier containing spaces. It returns false
// when nothing follows the name.
func ParseColumn(fragment string) (introspect.Column, bool) {
	fragment = strings.TrimSpace(fragment)
	name, remainder := splitColumnName(fragment)
	fields := strings.Fields(remainder)
	if name == "" || len(fields) == 0 {
		return introspect.Column{}, false
	}
	col := introspect.Column{
		Name:       name,
		Type:       ColumnType(remainder),
		SourceLine: fragment,
		PK:         primaryKeyPattern.MatchString(remainder),
	}
	if col.Type == "" {
		col.Type = strings.Trim(fields[0], `"`)
	}
	col.Nullable = !col.PK && !notNullPattern.MatchString(remainder)
	return col, true
}

func splitColumnName(fragment string) (name, remainder string) {
	if strings.HasPrefix(fragment, `"`) {
		if end := strings.Index(fragment[1:], `"`); end >= 0 {
			return fragment[1 : end+1], strings.TrimSpace(fragment[end+2:])
		}
	}
	fields := strings.Fields(fragment)
	if len(fields) == 0 {
		return "", ""
	}
	return strings.Trim(fields[0], `"`), strings.TrimSpace(fragment[len(fields[0]):])
}

// MatchInlineReference finds a REFERENCES t(c) clause in a column
// definition.
func MatchInlineReference(fragment string) (Reference, bool) {
	m := inlineReferencePattern.FindStringSubmatch(fragment)
	if m == nil {
		return Reference{}, false
	}
	return Reference{
		RefTable:   Unquote(m[1]),
		RefColumns: Unquote(m[2]),
		OnDelete:   matchAction(onDeletePattern, fragment),
		OnUpdate:   matchAction(onUpdatePattern, fragment),
	}, true
}

// MatchTableForeignKey matches a [CONSTRAINT n] FOREIGN KEY (...)
// REFERENCES t(...) fragment of a table body.
func MatchTableForeignKey(fragment string) (Reference, bool) {
	m := tableForeignKeyPattern.FindStringSubmatch(strings.TrimSpace(fragment))
	if m == nil {
		return Reference{}, false
	}
	return Reference{
		Constraint: Unquote(m[1]),
		Columns:    joinIdents(m[2]),
		RefTable:   Unquote(m[3]),
		RefColumns: joinIdents(m[4]),
		OnDelete:   matchAction(onDeletePattern, fragment),
		OnUpdate:   matchAction(onUpdatePattern, fragment),
	}, true
}

// MatchPrimaryKeyColumns matches a [CONSTRAINT n] PRIMARY KEY (...)
// fragment of a table body and returns its columns.
func MatchPrimaryKeyColumns(fragment string) ([]string, bool) {
	m := tablePrimaryKeyPattern.FindStringSubmatch(strings.TrimSpace(fragment))
	if m == nil {
		return nil, false
	}
	return splitIdents(m[1]), true
}

// MatchAlterForeignKeys finds every ALTER TABLE ... ADD CONSTRAINT ...
// FOREIGN KEY statement. Actions are upper-cased.
func MatchAlterForeignKeys(sql string) []AlterForeignKeyStmt {
	var out []AlterForeignKeyStmt
	for _, m := range alterForeignKeyPattern.FindAllStringSubmatch(sql, -1) {
		out = append(out, AlterForeignKeyStmt{
			Table:      Unquote(m[1]),
			Constraint: Unquote(m[2]),
			Columns:    joinIdents(m[3]),
			RefTable:   Unquote(m[4]),
			RefColumns: joinIdents(m[5]),
			OnDelete:   matchAction(onDeletePattern, m[6]),
			OnUpdate:   matchAction(onUpdatePattern, m[6]),
			Text:       m[0],
		})
	}
	return out
}

// MatchAlterPrimaryKeys finds every ALTER TABLE ... ADD CONSTRAINT ...
// PRIMARY KEY statement.
func MatchAlterPrimaryKeys(sql string) []AlterPrimaryKeyStmt {
	var out []AlterPrimaryKeyStmt
	for _, m := range alterPrimaryKeyPattern.FindAllStringSubmatch(sql, -1) {
		out = append(out, AlterPrimaryKeyStmt{
			Table:   Unquote(m[1]),
			Columns: splitIdents(m[2]),
			Text:    m[0],
		})
	}
	return out
}

func matchAction(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(strings.Join(strings.Fields(m[1]), " "))
}

func splitIdents(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = Unquote(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinIdents(list string) string {
	return strings.Join(splitIdents(list), ", ")
}

package sqlparse

import (
	"regexp"
	"strings"

	"erdsql/internal/introspect"
)

var (
	notValidSuffix = regexp.MustCompile(`\s+NOT VALID.*$`)
	onDeleteSuffix = regexp.MustCompile(`\s+ON DELETE.*$`)
)

// ExtractConstraints returns a one-line definition for each ALTER TABLE
// foreign key declared on table, in input order: the text after
// ADD CONSTRAINT without the semicolon or trailing NOT VALID / ON DELETE
// clauses. Keys whose source has no ADD CONSTRAINT text are skipped.
func ExtractConstraints(fks []introspect.ForeignKey, table string) []string {
	var out []string
	for _, fk := range fks {
		if fk.FromTable != table {
			continue
		}
		_, def, found := strings.Cut(strings.TrimSpace(fk.SourceLine), "ADD CONSTRAINT")
		if !found {
			continue
		}
		def = strings.ReplaceAll(strings.TrimSpace(def), ";", "")
		def = notValidSuffix.ReplaceAllString(def, "")
		def = onDeleteSuffix.ReplaceAllString(def, "")
		out = append(out, strings.TrimSpace(def))
	}
	return out
}

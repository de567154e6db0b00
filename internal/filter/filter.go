// Package filter decides which tables and relationships take part in a
// diagram.
package filter

import (
	"strings"

	"erdsql/internal/introspect"
)

// DefaultExcludePatterns returns the substrings that mark scratch, backup
// and archive tables.
func DefaultExcludePatterns() []string {
	return []string{"tmp_", "bk", "fix", "dups", "duplicates", "matches", "versionlog", "old", "ifma", "memberdata"}
}

// Options controls Apply.
type Options struct {
	// ExcludePatterns are case-insensitive substrings. nil means
	// DefaultExcludePatterns; a non-nil empty slice excludes nothing.
	ExcludePatterns []string
	// ShowStandalone keeps tables that take part in no foreign key.
	ShowStandalone bool
	// IncludeTables, when not empty, keeps only the named tables.
	IncludeTables []string
}

// ShouldExclude reports whether the lowercased name contains any pattern.
// A nil pattern slice uses the default list.
func ShouldExclude(name string, patterns []string) bool {
	if patterns == nil {
		patterns = DefaultExcludePatterns()
	}
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// IsStandalone reports whether name is neither end of any foreign key.
func IsStandalone(name string, fks []introspect.ForeignKey) bool {
	for _, fk := range fks {
		if fk.FromTable == name || fk.ToTable == name {
			return false
		}
	}
	return true
}

// Apply drops excluded tables, then standalone tables unless
// opts.ShowStandalone, then tables outside opts.IncludeTables, and
// finally every foreign key whose ends did not both survive. Input order
// is kept.
func Apply(s introspect.Schema, opts Options) introspect.Schema {
	include := map[string]bool{}
	for _, name := range opts.IncludeTables {
		include[name] = true
	}

	out := introspect.Schema{
		Tables:      []introspect.Table{},
		ForeignKeys: []introspect.ForeignKey{},
	}
	kept := map[string]bool{}
	for _, t := range s.Tables {
		if ShouldExclude(t.Name, opts.ExcludePatterns) {
			continue
		}
		if !opts.ShowStandalone && IsStandalone(t.Name, s.ForeignKeys) {
			continue
		}
		if len(include) > 0 && !include[t.Name] {
			continue
		}
		kept[t.Name] = true
		out.Tables = append(out.Tables, t)
	}

	for _, fk := range s.ForeignKeys {
		if kept[fk.FromTable] && kept[fk.ToTable] {
			out.ForeignKeys = append(out.ForeignKeys, fk)
		}
	}
	return out
}

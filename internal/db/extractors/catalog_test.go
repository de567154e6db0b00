package extractors

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqliteCatalog reads the sqlite catalog through the generic extractor.
func sqliteCatalog(foreignKeys string) catalogExtractor {
	return catalogExtractor{q: catalogQueries{
		tables: `SELECT 'main', name, '', 0 FROM sqlite_master
                 WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		columns: `SELECT name, type, CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END
                  FROM pragma_table_info(?) ORDER BY cid`,
		primaryKey:  `SELECT name FROM pragma_table_info(?) WHERE pk > 0`,
		foreignKeys: foreignKeys,
		args: func(schema, table string) []interface{} {
			return []interface{}{table}
		},
	}}
}

func openFixture(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", sqliteFile(t))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestCatalogExtract(t *testing.T) {
	e := sqliteCatalog(`
        SELECT 'main', m.name, f."from", 'main', f."table", f."to", 'fk_' || m.name, f.on_delete, f.on_update
        FROM sqlite_master m, pragma_foreign_key_list(m.name) f
        WHERE m.type = 'table'
        ORDER BY m.name`)

	s, err := e.Extract(context.Background(), openFixture(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"posts", "tags", "users"}, s.TableNames())
	users, _ := s.Table("users")
	assert.True(t, users.Columns[0].PK)

	require.Len(t, s.ForeignKeys, 2)
	assert.Equal(t, "fk_posts", s.ForeignKeys[0].Constraint)
	assert.Equal(t, "CASCADE", s.ForeignKeys[0].OnDelete)
}

func TestCatalogExtractForeignKeyFailures(t *testing.T) {
	var tests = []struct {
		name  string
		query string
	}{
		{"bad query", `SELECT * FROM no_such_catalog`},
		// abs() of the smallest integer overflows while stepping the rows
		{"interrupted rows", `SELECT 'main', 'a', 'x', 'main', 'b', 'y', 'fk', '', '' UNION ALL
                              SELECT 'main', 'a', 'x', 'main', 'b', abs(-9223372036854775808), 'fk', '', ''`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sqliteCatalog(tt.query).Extract(context.Background(), openFixture(t))
			if err == nil {
				t.Errorf("\nexpected an error, did not receive one")
			}
		})
	}
}

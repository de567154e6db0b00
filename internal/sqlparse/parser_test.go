package sqlparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erdsql/internal/introspect"
)

func columnNames(t *testing.T, s introspect.Schema, table string) []string {
	t.Helper()
	tab, ok := s.Table(table)
	require.True(t, ok, "table %s not parsed", table)
	var names []string
	for _, c := range tab.Columns {
		names = append(names, c.Name)
	}
	return names
}

func TestParseSimpleTable(t *testing.T) {
	res := Parse(`
		CREATE TABLE users (
			id integer NOT NULL,
			username varchar(50)
		);
	`)

	require.Len(t, res.Schema.Tables, 1)
	users := res.Schema.Tables[0]
	assert.Equal(t, "users", users.Name)
	require.Len(t, users.Columns, 2)
	assert.Equal(t, "id", users.Columns[0].Name)
	assert.Equal(t, "integer", users.Columns[0].Type)
	assert.False(t, users.Columns[0].Nullable)
	assert.Equal(t, "username", users.Columns[1].Name)
	assert.Equal(t, "varchar(50)", users.Columns[1].Type)
	assert.True(t, users.Columns[1].Nullable)
	assert.Equal(t, "users\nid integer NOT NULL\nusername varchar(50)", users.RawDefinition)
	assert.Empty(t, res.Schema.ForeignKeys)
	assert.Empty(t, res.Errors())
}

func TestParseRoundTrip(t *testing.T) {
	res := Parse(`
CREATE TABLE users (id integer NOT NULL, username character varying(50) NOT NULL);
CREATE TABLE posts (id integer NOT NULL, user_id integer);
ALTER TABLE ONLY posts ADD CONSTRAINT posts_user_id_fkey FOREIGN KEY (user_id) REFERENCES users(id);
`)

	assert.Equal(t, []string{"users", "posts"}, res.Schema.TableNames())
	assert.Equal(t, []string{"id", "username"}, columnNames(t, res.Schema, "users"))
	assert.Equal(t, []string{"id", "user_id"}, columnNames(t, res.Schema, "posts"))

	users, _ := res.Schema.Table("users")
	assert.Equal(t, "character varying(50)", users.Columns[1].Type)

	require.Len(t, res.Schema.ForeignKeys, 1)
	fk := res.Schema.ForeignKeys[0]
	assert.Equal(t, "posts", fk.FromTable)
	assert.Equal(t, "user_id", fk.FromColumn)
	assert.Equal(t, "users", fk.ToTable)
	assert.Equal(t, "id", fk.ToColumn)
	assert.Equal(t, "posts_user_id_fkey", fk.Constraint)
	assert.Equal(t, introspect.SourceAlterTable, fk.Source)
	assert.Empty(t, fk.OnDelete)
	assert.Empty(t, fk.OnUpdate)
	assert.True(t, strings.HasPrefix(fk.SourceLine, "ALTER TABLE ONLY posts"))
	assert.Empty(t, res.Errors())
}

func TestParseQuotedNames(t *testing.T) {
	res := Parse(`
		CREATE TABLE "user_table" (
			"user_id" integer NOT NULL,
			"user_name" character varying(50)
		);
		CREATE TABLE "public"."audit" ("id" bigint);
	`)

	assert.Equal(t, []string{"user_id", "user_name"}, columnNames(t, res.Schema, "user_table"))
	assert.True(t, res.Schema.HasTable("public.audit"))
}

func TestParseIfNotExists(t *testing.T) {
	res := Parse(`
		CREATE TABLE IF NOT EXISTS test_table (
			id integer,
			name varchar(100)
		);
	`)

	assert.Equal(t, []string{"id", "name"}, columnNames(t, res.Schema, "test_table"))
}

func TestParseMalformedNeverPanics(t *testing.T) {
	var tests = []struct {
		name string
		sql  string
	}{
		{"missing terminator", "CREATE TABLE incomplete (\n id integer NOT NULL\n"},
		{"invalid statement", "INVALID SQL STATEMENT;"},
		{"empty", ""},
		{"comment only", "-- just a comment\n/* and a block */"},
		{"nameless table", "CREATE TABLE (id int);"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res Result
			require.NotPanics(t, func() { res = Parse(tt.sql) })
			assert.NotNil(t, res.Schema.Tables)
			assert.NotNil(t, res.Schema.ForeignKeys)
			assert.NotNil(t, res.Diagnostics)
			assert.Empty(t, res.Schema.Tables)
		})
	}
}

func TestParseMissingTerminatorKeepsEarlierTables(t *testing.T) {
	res := Parse(`
CREATE TABLE good (id integer);
CREATE TABLE broken (
    id integer
`)
	assert.Equal(t, []string{"good"}, res.Schema.TableNames())
	assert.Empty(t, res.Errors())
}

func TestParseForeignKeyVariations(t *testing.T) {
	res := Parse(`
		CREATE TABLE parent (id integer);
		CREATE TABLE child1 (id integer, parent_id integer);
		CREATE TABLE child2 (id integer, parent_id integer);

		ALTER TABLE child1 ADD CONSTRAINT fk1 FOREIGN KEY (parent_id) REFERENCES parent(id);
		ALTER TABLE ONLY child2 ADD CONSTRAINT fk2 FOREIGN KEY (parent_id) REFERENCES parent(id) NOT VALID;
	`)

	require.Len(t, res.Schema.ForeignKeys, 2)
	assert.Equal(t, "child1", res.Schema.ForeignKeys[0].FromTable)
	assert.Equal(t, "child2", res.Schema.ForeignKeys[1].FromTable)
	for _, fk := range res.Schema.ForeignKeys {
		assert.Equal(t, "parent", fk.ToTable)
	}
}

func TestParseReferentialActions(t *testing.T) {
	res := Parse(`
		CREATE TABLE parent (id integer);
		CREATE TABLE child (id integer, parent_id integer);

		ALTER TABLE child ADD CONSTRAINT fk1 FOREIGN KEY (parent_id) REFERENCES parent(id) ON DELETE cascade;
		ALTER TABLE child ADD CONSTRAINT fk2 FOREIGN KEY (id) REFERENCES parent(id) ON UPDATE SET NULL ON DELETE no action;
	`)

	require.Len(t, res.Schema.ForeignKeys, 2)
	assert.Equal(t, "CASCADE", res.Schema.ForeignKeys[0].OnDelete)
	assert.Empty(t, res.Schema.ForeignKeys[0].OnUpdate)
	assert.Equal(t, "NO ACTION", res.Schema.ForeignKeys[1].OnDelete)
	assert.Equal(t, "SET NULL", res.Schema.ForeignKeys[1].OnUpdate)
}

func TestParseDanglingForeignKey(t *testing.T) {
	res := Parse(`
		CREATE TABLE child (id integer, parent_id integer);

		ALTER TABLE child ADD CONSTRAINT fk1 FOREIGN KEY (parent_id) REFERENCES nonexistent(id);
	`)

	assert.Len(t, res.Schema.Tables, 1)
	assert.Empty(t, res.Schema.ForeignKeys)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, introspect.DiagDanglingForeignKey, res.Diagnostics[0].Kind)
	assert.True(t, strings.HasPrefix(res.Errors()[0], "FK parsing issue: ALTER TABLE child"))
}

func TestParseDanglingForeignKeyWithoutAnyTables(t *testing.T) {
	res := Parse(`ALTER TABLE child ADD CONSTRAINT fk FOREIGN KEY (x) REFERENCES nonexistent(id);`)

	assert.Empty(t, res.Schema.ForeignKeys)
	assert.GreaterOrEqual(t, len(res.Errors()), 1)
}

func TestParseComplexColumnTypes(t *testing.T) {
	res := Parse(`
		CREATE TABLE complex_table (
			id bigint NOT NULL,
			price numeric(10,2),
			description text,
			created_at timestamp with time zone DEFAULT now(),
			is_active boolean DEFAULT true,
			metadata jsonb
		);
	`)

	tab, ok := res.Schema.Table("complex_table")
	require.True(t, ok)
	require.Len(t, tab.Columns, 6)

	types := map[string]string{}
	for _, c := range tab.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, map[string]string{
		"id":          "bigint",
		"price":       "numeric(10,2)",
		"description": "text",
		"created_at":  "timestamp with time zone",
		"is_active":   "boolean",
		"metadata":    "jsonb",
	}, types)
}

func TestParseTimeZoneColumnsStopAtConstraints(t *testing.T) {
	res := Parse(`CREATE TABLE events (id integer NOT NULL, created_at timestamp with time zone NOT NULL, ts time with time zone UNIQUE);`)

	tab, ok := res.Schema.Table("events")
	require.True(t, ok)
	require.Len(t, tab.Columns, 3)

	assert.Equal(t, "timestamp with time zone", tab.Columns[1].Type)
	assert.False(t, tab.Columns[1].Nullable)
	assert.Equal(t, "time with time zone", tab.Columns[2].Type)
}

func TestParsePrimaryKeys(t *testing.T) {
	res := Parse(`
		CREATE TABLE with_pk (
			id integer NOT NULL,
			name varchar(50),
			PRIMARY KEY (id)
		);
		CREATE TABLE composite (
			col1 integer NOT NULL,
			col2 integer NOT NULL,
			col3 varchar(50),
			CONSTRAINT composite_pkey PRIMARY KEY (col1, col2)
		);
		CREATE TABLE altered (
			col1 integer NOT NULL,
			col2 integer NOT NULL,
			col3 varchar(50)
		);
		CREATE TABLE inline_pk (id serial PRIMARY KEY, label text);

		ALTER TABLE ONLY altered ADD CONSTRAINT altered_pk PRIMARY KEY (col1, col2);
	`)

	pkCols := func(table string) []string {
		tab, ok := res.Schema.Table(table)
		require.True(t, ok, "table %s not parsed", table)
		var out []string
		for _, c := range tab.Columns {
			if c.PK {
				out = append(out, c.Name)
			}
		}
		return out
	}

	assert.Equal(t, []string{"id", "name"}, columnNames(t, res.Schema, "with_pk"))
	assert.Equal(t, []string{"id"}, pkCols("with_pk"))
	assert.Equal(t, []string{"col1", "col2"}, pkCols("composite"))
	assert.Equal(t, []string{"col1", "col2", "col3"}, columnNames(t, res.Schema, "composite"))
	assert.Equal(t, []string{"col1", "col2"}, pkCols("altered"))
	assert.Equal(t, []string{"id"}, pkCols("inline_pk"))
}

func TestParseInlineReferences(t *testing.T) {
	res := Parse(`
		CREATE TABLE comments (
			id integer,
			post_id integer NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			author_id integer REFERENCES ghosts(id)
		);
		CREATE TABLE posts (id integer);
	`)

	require.Len(t, res.Schema.ForeignKeys, 2)
	first := res.Schema.ForeignKeys[0]
	assert.Equal(t, introspect.ForeignKey{
		FromTable:  "comments",
		FromColumn: "post_id",
		ToTable:    "posts",
		ToColumn:   "id",
		SourceLine: "post_id integer NOT NULL REFERENCES posts(id) ON DELETE CASCADE",
		OnDelete:   "CASCADE",
		Source:     introspect.SourceInline,
	}, first)

	// inline references are accepted even when the target never appears
	assert.Equal(t, "ghosts", res.Schema.ForeignKeys[1].ToTable)
	assert.Empty(t, res.Errors())
}

func TestParseValidateInline(t *testing.T) {
	p := New(Options{ValidateInline: true})
	res := p.Parse(`
		CREATE TABLE comments (
			post_id integer REFERENCES posts(id),
			author_id integer REFERENCES ghosts(id)
		);
		CREATE TABLE posts (id integer);
	`)

	require.Len(t, res.Schema.ForeignKeys, 1)
	assert.Equal(t, "posts", res.Schema.ForeignKeys[0].ToTable)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, introspect.DiagDanglingForeignKey, res.Diagnostics[0].Kind)
	assert.Contains(t, res.Diagnostics[0].Message, "ghosts")
}

func TestParseTableConstraintForeignKey(t *testing.T) {
	res := Parse(`
		CREATE TABLE orders (id integer);
		CREATE TABLE order_items (
			order_id integer,
			sku text,
			CONSTRAINT order_items_order_fk FOREIGN KEY (order_id) REFERENCES orders (id) ON UPDATE RESTRICT
		);
	`)

	assert.Equal(t, []string{"order_id", "sku"}, columnNames(t, res.Schema, "order_items"))
	require.Len(t, res.Schema.ForeignKeys, 1)
	fk := res.Schema.ForeignKeys[0]
	assert.Equal(t, introspect.SourceTableConstraint, fk.Source)
	assert.Equal(t, "order_items_order_fk", fk.Constraint)
	assert.Equal(t, "order_id", fk.FromColumn)
	assert.Equal(t, "orders", fk.ToTable)
	assert.Equal(t, "RESTRICT", fk.OnUpdate)
}

func TestParseDuplicates(t *testing.T) {
	res := Parse(`
		CREATE TABLE dup (id integer, id text, name text);
		CREATE TABLE other (id integer);
		CREATE TABLE dup (id bigint);
	`)

	assert.Equal(t, []string{"dup", "other"}, res.Schema.TableNames())
	tab, _ := res.Schema.Table("dup")
	assert.Equal(t, "bigint", tab.Columns[0].Type)

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, introspect.DiagDuplicateColumn, res.Diagnostics[0].Kind)
	assert.Equal(t, introspect.DiagDuplicateTable, res.Diagnostics[1].Kind)
}

func TestParseIgnoresComments(t *testing.T) {
	res := Parse(`
-- CREATE TABLE ghost (id integer);
/* CREATE TABLE phantom (id integer); */
CREATE TABLE real_table (id integer); -- trailing
`)
	assert.Equal(t, []string{"real_table"}, res.Schema.TableNames())
}

func TestParseIsIdempotent(t *testing.T) {
	sql := `
CREATE TABLE public.users (
    id integer NOT NULL,
    email text
);
CREATE TABLE public.orders (
    id integer NOT NULL,
    user_id integer REFERENCES public.users(id)
);
ALTER TABLE ONLY public.orders
    ADD CONSTRAINT orders_user_fk FOREIGN KEY (user_id) REFERENCES public.users(id) ON DELETE CASCADE;
ALTER TABLE ONLY public.orders
    ADD CONSTRAINT orders_missing_fk FOREIGN KEY (x) REFERENCES public.missing(id);
`
	first := Parse(sql)
	second := Parse(sql)
	assert.Equal(t, first, second)
	assert.Len(t, first.Schema.ForeignKeys, 2)
	assert.Len(t, first.Errors(), 1)
}

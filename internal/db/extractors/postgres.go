package extractors

import "erdsql/internal/db"

var postgresQueries = catalogQueries{
	tables: `
        SELECT table_schema, table_name,
               obj_description((quote_ident(table_schema)||'.'||quote_ident(table_name))::regclass) AS table_comment,
               pg_table_size(quote_ident(table_schema)||'.'||quote_ident(table_name))/8192 AS size_8k_pages
        FROM information_schema.tables
        WHERE table_type = 'BASE TABLE'
          AND table_schema NOT IN ('pg_catalog','information_schema','pg_toast')
        ORDER BY table_schema, table_name`,
	columns: `
        SELECT column_name, data_type, is_nullable
        FROM information_schema.columns
        WHERE table_schema = $1 AND table_name = $2
        ORDER BY ordinal_position`,
	primaryKey: `
        SELECT a.attname
        FROM pg_index i
        JOIN pg_class c ON i.indrelid = c.oid
        JOIN pg_namespace ns ON c.relnamespace = ns.oid
        JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
        WHERE ns.nspname = $1 AND c.relname = $2 AND i.indisprimary`,
	foreignKeys: `
        SELECT
          tc.table_schema,
          tc.table_name,
          string_agg(kcu.column_name, ', ' ORDER BY kcu.ordinal_position),
          rkcu.table_schema,
          rkcu.table_name,
          string_agg(rkcu.column_name, ', ' ORDER BY rkcu.ordinal_position),
          tc.constraint_name,
          rc.delete_rule,
          rc.update_rule
        FROM information_schema.table_constraints tc
        JOIN information_schema.key_column_usage kcu
          ON tc.constraint_name = kcu.constraint_name
         AND tc.constraint_schema = kcu.constraint_schema
        JOIN information_schema.referential_constraints rc
          ON tc.constraint_name = rc.constraint_name
         AND tc.constraint_schema = rc.constraint_schema
        JOIN information_schema.key_column_usage rkcu
          ON rc.unique_constraint_name = rkcu.constraint_name
         AND rc.unique_constraint_schema = rkcu.constraint_schema
         AND kcu.ordinal_position = rkcu.ordinal_position
        WHERE tc.constraint_type = 'FOREIGN KEY'
          AND tc.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
        GROUP BY tc.table_schema, tc.table_name, rkcu.table_schema, rkcu.table_name,
                 tc.constraint_name, rc.delete_rule, rc.update_rule
        ORDER BY tc.table_schema, tc.table_name, tc.constraint_name`,
	args: positional,
}

func init() {
	e := catalogExtractor{q: postgresQueries}
	db.Register("postgres", e)
	db.Register("postgresql", e)
}

package extractors

import "erdsql/internal/db"

var mysqlQueries = catalogQueries{
	tables: `
        SELECT table_schema, table_name, table_comment, round(data_length/8192) AS size_8k_pages
        FROM information_schema.tables
        WHERE table_type = 'BASE TABLE'
          AND table_schema NOT IN ('mysql','information_schema','performance_schema','sys')
        ORDER BY table_schema, table_name`,
	columns: `
        SELECT column_name, column_type, is_nullable
        FROM information_schema.columns
        WHERE table_schema = ? AND table_name = ?
        ORDER BY ordinal_position`,
	primaryKey: `
        SELECT k.column_name
        FROM information_schema.key_column_usage k
        JOIN information_schema.table_constraints tc
          ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema AND k.table_name = tc.table_name
        WHERE tc.constraint_type = 'PRIMARY KEY' AND k.table_schema = ? AND k.table_name = ?`,
	foreignKeys: `
        SELECT k.table_schema, k.table_name,
               group_concat(k.column_name ORDER BY k.ordinal_position separator ', '),
               k.referenced_table_schema, k.referenced_table_name,
               group_concat(k.referenced_column_name ORDER BY k.ordinal_position separator ', '),
               k.constraint_name, rc.delete_rule, rc.update_rule
        FROM information_schema.key_column_usage k
        JOIN information_schema.referential_constraints rc
          ON rc.constraint_schema = k.constraint_schema AND rc.constraint_name = k.constraint_name
        WHERE k.referenced_table_name IS NOT NULL
          AND k.table_schema NOT IN ('mysql','information_schema','performance_schema','sys')
        GROUP BY k.table_schema, k.table_name, k.referenced_table_schema, k.referenced_table_name,
                 k.constraint_name, rc.delete_rule, rc.update_rule
        ORDER BY k.table_schema, k.table_name, k.constraint_name`,
	args: positional,
}

func init() {
	e := catalogExtractor{q: mysqlQueries}
	db.Register("mysql", e)
	db.Register("mariadb", e)
}

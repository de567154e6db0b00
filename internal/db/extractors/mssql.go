package extractors

import (
	"database/sql"

	"erdsql/internal/db"
)

var mssqlQueries = catalogQueries{
	tables: `
        SELECT
          s.name AS schema_name,
          t.name AS table_name,
          CAST(sep.value AS nvarchar(max)) AS comment,
          sum(au.used_pages) AS size_8k_pages
        FROM sys.schemas AS s
        JOIN sys.tables AS t
          ON s.schema_id = t.schema_id
        LEFT JOIN sys.extended_properties AS sep
          ON t.object_id = sep.major_id
         AND sep.minor_id = 0
         AND sep.name = 'MS_Description'
        LEFT JOIN sys.partitions AS p
          ON t.object_id = p.object_id
        LEFT JOIN sys.allocation_units AS au
          ON au.container_id = p.hobt_id
        GROUP BY s.name, t.name, CAST(sep.value AS nvarchar(max))
        ORDER BY s.name, t.name`,
	columns: `
        SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
        FROM INFORMATION_SCHEMA.COLUMNS
        WHERE TABLE_SCHEMA = @schema AND TABLE_NAME = @table
        ORDER BY ORDINAL_POSITION`,
	primaryKey: `
        SELECT k.COLUMN_NAME
        FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS t
        JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
          ON t.CONSTRAINT_NAME = k.CONSTRAINT_NAME AND t.TABLE_SCHEMA = k.TABLE_SCHEMA
        WHERE t.CONSTRAINT_TYPE = 'PRIMARY KEY' AND k.TABLE_SCHEMA = @schema AND k.TABLE_NAME = @table`,
	foreignKeys: `
        SELECT
            OBJECT_SCHEMA_NAME(fkc.parent_object_id),
            OBJECT_NAME(fkc.parent_object_id),
            STRING_AGG(c.name, ', ') WITHIN GROUP (ORDER BY fkc.constraint_column_id),
            OBJECT_SCHEMA_NAME(fkc.referenced_object_id),
            OBJECT_NAME(fkc.referenced_object_id),
            STRING_AGG(rc.name, ', ') WITHIN GROUP (ORDER BY fkc.constraint_column_id),
            fk.name,
            fk.delete_referential_action_desc,
            fk.update_referential_action_desc
        FROM sys.foreign_keys fk
        JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
        JOIN sys.columns c ON fkc.parent_object_id = c.object_id AND fkc.parent_column_id = c.column_id
        JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id
        GROUP BY fk.name, fkc.parent_object_id, fkc.referenced_object_id,
                 fk.delete_referential_action_desc, fk.update_referential_action_desc`,
	args: func(schema, table string) []interface{} {
		return []interface{}{sql.Named("schema", schema), sql.Named("table", table)}
	},
}

func init() {
	e := catalogExtractor{q: mssqlQueries}
	db.Register("sqlserver", e)
	db.Register("mssql", e)
}

//go:build oracle
// +build oracle

package extractors

import (
	_ "github.com/godror/godror"

	"erdsql/internal/db"
)

// Oracle has no ON UPDATE actions, the update rule is always NO ACTION.
var oracleQueries = catalogQueries{
	tables: `
        SELECT
           ausr.username,
           atab.table_name,
           acom.comments,
           nvl(atab.blocks*nvl(ts.block_size, 8192)/8192, 1) size_8k_pages
        FROM all_users ausr
        JOIN all_tables atab
          ON ausr.username = atab.owner
        LEFT JOIN all_tab_comments acom
          ON acom.owner = atab.owner
         AND acom.table_name = atab.table_name
        LEFT JOIN user_tablespaces ts
          ON atab.tablespace_name = ts.tablespace_name
        WHERE ausr.oracle_maintained = 'N'
        ORDER BY ausr.username, atab.table_name`,
	columns: `
        SELECT column_name, data_type, nullable
        FROM all_tab_columns
        WHERE owner = :1 AND table_name = :2
        ORDER BY column_id`,
	primaryKey: `
        SELECT acc.column_name
        FROM all_cons_columns acc
        JOIN all_constraints ac ON acc.owner = ac.owner AND acc.constraint_name = ac.constraint_name
        WHERE ac.constraint_type = 'P' AND acc.owner = :1 AND acc.table_name = :2`,
	foreignKeys: `
        SELECT a.owner, a.table_name,
               listagg(acc.column_name, ', ') within group (order by acc.position),
               rcc.owner, rcc.table_name,
               listagg(rcc.column_name, ', ') within group (order by rcc.position),
               a.constraint_name, a.delete_rule, 'NO ACTION'
        FROM all_users ausr
        JOIN all_constraints a
          ON ausr.username = a.owner
        JOIN all_cons_columns acc
          ON a.owner = acc.owner
         AND a.constraint_name = acc.constraint_name
        JOIN all_cons_columns rcc
          ON a.r_owner = rcc.owner
         AND a.r_constraint_name = rcc.constraint_name
         AND nvl(acc.position, 0) = nvl(rcc.position, 0)
        WHERE a.constraint_type = 'R'
          AND ausr.oracle_maintained = 'N'
        GROUP BY a.owner, a.table_name, rcc.owner, rcc.table_name, a.constraint_name, a.delete_rule`,
	args: positional,
}

func init() {
	e := catalogExtractor{q: oracleQueries}
	db.Register("godror", e)
	db.Register("oracle", e)
}

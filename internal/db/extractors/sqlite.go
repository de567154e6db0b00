package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"erdsql/internal/db"
	"erdsql/internal/introspect"
	"erdsql/internal/logger"
)

// sqliteExtractor reads SQLite through its pragma table functions.
type sqliteExtractor struct{}

const (
	sqliteTablesWithSize = `
        SELECT m.name, s.size_8k_pages
        FROM sqlite_master m
        LEFT JOIN (SELECT name, CAST((SUM(pgsize) + 8191) / 8192 AS integer) AS size_8k_pages
                   FROM dbstat
                   GROUP BY name) s ON m.name = s.name
        WHERE m.type = 'table'
          AND m.name NOT LIKE 'sqlite_%'
        ORDER BY m.name`
	// dbstat is an optional virtual table
	sqliteTables = `
        SELECT name, NULL
        FROM sqlite_master
        WHERE type = 'table'
          AND name NOT LIKE 'sqlite_%'
        ORDER BY name`
	sqliteColumns = `
        SELECT name, type, "notnull", pk
        FROM pragma_table_info(?)
        ORDER BY cid`
	sqliteForeignKeys = `
        SELECT "table", group_concat("from", ', '), group_concat("to", ', '), on_delete, on_update
        FROM (SELECT * FROM pragma_foreign_key_list(?) ORDER BY id, seq)
        GROUP BY id
        ORDER BY id`
)

func (sqliteExtractor) Extract(ctx context.Context, dbConn *sql.DB) (introspect.Schema, error) {
	var s introspect.Schema

	tr, err := dbConn.QueryContext(ctx, sqliteTablesWithSize)
	if err != nil {
		logger.Debug("dbstat unavailable, table sizes omitted: %v", err)
		if tr, err = dbConn.QueryContext(ctx, sqliteTables); err != nil {
			return s, fmt.Errorf("query tables: %w", err)
		}
	}
	defer tr.Close()

	for tr.Next() {
		var tab introspect.Table
		var size sql.NullInt64
		if err := tr.Scan(&tab.Name, &size); err != nil {
			return s, fmt.Errorf("scan table row: %w", err)
		}
		tab.Size8kPages = size.Int64
		s.Tables = append(s.Tables, tab)
	}
	if err := tr.Err(); err != nil {
		return s, fmt.Errorf("read tables: %w", err)
	}

	for i := range s.Tables {
		t := &s.Tables[i]
		if err := readSQLiteColumns(ctx, dbConn, t); err != nil {
			return s, err
		}
		fks, err := readSQLiteForeignKeys(ctx, dbConn, t.Name)
		if err != nil {
			logger.Error("query foreign keys of %s: %v", t.Name, err)
			continue
		}
		s.ForeignKeys = append(s.ForeignKeys, fks...)
	}
	return s, nil
}

func readSQLiteColumns(ctx context.Context, dbConn *sql.DB, t *introspect.Table) error {
	rows, err := dbConn.QueryContext(ctx, sqliteColumns, t.Name)
	if err != nil {
		return fmt.Errorf("query columns for %s: %w", t.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var col introspect.Column
		var notnull, pk int
		if err := rows.Scan(&col.Name, &col.Type, &notnull, &pk); err != nil {
			return fmt.Errorf("scan column for %s: %w", t.Name, err)
		}
		col.PK = pk != 0
		col.Nullable = notnull == 0 && !col.PK
		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}

func readSQLiteForeignKeys(ctx context.Context, dbConn *sql.DB, table string) ([]introspect.ForeignKey, error) {
	rows, err := dbConn.QueryContext(ctx, sqliteForeignKeys, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []introspect.ForeignKey
	for rows.Next() {
		var to, from, toCols, onDelete, onUpdate sql.NullString
		if err := rows.Scan(&to, &from, &toCols, &onDelete, &onUpdate); err != nil {
			return fks, err
		}
		// a NULL target column means the referenced table's primary key
		if !to.Valid || !from.Valid || !toCols.Valid {
			logger.Debug("skipping key of %s without explicit target columns", table)
			continue
		}
		fks = append(fks, introspect.ForeignKey{
			FromTable:  table,
			FromColumn: from.String,
			ToTable:    to.String,
			ToColumn:   toCols.String,
			OnDelete:   onDelete.String,
			OnUpdate:   onUpdate.String,
		})
	}
	return fks, rows.Err()
}

func init() {
	db.Register("sqlite3", sqliteExtractor{})
	db.Register("sqlite", sqliteExtractor{})
}

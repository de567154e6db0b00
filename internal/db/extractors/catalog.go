// Package extractors registers a schema extractor per supported database.
package extractors

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"erdsql/internal/introspect"
	"erdsql/internal/logger"
)

// catalogQueries is the SQL a catalogExtractor runs. Per-table queries
// receive the arguments built by args.
type catalogQueries struct {
	// schema, name, comment, size in 8k pages
	tables string
	// name, type, nullable flag (YES/Y/NO/N)
	columns string
	// primary key column names
	primaryKey string
	// from schema, from table, from columns, to schema, to table,
	// to columns, constraint, delete rule, update rule
	foreignKeys string

	args func(schema, table string) []interface{}
}

// catalogExtractor reads information_schema style catalogs.
type catalogExtractor struct {
	q catalogQueries
}

func (e catalogExtractor) Extract(ctx context.Context, dbConn *sql.DB) (introspect.Schema, error) {
	var s introspect.Schema

	tr, err := dbConn.QueryContext(ctx, e.q.tables)
	if err != nil {
		return s, fmt.Errorf("query tables: %w", err)
	}
	defer tr.Close()

	for tr.Next() {
		var tab introspect.Table
		var size sql.NullFloat64
		if err := tr.Scan(&tab.Schema, &tab.Name, &tab.Comment, &size); err != nil {
			return s, fmt.Errorf("scan table row: %w", err)
		}
		tab.Size8kPages = int64(size.Float64)
		s.Tables = append(s.Tables, tab)
	}
	if err := tr.Err(); err != nil {
		return s, fmt.Errorf("read tables: %w", err)
	}

	for i := range s.Tables {
		t := &s.Tables[i]
		if err := e.readColumns(ctx, dbConn, t); err != nil {
			return s, err
		}
		e.markPrimaryKey(ctx, dbConn, t)
	}

	fks, err := e.readForeignKeys(ctx, dbConn)
	if err != nil {
		return s, err
	}
	s.ForeignKeys = fks
	return s, nil
}

func (e catalogExtractor) readColumns(ctx context.Context, dbConn *sql.DB, t *introspect.Table) error {
	cr, err := dbConn.QueryContext(ctx, e.q.columns, e.q.args(t.Schema, t.Name)...)
	if err != nil {
		return fmt.Errorf("query columns for %s.%s: %w", t.Schema, t.Name, err)
	}
	defer cr.Close()

	for cr.Next() {
		var col introspect.Column
		var nullable string
		if err := cr.Scan(&col.Name, &col.Type, &nullable); err != nil {
			return fmt.Errorf("scan column for %s.%s: %w", t.Schema, t.Name, err)
		}
		col.Nullable = isYes(nullable)
		t.Columns = append(t.Columns, col)
	}
	return cr.Err()
}

// markPrimaryKey flags key columns. Failures are logged, the table is kept.
func (e catalogExtractor) markPrimaryKey(ctx context.Context, dbConn *sql.DB, t *introspect.Table) {
	pkr, err := dbConn.QueryContext(ctx, e.q.primaryKey, e.q.args(t.Schema, t.Name)...)
	if err != nil {
		logger.Error("query primary key of %s.%s: %v", t.Schema, t.Name, err)
		return
	}
	defer pkr.Close()

	for pkr.Next() {
		var name string
		if err := pkr.Scan(&name); err != nil {
			logger.Error("scan primary key of %s.%s: %v", t.Schema, t.Name, err)
			continue
		}
		if col, ok := t.Column(name); ok {
			col.PK = true
			col.Nullable = false
		}
	}
	if err := pkr.Err(); err != nil {
		logger.Error("read primary key of %s.%s: %v", t.Schema, t.Name, err)
	}
}

// readForeignKeys skips rows that fail to scan. A failed query or an
// interrupted result set fails the whole read.
func (e catalogExtractor) readForeignKeys(ctx context.Context, dbConn *sql.DB) ([]introspect.ForeignKey, error) {
	fks := []introspect.ForeignKey{}
	fkr, err := dbConn.QueryContext(ctx, e.q.foreignKeys)
	if err != nil {
		return fks, fmt.Errorf("query foreign keys: %w", err)
	}
	defer fkr.Close()

	for fkr.Next() {
		var fk introspect.ForeignKey
		var onDelete, onUpdate sql.NullString
		if err := fkr.Scan(&fk.FromSchema, &fk.FromTable, &fk.FromColumn,
			&fk.ToSchema, &fk.ToTable, &fk.ToColumn, &fk.Constraint, &onDelete, &onUpdate); err != nil {
			logger.Error("scan foreign key: %v", err)
			continue
		}
		fk.OnDelete = onDelete.String
		fk.OnUpdate = onUpdate.String
		fks = append(fks, fk)
	}
	if err := fkr.Err(); err != nil {
		return fks, fmt.Errorf("read foreign keys: %w", err)
	}
	return fks, nil
}

func isYes(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES", "Y", "1", "TRUE":
		return true
	}
	return false
}

func positional(schema, table string) []interface{} {
	return []interface{}{schema, table}
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"erdsql/internal/introspect"
	"erdsql/pkg/config"
)

type Extractor interface {

	// Extract reads tables, columns and foreign keys from the catalog of db
	Extract(ctx context.Context, db *sql.DB) (introspect.Schema, error)
}

var dialects = map[string]Extractor{}

// Register makes an Extractor available under name.
func Register(name string, e Extractor) {
	dialects[strings.ToLower(name)] = e
}

// listRegistered returns the registered dialect keys in sorted order.
func listRegistered() []string {
	keys := make([]string, 0, len(dialects))
	for k := range dialects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ConnectAndExtract opens driver/dsn, waits at most timeout for the
// database to answer, and extracts its schema. Keys come back tagged
// as catalog keys with normalized referential actions.
func ConnectAndExtract(ctx context.Context, driver, dsn string, timeout time.Duration) (introspect.Schema, error) {
	driver = config.NormalizeDriver(driver)
	extractor, ok := dialects[driver]
	if !ok {
		return introspect.Schema{}, fmt.Errorf("dialect not registered: %q (available: %v)", driver, listRegistered())
	}
	dbConn, err := sql.Open(driver, dsn)
	if err != nil {
		return introspect.Schema{}, fmt.Errorf("open %s: %w", driver, err)
	}
	defer dbConn.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := dbConn.PingContext(ctx); err != nil {
		return introspect.Schema{}, fmt.Errorf("ping %s: %w", driver, err)
	}
	s, err := extractor.Extract(ctx, dbConn)
	if err != nil {
		return introspect.Schema{}, err
	}
	return finalize(s), nil
}

// finalize fills empty slices and brings catalog keys in line with parsed
// ones: NO ACTION is the implicit default and is left blank.
func finalize(s introspect.Schema) introspect.Schema {
	if s.Tables == nil {
		s.Tables = []introspect.Table{}
	}
	if s.ForeignKeys == nil {
		s.ForeignKeys = []introspect.ForeignKey{}
	}
	for i := range s.ForeignKeys {
		fk := &s.ForeignKeys[i]
		fk.Source = introspect.SourceCatalog
		fk.OnDelete = catalogAction(fk.OnDelete)
		fk.OnUpdate = catalogAction(fk.OnUpdate)
	}
	return s
}

func catalogAction(rule string) string {
	a := introspect.NormalizeAction(rule)
	if a == "NO ACTION" {
		return ""
	}
	return a
}

// RegisteredDialects is a helper that allows main to print registered dialects
func RegisteredDialects() []string {
	return listRegistered()
}

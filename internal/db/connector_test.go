package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"erdsql/internal/introspect"
)

var testdialect string = "testdialect"

type testExtractor struct{}

func (testExtractor) Extract(ctx context.Context, dbConn *sql.DB) (introspect.Schema, error) {
	var s introspect.Schema
	return s, errors.New("not implemented")
}

// fixedExtractor returns a canned schema, as a catalog with raw rule names would.
type fixedExtractor struct{}

func (fixedExtractor) Extract(ctx context.Context, dbConn *sql.DB) (introspect.Schema, error) {
	return introspect.Schema{
		Tables: []introspect.Table{{Name: "users"}, {Name: "posts"}},
		ForeignKeys: []introspect.ForeignKey{
			{FromTable: "posts", FromColumn: "user_id", ToTable: "users", ToColumn: "id",
				OnDelete: "SET_NULL", OnUpdate: "NO_ACTION"},
		},
	}, nil
}

func TestRegister(t *testing.T) {
	// tests both Register and RegisteredDialects because they take the same setup

	Register(testdialect, testExtractor{})

	if _, ok := dialects[testdialect]; !ok {
		t.Errorf("\ndialect %v not registered correctly in %v", testdialect, dialects)
	}

	rd := RegisteredDialects()

	if !(len(rd) == 1 && rd[0] == testdialect) {
		t.Errorf("\nRegisteredDialects returned unexpected result %v", rd)
	}
}

func TestConnectAndExtract(t *testing.T) {

	var tests = []struct {
		name          string
		dialect       string
		dsn           string
		timeout       time.Duration
		registerFirst bool
		errIsNil      bool
	}{
		{"unregistered dialect", "nosuchdialect", "", 10 * time.Second, false, false},
		{"sqlite with testExtractor", "sqlite", ":memory:", 10 * time.Second, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.registerFirst {
				Register(tt.dialect, testExtractor{})
			}

			_, err := ConnectAndExtract(context.Background(), tt.dialect, tt.dsn, tt.timeout)

			if (err == nil) != tt.errIsNil {
				if tt.errIsNil {
					t.Errorf("\ngot unexpected error: \"%v\"", err)
				} else {
					t.Errorf("\nexpected an error, did not receive one")
				}
			}
		})
	}
}

func TestConnectAndExtractFinalizesKeys(t *testing.T) {
	Register("sqlite", fixedExtractor{})

	s, err := ConnectAndExtract(context.Background(), "sqlite3", ":memory:", 0)
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if len(s.ForeignKeys) != 1 {
		t.Fatalf("\ngot %d keys, wanted 1", len(s.ForeignKeys))
	}
	fk := s.ForeignKeys[0]
	if fk.Source != introspect.SourceCatalog {
		t.Errorf("\ngot source %q, wanted %q", fk.Source, introspect.SourceCatalog)
	}
	if fk.OnDelete != "SET NULL" || fk.OnUpdate != "" {
		t.Errorf("\ngot actions %q/%q, wanted \"SET NULL\"/\"\"", fk.OnDelete, fk.OnUpdate)
	}
}

func TestConnectAndExtractCanceled(t *testing.T) {
	Register("sqlite", fixedExtractor{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ConnectAndExtract(ctx, "sqlite", ":memory:", time.Second); err == nil {
		t.Errorf("\nexpected an error, did not receive one")
	}
}

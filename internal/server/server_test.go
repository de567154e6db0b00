package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"erdsql/internal/introspect"
	"erdsql/pkg/config"
)

const dump = `
CREATE TABLE users (id integer NOT NULL);
CREATE TABLE posts (id integer NOT NULL, user_id integer REFERENCES users(id));
CREATE TABLE settings (key text);
`

func fakeExtract(calls *int) ExtractFunc {
	return func(ctx context.Context, driver, dsn string, timeout time.Duration) (introspect.Schema, error) {
		*calls++
		if dsn == "bad" {
			return introspect.Schema{}, errors.New("refused")
		}
		return introspect.Schema{
			Tables: []introspect.Table{{Name: "a"}, {Name: "b"}, {Name: "lonely"}},
			ForeignKeys: []introspect.ForeignKey{
				{FromTable: "a", FromColumn: "b_id", ToTable: "b", ToColumn: "id", Source: introspect.SourceCatalog},
			},
		}, nil
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	out, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(out)
}

func TestParse(t *testing.T) {
	calls := 0
	s := New(config.AppConfig{}, time.Second, fakeExtract(&calls))
	h := s.Handler("")

	code, body := do(t, h, http.MethodPost, "/api/parse", dump)
	require.Equal(t, http.StatusOK, code, body)

	assert.Equal(t, int64(3), gjson.Get(body, "summary.tables").Int())
	assert.Equal(t, "users", gjson.Get(body, "schema.tables.0.name").String())
	assert.Equal(t, "inline", gjson.Get(body, "schema.foreign_keys.0.source").String())
	assert.True(t, gjson.Get(body, "graph_data.tables.posts").Exists())
	assert.Contains(t, gjson.Get(body, "dot").String(), "digraph")

	code, _ = do(t, h, http.MethodPost, "/api/parse", dump)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, s.cache.Count(), "identical requests share a cache entry")

	code, body = do(t, h, http.MethodPost, "/api/parse?standalone=false", dump)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(2), gjson.Get(body, "summary.tables").Int())
	assert.Equal(t, 2, s.cache.Count())

	assert.Equal(t, 0, calls)
}

func TestParseBadRequests(t *testing.T) {
	calls := 0
	h := New(config.AppConfig{}, time.Second, fakeExtract(&calls)).Handler("")

	var tests = []struct {
		name   string
		method string
		target string
		code   int
	}{
		{"get", http.MethodGet, "/api/parse", http.StatusMethodNotAllowed},
		{"bad standalone", http.MethodPost, "/api/parse?standalone=maybe", http.StatusBadRequest},
		{"bad rankdir", http.MethodPost, "/api/parse?rankdir=UP", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := do(t, h, tt.method, tt.target, dump)
			if code != tt.code {
				t.Errorf("\ngot status %d, wanted %d", code, tt.code)
			}
		})
	}
}

func TestSchemaAndDiagram(t *testing.T) {
	calls := 0
	s := New(config.AppConfig{}, time.Second, fakeExtract(&calls))
	h := s.Handler("")

	code, _ := do(t, h, http.MethodGet, "/api/schema", "")
	assert.Equal(t, http.StatusBadRequest, code, "no active connection yet")

	s.SetActive("postgres", "postgres://x")

	code, body := do(t, h, http.MethodGet, "/api/schema", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, gjson.Get(body, "tables").Array(), 3)

	code, body = do(t, h, http.MethodGet, "/api/diagram", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(3), gjson.Get(body, "summary.tables").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "summary.foreign_keys").Int())
	assert.Equal(t, 2, calls)
}

func TestConnect(t *testing.T) {
	calls := 0
	cfg := config.AppConfig{Database: config.DBConfig{Type: "pg", Host: "db"}}
	s := New(cfg, time.Second, fakeExtract(&calls))
	h := s.Handler("")

	code, body := do(t, h, http.MethodGet, "/api/getConnect", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "postgres", gjson.Get(body, "config.type").String())
	assert.Equal(t, "db", gjson.Get(body, "config.host").String())

	code, _ = do(t, h, http.MethodPost, "/api/connect", `{"type":"nosuchdb"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, http.MethodPost, "/api/connect", `{"type":"postgres","dsn":"bad"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	driver, _ := s.active()
	assert.Equal(t, "", driver, "failed connect does not become active")

	code, body = do(t, h, http.MethodPost, "/api/connect", `{"type":"sqlite","database_name":"erd.db"}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, gjson.Get(body, "ok").Bool())

	driver, dsn := s.active()
	assert.Equal(t, "sqlite", driver)
	assert.Equal(t, "file:erd.db?mode=ro", dsn)
}

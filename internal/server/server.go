// Package server exposes connection management, schema extraction and
// diagram building over HTTP.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"erdsql/internal/db"
	"erdsql/internal/diagram"
	"erdsql/internal/introspect"
	"erdsql/internal/logger"
	"erdsql/internal/pipeline"
	"erdsql/pkg/config"
)

const (
	maxDumpBytes    = 32 << 20
	maxCacheEntries = 256
)

// ExtractFunc reads a live schema. db.ConnectAndExtract in production.
type ExtractFunc func(ctx context.Context, driver, dsn string, timeout time.Duration) (introspect.Schema, error)

// Server holds the active connection and the diagram cache.
type Server struct {
	mu      sync.RWMutex
	cfg     config.AppConfig
	driver  string
	dsn     string
	timeout time.Duration

	opts    pipeline.Options
	extract ExtractFunc
	cache   cmap.ConcurrentMap[string, *pipeline.Diagram]
}

// New returns a Server configured from cfg. When cfg names a database it
// becomes the active connection.
func New(cfg config.AppConfig, timeout time.Duration, extract ExtractFunc) *Server {
	if extract == nil {
		extract = db.ConnectAndExtract
	}
	s := &Server{
		cfg:     cfg,
		timeout: timeout,
		extract: extract,
		cache:   cmap.New[*pipeline.Diagram](),
		opts: pipeline.Options{
			Filter:  cfg.Diagram.FilterOptions(),
			Palette: cfg.Diagram.ColorPalette(),
			Graph:   cfg.Diagram.Graph,
		},
	}
	s.opts.Render.Binary = cfg.Diagram.Graphviz
	return s
}

// SetActive makes driver/dsn the connection used by /api/schema and
// /api/diagram.
func (s *Server) SetActive(driver, dsn string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driver = driver
	s.dsn = dsn
}

func (s *Server) active() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.driver, s.dsn
}

// Handler returns the API routes plus a file server for webdir, if set.
func (s *Server) Handler(webdir string) http.Handler {
	mux := http.NewServeMux()
	if webdir != "" {
		mux.Handle("/", http.FileServer(http.Dir(webdir)))
	}
	mux.HandleFunc("/api/getConnect", s.handleGetConnect)
	mux.HandleFunc("/api/connect", s.handleConnect)
	mux.HandleFunc("/api/schema", s.handleSchema)
	mux.HandleFunc("/api/parse", s.handleParse)
	mux.HandleFunc("/api/diagram", s.handleDiagram)
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response: %v", err)
	}
}

// handleGetConnect returns the configured connection parameters.
func (s *Server) handleGetConnect(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	dbc := s.cfg.Database
	s.mu.RUnlock()
	dbc.Type = config.NormalizeDriver(dbc.Type)

	writeJSON(w, struct {
		OK     bool            `json:"ok"`
		Config config.DBConfig `json:"config"`
	}{OK: true, Config: dbc})
}

// handleConnect tests the posted parameters and, on success, makes them
// the active connection.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var dbReq config.DBConfig
	if err := json.NewDecoder(r.Body).Decode(&dbReq); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	driver, dsn, err := config.BuildDriverAndDSN(dbReq)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	schema, err := s.extract(r.Context(), driver, dsn, s.timeout)
	if err != nil {
		http.Error(w, "connection failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.cfg.Database = dbReq
	s.driver, s.dsn = driver, dsn
	s.mu.Unlock()
	logger.Info("active connection is now %s", driver)

	writeJSON(w, struct {
		OK     bool              `json:"ok"`
		Schema introspect.Schema `json:"schema"`
	}{OK: true, Schema: schema})
}

func (s *Server) extractActive(w http.ResponseWriter, r *http.Request) (introspect.Schema, bool) {
	driver, dsn := s.active()
	if driver == "" || dsn == "" {
		http.Error(w, "no active connection; POST /api/connect to create one", http.StatusBadRequest)
		return introspect.Schema{}, false
	}
	schema, err := s.extract(r.Context(), driver, dsn, s.timeout)
	if err != nil {
		http.Error(w, "failed to extract schema: "+err.Error(), http.StatusInternalServerError)
		return introspect.Schema{}, false
	}
	return schema, true
}

// handleSchema returns the raw schema of the active connection.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, ok := s.extractActive(w, r)
	if !ok {
		return
	}
	writeJSON(w, schema)
}

// handleDiagram builds the diagram of the active connection.
func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	schema, ok := s.extractActive(w, r)
	if !ok {
		return
	}
	opts, err := s.requestOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d, err := pipeline.FromSchema(schema, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.respondDiagram(w, r, d)
}

// handleParse builds the diagram of a posted SQL dump. Results are cached
// by content and options.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDumpBytes+1))
	if err != nil {
		http.Error(w, "reading body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) > maxDumpBytes {
		http.Error(w, "dump too large", http.StatusRequestEntityTooLarge)
		return
	}
	opts, err := s.requestOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := cacheKey(body, opts)
	d, hit := s.cache.Get(key)
	if !hit {
		if d, err = pipeline.FromSQL(string(body), opts); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if s.cache.Count() >= maxCacheEntries {
			s.cache.Clear()
		}
		s.cache.Set(key, d)
	}
	logger.Debug("parse request: %d bytes, cache hit %v", len(body), hit)
	s.respondDiagram(w, r, d)
}

// respondDiagram writes d as JSON, or as SVG when ?format=svg.
func (s *Server) respondDiagram(w http.ResponseWriter, r *http.Request, d *pipeline.Diagram) {
	if r.URL.Query().Get("format") != "svg" {
		writeJSON(w, d)
		return
	}
	svg, err := d.SVG(r.Context(), s.opts.Render)
	if err != nil {
		http.Error(w, "layout failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := w.Write(svg); err != nil {
		logger.Error("write svg: %v", err)
	}
}

// requestOptions applies query overrides (standalone, rankdir) to the
// configured options.
func (s *Server) requestOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.opts
	q := r.URL.Query()
	if v := q.Get("standalone"); v != "" {
		show, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid standalone value %q", v)
		}
		opts.Filter.ShowStandalone = show
	}
	if v := q.Get("rankdir"); v != "" {
		dir, err := diagram.ParseRankDir(v)
		if err != nil {
			return opts, err
		}
		opts.Graph.RankDir = dir
	}
	return opts, nil
}

func cacheKey(body []byte, opts pipeline.Options) string {
	h := sha256.New()
	h.Write(body)
	fmt.Fprintf(h, "\x00%v|%v|%v|%v|%+v", opts.Filter.ExcludePatterns == nil, opts.Filter, opts.Palette, opts.Parser, opts.Graph)
	return hex.EncodeToString(h.Sum(nil))
}

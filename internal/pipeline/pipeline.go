// Package pipeline runs a schema through filtering and diagram building.
// The CLI and the HTTP server share it.
package pipeline

import (
	"context"
	"fmt"

	"erdsql/internal/diagram"
	"erdsql/internal/filter"
	"erdsql/internal/introspect"
	"erdsql/internal/logger"
	"erdsql/internal/render"
	"erdsql/internal/sqlparse"
)

// Options configures one run.
type Options struct {
	Filter  filter.Options
	Palette diagram.Palette // nil means the default palette
	Graph   diagram.GraphOptions
	Parser  sqlparse.Options
	Render  render.Options
}

// Diagram is the outcome of a run. Schema is the filtered schema.
type Diagram struct {
	Schema      introspect.Schema       `json:"schema"`
	Diagnostics []introspect.Diagnostic `json:"diagnostics"`
	Errors      []string                `json:"errors"`
	Summary     diagram.Summary         `json:"summary"`
	Model       *diagram.Model          `json:"graph_data"`
	DOT         string                  `json:"dot"`
}

// FromSQL parses a dump and builds its diagram. Parse problems do not
// stop the run; they are logged and returned in Diagnostics.
func FromSQL(sql string, opts Options) (*Diagram, error) {
	res := sqlparse.New(opts.Parser).Parse(sql)
	for _, d := range res.Diagnostics {
		logger.Warn("%s", d.Message)
	}
	logger.Debug("parsed %d tables and %d foreign keys", len(res.Schema.Tables), len(res.Schema.ForeignKeys))

	d, err := FromSchema(res.Schema, opts)
	if err != nil {
		return nil, err
	}
	d.Diagnostics = res.Diagnostics
	d.Errors = res.Errors()
	return d, nil
}

// FromSchema filters s and builds its diagram.
func FromSchema(s introspect.Schema, opts Options) (*Diagram, error) {
	b, err := diagram.NewBuilder(opts.Palette)
	if err != nil {
		return nil, fmt.Errorf("diagram palette: %w", err)
	}

	filtered := filter.Apply(s, opts.Filter)
	m := b.Build(filtered)
	return &Diagram{
		Schema:      filtered,
		Diagnostics: []introspect.Diagnostic{},
		Errors:      []string{},
		Summary:     diagram.Summarize(filtered),
		Model:       m,
		DOT:         diagram.DOT(filtered, m, opts.Graph),
	}, nil
}

// SVG lays the diagram out with Graphviz and embeds its graph-data.
func (d *Diagram) SVG(ctx context.Context, opts render.Options) ([]byte, error) {
	return render.SVG(ctx, d.DOT, d.Model, opts)
}

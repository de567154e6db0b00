// Package diagram turns a filtered schema into the data the layout engine
// and the interactive front-end consume: colors, graph-data JSON, table
// labels and DOT source.
package diagram

import (
	"encoding/json"

	"erdsql/internal/introspect"
)

const (
	// DefaultEdgeColor is the neutral color of edges with nothing selected.
	DefaultEdgeColor = "#cccccc"
	// DefaultHighlightColor marks the selected element.
	DefaultHighlightColor = "#ff0000"
)

// TableStyle is the graph-data entry for one table.
type TableStyle struct {
	DefaultColor     string   `json:"defaultColor"`
	HighlightColor   string   `json:"highlightColor"`
	DesaturatedColor string   `json:"desaturatedColor"`
	Edges            []string `json:"edges"`
}

// EdgeStyle is the graph-data entry for one relationship. Colors are the
// source table's.
type EdgeStyle struct {
	Tables           [2]string `json:"tables"`
	DefaultColor     string    `json:"defaultColor"`
	HighlightColor   string    `json:"highlightColor"`
	DesaturatedColor string    `json:"desaturatedColor"`
	OnDelete         *string   `json:"onDelete"`
	OnUpdate         *string   `json:"onUpdate"`
}

// Model is the graph-data handed to the front-end, plus the lookups the
// DOT writer needs. Tables are keyed by sanitized name.
type Model struct {
	Tables         map[string]*TableStyle `json:"tables"`
	Edges          map[string]*EdgeStyle  `json:"edges"`
	DefaultColor   string                 `json:"defaultColor"`
	HighlightColor string                 `json:"highlightColor"`

	// keyed by raw table name
	TableColors map[string]string `json:"-"`
	TextColors  map[string]string `json:"-"`
	// EdgeIDs[i] is the id of the i-th foreign key of the built schema,
	// or "" when that key was skipped.
	EdgeIDs []string `json:"-"`
}

// JSON encodes the graph-data.
func (m *Model) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// Builder assembles Models with a fixed palette.
type Builder struct {
	palette Palette
	shades  map[string]shade
}

type shade struct {
	highlight   string
	desaturated string
	text        string
}

// NewBuilder validates p and precomputes its color variants. A nil
// palette means DefaultPalette.
func NewBuilder(p Palette) (*Builder, error) {
	if p == nil {
		p = DefaultPalette()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{palette: p, shades: make(map[string]shade, len(p))}
	for _, c := range p {
		// colors already validated, errors are not possible here
		hi, _ := Saturate(c, HighlightSaturation)
		de, _ := Desaturate(c, DesaturatedSaturation)
		txt, _ := ContrastText(c)
		b.shades[c] = shade{highlight: hi, desaturated: de, text: txt}
	}
	return b, nil
}

// Palette returns the builder's palette.
func (b *Builder) Palette() Palette {
	return b.palette
}

// Build assigns colors and builds the graph-data for s. s should already
// be filtered; keys whose ends are not tables of s are skipped.
func (b *Builder) Build(s introspect.Schema) *Model {
	m := &Model{
		Tables:         make(map[string]*TableStyle, len(s.Tables)),
		Edges:          make(map[string]*EdgeStyle, len(s.ForeignKeys)),
		DefaultColor:   DefaultEdgeColor,
		HighlightColor: DefaultHighlightColor,
		TableColors:    AssignColors(s.TableNames(), b.palette),
		TextColors:     make(map[string]string, len(s.Tables)),
		EdgeIDs:        make([]string, len(s.ForeignKeys)),
	}

	for _, t := range s.Tables {
		c := m.TableColors[t.Name]
		sh := b.shades[c]
		m.TextColors[t.Name] = sh.text
		m.Tables[Sanitize(t.Name)] = &TableStyle{
			DefaultColor:     c,
			HighlightColor:   sh.highlight,
			DesaturatedColor: sh.desaturated,
			Edges:            []string{},
		}
	}

	ids := EdgeIDs(s.ForeignKeys)
	for i, fk := range s.ForeignKeys {
		c, ok := m.TableColors[fk.FromTable]
		if !ok {
			continue
		}
		if _, ok := m.TableColors[fk.ToTable]; !ok {
			continue
		}
		id := ids[i]
		from, to := Sanitize(fk.FromTable), Sanitize(fk.ToTable)
		sh := b.shades[c]
		m.Edges[id] = &EdgeStyle{
			Tables:           [2]string{from, to},
			DefaultColor:     c,
			HighlightColor:   sh.highlight,
			DesaturatedColor: sh.desaturated,
			OnDelete:         optional(fk.OnDelete),
			OnUpdate:         optional(fk.OnUpdate),
		}
		m.EdgeIDs[i] = id
		m.Tables[from].Edges = append(m.Tables[from].Edges, id)
		if to != from {
			m.Tables[to].Edges = append(m.Tables[to].Edges, id)
		}
	}
	return m
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Summary counts what a diagram shows.
type Summary struct {
	Tables      int `json:"tables"`
	Columns     int `json:"columns"`
	ForeignKeys int `json:"foreign_keys"`
}

// Summarize counts the tables, columns and foreign keys of s.
func Summarize(s introspect.Schema) Summary {
	sum := Summary{Tables: len(s.Tables), ForeignKeys: len(s.ForeignKeys)}
	for _, t := range s.Tables {
		sum.Columns += len(t.Columns)
	}
	return sum
}

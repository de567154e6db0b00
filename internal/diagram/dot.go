package diagram

import (
	"fmt"
	"strings"

	"github.com/emicklei/dot"

	"erdsql/internal/introspect"
	"erdsql/internal/sqlparse"
)

// GraphOptions are the Graphviz attributes applied to the whole diagram.
type GraphOptions struct {
	PackMode     string  `yaml:"packmode" json:"packmode"`
	RankDir      string  `yaml:"rankdir" json:"rankdir"`
	ESep         float64 `yaml:"esep" json:"esep"`
	FontName     string  `yaml:"fontname" json:"fontname"`
	FontSize     int     `yaml:"fontsize" json:"fontsize"`
	NodeFontSize int     `yaml:"node_fontsize" json:"node_fontsize"`
	EdgeFontSize int     `yaml:"edge_fontsize" json:"edge_fontsize"`
	NodeSep      float64 `yaml:"nodesep" json:"nodesep"`
	RankSep      float64 `yaml:"ranksep" json:"ranksep"`
	NodeStyle    string  `yaml:"node_style" json:"node_style"`
	NodeShape    string  `yaml:"node_shape" json:"node_shape"`
}

// DefaultGraphOptions returns the stock layout settings.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		PackMode:     "array",
		RankDir:      "TB",
		ESep:         6,
		FontName:     "Sans-Serif",
		FontSize:     24,
		NodeFontSize: 20,
		EdgeFontSize: 16,
		NodeSep:      0.5,
		RankSep:      1.2,
		NodeStyle:    "filled",
		NodeShape:    "rect",
	}
}

// ParseRankDir upper-cases d and checks it names a Graphviz rank
// direction.
func ParseRankDir(d string) (string, error) {
	switch u := strings.ToUpper(strings.TrimSpace(d)); u {
	case "TB", "LR", "BT", "RL":
		return u, nil
	}
	return "", fmt.Errorf("invalid rankdir %q (must be TB, LR, BT or RL)", d)
}

// withDefaults fills zero fields from DefaultGraphOptions.
func (o GraphOptions) withDefaults() GraphOptions {
	d := DefaultGraphOptions()
	if o.PackMode == "" {
		o.PackMode = d.PackMode
	}
	if o.RankDir == "" {
		o.RankDir = d.RankDir
	}
	if o.ESep == 0 {
		o.ESep = d.ESep
	}
	if o.FontName == "" {
		o.FontName = d.FontName
	}
	if o.FontSize == 0 {
		o.FontSize = d.FontSize
	}
	if o.NodeFontSize == 0 {
		o.NodeFontSize = d.NodeFontSize
	}
	if o.EdgeFontSize == 0 {
		o.EdgeFontSize = d.EdgeFontSize
	}
	if o.NodeSep == 0 {
		o.NodeSep = d.NodeSep
	}
	if o.RankSep == 0 {
		o.RankSep = d.RankSep
	}
	if o.NodeStyle == "" {
		o.NodeStyle = d.NodeStyle
	}
	if o.NodeShape == "" {
		o.NodeShape = d.NodeShape
	}
	return o
}

// DOT builds the Graphviz source for s using the colors and edge ids of m,
// which must have been built from the same schema.
func DOT(s introspect.Schema, m *Model, opts GraphOptions) string {
	opts = opts.withDefaults()

	g := dot.NewGraph(dot.Directed)
	g.Attr("comment", "Database ERD")
	g.Attr("nodesep", opts.NodeSep)
	g.Attr("pack", "true")
	g.Attr("packmode", opts.PackMode)
	g.Attr("rankdir", opts.RankDir)
	g.Attr("esep", opts.ESep)
	g.Attr("fontname", opts.FontName)
	g.Attr("fontsize", opts.FontSize)
	g.Attr("ranksep", opts.RankSep)
	g.Attr("labeljust", "l")

	nodes := make(map[string]dot.Node, len(s.Tables))
	for _, t := range s.Tables {
		id := Sanitize(t.Name)
		n := g.Node(id).
			Attr("id", id).
			Attr("label", dot.HTML(Label(t, m.TableColors[t.Name], m.TextColors[t.Name]))).
			Attr("shape", opts.NodeShape).
			Attr("style", opts.NodeStyle).
			Attr("fillcolor", "white").
			Attr("fontname", opts.FontName).
			Attr("fontsize", opts.NodeFontSize)
		if cons := sqlparse.ExtractConstraints(s.ForeignKeys, t.Name); len(cons) > 0 {
			n.Attr("tooltip", strings.Join(cons, "\n"))
		}
		nodes[t.Name] = n
	}

	for i, fk := range s.ForeignKeys {
		if i >= len(m.EdgeIDs) || m.EdgeIDs[i] == "" {
			continue
		}
		from, ok := nodes[fk.FromTable]
		if !ok {
			continue
		}
		to, ok := nodes[fk.ToTable]
		if !ok {
			continue
		}
		e := g.Edge(from, to).
			Attr("id", m.EdgeIDs[i]).
			Attr("tailport", Sanitize(firstColumn(fk.FromColumn))+":e").
			Attr("headport", Sanitize(firstColumn(fk.ToColumn))+":w").
			Attr("color", m.TableColors[fk.FromTable]).
			Attr("fontname", opts.FontName).
			Attr("fontsize", opts.EdgeFontSize)
		if tip := actionTooltip(fk); tip != "" {
			e.Attr("tooltip", tip)
		}
	}
	return g.String()
}

// firstColumn picks the port column of a possibly composite key.
func firstColumn(cols string) string {
	first, _, _ := strings.Cut(cols, ",")
	return strings.TrimSpace(first)
}

func actionTooltip(fk introspect.ForeignKey) string {
	var parts []string
	if fk.OnDelete != "" {
		parts = append(parts, "ON DELETE "+fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		parts = append(parts, "ON UPDATE "+fk.OnUpdate)
	}
	return strings.Join(parts, " ")
}

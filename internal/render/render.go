// Package render hands DOT source to Graphviz and finishes the SVG it
// produces for the interactive viewer.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"erdsql/internal/diagram"
)

// ErrNoClosingTag is returned when the layout output has no </svg>.
var ErrNoClosingTag = errors.New("svg has no closing </svg> tag")

// Options selects the layout program and its output format.
type Options struct {
	Binary string // default "dot"
	Format string // default "svg"
}

func (o Options) binary() string {
	if o.Binary == "" {
		return "dot"
	}
	return o.Binary
}

func (o Options) format() string {
	if o.Format == "" {
		return "svg"
	}
	return o.Format
}

// Layout runs Graphviz on src and returns what it writes to stdout.
func Layout(ctx context.Context, src string, opts Options) ([]byte, error) {
	cmd := exec.CommandContext(ctx, opts.binary(), "-T"+opts.format())
	cmd.Stdin = strings.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("layout canceled: %w", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("running %s: %w", opts.binary(), err)
		}
		return nil, fmt.Errorf("running %s: %w: %s", opts.binary(), err, msg)
	}
	return stdout.Bytes(), nil
}

// EmbedGraphData inserts the graph-data JSON of m as a script element
// right before the last </svg>.
func EmbedGraphData(svg []byte, m *diagram.Model) ([]byte, error) {
	idx := bytes.LastIndex(svg, []byte("</svg>"))
	if idx < 0 {
		return nil, ErrNoClosingTag
	}
	data, err := m.JSON()
	if err != nil {
		return nil, fmt.Errorf("encoding graph data: %w", err)
	}

	var out bytes.Buffer
	out.Grow(len(svg) + len(data) + 64)
	out.Write(svg[:idx])
	out.WriteString(`<script id="graph-data" type="application/json">`)
	out.Write(data)
	out.WriteString("</script>\n")
	out.Write(svg[idx:])
	return out.Bytes(), nil
}

// SVG lays out dotSrc and embeds the graph-data of m in the result.
func SVG(ctx context.Context, dotSrc string, m *diagram.Model, opts Options) ([]byte, error) {
	opts.Format = "svg"
	out, err := Layout(ctx, dotSrc, opts)
	if err != nil {
		return nil, err
	}
	return EmbedGraphData(out, m)
}

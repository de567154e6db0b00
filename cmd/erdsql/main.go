package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"erdsql/internal/db"
	_ "erdsql/internal/db/extractors"
	"erdsql/internal/diagram"
	"erdsql/internal/logger"
	"erdsql/internal/pipeline"
	"erdsql/pkg/config"
)

// ErrDiagnostics is returned under --strict when the dump had problems.
var ErrDiagnostics = errors.New("dump has parse diagnostics")

type options struct {
	configPath     string
	outputFile     string
	format         string
	exclude        string
	include        string
	hideStandalone bool
	strict         bool
	validateInline bool
	rankdir        string
	driver         string
	dsn            string
	timeout        time.Duration
	logLevel       string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "erdsql [dump.sql]",
		Short: "Draw an entity-relationship diagram from a SQL dump",
		Long: `erdsql reads a SQL schema dump (or a live database with --driver/--dsn) and writes
an entity-relationship diagram as Graphviz DOT, graph-data JSON, or SVG laid out by
the Graphviz dot program. Use "-" to read the dump from stdin.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config YAML file")
	f.StringVarP(&opts.outputFile, "output", "o", "", "output file (default: stdout)")
	f.StringVarP(&opts.format, "format", "f", "dot", "output format: dot, json or svg")
	f.StringVar(&opts.exclude, "exclude", "", "comma-separated exclusion substrings, replacing the built-in list (\"none\" disables exclusion)")
	f.StringVar(&opts.include, "include", "", "comma-separated table names to keep")
	f.BoolVar(&opts.hideStandalone, "hide-standalone", false, "drop tables without foreign keys")
	f.BoolVar(&opts.strict, "strict", false, "fail when the dump has parse diagnostics")
	f.BoolVar(&opts.validateInline, "validate-inline", false, "also reject inline references to unknown tables")
	f.StringVar(&opts.rankdir, "rankdir", "", "graph direction: TB, LR, BT or RL")
	f.StringVar(&opts.driver, "driver", "", "read a live database with this driver instead of a dump")
	f.StringVar(&opts.dsn, "dsn", "", "connection string for --driver")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "database connect timeout")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (overrides config)")
	return cmd
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func pipelineOptions(cfg config.AppConfig, opts *options) (pipeline.Options, error) {
	po := pipeline.Options{
		Filter:  cfg.Diagram.FilterOptions(),
		Palette: cfg.Diagram.ColorPalette(),
		Graph:   cfg.Diagram.Graph,
	}
	po.Render.Binary = cfg.Diagram.Graphviz
	po.Parser.ValidateInline = opts.validateInline

	switch {
	case opts.exclude == "none":
		po.Filter.ExcludePatterns = []string{}
	case opts.exclude != "":
		po.Filter.ExcludePatterns = splitList(opts.exclude)
	}
	if opts.include != "" {
		po.Filter.IncludeTables = splitList(opts.include)
	}
	if opts.hideStandalone {
		po.Filter.ShowStandalone = false
	}
	if opts.rankdir != "" {
		dir, err := diagram.ParseRankDir(opts.rankdir)
		if err != nil {
			return po, err
		}
		po.Graph.RankDir = dir
	}
	return po, nil
}

func readDump(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading dump: %w", err)
	}
	return string(b), nil
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch opts.format {
	case "dot", "json", "svg":
	default:
		return fmt.Errorf("invalid format: %s (must be dot, json or svg)", opts.format)
	}
	live := opts.driver != "" || opts.dsn != ""
	if live == (len(args) == 1) {
		return fmt.Errorf("give either a dump file or --driver and --dsn")
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := logger.Setup(cfg.Logging); err != nil {
		return err
	}
	defer logger.Sync()

	po, err := pipelineOptions(cfg, opts)
	if err != nil {
		return err
	}

	var d *pipeline.Diagram
	if live {
		schema, err := db.ConnectAndExtract(ctx, opts.driver, opts.dsn, opts.timeout)
		if err != nil {
			return fmt.Errorf("failed to extract schema: %w", err)
		}
		d, err = pipeline.FromSchema(schema, po)
		if err != nil {
			return err
		}
	} else {
		text, err := readDump(cmd, args[0])
		if err != nil {
			return err
		}
		if d, err = pipeline.FromSQL(text, po); err != nil {
			return err
		}
		if opts.strict && len(d.Diagnostics) > 0 {
			return fmt.Errorf("%w: %d found", ErrDiagnostics, len(d.Diagnostics))
		}
	}
	logger.Info("%d tables, %d columns, %d foreign keys", d.Summary.Tables, d.Summary.Columns, d.Summary.ForeignKeys)

	var out []byte
	switch opts.format {
	case "dot":
		out = []byte(d.DOT)
	case "json":
		if out, err = json.MarshalIndent(d, "", "  "); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		out = append(out, '\n')
	case "svg":
		if out, err = d.SVG(ctx, po.Render); err != nil {
			return err
		}
	}

	if opts.outputFile == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(opts.outputFile, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	logger.Info("wrote %s", opts.outputFile)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

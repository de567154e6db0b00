package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"erdsql/internal/diagram"
	"erdsql/internal/filter"
	"erdsql/internal/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ERDSQL_"

type DBConfig struct {
	Type         string `yaml:"type" json:"type" env:"DB_TYPE"`
	Host         string `yaml:"host" json:"host" env:"DB_HOST"`
	Port         int    `yaml:"port" json:"port" env:"DB_PORT"`
	Username     string `yaml:"username" json:"username" env:"DB_USERNAME"`
	Password     string `yaml:"password" json:"password" env:"DB_PASSWORD"`
	DatabaseName string `yaml:"database_name" json:"database_name" env:"DB_NAME"`
	DSN          string `yaml:"dsn" json:"dsn" env:"DB_DSN"` // optional explicit DSN
}

type ServerConfig struct {
	Port int `yaml:"port" json:"port" env:"SERVER_PORT"`
}

// DiagramConfig holds the defaults used when turning a schema into a diagram.
type DiagramConfig struct {
	// nil keeps the built-in exclusion list, [] disables exclusion
	ExcludePatterns []string             `yaml:"exclude_patterns" json:"exclude_patterns" env:"DIAGRAM_EXCLUDE" envSeparator:","`
	IncludeTables   []string             `yaml:"include_tables" json:"include_tables" env:"DIAGRAM_INCLUDE" envSeparator:","`
	HideStandalone  bool                 `yaml:"hide_standalone" json:"hide_standalone" env:"DIAGRAM_HIDE_STANDALONE"`
	Palette         []string             `yaml:"palette" json:"palette" env:"DIAGRAM_PALETTE" envSeparator:","`
	Graph           diagram.GraphOptions `yaml:"graph" json:"graph"`
	Graphviz        string               `yaml:"graphviz" json:"graphviz" env:"GRAPHVIZ"`
}

type AppConfig struct {
	Database DBConfig      `yaml:"database" json:"database"`
	Server   ServerConfig  `yaml:"server" json:"server"`
	Diagram  DiagramConfig `yaml:"diagram" json:"diagram"`
	Logging  logger.Config `yaml:"logging" json:"logging" envPrefix:"LOG_"`
}

// LoadFile loads YAML config from path.
func LoadFile(path string) (AppConfig, error) {
	var cfg AppConfig
	f, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads each existing file into the process environment.
// Variables already set are left alone. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with ERDSQL_* environment variables.
func ApplyEnv(cfg *AppConfig) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

// Load reads .env, then the YAML file at path when path is not empty,
// then the environment, and validates the result.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	if err := LoadDotEnv(".env"); err != nil {
		return cfg, err
	}
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return AppConfig{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return AppConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot type-check.
func (c AppConfig) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if len(c.Diagram.Palette) > 0 {
		if err := diagram.Palette(c.Diagram.Palette).Validate(); err != nil {
			return fmt.Errorf("diagram palette: %w", err)
		}
	}
	if c.Diagram.Graph.RankDir != "" {
		if _, err := diagram.ParseRankDir(c.Diagram.Graph.RankDir); err != nil {
			return fmt.Errorf("diagram graph: %w", err)
		}
	}
	return nil
}

// FilterOptions converts the diagram section into filter options.
func (d DiagramConfig) FilterOptions() filter.Options {
	return filter.Options{
		ExcludePatterns: d.ExcludePatterns,
		ShowStandalone:  !d.HideStandalone,
		IncludeTables:   d.IncludeTables,
	}
}

// ColorPalette returns the configured palette, or nil for the default.
func (d DiagramConfig) ColorPalette() diagram.Palette {
	if len(d.Palette) == 0 {
		return nil
	}
	return diagram.Palette(d.Palette)
}

var driverAliases = map[string]string{
	"postgresql": "postgres",
	"pg":         "postgres",
	"mariadb":    "mysql",
	"sqlite3":    "sqlite",
	"mssql":      "sqlserver",
	"oracle":     "godror",
}

// NormalizeDriver maps common aliases to canonical driver names.
func NormalizeDriver(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	if canonical, ok := driverAliases[d]; ok {
		return canonical
	}
	return d
}

// BuildDriverAndDSN returns the driver name and a DSN for db. An explicit
// DSN is passed through untouched.
func BuildDriverAndDSN(db DBConfig) (driver string, dsn string, err error) {
	driver = NormalizeDriver(db.Type)
	if db.DSN != "" {
		return driver, db.DSN, nil
	}

	hostPort := net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
	switch driver {
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.Username, db.Password),
			Host:     hostPort,
			Path:     "/" + db.DatabaseName,
			RawQuery: "sslmode=disable",
		}
		dsn = u.String()
	case "mysql":
		dsn = fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true",
			db.Username, db.Password, hostPort, db.DatabaseName)
	case "sqlite":
		if db.DatabaseName == "" {
			return "", "", fmt.Errorf("sqlite needs a file path in database_name")
		}
		dsn = fmt.Sprintf("file:%s?mode=ro", db.DatabaseName)
	case "sqlserver":
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(db.Username, db.Password),
			Host:     hostPort,
			RawQuery: url.Values{"database": {db.DatabaseName}}.Encode(),
		}
		dsn = u.String()
	case "godror":
		// EZCONNECT
		dsn = fmt.Sprintf("%s/%s@%s/%s", db.Username, db.Password, hostPort, db.DatabaseName)
	default:
		return "", "", fmt.Errorf("unsupported database type: %s", db.Type)
	}
	return driver, dsn, nil
}

package config

import (
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/consts"
	"gopkg.in/yaml.v3"
)

type (
	// DataSource describes one physical backend.
	DataSource struct {
		// Driver selects the database/sql driver: clickhouse or mysql
		Driver string `yaml:"driver"`

		// DSN is passed to the driver as-is
		DSN string `yaml:"dsn"`

		// MaxOpenConns bounds the connection pool of the data source
		MaxOpenConns int `yaml:"max_open_conns,omitempty"`

		// MaxIdleConns bounds the idle connections kept by the pool
		MaxIdleConns int `yaml:"max_idle_conns,omitempty"`

		// ConnMaxLifetime closes pooled connections older than this
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty"`
	}

	// Props are the execution properties shared by every logical statement.
	Props struct {
		// MaxConnectionsSizePerQuery is the number of connections a single
		// logical statement may hold per data source
		MaxConnectionsSizePerQuery int `yaml:"max_connections_size_per_query"`

		// ExecutorSize bounds how many input groups run concurrently, 0 for
		// no bound
		ExecutorSize int `yaml:"executor_size"`

		// ExceptionThrown selects fail-fast execution; when false every unit
		// runs and failures are reported together
		ExceptionThrown bool `yaml:"exception_thrown"`
	}

	// Config is the shardexec configuration.
	Config struct {
		// DataSources maps data source names, as used by execution units, to
		// their backends
		DataSources map[string]DataSource `yaml:"data_sources"`

		// Props holds the execution properties
		Props Props `yaml:"props"`

		// BroadcastTables lists the logical tables replicated to every data
		// source
		BroadcastTables []string `yaml:"broadcast_tables,omitempty"`

		// LogLevel is one of debug, info, warn or error
		LogLevel string `yaml:"log_level,omitempty"`
	}
)

// LoadConfig parses a configuration from the provided io.Reader, applies
// defaults and validates it.
//
// Example:
//
//	cfg, err := config.LoadConfig(strings.NewReader(`
//	data_sources:
//	  ds0:
//	    driver: mysql
//	    dsn: root@tcp(localhost:3306)/db0
//	`))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(cfg.Props.MaxConnectionsSizePerQuery) // 1
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := Config{
		Props: Props{
			MaxConnectionsSizePerQuery: consts.DefaultMaxConnectionsSizePerQuery,
			ExecutorSize:               consts.DefaultExecutorSize,
			ExceptionThrown:            consts.DefaultExceptionThrown,
		},
		LogLevel: consts.DefaultLogLevel,
	}

	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	for name, ds := range cfg.DataSources {
		if ds.MaxOpenConns == 0 {
			ds.MaxOpenConns = consts.DefaultMaxOpenConns
		}
		if ds.MaxIdleConns == 0 {
			ds.MaxIdleConns = consts.DefaultMaxIdleConns
		}
		if ds.ConnMaxLifetime == 0 {
			ds.ConnMaxLifetime = consts.DefaultConnMaxLifetime
		}
		cfg.DataSources[name] = ds
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadConfigFile loads a configuration from the specified file path.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// Validate checks the configuration for values the executors cannot run with.
func (c *Config) Validate() error {
	if len(c.DataSources) == 0 {
		return errors.New("at least one data source is required")
	}

	for _, name := range c.DataSourceNames() {
		ds := c.DataSources[name]
		if ds.Driver == "" {
			return errors.Errorf("data source %s: driver is required", name)
		}
		if ds.DSN == "" {
			return errors.Errorf("data source %s: dsn is required", name)
		}
	}

	if c.Props.MaxConnectionsSizePerQuery < 1 {
		return errors.Errorf("max_connections_size_per_query must be at least 1, got %d", c.Props.MaxConnectionsSizePerQuery)
	}

	if c.Props.ExecutorSize < 0 {
		return errors.Errorf("executor_size must not be negative, got %d", c.Props.ExecutorSize)
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// DataSourceNames returns the configured data source names in sorted order.
func (c *Config) DataSourceNames() []string {
	return slices.Sorted(maps.Keys(c.DataSources))
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, errors.Wrapf(err, "invalid log_level %q", c.LogLevel)
	}

	return level, nil
}

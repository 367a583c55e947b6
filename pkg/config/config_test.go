package config_test

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/pseudomuto/shardexec/pkg/config"
	"github.com/pseudomuto/shardexec/pkg/consts"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/shardexec.yaml
var testConfigYAML string

func TestLoadConfig(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		config, err := LoadConfig(strings.NewReader(testConfigYAML))
		require.NoError(t, err)
		validateTestConfig(t, config)
	})

	t.Run("defaults", func(t *testing.T) {
		config, err := LoadConfig(strings.NewReader(`
data_sources:
  ds0:
    driver: mysql
    dsn: root@tcp(localhost:3306)/db0
`))
		require.NoError(t, err)
		require.Equal(t, consts.DefaultMaxConnectionsSizePerQuery, config.Props.MaxConnectionsSizePerQuery)
		require.Equal(t, consts.DefaultExecutorSize, config.Props.ExecutorSize)
		require.Equal(t, consts.DefaultExceptionThrown, config.Props.ExceptionThrown)
		require.Equal(t, consts.DefaultLogLevel, config.LogLevel)

		ds := config.DataSources["ds0"]
		require.Equal(t, consts.DefaultMaxOpenConns, ds.MaxOpenConns)
		require.Equal(t, consts.DefaultMaxIdleConns, ds.MaxIdleConns)
		require.Equal(t, consts.DefaultConnMaxLifetime, ds.ConnMaxLifetime)
	})

	t.Run("error", func(t *testing.T) {
		tests := []struct {
			name string
			yaml string
			err  string
		}{
			{name: "invalid yaml", yaml: "invalid: yaml: [", err: "failed to unmarshal config"},
			{name: "empty", yaml: "", err: "failed to unmarshal config"},
			{name: "no data sources", yaml: "log_level: info", err: "at least one data source is required"},
			{
				name: "missing driver",
				yaml: "data_sources:\n  ds0:\n    dsn: x\n",
				err:  "data source ds0: driver is required",
			},
			{
				name: "missing dsn",
				yaml: "data_sources:\n  ds0:\n    driver: mysql\n",
				err:  "data source ds0: dsn is required",
			},
			{
				name: "connection budget",
				yaml: "data_sources:\n  ds0: {driver: mysql, dsn: x}\nprops:\n  max_connections_size_per_query: 0\n",
				err:  "max_connections_size_per_query must be at least 1",
			},
			{
				name: "executor size",
				yaml: "data_sources:\n  ds0: {driver: mysql, dsn: x}\nprops:\n  executor_size: -1\n",
				err:  "executor_size must not be negative",
			},
			{
				name: "log level",
				yaml: "data_sources:\n  ds0: {driver: mysql, dsn: x}\nlog_level: loud\n",
				err:  "invalid log_level",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				config, err := LoadConfig(strings.NewReader(tt.yaml))
				require.Nil(t, config)
				require.ErrorContains(t, err, tt.err)
			})
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "shardexec.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), consts.ModeFile))

		config, err := LoadConfigFile(path)
		require.NoError(t, err)
		validateTestConfig(t, config)
	})

	t.Run("error", func(t *testing.T) {
		config, err := LoadConfigFile("nonexistent.yaml")
		require.Nil(t, config)
		require.ErrorContains(t, err, "failed to open file")
	})
}

func validateTestConfig(t *testing.T, config *Config) {
	t.Helper()

	require.Equal(t, []string{"ds0", "ds1"}, config.DataSourceNames())

	ds0 := config.DataSources["ds0"]
	require.Equal(t, "clickhouse", ds0.Driver)
	require.Equal(t, "clickhouse://default:@localhost:9000/db0", ds0.DSN)
	require.Equal(t, 8, ds0.MaxOpenConns)
	require.Equal(t, consts.DefaultMaxIdleConns, ds0.MaxIdleConns)

	ds1 := config.DataSources["ds1"]
	require.Equal(t, "mysql", ds1.Driver)
	require.Equal(t, 2, ds1.MaxIdleConns)
	require.Equal(t, 30*time.Second, ds1.ConnMaxLifetime)

	require.Equal(t, Props{MaxConnectionsSizePerQuery: 2, ExecutorSize: 4, ExceptionThrown: false}, config.Props)
	require.Equal(t, []string{"t_config", "t_region"}, config.BroadcastTables)

	level, err := config.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

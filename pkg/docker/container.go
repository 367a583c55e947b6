package docker

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/config"
	"github.com/pseudomuto/shardexec/pkg/consts"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	httpPort = nat.Port("8123/tcp")

	initDBDir = "/docker-entrypoint-initdb.d"
)

type (
	// Options configures a ClickHouse shard container.
	Options struct {
		// Version of the clickhouse-server image. Defaults to
		// consts.DefaultClickHouseVersion.
		Version string

		// Database created on startup and used by the DSN. Defaults to "default".
		Database string

		// InitDir is an optional directory of *.sql scripts run when the
		// container starts. Relative paths are resolved against the working
		// directory.
		InitDir string
	}

	// Shard is a disposable ClickHouse server acting as one data source.
	Shard struct {
		options   Options
		container *clickhouse.ClickHouseContainer
	}
)

// NewShard creates a Shard. Nothing runs until Start is called.
//
// Example:
//
//	shard := docker.NewShard(docker.Options{Database: "db0", InitDir: "testdata/ds0"})
//	if err := shard.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer shard.Stop(ctx)
//
//	ds, _ := shard.DataSource(ctx)
func NewShard(opts Options) *Shard {
	if opts.Version == "" {
		opts.Version = consts.DefaultClickHouseVersion
	}

	if opts.Database == "" {
		opts.Database = "default"
	}

	return &Shard{options: opts}
}

// Start runs the container and waits for the HTTP interface to respond.
func (s *Shard) Start(ctx context.Context) error {
	if s.container != nil {
		return errors.New("shard is already running")
	}

	customizers := []testcontainers.ContainerCustomizer{
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase(s.options.Database),
		testcontainers.WithEnv(map[string]string{"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1"}),
		testcontainers.WithWaitStrategyAndDeadline(
			5*time.Minute,
			wait.
				NewHTTPStrategy("/").
				WithPort(httpPort).
				WithStatusCodeMatcher(func(status int) bool {
					return status == 200
				}),
		),
	}

	if s.options.InitDir != "" {
		dir, err := filepath.Abs(s.options.InitDir)
		if err != nil {
			return errors.Wrapf(err, "failed to get absolute path for InitDir: %s", s.options.InitDir)
		}

		customizers = append(
			customizers,
			testcontainers.WithHostConfigModifier(func(hostConfig *container.HostConfig) {
				hostConfig.Mounts = []mount.Mount{
					{
						Type:     mount.TypeBind,
						Source:   dir,
						Target:   initDBDir,
						ReadOnly: true,
					},
				}
			}),
		)
	}

	c, err := clickhouse.Run(ctx,
		fmt.Sprintf("clickhouse/clickhouse-server:%s-alpine", s.options.Version),
		customizers...,
	)
	if err != nil {
		return errors.Wrap(err, "failed to start ClickHouse shard")
	}

	s.container = c
	return nil
}

// Stop terminates the container. Stopping a Shard that is not running is a
// no-op.
func (s *Shard) Stop(ctx context.Context) error {
	if s.container == nil {
		return nil
	}

	err := s.container.Terminate(ctx)
	s.container = nil

	return errors.Wrap(err, "failed to stop ClickHouse shard")
}

// DSN returns the native protocol DSN of the running shard.
func (s *Shard) DSN(ctx context.Context) (string, error) {
	if s.container == nil {
		return "", errors.New("shard is not running")
	}

	dsn, err := s.container.ConnectionString(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to get connection string")
	}

	return dsn, nil
}

// DataSource returns a data source configuration pointing at the shard.
func (s *Shard) DataSource(ctx context.Context) (config.DataSource, error) {
	dsn, err := s.DSN(ctx)
	if err != nil {
		return config.DataSource{}, err
	}

	return config.DataSource{
		Driver:          "clickhouse",
		DSN:             dsn,
		MaxOpenConns:    consts.DefaultMaxOpenConns,
		MaxIdleConns:    consts.DefaultMaxIdleConns,
		ConnMaxLifetime: consts.DefaultConnMaxLifetime,
	}, nil
}

// IsRunning reports whether Start succeeded and Stop has not been called.
func (s *Shard) IsRunning() bool {
	return s.container != nil
}

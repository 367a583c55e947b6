package datasource

import (
	"database/sql"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/config"
)

// Supported drivers.
const (
	DriverClickHouse = "clickhouse"
	DriverMySQL      = "mysql"
)

// Open creates the connection pool for ds. No connection is established until
// the pool is first used.
func Open(ds config.DataSource) (*sql.DB, error) {
	var db *sql.DB

	switch ds.Driver {
	case DriverClickHouse:
		opts, err := clickhouse.ParseDSN(ds.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse clickhouse dsn")
		}
		db = clickhouse.OpenDB(opts)
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(ds.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse mysql dsn")
		}

		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create mysql connector")
		}
		db = sql.OpenDB(connector)
	default:
		return nil, errors.Errorf("unsupported driver %q", ds.Driver)
	}

	db.SetMaxOpenConns(ds.MaxOpenConns)
	db.SetMaxIdleConns(ds.MaxIdleConns)
	db.SetConnMaxLifetime(ds.ConnMaxLifetime)

	return db, nil
}

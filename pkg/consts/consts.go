package consts

import (
	"os"
	"time"
)

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// DefaultConfigFile is the config file looked up in the working directory
	DefaultConfigFile = "shardexec.yaml"

	// DefaultMaxConnectionsSizePerQuery is the connection budget per data source
	// for a single logical statement
	DefaultMaxConnectionsSizePerQuery = 1

	// DefaultExecutorSize of 0 leaves group fan-out unbounded
	DefaultExecutorSize = 0

	// DefaultExceptionThrown selects fail-fast execution
	DefaultExceptionThrown = true

	// DefaultLogLevel is used when the config omits log_level
	DefaultLogLevel = "info"

	// DefaultMaxOpenConns is applied to data sources without max_open_conns
	DefaultMaxOpenConns = 16

	// DefaultMaxIdleConns is applied to data sources without max_idle_conns
	DefaultMaxIdleConns = 4

	// DefaultConnMaxLifetime is applied to data sources without conn_max_lifetime
	DefaultConnMaxLifetime = 5 * time.Minute

	// DefaultClickHouseVersion is the image tag used for integration backends
	DefaultClickHouseVersion = "25.7"
)

package config

import (
	"os"

	"github.com/pseudomuto/shardexec/pkg/consts"
	"go.uber.org/fx"
)

// EnvConfigFile names the environment variable overriding the config path.
const EnvConfigFile = "SHARDEXEC_CONFIG"

var Module = fx.Module("config", fx.Provide(
	// Loads the configuration from $SHARDEXEC_CONFIG or shardexec.yaml. Returns
	// nil if the file doesn't exist so commands that work without one (like
	// groups) still run.
	func() (*Config, error) {
		path := os.Getenv(EnvConfigFile)
		if path == "" {
			path = consts.DefaultConfigFile
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		}

		return LoadConfigFile(path)
	},
))

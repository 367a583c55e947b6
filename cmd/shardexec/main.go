package main

import (
	"context"
	"os"

	"github.com/pseudomuto/shardexec/pkg/cmd"
	"github.com/pseudomuto/shardexec/pkg/config"
	"github.com/pseudomuto/shardexec/pkg/datasource"
	"go.uber.org/fx"
)

// NB: These are set by GoReleaser during a build.
var (
	version string
	commit  string
	date    string
)

func main() {
	fx.New(
		fx.NopLogger,
		fx.Supply(
			os.Args,
			&cmd.Version{Version: version, Commit: commit, Timestamp: date},
		),
		fx.Provide(context.Background),
		config.Module,
		datasource.Module,
		cmd.Module,
	).Run()
}

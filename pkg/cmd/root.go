package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/config"
	"github.com/pseudomuto/shardexec/pkg/consts"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run registers the CLI application to run once the fx app has started, and
// shuts the app down with the command's exit code when it returns.
//
// Example usage:
//
//	fx.New(
//		fx.Supply(os.Args, &cmd.Version{Version: "v0.1.0"}),
//		fx.Provide(func() context.Context { return ctx }),
//		config.Module,
//		datasource.Module,
//		cmd.Module,
//	).Run()
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := &cli.Command{
		Name:  "shardexec",
		Usage: "Execute routed statements across sharded data sources",
		Description: `shardexec takes statements that have already been routed to their data
sources, groups them onto connections under a per-statement connection
budget, executes them and merges the physical results.`,
		Version:  p.Version.Version,
		Commands: p.Commands,
	}

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

// NewLogger creates the text logger used by every component, at the level
// from cfg or the default level when there is no config.
func NewLogger(cfg *config.Config) (*slog.Logger, error) {
	return newLogger(os.Stderr, cfg)
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(consts.DefaultLogLevel)); err != nil {
		return nil, err
	}

	if cfg != nil {
		l, err := cfg.Level()
		if err != nil {
			return nil, err
		}
		level = l
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func requireConfig(cfg *config.Config) func(context.Context, *cli.Command) (context.Context, error) {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cfg == nil {
			return ctx, errors.Errorf("%s not found", consts.DefaultConfigFile)
		}

		return ctx, nil
	}
}

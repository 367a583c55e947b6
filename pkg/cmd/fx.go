package cmd

import (
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module("cli",
	fx.Provide(
		NewLogger,
		fx.Annotate(execCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(groupsCmd, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(slog.SetDefault),
	fx.Invoke(Run),
)

package datasource

import (
	"context"
	"log/slog"

	"github.com/pseudomuto/shardexec/pkg/config"
	"github.com/pseudomuto/shardexec/pkg/metadata"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Config    *config.Config
	Lifecycle fx.Lifecycle
	Logger    *slog.Logger `optional:"true"`
}

var Module = fx.Module("datasource", fx.Provide(
	// Opens the configured data sources. Without a config there is nothing to
	// open and a nil Manager is provided; commands that need one check the
	// config first.
	func(p Params) (*Manager, error) {
		if p.Config == nil {
			return nil, nil
		}

		m, err := New(p.Config, p.Logger)
		if err != nil {
			return nil, err
		}

		p.Lifecycle.Append(fx.StopHook(func(context.Context) error {
			return m.Close()
		}))

		return m, nil
	},
	func(m *Manager) metadata.TableLoader {
		if m == nil {
			return nil
		}

		return NewTableLoader(m)
	},
))

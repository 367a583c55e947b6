package metadata

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pseudomuto/shardexec/pkg/route"
)

type (
	// Refresher applies the refresh strategy of a statement to SchemaMetaData.
	// Refreshes are serialized.
	Refresher struct {
		mu     sync.Mutex
		md     *SchemaMetaData
		loader TableLoader
		logger *slog.Logger
	}

	// RefresherConfig configures a Refresher.
	RefresherConfig struct {
		MetaData *SchemaMetaData
		Loader   TableLoader
		Logger   *slog.Logger
	}
)

// NewRefresher creates a Refresher. A nil MetaData starts from an empty
// schema.
func NewRefresher(cfg RefresherConfig) *Refresher {
	md := cfg.MetaData
	if md == nil {
		md = NewSchemaMetaData()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Refresher{md: md, loader: cfg.Loader, logger: logger}
}

// MetaData returns the schema the refresher updates.
func (r *Refresher) MetaData() *SchemaMetaData {
	return r.md
}

// Refresh updates the schema for sc. Statements that do not change schema are
// a no-op.
func (r *Refresher) Refresh(ctx context.Context, sc *route.StatementContext) error {
	strategy, ok := Resolve(sc)
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("refreshing metadata",
		slog.String("statement", string(sc.Type)),
		slog.Any("tables", sc.Tables),
	)

	return strategy.Refresh(ctx, r.md, sc, r.loader)
}

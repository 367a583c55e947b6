package metadata

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/route"
)

type (
	// TableLoader reads the definition of a logical table from the backends.
	TableLoader interface {
		Load(ctx context.Context, table string) (*TableMetaData, error)
	}

	// TableLoaderFunc adapts a function to TableLoader.
	TableLoaderFunc func(ctx context.Context, table string) (*TableMetaData, error)

	// RefreshStrategy updates md in place for a statement of a given shape.
	RefreshStrategy interface {
		Refresh(ctx context.Context, md *SchemaMetaData, sc *route.StatementContext, loader TableLoader) error
	}

	// CreateTableStrategy handles CREATE TABLE.
	CreateTableStrategy struct{}

	// AlterTableStrategy handles ALTER TABLE.
	AlterTableStrategy struct{}

	// DropTableStrategy handles DROP TABLE.
	DropTableStrategy struct{}

	// CreateIndexStrategy handles CREATE INDEX.
	CreateIndexStrategy struct{}

	// DropIndexStrategy handles DROP INDEX.
	DropIndexStrategy struct{}
)

// Load implements TableLoader.
func (f TableLoaderFunc) Load(ctx context.Context, table string) (*TableMetaData, error) {
	return f(ctx, table)
}

// Resolve returns the strategy for the statement shape, if any.
func Resolve(sc *route.StatementContext) (RefreshStrategy, bool) {
	if sc == nil {
		return nil, false
	}

	switch sc.Type {
	case route.CreateTable:
		return CreateTableStrategy{}, true
	case route.AlterTable:
		return AlterTableStrategy{}, true
	case route.DropTable:
		return DropTableStrategy{}, true
	case route.CreateIndex:
		return CreateIndexStrategy{}, true
	case route.DropIndex:
		return DropIndexStrategy{}, true
	default:
		return nil, false
	}
}

// Refresh loads the created table and adds it.
func (CreateTableStrategy) Refresh(ctx context.Context, md *SchemaMetaData, sc *route.StatementContext, loader TableLoader) error {
	return reload(ctx, md, sc.TableNames(), loader)
}

// Refresh reloads the altered table.
func (AlterTableStrategy) Refresh(ctx context.Context, md *SchemaMetaData, sc *route.StatementContext, loader TableLoader) error {
	return reload(ctx, md, sc.TableNames(), loader)
}

// Refresh removes every dropped table.
func (DropTableStrategy) Refresh(_ context.Context, md *SchemaMetaData, sc *route.StatementContext, _ TableLoader) error {
	for _, name := range sc.TableNames() {
		md.Remove(name)
	}

	return nil
}

// Refresh adds the index to its table. Unknown tables are ignored.
func (CreateIndexStrategy) Refresh(_ context.Context, md *SchemaMetaData, sc *route.StatementContext, _ TableLoader) error {
	if sc.Index == "" {
		return errors.New("create index statement has no index name")
	}

	for _, name := range sc.TableNames() {
		md.update(name, func(t *TableMetaData) { t.addIndex(sc.Index) })
	}

	return nil
}

// Refresh removes the index from the table named by the statement or, when
// none is named, from the table that owns it.
func (DropIndexStrategy) Refresh(_ context.Context, md *SchemaMetaData, sc *route.StatementContext, _ TableLoader) error {
	if sc.Index == "" {
		return errors.New("drop index statement has no index name")
	}

	tables := sc.TableNames()
	if len(tables) == 0 {
		owner, ok := md.findIndexOwner(sc.Index)
		if !ok {
			return nil
		}
		tables = []string{owner}
	}

	for _, name := range tables {
		md.update(name, func(t *TableMetaData) { t.removeIndex(sc.Index) })
	}

	return nil
}

func reload(ctx context.Context, md *SchemaMetaData, tables []string, loader TableLoader) error {
	if loader == nil {
		return errors.New("no table loader configured")
	}

	for _, name := range tables {
		t, err := loader.Load(ctx, name)
		if err != nil {
			return errors.Wrapf(err, "failed to load table %s", name)
		}

		if t == nil {
			md.Remove(name)
			continue
		}

		if t.Name == "" {
			t.Name = name
		}
		md.Put(t)
	}

	return nil
}

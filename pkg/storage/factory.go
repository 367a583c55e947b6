package storage

import (
	"context"

	"github.com/pseudomuto/shardexec/pkg/group"
	"github.com/pseudomuto/shardexec/pkg/route"
)

type (
	// StatementFactory creates plain statements.
	StatementFactory struct{}

	// PreparedStatementFactory prepares each unit's SQL and binds its
	// parameters.
	PreparedStatementFactory struct{}
)

// CreateUnit implements group.StorageResourceFactory.
func (StatementFactory) CreateUnit(_ context.Context, _ route.ExecutionUnit, conn Conn, mode group.ConnectionMode, opt Option) (*Statement, error) {
	return NewStatement(conn, mode, opt), nil
}

// CreateUnit implements group.StorageResourceFactory.
func (PreparedStatementFactory) CreateUnit(ctx context.Context, unit route.ExecutionUnit, conn Conn, mode group.ConnectionMode, opt Option) (*Statement, error) {
	return Prepare(ctx, conn, unit.SQLUnit.SQL, unit.SQLUnit.Parameters, mode, opt)
}

// NewEngine creates a grouping engine producing plain statements.
func NewEngine(maxConnectionsSizePerQuery int) *group.Engine[Conn, *Statement, Option] {
	return group.NewEngine[Conn, *Statement, Option](maxConnectionsSizePerQuery, StatementFactory{})
}

// NewPreparedEngine creates a grouping engine producing prepared statements.
func NewPreparedEngine(maxConnectionsSizePerQuery int) *group.Engine[Conn, *Statement, Option] {
	return group.NewEngine[Conn, *Statement, Option](maxConnectionsSizePerQuery, PreparedStatementFactory{})
}

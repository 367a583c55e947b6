package sharding

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/executor"
	"github.com/pseudomuto/shardexec/pkg/route"
	"github.com/pseudomuto/shardexec/pkg/storage"
	"go.uber.org/multierr"
)

// PreparedStatement executes routed statements as prepared physical
// statements bound to the unit parameters, and batches them.
type PreparedStatement struct {
	*Statement

	batch *executor.BatchExecutor
}

// NewPreparedStatement creates a PreparedStatement from cfg.
func NewPreparedStatement(cfg Config) *PreparedStatement {
	return &PreparedStatement{
		Statement: newStatement(cfg, storage.NewPreparedEngine(cfg.maxConnectionsSizePerQuery())),
		batch:     executor.NewBatchExecutor(cfg.Executor),
	}
}

// AddBatch records the routed units of one logical batch entry.
func (p *PreparedStatement) AddBatch(units []route.ExecutionUnit) error {
	if p.closed {
		return errors.New("statement is closed")
	}

	p.batch.AddBatchForExecutionUnits(units)
	return nil
}

// BatchCount returns the number of logical batch entries recorded since the
// last ExecuteBatch or ClearBatch.
func (p *PreparedStatement) BatchCount() int {
	return p.batch.BatchCount()
}

// ExecuteBatch runs every recorded batch entry and returns the affected row
// counts in logical entry order. The batch is cleared afterwards, whether it
// succeeded or not.
func (p *PreparedStatement) ExecuteBatch(ctx context.Context, sc *route.StatementContext) (counts []int, err error) {
	if p.closed {
		return nil, errors.New("statement is closed")
	}

	defer func() {
		err = multierr.Append(err, p.ClearBatch())
	}()

	if err := p.reset(); err != nil {
		return nil, errors.Wrap(err, "failed to release previous execution")
	}

	groups, err := p.engine.Generate(ctx, p.batch.ExecutionUnits(), p.provider, p.option)
	if err != nil {
		return nil, err
	}

	p.batch.Init(groups)

	for _, stmt := range p.batch.Statements() {
		sets, err := p.batch.ParameterSets(stmt)
		if err != nil {
			return nil, err
		}

		for _, params := range sets {
			stmt.AddBatch(params)
		}
	}

	return p.batch.ExecuteBatch(ctx, sc, p.opts)
}

// ClearBatch drops the recorded entries and releases the batch statements.
func (p *PreparedStatement) ClearBatch() error {
	return p.batch.Clear()
}

// Close releases the last execution and any pending batch.
func (p *PreparedStatement) Close() error {
	if p.closed {
		return nil
	}

	return multierr.Append(p.Statement.Close(), p.ClearBatch())
}

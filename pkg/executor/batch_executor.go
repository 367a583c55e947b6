package executor

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/group"
	"github.com/pseudomuto/shardexec/pkg/route"
	"github.com/pseudomuto/shardexec/pkg/storage"
)

// BatchExecutor folds logical batch calls into physical batch units and
// executes them.
//
// A BatchExecutor belongs to one logical prepared statement and is not safe
// for concurrent use. Its lifecycle is AddBatchForExecutionUnits (repeatedly),
// Init with the input groups generated from BatchExecutionUnits, ExecuteBatch
// once, then Clear.
type BatchExecutor struct {
	pool       *Pool
	classifier Classifier
	logger     *slog.Logger

	groups     []*group.InputGroup[*storage.Statement]
	units      []*BatchExecutionUnit
	index      *batchIndex
	batchCount int
}

// NewBatchExecutor creates a BatchExecutor from cfg. The Refresher of cfg is
// not used; batches do not change schema.
func NewBatchExecutor(cfg Config) *BatchExecutor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool := cfg.Pool
	if pool == nil {
		pool = NewPool(0, logger)
	}

	return &BatchExecutor{
		pool:       pool,
		classifier: cfg.Classifier,
		logger:     logger,
		index:      newBatchIndex(),
	}
}

// Init sets the input groups the batch runs on.
func (b *BatchExecutor) Init(groups []*group.InputGroup[*storage.Statement]) {
	b.groups = groups
}

// AddBatchForExecutionUnits records one logical batch call. Units whose data
// source and SQL match an existing batch unit are merged into it; the rest
// start new batch units. Either way the current logical batch index is mapped
// to the slot the parameters landed in.
//
// When one call routes the same target twice both parameter sets are kept and
// the logical index maps to the later slot.
func (b *BatchExecutor) AddBatchForExecutionUnits(units []route.ExecutionUnit) {
	for _, unit := range units {
		bu := b.index.find(unit.Target())
		if bu == nil {
			bu = newBatchExecutionUnit(unit)
			b.index.put(bu)
			b.units = append(b.units, bu)
		}

		bu.add(b.batchCount, unit.SQLUnit.Parameters)
	}

	b.batchCount++
}

// ExecuteBatch runs the physical batch of every statement and returns the
// affected row counts in logical batch order.
//
// When every table of sc is a broadcast table the first physical result is
// returned as-is.
func (b *BatchExecutor) ExecuteBatch(ctx context.Context, sc *route.StatementContext, opts Options) ([]int, error) {
	cb := func(ctx context.Context, _ route.ExecutionUnit, stmt *storage.Statement, _ group.ConnectionMode) ([]int, error) {
		return stmt.ExecuteBatch(ctx)
	}

	results, err := Execute(ctx, b.pool, b.groups, cb, opts)
	if err != nil && opts.ExceptionThrown {
		return nil, err
	}

	if isAllBroadcast(b.classifier, sc) {
		if len(results) == 0 {
			return make([]int, b.batchCount), err
		}

		return results[0], err
	}

	return b.accumulate(results), err
}

// accumulate maps physical results, ordered like the units of the input
// groups, back onto logical batch indexes.
func (b *BatchExecutor) accumulate(results [][]int) []int {
	logical := make([]int, b.batchCount)

	i := 0
	for _, g := range b.groups {
		for _, in := range g.Inputs {
			physical := results[i]
			i++

			bu := b.index.find(in.Unit.Target())
			if bu == nil {
				b.logger.Warn("no batch unit for executed statement", slog.String("unit", in.Unit.String()))
				continue
			}

			for logicalIndex, slot := range bu.actualIndexes {
				if logicalIndex < len(logical) && slot < len(physical) {
					logical[logicalIndex] += physical[slot]
				}
			}
		}
	}

	return logical
}

// Statements returns the physical statements of the input groups in group and
// unit order.
func (b *BatchExecutor) Statements() []*storage.Statement {
	var result []*storage.Statement
	for _, g := range b.groups {
		result = append(result, g.Resources()...)
	}

	return result
}

// ParameterSets returns the parameter sets to batch on stmt. It fails with
// ErrInvariantViolation when stmt is not part of the input groups or no batch
// unit targets its data source and SQL.
func (b *BatchExecutor) ParameterSets(stmt *storage.Statement) ([][]any, error) {
	for _, g := range b.groups {
		for _, in := range g.Inputs {
			if in.Resource != stmt {
				continue
			}

			bu := b.index.find(in.Unit.Target())
			if bu == nil {
				return nil, errors.Wrapf(ErrInvariantViolation, "no batch unit for %s", in.Unit)
			}

			return bu.ParameterSets, nil
		}
	}

	return nil, errors.Wrap(ErrInvariantViolation, "statement is not part of the batch")
}

// BatchExecutionUnits returns the batch units in first-seen order.
func (b *BatchExecutor) BatchExecutionUnits() []*BatchExecutionUnit {
	return b.units
}

// ExecutionUnits returns the execution unit of every batch unit in first-seen
// order, ready to be grouped.
func (b *BatchExecutor) ExecutionUnits() []route.ExecutionUnit {
	result := make([]route.ExecutionUnit, 0, len(b.units))
	for _, bu := range b.units {
		result = append(result, bu.Unit)
	}

	return result
}

// BatchCount returns the number of logical batch calls recorded.
func (b *BatchExecutor) BatchCount() int {
	return b.batchCount
}

// Clear closes every statement and connection of the input groups and resets
// the executor. It is safe to call on an executor with no batch.
func (b *BatchExecutor) Clear() error {
	err := group.CloseGroups(b.groups)

	b.groups = nil
	b.units = nil
	b.index = newBatchIndex()
	b.batchCount = 0

	return err
}

package executor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pseudomuto/shardexec/pkg/group"
	"github.com/pseudomuto/shardexec/pkg/route"
	"github.com/pseudomuto/shardexec/pkg/storage"
	"go.uber.org/multierr"
)

type (
	// Classifier decides whether a set of logical tables are all broadcast
	// tables, i.e. replicated identically to every data source.
	Classifier interface {
		IsAllBroadcastTables(tables []string) bool
	}

	// Refresher updates schema metadata after a statement has run. It is
	// expected to be a no-op for statements that do not change schema.
	Refresher interface {
		Refresh(ctx context.Context, sc *route.StatementContext) error
	}

	// Config holds the collaborators shared by the statement and batch
	// executors. Only Pool is required to be meaningful; a nil Pool runs
	// with unbounded concurrency.
	Config struct {
		Pool       *Pool
		Classifier Classifier
		Refresher  Refresher
		Logger     *slog.Logger
	}

	// StatementExecutor executes a single logical statement over its input
	// groups.
	StatementExecutor struct {
		pool       *Pool
		classifier Classifier
		refresher  Refresher
		logger     *slog.Logger
	}
)

// NewStatementExecutor creates a StatementExecutor from cfg.
func NewStatementExecutor(cfg Config) *StatementExecutor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool := cfg.Pool
	if pool == nil {
		pool = NewPool(0, logger)
	}

	return &StatementExecutor{
		pool:       pool,
		classifier: cfg.Classifier,
		refresher:  cfg.Refresher,
		logger:     logger,
	}
}

// ExecuteQuery runs every unit as a query and returns one QueryResult per
// physical statement in group and unit order. Units that own their connection
// are streamed; units sharing one are buffered.
//
// When execution stops on the first failure, results opened by the units that
// succeeded are closed before the error is returned.
func (e *StatementExecutor) ExecuteQuery(ctx context.Context, groups []*group.InputGroup[*storage.Statement], opts Options) ([]QueryResult, error) {
	var (
		mu     sync.Mutex
		opened []QueryResult
	)

	cb := func(ctx context.Context, unit route.ExecutionUnit, stmt *storage.Statement, mode group.ConnectionMode) (QueryResult, error) {
		res, err := queryCallback(ctx, unit, stmt, mode)
		if err != nil {
			return nil, err
		}

		mu.Lock()
		opened = append(opened, res)
		mu.Unlock()

		return res, nil
	}

	results, err := Execute(ctx, e.pool, groups, cb, opts)
	if err != nil && opts.ExceptionThrown {
		for _, res := range opened {
			err = multierr.Append(err, res.Close())
		}

		return nil, err
	}

	return results, err
}

// ExecuteUpdate runs every unit as an update and returns the logical update
// count.
func (e *StatementExecutor) ExecuteUpdate(ctx context.Context, groups []*group.InputGroup[*storage.Statement], sc *route.StatementContext, opts Options) (int, error) {
	return e.executeUpdate(ctx, groups, sc, opts, storage.NoKeys)
}

// ExecuteUpdateWithGeneratedKeys is ExecuteUpdate recording generated keys on
// every statement when autoGeneratedKeys is set.
func (e *StatementExecutor) ExecuteUpdateWithGeneratedKeys(ctx context.Context, groups []*group.InputGroup[*storage.Statement], sc *route.StatementContext, opts Options, autoGeneratedKeys bool) (int, error) {
	return e.executeUpdate(ctx, groups, sc, opts, storage.Keys{Auto: autoGeneratedKeys})
}

// ExecuteUpdateWithColumnIndexes is ExecuteUpdate recording the generated
// keys of the given columns.
func (e *StatementExecutor) ExecuteUpdateWithColumnIndexes(ctx context.Context, groups []*group.InputGroup[*storage.Statement], sc *route.StatementContext, opts Options, columnIndexes []int) (int, error) {
	return e.executeUpdate(ctx, groups, sc, opts, storage.Keys{ColumnIndexes: columnIndexes})
}

// ExecuteUpdateWithColumnNames is ExecuteUpdate recording the generated keys
// of the named columns.
func (e *StatementExecutor) ExecuteUpdateWithColumnNames(ctx context.Context, groups []*group.InputGroup[*storage.Statement], sc *route.StatementContext, opts Options, columnNames []string) (int, error) {
	return e.executeUpdate(ctx, groups, sc, opts, storage.Keys{ColumnNames: columnNames})
}

// Execute runs every unit and reports whether the first physical statement
// produced a result set.
func (e *StatementExecutor) Execute(ctx context.Context, groups []*group.InputGroup[*storage.Statement], sc *route.StatementContext, opts Options) (bool, error) {
	return e.execute(ctx, groups, sc, opts, storage.NoKeys)
}

// ExecuteWithGeneratedKeys is Execute with generated key retrieval.
func (e *StatementExecutor) ExecuteWithGeneratedKeys(ctx context.Context, groups []*group.InputGroup[*storage.Statement], sc *route.StatementContext, opts Options, autoGeneratedKeys bool) (bool, error) {
	return e.execute(ctx, groups, sc, opts, storage.Keys{Auto: autoGeneratedKeys})
}

// ExecuteWithColumnIndexes is Execute with generated key retrieval by column
// index.
func (e *StatementExecutor) ExecuteWithColumnIndexes(ctx context.Context, groups []*group.InputGroup[*storage.Statement], sc *route.StatementContext, opts Options, columnIndexes []int) (bool, error) {
	return e.execute(ctx, groups, sc, opts, storage.Keys{ColumnIndexes: columnIndexes})
}

// ExecuteWithColumnNames is Execute with generated key retrieval by column
// name.
func (e *StatementExecutor) ExecuteWithColumnNames(ctx context.Context, groups []*group.InputGroup[*storage.Statement], sc *route.StatementContext, opts Options, columnNames []string) (bool, error) {
	return e.execute(ctx, groups, sc, opts, storage.Keys{ColumnNames: columnNames})
}

func (e *StatementExecutor) executeUpdate(ctx context.Context, groups []*group.InputGroup[*storage.Statement], sc *route.StatementContext, opts Options, keys storage.Keys) (int, error) {
	cb := func(ctx context.Context, unit route.ExecutionUnit, stmt *storage.Statement, _ group.ConnectionMode) (int, error) {
		return stmt.ExecUpdate(ctx, unit.SQLUnit.SQL, keys)
	}

	results, err := Execute(ctx, e.pool, groups, cb, opts)
	if err != nil {
		if opts.ExceptionThrown {
			return 0, err
		}

		return e.accumulate(sc, results), err
	}

	return e.accumulate(sc, results), e.refresh(ctx, sc)
}

func (e *StatementExecutor) execute(ctx context.Context, groups []*group.InputGroup[*storage.Statement], sc *route.StatementContext, opts Options, keys storage.Keys) (bool, error) {
	cb := func(ctx context.Context, unit route.ExecutionUnit, stmt *storage.Statement, mode group.ConnectionMode) (bool, error) {
		ok, err := stmt.Execute(ctx, unit.SQLUnit.SQL, keys)
		if err != nil || !ok || mode != group.ConnectionStrictly {
			return ok, err
		}

		return true, bufferResultSet(stmt)
	}

	results, err := Execute(ctx, e.pool, groups, cb, opts)
	if err != nil {
		if opts.ExceptionThrown {
			return false, err
		}

		return first(results), err
	}

	return first(results), e.refresh(ctx, sc)
}

// accumulate merges physical update counts. Broadcast tables hold the same
// rows everywhere, so the first count stands for all of them.
func (e *StatementExecutor) accumulate(sc *route.StatementContext, results []int) int {
	if isAllBroadcast(e.classifier, sc) {
		return first(results)
	}

	total := 0
	for _, n := range results {
		total += n
	}

	return total
}

func (e *StatementExecutor) refresh(ctx context.Context, sc *route.StatementContext) error {
	if e.refresher == nil || sc == nil {
		return nil
	}

	if err := e.refresher.Refresh(ctx, sc); err != nil {
		e.logger.Error("metadata refresh failed",
			slog.String("statement", string(sc.Type)),
			slog.Any("tables", sc.Tables),
			slog.Any("error", err),
		)
		return &MetadataRefreshError{Err: err}
	}

	return nil
}

func queryCallback(ctx context.Context, unit route.ExecutionUnit, stmt *storage.Statement, mode group.ConnectionMode) (QueryResult, error) {
	rows, err := stmt.Query(ctx, unit.SQLUnit.SQL)
	if err != nil {
		return nil, err
	}

	if mode == group.ConnectionStrictly {
		res, err := NewMemoryQueryResult(rows)
		if err != nil {
			return nil, err
		}

		return res, nil
	}

	return NewStreamQueryResult(rows), nil
}

// bufferResultSet reads the statement's result set into memory, releasing the
// connection it shares with the rest of its group.
func bufferResultSet(stmt *storage.Statement) error {
	res, err := NewMemoryQueryResult(stmt.ResultSet())
	if err != nil {
		stmt.SetResultSet(nil)
		return err
	}

	stmt.SetResultSet(res)
	return nil
}

func isAllBroadcast(c Classifier, sc *route.StatementContext) bool {
	if c == nil {
		return false
	}

	return c.IsAllBroadcastTables(sc.TableNames())
}

func first[R any](results []R) R {
	var zero R
	if len(results) == 0 {
		return zero
	}

	return results[0]
}

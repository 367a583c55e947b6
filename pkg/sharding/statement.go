package sharding

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/consts"
	"github.com/pseudomuto/shardexec/pkg/executor"
	"github.com/pseudomuto/shardexec/pkg/group"
	"github.com/pseudomuto/shardexec/pkg/route"
	"github.com/pseudomuto/shardexec/pkg/storage"
	"go.uber.org/multierr"
)

type (
	// Config holds what a logical statement needs to reach the data sources.
	Config struct {
		// Provider hands out physical connections per data source
		Provider group.ConnectionProvider[storage.Conn]

		// MaxConnectionsSizePerQuery is the connection budget per data source
		// for one logical statement. Values below 1 use the default.
		MaxConnectionsSizePerQuery int

		// ExceptionThrown stops at the first physical failure
		ExceptionThrown bool

		// Option is passed to every physical statement
		Option storage.Option

		// Executor configures the fan-out
		Executor executor.Config
	}

	// Statement executes routed statements as plain physical statements.
	Statement struct {
		provider group.ConnectionProvider[storage.Conn]
		engine   *group.Engine[storage.Conn, *storage.Statement, storage.Option]
		executor *executor.StatementExecutor
		opts     executor.Options
		option   storage.Option

		ec      *route.ExecutionContext
		groups  []*group.InputGroup[*storage.Statement]
		results []executor.QueryResult
		closed  bool
	}
)

func (c Config) maxConnectionsSizePerQuery() int {
	if c.MaxConnectionsSizePerQuery < 1 {
		return consts.DefaultMaxConnectionsSizePerQuery
	}

	return c.MaxConnectionsSizePerQuery
}

// NewStatement creates a Statement from cfg.
func NewStatement(cfg Config) *Statement {
	return newStatement(cfg, storage.NewEngine(cfg.maxConnectionsSizePerQuery()))
}

func newStatement(cfg Config, engine *group.Engine[storage.Conn, *storage.Statement, storage.Option]) *Statement {
	return &Statement{
		provider: cfg.Provider,
		engine:   engine,
		executor: executor.NewStatementExecutor(cfg.Executor),
		opts:     executor.Options{ExceptionThrown: cfg.ExceptionThrown},
		option:   cfg.Option,
	}
}

// ExecuteQuery runs ec as a query and returns one result per physical
// statement. The results stay valid until the next execution or Close.
func (s *Statement) ExecuteQuery(ctx context.Context, ec *route.ExecutionContext) ([]executor.QueryResult, error) {
	if err := s.generate(ctx, ec); err != nil {
		return nil, err
	}

	results, err := s.executor.ExecuteQuery(ctx, s.groups, s.opts)
	s.results = results

	return results, err
}

// ExecuteUpdate runs ec as an update and returns the logical update count.
func (s *Statement) ExecuteUpdate(ctx context.Context, ec *route.ExecutionContext) (int, error) {
	return run(ctx, s, ec, func(groups []*group.InputGroup[*storage.Statement]) (int, error) {
		return s.executor.ExecuteUpdate(ctx, groups, ec.Statement, s.opts)
	})
}

// ExecuteUpdateWithGeneratedKeys is ExecuteUpdate recording generated keys
// when autoGeneratedKeys is set.
func (s *Statement) ExecuteUpdateWithGeneratedKeys(ctx context.Context, ec *route.ExecutionContext, autoGeneratedKeys bool) (int, error) {
	return run(ctx, s, ec, func(groups []*group.InputGroup[*storage.Statement]) (int, error) {
		return s.executor.ExecuteUpdateWithGeneratedKeys(ctx, groups, ec.Statement, s.opts, autoGeneratedKeys)
	})
}

// ExecuteUpdateWithColumnIndexes is ExecuteUpdate recording the generated keys
// of the given columns.
func (s *Statement) ExecuteUpdateWithColumnIndexes(ctx context.Context, ec *route.ExecutionContext, columnIndexes []int) (int, error) {
	return run(ctx, s, ec, func(groups []*group.InputGroup[*storage.Statement]) (int, error) {
		return s.executor.ExecuteUpdateWithColumnIndexes(ctx, groups, ec.Statement, s.opts, columnIndexes)
	})
}

// ExecuteUpdateWithColumnNames is ExecuteUpdate recording the generated keys
// of the named columns.
func (s *Statement) ExecuteUpdateWithColumnNames(ctx context.Context, ec *route.ExecutionContext, columnNames []string) (int, error) {
	return run(ctx, s, ec, func(groups []*group.InputGroup[*storage.Statement]) (int, error) {
		return s.executor.ExecuteUpdateWithColumnNames(ctx, groups, ec.Statement, s.opts, columnNames)
	})
}

// Execute runs ec and reports whether the first physical statement produced
// a result set. Result sets are available through ResultSets.
func (s *Statement) Execute(ctx context.Context, ec *route.ExecutionContext) (bool, error) {
	return run(ctx, s, ec, func(groups []*group.InputGroup[*storage.Statement]) (bool, error) {
		return s.executor.Execute(ctx, groups, ec.Statement, s.opts)
	})
}

// ExecuteWithGeneratedKeys is Execute recording generated keys when
// autoGeneratedKeys is set.
func (s *Statement) ExecuteWithGeneratedKeys(ctx context.Context, ec *route.ExecutionContext, autoGeneratedKeys bool) (bool, error) {
	return run(ctx, s, ec, func(groups []*group.InputGroup[*storage.Statement]) (bool, error) {
		return s.executor.ExecuteWithGeneratedKeys(ctx, groups, ec.Statement, s.opts, autoGeneratedKeys)
	})
}

// ExecuteWithColumnIndexes is Execute recording the generated keys of the
// given columns.
func (s *Statement) ExecuteWithColumnIndexes(ctx context.Context, ec *route.ExecutionContext, columnIndexes []int) (bool, error) {
	return run(ctx, s, ec, func(groups []*group.InputGroup[*storage.Statement]) (bool, error) {
		return s.executor.ExecuteWithColumnIndexes(ctx, groups, ec.Statement, s.opts, columnIndexes)
	})
}

// ExecuteWithColumnNames is Execute recording the generated keys of the named
// columns.
func (s *Statement) ExecuteWithColumnNames(ctx context.Context, ec *route.ExecutionContext, columnNames []string) (bool, error) {
	return run(ctx, s, ec, func(groups []*group.InputGroup[*storage.Statement]) (bool, error) {
		return s.executor.ExecuteWithColumnNames(ctx, groups, ec.Statement, s.opts, columnNames)
	})
}

// ResultSets returns the result sets produced by the last Execute, in group
// and unit order. They are owned by the statement.
func (s *Statement) ResultSets() []executor.QueryResult {
	var result []executor.QueryResult
	for _, stmt := range s.statements() {
		if rs := stmt.ResultSet(); rs != nil {
			result = append(result, rs)
		}
	}

	return result
}

// GeneratedKeys returns the keys of the last execution. Keys generated while
// routing take precedence over the keys reported by the data sources.
func (s *Statement) GeneratedKeys() []any {
	if key, ok := s.ec.GetGeneratedKey(); ok && key.Generated {
		return key.Values
	}

	var result []any
	for _, stmt := range s.statements() {
		for _, k := range stmt.GeneratedKeys() {
			result = append(result, k)
		}
	}

	return result
}

// Close releases the results, statements and connections of the last
// execution. A closed Statement cannot be executed again.
func (s *Statement) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	return s.reset()
}

func (s *Statement) statements() []*storage.Statement {
	var result []*storage.Statement
	for _, g := range s.groups {
		result = append(result, g.Resources()...)
	}

	return result
}

// generate releases the previous execution and groups the units of ec.
func (s *Statement) generate(ctx context.Context, ec *route.ExecutionContext) error {
	if s.closed {
		return errors.New("statement is closed")
	}

	if ec == nil {
		return errors.New("execution context is required")
	}

	if err := s.reset(); err != nil {
		return errors.Wrap(err, "failed to release previous execution")
	}

	groups, err := s.engine.Generate(ctx, ec.Units, s.provider, s.option)
	if err != nil {
		return err
	}

	s.ec = ec
	s.groups = groups
	return nil
}

// reset closes query results before the groups; streamed rows keep their
// connection busy until closed.
func (s *Statement) reset() error {
	var err error
	for _, r := range s.results {
		if r != nil {
			err = multierr.Append(err, r.Close())
		}
	}

	err = multierr.Append(err, group.CloseGroups(s.groups))

	s.ec = nil
	s.groups = nil
	s.results = nil

	return err
}

func run[R any](ctx context.Context, s *Statement, ec *route.ExecutionContext, fn func([]*group.InputGroup[*storage.Statement]) (R, error)) (R, error) {
	var zero R
	if err := s.generate(ctx, ec); err != nil {
		return zero, err
	}

	return fn(s.groups)
}

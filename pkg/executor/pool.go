package executor

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/group"
	"github.com/pseudomuto/shardexec/pkg/route"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type (
	// Pool bounds how many input groups run at the same time.
	Pool struct {
		size   int
		logger *slog.Logger
	}

	// Options are read once per logical call.
	Options struct {
		// ExceptionThrown selects fail-fast execution. When false every unit
		// runs and failures are returned as an aggregate.
		ExceptionThrown bool
	}

	// Callback runs one execute unit on its storage resource.
	Callback[T, R any] func(ctx context.Context, unit route.ExecutionUnit, resource T, mode group.ConnectionMode) (R, error)
)

// NewPool creates a Pool running at most size groups concurrently. A size of
// 0 or less leaves concurrency unbounded.
func NewPool(size int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{size: size, logger: logger}
}

// Size returns the concurrency bound, 0 meaning unbounded.
func (p *Pool) Size() int {
	return max(p.size, 0)
}

func (p *Pool) limit(g *errgroup.Group) {
	if p.size > 0 {
		g.SetLimit(p.size)
	}
}

// Execute runs cb over every unit of groups and returns one result per unit in
// group and unit order.
//
// With opts.ExceptionThrown the first failure stops every unit that has not
// started yet and is returned without results. Calls already in flight are
// not interrupted. Otherwise all units run
// and the results are returned together with a multierr aggregate of the
// failures; failed units hold the zero value of R.
//
// Every physical failure is reported as an *ExecutionError.
func Execute[T, R any](ctx context.Context, pool *Pool, groups []*group.InputGroup[T], cb Callback[T, R], opts Options) ([]R, error) {
	if pool == nil {
		pool = NewPool(0, nil)
	}

	offsets := make([]int, len(groups))
	total := 0
	for i, g := range groups {
		offsets[i] = total
		total += len(g.Inputs)
	}

	results := make([]R, total)
	if total == 0 {
		return results, nil
	}

	logger := pool.logger.With(slog.String("execution_id", uuid.NewString()))
	logger.Debug("executing input groups",
		slog.Int("groups", len(groups)),
		slog.Int("units", total),
		slog.Bool("exception_thrown", opts.ExceptionThrown),
	)

	if opts.ExceptionThrown {
		var failed atomic.Bool
		eg := new(errgroup.Group)
		pool.limit(eg)

		for i, g := range groups {
			eg.Go(func() error {
				for j, in := range g.Inputs {
					if failed.Load() {
						return nil
					}

					r, err := run(ctx, cb, in)
					if err != nil {
						failed.Store(true)
						return err
					}
					results[offsets[i]+j] = r
				}

				return nil
			})
		}

		if err := eg.Wait(); err != nil {
			return nil, err
		}

		return results, nil
	}

	errs := make([]error, total)
	eg := new(errgroup.Group)
	pool.limit(eg)

	for i, g := range groups {
		eg.Go(func() error {
			for j, in := range g.Inputs {
				r, err := run(ctx, cb, in)
				if err != nil {
					logger.Warn("physical execution failed",
						slog.String("data_source", in.Unit.DataSource),
						slog.String("sql", in.Unit.SQLUnit.SQL),
						slog.Any("error", err),
					)
					errs[offsets[i]+j] = err
					continue
				}
				results[offsets[i]+j] = r
			}

			return nil
		})
	}

	_ = eg.Wait()
	return results, multierr.Combine(errs...)
}

func run[T, R any](ctx context.Context, cb Callback[T, R], in *group.ExecuteUnit[T]) (R, error) {
	r, err := cb(ctx, in.Unit, in.Resource, in.Mode)
	if err == nil {
		return r, nil
	}

	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return r, err
	}

	return r, &ExecutionError{DataSource: in.Unit.DataSource, SQL: in.Unit.SQLUnit.SQL, Err: err}
}

package group

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/route"
	"go.uber.org/multierr"
)

type (
	// ConnectionProvider hands out physical connections for a data source.
	ConnectionProvider[C any] interface {
		GetConnections(ctx context.Context, dataSource string, count int, mode ConnectionMode) ([]C, error)
	}

	// StorageResourceFactory creates the storage resource (statement handle)
	// for one execution unit on an already acquired connection.
	StorageResourceFactory[C, T, O any] interface {
		CreateUnit(ctx context.Context, unit route.ExecutionUnit, conn C, mode ConnectionMode, opt O) (T, error)
	}

	// Engine generates input groups for a logical statement.
	//
	// C is the connection type handed out by the provider, T the storage
	// resource created per unit and O the option value passed through to the
	// factory.
	Engine[C, T, O any] struct {
		maxConnectionsSizePerQuery int
		factory                    StorageResourceFactory[C, T, O]
	}
)

// NewEngine creates an Engine that uses at most maxConnectionsSizePerQuery
// connections per data source for a single logical statement. A budget below
// 1 is treated as 1.
func NewEngine[C, T, O any](maxConnectionsSizePerQuery int, factory StorageResourceFactory[C, T, O]) *Engine[C, T, O] {
	return &Engine[C, T, O]{
		maxConnectionsSizePerQuery: max(maxConnectionsSizePerQuery, 1),
		factory:                    factory,
	}
}

// MaxConnectionsSizePerQuery returns the connection budget of the engine.
func (e *Engine[C, T, O]) MaxConnectionsSizePerQuery() int {
	return e.maxConnectionsSizePerQuery
}

// Generate partitions units into input groups, acquiring one connection per
// group from provider and creating one resource per unit.
//
// On failure every connection and resource acquired so far is released and
// no groups are returned. Provider failures are reported as *ConnectionError.
func (e *Engine[C, T, O]) Generate(ctx context.Context, units []route.ExecutionUnit, provider ConnectionProvider[C], opt O) ([]*InputGroup[T], error) {
	var result []*InputGroup[T]
	for _, p := range Plan(units, e.maxConnectionsSizePerQuery) {
		groups, err := e.generateGroups(ctx, p, provider, opt)
		if err != nil {
			return nil, multierr.Append(err, CloseGroups(result))
		}

		result = append(result, groups...)
	}

	return result, nil
}

func (e *Engine[C, T, O]) generateGroups(ctx context.Context, p Partition, provider ConnectionProvider[C], opt O) ([]*InputGroup[T], error) {
	conns, err := provider.GetConnections(ctx, p.DataSource, len(p.Chunks), p.Mode)
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}

		return nil, &ConnectionError{DataSource: p.DataSource, Count: len(p.Chunks), Err: err}
	}

	if len(conns) < len(p.Chunks) {
		err := errors.Errorf("provider returned %d connection(s)", len(conns))
		return nil, multierr.Append(
			&ConnectionError{DataSource: p.DataSource, Count: len(p.Chunks), Err: err},
			closeAll(conns),
		)
	}

	result := make([]*InputGroup[T], 0, len(p.Chunks))
	for i, chunk := range p.Chunks {
		g, err := e.generateGroup(ctx, chunk, conns[i], p.Mode, opt)
		if err != nil {
			err = multierr.Append(err, CloseGroups(result))
			return nil, multierr.Append(err, closeAll(conns[i+1:]))
		}

		result = append(result, g)
	}

	return result, nil
}

func (e *Engine[C, T, O]) generateGroup(ctx context.Context, units []route.ExecutionUnit, conn C, mode ConnectionMode, opt O) (*InputGroup[T], error) {
	g := NewInputGroup[T](conn)
	for _, unit := range units {
		res, err := e.factory.CreateUnit(ctx, unit, conn, mode, opt)
		if err != nil {
			err = errors.Wrapf(err, "failed to create storage resource for %s", unit)
			return nil, multierr.Append(err, g.Close())
		}

		g.Inputs = append(g.Inputs, &ExecuteUnit[T]{Unit: unit, Resource: res, Mode: mode})
	}

	return g, nil
}

func closeAll[C any](conns []C) error {
	var err error
	for _, c := range conns {
		err = multierr.Append(err, closeIfCloser(c))
	}

	return err
}

package group

import (
	"io"

	"github.com/pseudomuto/shardexec/pkg/route"
	"go.uber.org/multierr"
)

type (
	// ExecuteUnit is a routed unit bound to the storage resource created for
	// it and the connection mode of its data source.
	ExecuteUnit[T any] struct {
		Unit     route.ExecutionUnit
		Resource T
		Mode     ConnectionMode
	}

	// InputGroup is an ordered run of execute units sharing one physical
	// connection. The group owns that connection.
	InputGroup[T any] struct {
		Inputs []*ExecuteUnit[T]

		conn any
	}
)

// NewInputGroup creates a group over conn. If conn implements io.Closer it is
// closed by Close after every resource.
func NewInputGroup[T any](conn any, inputs ...*ExecuteUnit[T]) *InputGroup[T] {
	return &InputGroup[T]{Inputs: inputs, conn: conn}
}

// Resources returns the storage resources of the group in unit order.
func (g *InputGroup[T]) Resources() []T {
	result := make([]T, 0, len(g.Inputs))
	for _, in := range g.Inputs {
		result = append(result, in.Resource)
	}

	return result
}

// Close closes every resource implementing io.Closer and then the shared
// connection. All closes are attempted; errors are combined.
func (g *InputGroup[T]) Close() error {
	var err error
	for _, in := range g.Inputs {
		err = multierr.Append(err, closeIfCloser(in.Resource))
	}

	err = multierr.Append(err, closeIfCloser(g.conn))
	g.conn = nil

	return err
}

// CloseGroups closes every group, combining errors.
func CloseGroups[T any](groups []*InputGroup[T]) error {
	var err error
	for _, g := range groups {
		err = multierr.Append(err, g.Close())
	}

	return err
}

// CountUnits returns the number of execute units across groups.
func CountUnits[T any](groups []*InputGroup[T]) int {
	n := 0
	for _, g := range groups {
		n += len(g.Inputs)
	}

	return n
}

func closeIfCloser(v any) error {
	if c, ok := v.(io.Closer); ok && c != nil {
		return c.Close()
	}

	return nil
}

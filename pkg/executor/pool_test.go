package executor_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/executor"
	"github.com/pseudomuto/shardexec/pkg/group"
	"github.com/pseudomuto/shardexec/pkg/route"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type resource struct {
	value int
	delay time.Duration
	fail  bool
}

func resourceGroup(mode group.ConnectionMode, dataSource string, resources ...*resource) *group.InputGroup[*resource] {
	g := group.NewInputGroup[*resource](nil)
	for i, r := range resources {
		g.Inputs = append(g.Inputs, &group.ExecuteUnit[*resource]{
			Unit:     route.NewExecutionUnit(dataSource, "SELECT "+string(rune('a'+i))),
			Resource: r,
			Mode:     mode,
		})
	}

	return g
}

func valueCallback(calls *atomic.Int32) executor.Callback[*resource, int] {
	return func(_ context.Context, _ route.ExecutionUnit, r *resource, _ group.ConnectionMode) (int, error) {
		calls.Add(1)
		time.Sleep(r.delay)
		if r.fail {
			return 0, errors.Errorf("resource %d failed", r.value)
		}

		return r.value, nil
	}
}

func TestExecute_ResultOrder(t *testing.T) {
	groups := []*group.InputGroup[*resource]{
		resourceGroup(group.MemoryStrictly, "ds0", &resource{value: 1, delay: 30 * time.Millisecond}),
		resourceGroup(group.ConnectionStrictly, "ds1",
			&resource{value: 2, delay: 10 * time.Millisecond},
			&resource{value: 3},
		),
		resourceGroup(group.MemoryStrictly, "ds2", &resource{value: 4}),
	}

	for _, size := range []int{0, 1, 2} {
		var calls atomic.Int32
		pool := executor.NewPool(size, nil)

		results, err := executor.Execute(context.Background(), pool, groups, valueCallback(&calls), executor.Options{ExceptionThrown: true})
		require.NoError(t, err)
		require.Equal(t, []int{1, 2, 3, 4}, results)
		require.EqualValues(t, 4, calls.Load())
	}
}

func TestExecute_NoGroups(t *testing.T) {
	var calls atomic.Int32
	results, err := executor.Execute(context.Background(), nil, []*group.InputGroup[*resource]{}, valueCallback(&calls), executor.Options{})
	require.NoError(t, err)
	require.Empty(t, results)
	require.Zero(t, calls.Load())
}

func TestExecute_FailFast(t *testing.T) {
	groups := []*group.InputGroup[*resource]{
		resourceGroup(group.MemoryStrictly, "ds0", &resource{value: 1}),
		resourceGroup(group.ConnectionStrictly, "ds1", &resource{value: 2, fail: true}, &resource{value: 3}),
		resourceGroup(group.MemoryStrictly, "ds2", &resource{value: 4}),
	}

	var calls atomic.Int32
	results, err := executor.Execute(context.Background(), executor.NewPool(1, nil), groups, valueCallback(&calls), executor.Options{ExceptionThrown: true})
	require.Nil(t, results)
	require.ErrorContains(t, err, "resource 2 failed")

	var execErr *executor.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "ds1", execErr.DataSource)
	require.Equal(t, "SELECT a", execErr.SQL)

	// units after the failure never start
	require.EqualValues(t, 2, calls.Load())
}

func TestExecute_Collect(t *testing.T) {
	groups := []*group.InputGroup[*resource]{
		resourceGroup(group.MemoryStrictly, "ds0", &resource{value: 1, fail: true}),
		resourceGroup(group.ConnectionStrictly, "ds1", &resource{value: 2}, &resource{value: 3, fail: true}),
		resourceGroup(group.MemoryStrictly, "ds2", &resource{value: 4}),
	}

	var calls atomic.Int32
	results, err := executor.Execute(context.Background(), executor.NewPool(2, nil), groups, valueCallback(&calls), executor.Options{})
	require.Equal(t, []int{0, 2, 0, 4}, results)
	require.EqualValues(t, 4, calls.Load())

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)

	var first, second *executor.ExecutionError
	require.ErrorAs(t, errs[0], &first)
	require.ErrorAs(t, errs[1], &second)
	require.Equal(t, "ds0", first.DataSource)
	require.Equal(t, "ds1", second.DataSource)
	require.Equal(t, "SELECT b", second.SQL)
}

func TestExecute_KeepsExecutionErrors(t *testing.T) {
	groups := []*group.InputGroup[*resource]{
		resourceGroup(group.MemoryStrictly, "ds0", &resource{value: 1}),
	}

	want := &executor.ExecutionError{DataSource: "other", SQL: "SELECT 1", Err: errors.New("boom")}
	cb := func(context.Context, route.ExecutionUnit, *resource, group.ConnectionMode) (int, error) {
		return 0, want
	}

	_, err := executor.Execute(context.Background(), executor.NewPool(0, nil), groups, cb, executor.Options{ExceptionThrown: true})
	require.Same(t, want, err)
}

func TestPool_Size(t *testing.T) {
	require.Equal(t, 0, executor.NewPool(-1, nil).Size())
	require.Equal(t, 4, executor.NewPool(4, nil).Size())
}

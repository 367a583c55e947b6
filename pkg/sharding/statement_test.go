package sharding_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/datasource"
	"github.com/pseudomuto/shardexec/pkg/executor"
	"github.com/pseudomuto/shardexec/pkg/group"
	"github.com/pseudomuto/shardexec/pkg/metadata"
	"github.com/pseudomuto/shardexec/pkg/route"
	"github.com/pseudomuto/shardexec/pkg/rule"
	"github.com/pseudomuto/shardexec/pkg/sharding"
	"github.com/stretchr/testify/require"
)

type backend struct {
	manager *datasource.Manager
	mocks   map[string]sqlmock.Sqlmock
}

func newBackend(t *testing.T, names ...string) *backend {
	t.Helper()

	b := &backend{
		manager: datasource.NewManager(nil),
		mocks:   make(map[string]sqlmock.Sqlmock),
	}

	for _, name := range names {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)

		b.manager.Register(name, datasource.DriverMySQL, db)
		b.mocks[name] = mock
	}

	t.Cleanup(func() { _ = b.manager.Close() })
	return b
}

func (b *backend) verify(t *testing.T) {
	t.Helper()

	for name, mock := range b.mocks {
		require.NoError(t, mock.ExpectationsWereMet(), name)
	}
}

func updateContext(table string, units ...route.ExecutionUnit) *route.ExecutionContext {
	return &route.ExecutionContext{
		Statement: &route.StatementContext{Type: route.Update, Tables: []string{table}},
		Units:     units,
	}
}

func TestStatement_ExecuteUpdate(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, "ds0", "ds1")

	b.mocks["ds0"].ExpectExec("UPDATE t_order_0").WillReturnResult(sqlmock.NewResult(0, 2))
	b.mocks["ds0"].ExpectExec("UPDATE t_order_1").WillReturnResult(sqlmock.NewResult(0, 3))
	b.mocks["ds1"].ExpectExec("UPDATE t_order_0").WillReturnResult(sqlmock.NewResult(0, 1))

	stmt := sharding.NewStatement(sharding.Config{
		Provider:        b.manager,
		ExceptionThrown: true,
	})
	t.Cleanup(func() { _ = stmt.Close() })

	n, err := stmt.ExecuteUpdate(ctx, updateContext("t_order",
		route.NewExecutionUnit("ds0", "UPDATE t_order_0 SET status = 'done'"),
		route.NewExecutionUnit("ds0", "UPDATE t_order_1 SET status = 'done'"),
		route.NewExecutionUnit("ds1", "UPDATE t_order_0 SET status = 'done'"),
	))
	require.NoError(t, err)
	require.Equal(t, 6, n)

	require.NoError(t, stmt.Close())
	b.verify(t)
}

func TestStatement_ExecuteUpdate_Broadcast(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, "ds0", "ds1")

	b.mocks["ds0"].ExpectExec("UPDATE t_config").WillReturnResult(sqlmock.NewResult(0, 1))
	b.mocks["ds1"].ExpectExec("UPDATE t_config").WillReturnResult(sqlmock.NewResult(0, 1))

	stmt := sharding.NewStatement(sharding.Config{
		Provider:        b.manager,
		ExceptionThrown: true,
		Executor: executor.Config{
			Classifier: rule.New(rule.Config{BroadcastTables: []string{"t_config"}}),
		},
	})
	t.Cleanup(func() { _ = stmt.Close() })

	n, err := stmt.ExecuteUpdate(ctx, updateContext("t_config",
		route.NewExecutionUnit("ds0", "UPDATE t_config SET v = 1"),
		route.NewExecutionUnit("ds1", "UPDATE t_config SET v = 1"),
	))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	b.verify(t)
}

func TestStatement_ExecuteUpdate_RefreshesMetadata(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, "ds0", "ds1")

	b.mocks["ds0"].ExpectExec("CREATE TABLE t_new").WillReturnResult(sqlmock.NewResult(0, 0))
	b.mocks["ds1"].ExpectExec("CREATE TABLE t_new").WillReturnResult(sqlmock.NewResult(0, 0))

	refresher := metadata.NewRefresher(metadata.RefresherConfig{
		MetaData: metadata.NewSchemaMetaData(),
		Loader: metadata.TableLoaderFunc(func(_ context.Context, table string) (*metadata.TableMetaData, error) {
			return &metadata.TableMetaData{Name: table}, nil
		}),
	})

	stmt := sharding.NewStatement(sharding.Config{
		Provider:        b.manager,
		ExceptionThrown: true,
		Executor:        executor.Config{Refresher: refresher},
	})
	t.Cleanup(func() { _ = stmt.Close() })

	ec := &route.ExecutionContext{
		Statement: &route.StatementContext{Type: route.CreateTable, Tables: []string{"t_new"}},
		Units: []route.ExecutionUnit{
			route.NewExecutionUnit("ds0", "CREATE TABLE t_new (id BIGINT)"),
			route.NewExecutionUnit("ds1", "CREATE TABLE t_new (id BIGINT)"),
		},
	}

	_, err := stmt.ExecuteUpdate(ctx, ec)
	require.NoError(t, err)
	require.True(t, refresher.MetaData().Contains("t_new"))
	b.verify(t)
}

func TestStatement_ExecuteUpdate_CollectsFailures(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, "ds0", "ds1")

	b.mocks["ds0"].ExpectExec("DELETE FROM t_order").WillReturnResult(sqlmock.NewResult(0, 4))
	b.mocks["ds1"].ExpectExec("DELETE FROM t_order").WillReturnError(errors.New("lock wait timeout"))

	stmt := sharding.NewStatement(sharding.Config{Provider: b.manager})
	t.Cleanup(func() { _ = stmt.Close() })

	n, err := stmt.ExecuteUpdate(ctx, updateContext("t_order",
		route.NewExecutionUnit("ds0", "DELETE FROM t_order"),
		route.NewExecutionUnit("ds1", "DELETE FROM t_order"),
	))
	require.Equal(t, 4, n)

	var execErr *executor.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "ds1", execErr.DataSource)
	b.verify(t)
}

func TestStatement_GeneratedKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("reported by data sources", func(t *testing.T) {
		b := newBackend(t, "ds0", "ds1")
		b.mocks["ds0"].ExpectExec("INSERT INTO t_order").WillReturnResult(sqlmock.NewResult(41, 1))
		b.mocks["ds1"].ExpectExec("INSERT INTO t_order").WillReturnResult(sqlmock.NewResult(42, 1))

		stmt := sharding.NewStatement(sharding.Config{Provider: b.manager, ExceptionThrown: true})
		t.Cleanup(func() { _ = stmt.Close() })

		n, err := stmt.ExecuteUpdateWithGeneratedKeys(ctx, updateContext("t_order",
			route.NewExecutionUnit("ds0", "INSERT INTO t_order (status) VALUES ('a')"),
			route.NewExecutionUnit("ds1", "INSERT INTO t_order (status) VALUES ('b')"),
		), true)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.Equal(t, []any{int64(41), int64(42)}, stmt.GeneratedKeys())
	})

	t.Run("generated while routing", func(t *testing.T) {
		b := newBackend(t, "ds0")
		b.mocks["ds0"].ExpectExec("INSERT INTO t_order").WillReturnResult(sqlmock.NewResult(1, 1))

		stmt := sharding.NewStatement(sharding.Config{Provider: b.manager, ExceptionThrown: true})
		t.Cleanup(func() { _ = stmt.Close() })

		ec := updateContext("t_order", route.NewExecutionUnit("ds0", "INSERT INTO t_order (order_id) VALUES (1000)"))
		ec.GeneratedKey = &route.GeneratedKey{Column: "order_id", Generated: true, Values: []any{int64(1000)}}

		_, err := stmt.ExecuteUpdateWithColumnNames(ctx, ec, []string{"order_id"})
		require.NoError(t, err)
		require.Equal(t, []any{int64(1000)}, stmt.GeneratedKeys())
	})
}

func TestStatement_ExecuteQuery(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, "ds0", "ds1")

	b.mocks["ds0"].ExpectQuery("SELECT order_id FROM t_order_0").
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(1).AddRow(2))
	b.mocks["ds1"].ExpectQuery("SELECT order_id FROM t_order_0").
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(3))

	stmt := sharding.NewStatement(sharding.Config{Provider: b.manager, ExceptionThrown: true})
	t.Cleanup(func() { _ = stmt.Close() })

	results, err := stmt.ExecuteQuery(ctx, &route.ExecutionContext{
		Statement: &route.StatementContext{Type: route.Select, Tables: []string{"t_order"}},
		Units: []route.ExecutionUnit{
			route.NewExecutionUnit("ds0", "SELECT order_id FROM t_order_0"),
			route.NewExecutionUnit("ds1", "SELECT order_id FROM t_order_0"),
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	var ids []int64
	for _, r := range results {
		for r.Next() {
			var id int64
			require.NoError(t, r.Scan(&id))
			ids = append(ids, id)
		}
		require.NoError(t, r.Err())
	}

	require.Equal(t, []int64{1, 2, 3}, ids)
	require.NoError(t, stmt.Close())
	b.verify(t)
}

func TestStatement_Execute(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, "ds0")

	b.mocks["ds0"].ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(7))

	stmt := sharding.NewStatement(sharding.Config{Provider: b.manager, ExceptionThrown: true})
	t.Cleanup(func() { _ = stmt.Close() })

	ok, err := stmt.Execute(ctx, &route.ExecutionContext{
		Statement: &route.StatementContext{Type: route.Select, Tables: []string{"t_order"}},
		Units:     []route.ExecutionUnit{route.NewExecutionUnit("ds0", "SELECT COUNT(*) FROM t_order_0")},
	})
	require.NoError(t, err)
	require.True(t, ok)

	sets := stmt.ResultSets()
	require.Len(t, sets, 1)
	require.True(t, sets[0].Next())

	var n int64
	require.NoError(t, sets[0].Scan(&n))
	require.EqualValues(t, 7, n)
	b.verify(t)
}

func TestStatement_ExecuteSharedConnection(t *testing.T) {
	ctx := context.Background()

	manager := datasource.NewManager(nil)
	manager.Register("ds0", datasource.DriverMySQL, newExclusiveDB(map[string][]int64{
		"SELECT n FROM t_order_0": {1, 2},
		"SELECT n FROM t_order_1": {3},
	}))
	t.Cleanup(func() { _ = manager.Close() })

	stmt := sharding.NewStatement(sharding.Config{Provider: manager, ExceptionThrown: true})
	t.Cleanup(func() { _ = stmt.Close() })

	ok, err := stmt.Execute(ctx, &route.ExecutionContext{
		Statement: &route.StatementContext{Type: route.Select, Tables: []string{"t_order"}},
		Units: []route.ExecutionUnit{
			route.NewExecutionUnit("ds0", "SELECT n FROM t_order_0"),
			route.NewExecutionUnit("ds0", "SELECT n FROM t_order_1"),
		},
	})
	require.NoError(t, err)
	require.True(t, ok)

	sets := stmt.ResultSets()
	require.Len(t, sets, 2)

	var values []int64
	for _, rs := range sets {
		for rs.Next() {
			var n int64
			require.NoError(t, rs.Scan(&n))
			values = append(values, n)
		}
		require.NoError(t, rs.Err())
	}

	require.Equal(t, []int64{1, 2, 3}, values)
}

func TestStatement_Errors(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, "ds0")

	stmt := sharding.NewStatement(sharding.Config{Provider: b.manager, ExceptionThrown: true})

	_, err := stmt.ExecuteUpdate(ctx, nil)
	require.ErrorContains(t, err, "execution context is required")

	_, err = stmt.ExecuteUpdate(ctx, updateContext("t_order", route.NewExecutionUnit("ds9", "DELETE FROM t_order")))

	var connErr *group.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "ds9", connErr.DataSource)

	require.NoError(t, stmt.Close())
	require.NoError(t, stmt.Close())

	_, err = stmt.Execute(ctx, updateContext("t_order", route.NewExecutionUnit("ds0", "DELETE FROM t_order")))
	require.ErrorContains(t, err, "statement is closed")
}

func TestStatement_ReleasesPreviousExecution(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, "ds0")

	b.mocks["ds0"].ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(1))
	b.mocks["ds0"].ExpectExec("DELETE FROM t_order").WillReturnResult(sqlmock.NewResult(0, 1))

	db, _ := b.manager.DB("ds0")
	db.SetMaxOpenConns(1)

	stmt := sharding.NewStatement(sharding.Config{Provider: b.manager, ExceptionThrown: true})
	t.Cleanup(func() { _ = stmt.Close() })

	_, err := stmt.ExecuteQuery(ctx, &route.ExecutionContext{
		Statement: &route.StatementContext{Type: route.Select},
		Units:     []route.ExecutionUnit{route.NewExecutionUnit("ds0", "SELECT 1")},
	})
	require.NoError(t, err)

	// the only connection is handed back before the next execution acquires one
	n, err := stmt.ExecuteUpdate(ctx, updateContext("t_order", route.NewExecutionUnit("ds0", "DELETE FROM t_order")))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, db.Stats().OpenConnections)
	b.verify(t)
}

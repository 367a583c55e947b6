package sharding_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"

	"github.com/pkg/errors"
)

type (
	// exclusiveConnector hands out connections that refuse a query while
	// the rows of a previous one are still open, the way native MySQL and
	// ClickHouse connections do.
	exclusiveConnector struct {
		results map[string][]int64
	}

	exclusiveConn struct {
		results map[string][]int64
		busy    bool
	}

	exclusiveRows struct {
		conn   *exclusiveConn
		values []int64
		pos    int
	}
)

func newExclusiveDB(results map[string][]int64) *sql.DB {
	return sql.OpenDB(&exclusiveConnector{results: results})
}

func (c *exclusiveConnector) Connect(context.Context) (driver.Conn, error) {
	return &exclusiveConn{results: c.results}, nil
}

func (c *exclusiveConnector) Driver() driver.Driver {
	return c
}

func (c *exclusiveConnector) Open(string) (driver.Conn, error) {
	return c.Connect(context.Background())
}

func (c *exclusiveConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements not supported")
}

func (c *exclusiveConn) Close() error {
	return nil
}

func (c *exclusiveConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *exclusiveConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if c.busy {
		return nil, errors.New("commands out of sync: connection busy")
	}

	values, ok := c.results[query]
	if !ok {
		return nil, errors.Errorf("unexpected query: %s", query)
	}

	c.busy = true
	return &exclusiveRows{conn: c, values: values}, nil
}

func (r *exclusiveRows) Columns() []string {
	return []string{"n"}
}

func (r *exclusiveRows) Close() error {
	r.conn.busy = false
	return nil
}

func (r *exclusiveRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.values) {
		return io.EOF
	}

	dest[0] = r.values[r.pos]
	r.pos++
	return nil
}

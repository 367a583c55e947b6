package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/group"
	"go.uber.org/multierr"
)

type (
	// Conn is the subset of *sql.Conn a Statement needs.
	Conn interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
		PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	}

	// Option carries per-statement settings from the caller to the factory.
	Option struct {
		// ReturnGeneratedKeys records LastInsertId for every update
		ReturnGeneratedKeys bool

		// Timeout bounds each physical call when non-zero
		Timeout time.Duration
	}

	// ResultSet is a cursor over the rows of one result set. *sql.Rows
	// satisfies it.
	ResultSet interface {
		Columns() ([]string, error)
		Next() bool
		Scan(dest ...any) error
		Err() error
		Close() error
	}

	// Keys selects whether an update retrieves generated keys. Only one of
	// the fields is expected to be set.
	Keys struct {
		Auto          bool
		ColumnIndexes []int
		ColumnNames   []string
	}

	// Statement is a live statement handle on a shared connection.
	Statement struct {
		conn   Conn
		mode   group.ConnectionMode
		opt    Option
		sql    string
		params []any
		stmt   *sql.Stmt
		batch  [][]any
		keys   []int64
		result ResultSet
		closed bool
	}
)

// NoKeys requests no generated keys.
var NoKeys = Keys{}

// Requested reports whether any generated key retrieval was asked for.
func (k Keys) Requested() bool {
	return k.Auto || len(k.ColumnIndexes) > 0 || len(k.ColumnNames) > 0
}

// NewStatement creates a plain statement on conn.
func NewStatement(conn Conn, mode group.ConnectionMode, opt Option) *Statement {
	return &Statement{conn: conn, mode: mode, opt: opt}
}

// Prepare creates a prepared statement for query on conn, bound to params.
func Prepare(ctx context.Context, conn Conn, query string, params []any, mode group.ConnectionMode, opt Option) (*Statement, error) {
	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to prepare statement: %s", query)
	}

	return &Statement{
		conn:   conn,
		mode:   mode,
		opt:    opt,
		sql:    query,
		params: params,
		stmt:   stmt,
	}, nil
}

// Mode returns the connection mode the statement was created with.
func (s *Statement) Mode() group.ConnectionMode {
	return s.mode
}

// IsPrepared reports whether the statement was prepared.
func (s *Statement) IsPrepared() bool {
	return s.stmt != nil
}

// SQL returns the prepared SQL, or "" for plain statements.
func (s *Statement) SQL() string {
	return s.sql
}

// Parameters returns the parameters bound to a prepared statement.
func (s *Statement) Parameters() []any {
	return s.params
}

// SetParameters replaces the parameters bound to a prepared statement.
func (s *Statement) SetParameters(params []any) {
	s.params = params
}

// GeneratedKeys returns the keys recorded by updates that requested them.
func (s *Statement) GeneratedKeys() []int64 {
	return s.keys
}

// ResultSet returns the result set produced by the last Execute that returned
// true.
func (s *Statement) ResultSet() ResultSet {
	return s.result
}

// SetResultSet replaces the kept result set without closing the previous one.
func (s *Statement) SetResultSet(rs ResultSet) {
	s.result = rs
}

// Query runs query (or the prepared statement) and returns its rows.
func (s *Statement) Query(ctx context.Context, query string) (*sql.Rows, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	// rows outlive this call, so the timeout cannot be scoped to it
	if s.stmt != nil {
		return s.stmt.QueryContext(ctx, s.params...)
	}

	return s.conn.QueryContext(ctx, query)
}

// ExecUpdate runs query (or the prepared statement) and returns the number of
// affected rows. Generated keys are recorded when keys or the statement
// option request them.
func (s *Statement) ExecUpdate(ctx context.Context, query string, keys Keys) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.exec(ctx, query, s.params)
	if err != nil {
		return 0, err
	}

	if keys.Requested() || s.opt.ReturnGeneratedKeys {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, errors.Wrap(err, "failed to retrieve generated keys")
		}
		s.keys = append(s.keys, id)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read affected rows")
	}

	return int(affected), nil
}

// Execute runs query (or the prepared statement) and reports whether it
// produced a result set. The rows are kept open on the statement and
// available through ResultSet. When generated keys are requested the statement is run
// as an update and Execute reports false.
func (s *Statement) Execute(ctx context.Context, query string, keys Keys) (bool, error) {
	if keys.Requested() {
		_, err := s.ExecUpdate(ctx, query, keys)
		return false, err
	}

	if err := s.closeResultSet(); err != nil {
		return false, err
	}

	rows, err := s.Query(ctx, query)
	if err != nil {
		return false, err
	}

	cols, err := rows.Columns()
	if err != nil {
		return false, multierr.Append(errors.Wrap(err, "failed to read result columns"), rows.Close())
	}

	if len(cols) == 0 {
		return false, rows.Close()
	}

	s.result = rows
	return true, nil
}

// AddBatch appends a parameter set to the statement's batch.
func (s *Statement) AddBatch(params []any) {
	s.batch = append(s.batch, params)
}

// BatchSize returns the number of parameter sets in the batch.
func (s *Statement) BatchSize() int {
	return len(s.batch)
}

// ClearBatch drops every batched parameter set.
func (s *Statement) ClearBatch() {
	s.batch = nil
}

// ExecuteBatch runs the prepared statement once per batched parameter set,
// in order, and returns the affected row count of each. On failure the counts
// of the sets that ran are returned with the error. The batch is cleared
// either way.
func (s *Statement) ExecuteBatch(ctx context.Context) ([]int, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if s.stmt == nil {
		return nil, errors.New("batch execution requires a prepared statement")
	}

	batch := s.batch
	s.batch = nil

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := make([]int, 0, len(batch))
	for i, params := range batch {
		res, err := s.stmt.ExecContext(ctx, params...)
		if err != nil {
			return result, errors.Wrapf(err, "failed to execute batch entry %d", i)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return result, errors.Wrapf(err, "failed to read affected rows of batch entry %d", i)
		}
		result = append(result, int(affected))
	}

	return result, nil
}

// Close releases the prepared statement and any open result set. It does not
// close the connection. Close is idempotent.
func (s *Statement) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.closeResultSet()
	if s.stmt != nil {
		err = multierr.Append(err, s.stmt.Close())
	}

	return err
}

func (s *Statement) exec(ctx context.Context, query string, params []any) (sql.Result, error) {
	if s.stmt != nil {
		return s.stmt.ExecContext(ctx, params...)
	}

	return s.conn.ExecContext(ctx, query)
}

func (s *Statement) closeResultSet() error {
	if s.result == nil {
		return nil
	}

	rs := s.result
	s.result = nil
	return rs.Close()
}

func (s *Statement) checkOpen() error {
	if s.closed {
		return errors.New("statement is closed")
	}

	return nil
}

func (s *Statement) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opt.Timeout > 0 {
		return context.WithTimeout(ctx, s.opt.Timeout)
	}

	return ctx, func() {}
}

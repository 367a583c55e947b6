package executor

import (
	"database/sql"
	"reflect"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/storage"
)

type (
	// QueryResult is the cursor over the rows of one physical query.
	QueryResult interface {
		Columns() ([]string, error)
		Next() bool
		Scan(dest ...any) error
		Err() error
		Close() error
	}

	// StreamQueryResult reads rows from the connection as they are consumed.
	StreamQueryResult struct {
		*sql.Rows
	}

	// MemoryQueryResult holds every row of a query in memory.
	MemoryQueryResult struct {
		columns []string
		rows    [][]any
		cursor  int
	}
)

// NewStreamQueryResult wraps rows without reading them.
func NewStreamQueryResult(rows *sql.Rows) *StreamQueryResult {
	return &StreamQueryResult{Rows: rows}
}

// NewMemoryQueryResult reads and closes rows.
func NewMemoryQueryResult(rows storage.ResultSet) (*MemoryQueryResult, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read result columns")
	}

	res := &MemoryQueryResult{columns: cols, cursor: -1}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "failed to read result row")
		}
		res.rows = append(res.rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read result rows")
	}

	return res, nil
}

// Columns returns the column names of the result.
func (r *MemoryQueryResult) Columns() ([]string, error) {
	return r.columns, nil
}

// Len returns the number of buffered rows.
func (r *MemoryQueryResult) Len() int {
	return len(r.rows)
}

// Next advances to the next row.
func (r *MemoryQueryResult) Next() bool {
	if r.cursor+1 >= len(r.rows) {
		r.cursor = len(r.rows)
		return false
	}

	r.cursor++
	return true
}

// Values returns the current row.
func (r *MemoryQueryResult) Values() []any {
	if r.cursor < 0 || r.cursor >= len(r.rows) {
		return nil
	}

	return r.rows[r.cursor]
}

// Scan copies the current row into dest. Each destination must be a non-nil
// pointer whose element type the value is assignable or convertible to.
func (r *MemoryQueryResult) Scan(dest ...any) error {
	row := r.Values()
	if row == nil {
		return errors.New("scan called without a current row")
	}

	if len(dest) != len(row) {
		return errors.Errorf("expected %d destination arguments in Scan, not %d", len(row), len(dest))
	}

	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return errors.Wrapf(err, "failed to scan column %d (%s)", i, r.columns[i])
		}
	}

	return nil
}

// Err always returns nil; read errors surface from NewMemoryQueryResult.
func (r *MemoryQueryResult) Err() error {
	return nil
}

// Close drops the buffered rows.
func (r *MemoryQueryResult) Close() error {
	r.rows = nil
	r.cursor = -1
	return nil
}

func assign(dest, src any) error {
	if p, ok := dest.(*any); ok {
		*p = src
		return nil
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return errors.Errorf("destination not a pointer: %T", dest)
	}
	dv = dv.Elem()

	if src == nil {
		dv.Set(reflect.Zero(dv.Type()))
		return nil
	}

	if b, ok := src.([]byte); ok && dv.Kind() == reflect.String {
		dv.SetString(string(b))
		return nil
	}

	sv := reflect.ValueOf(src)
	switch {
	case sv.Type().AssignableTo(dv.Type()):
		dv.Set(sv)
	case sv.Type().ConvertibleTo(dv.Type()) && dv.Kind() != reflect.String:
		dv.Set(sv.Convert(dv.Type()))
	default:
		return errors.Errorf("cannot assign %T to %s", src, dv.Type())
	}

	return nil
}

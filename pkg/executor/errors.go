package executor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvariantViolation is returned when batch state is inconsistent with the
// statements handed to the executor.
var ErrInvariantViolation = errors.New("invariant violation")

type (
	// ExecutionError is a failure of one physical statement.
	ExecutionError struct {
		DataSource string
		SQL        string
		Err        error
	}

	// MetadataRefreshError reports a failed metadata refresh. The statement
	// result it accompanies is still valid.
	MetadataRefreshError struct {
		Err error
	}
)

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to execute on data source %s: %v [sql: %s]", e.DataSource, e.Err, e.SQL)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *MetadataRefreshError) Error() string {
	return fmt.Sprintf("failed to refresh metadata: %v", e.Err)
}

func (e *MetadataRefreshError) Unwrap() error {
	return e.Err
}

package group

import "fmt"

// ConnectionError reports that a data source could not supply the connections
// a logical statement needs. It is fatal to the statement.
type ConnectionError struct {
	DataSource string
	Count      int
	Err        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to acquire %d connection(s) from data source %s: %v", e.Count, e.DataSource, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

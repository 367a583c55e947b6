package route

import "fmt"

type (
	// SQLUnit is a single SQL text and its ordered parameters.
	SQLUnit struct {
		SQL        string
		Parameters []any
	}

	// ExecutionUnit is one routed SQL fragment bound to the data source it
	// targets. Units are treated as immutable once routed.
	ExecutionUnit struct {
		DataSource string
		SQLUnit    SQLUnit
	}

	// Target identifies the physical destination of a unit. It is comparable
	// and can be used as a map key.
	Target struct {
		DataSource string
		SQL        string
	}
)

// NewExecutionUnit creates an ExecutionUnit for the given data source, SQL and
// parameters.
func NewExecutionUnit(dataSource, sql string, params ...any) ExecutionUnit {
	return ExecutionUnit{
		DataSource: dataSource,
		SQLUnit: SQLUnit{
			SQL:        sql,
			Parameters: params,
		},
	}
}

// Target returns the (data source, SQL) identity of the unit.
func (u ExecutionUnit) Target() Target {
	return Target{DataSource: u.DataSource, SQL: u.SQLUnit.SQL}
}

// SameTarget reports whether both units address the same data source with the
// same SQL text.
func (u ExecutionUnit) SameTarget(other ExecutionUnit) bool {
	return u.Target() == other.Target()
}

// String renders the unit for logs and error messages.
func (u ExecutionUnit) String() string {
	return fmt.Sprintf("%s::%s", u.DataSource, u.SQLUnit.SQL)
}

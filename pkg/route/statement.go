package route

import "slices"

type (
	// StatementType is the shape of a logical statement.
	StatementType string

	// StatementContext describes the logical statement behind a set of
	// execution units.
	StatementContext struct {
		// Type is the statement shape
		Type StatementType

		// Tables holds the logical table names the statement touches
		Tables []string

		// Index is the index name for CREATE INDEX and DROP INDEX statements
		Index string
	}

	// GeneratedKey describes a key column whose values were generated while
	// routing an INSERT.
	GeneratedKey struct {
		Column    string
		Generated bool
		Values    []any
	}

	// ExecutionContext is the complete routed form of one logical statement.
	ExecutionContext struct {
		Statement    *StatementContext
		Units        []ExecutionUnit
		GeneratedKey *GeneratedKey
	}
)

const (
	Select        StatementType = "select"
	Insert        StatementType = "insert"
	Update        StatementType = "update"
	Delete        StatementType = "delete"
	CreateTable   StatementType = "create_table"
	AlterTable    StatementType = "alter_table"
	DropTable     StatementType = "drop_table"
	TruncateTable StatementType = "truncate_table"
	CreateIndex   StatementType = "create_index"
	DropIndex     StatementType = "drop_index"
	Other         StatementType = "other"
)

var ddlTypes = []StatementType{
	CreateTable,
	AlterTable,
	DropTable,
	TruncateTable,
	CreateIndex,
	DropIndex,
}

// IsDDL reports whether the statement type changes schema.
func (t StatementType) IsDDL() bool {
	return slices.Contains(ddlTypes, t)
}

// TableNames returns the logical tables of the statement. It is safe to call
// on a nil context.
func (sc *StatementContext) TableNames() []string {
	if sc == nil {
		return nil
	}

	return sc.Tables
}

// GetGeneratedKey returns the generated key, if the context carries one.
func (ec *ExecutionContext) GetGeneratedKey() (*GeneratedKey, bool) {
	if ec == nil || ec.GeneratedKey == nil {
		return nil, false
	}

	return ec.GeneratedKey, true
}

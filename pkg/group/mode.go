package group

// ConnectionMode tells a storage resource how its connection is shared.
type ConnectionMode int

const (
	// MemoryStrictly means each unit owns its connection.
	MemoryStrictly ConnectionMode = iota

	// ConnectionStrictly means a connection is reused serially by several units.
	ConnectionStrictly
)

// String returns the mode name used in logs and CLI output.
func (m ConnectionMode) String() string {
	switch m {
	case MemoryStrictly:
		return "MEMORY_STRICTLY"
	case ConnectionStrictly:
		return "CONNECTION_STRICTLY"
	default:
		return "UNKNOWN"
	}
}

// ModeFor selects the connection mode for a data source holding unitCount
// units under the given connection budget.
func ModeFor(maxConnectionsSizePerQuery, unitCount int) ConnectionMode {
	if maxConnectionsSizePerQuery < unitCount {
		return ConnectionStrictly
	}

	return MemoryStrictly
}

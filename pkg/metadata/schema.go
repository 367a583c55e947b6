package metadata

import (
	"maps"
	"slices"
	"sync"

	"github.com/pseudomuto/shardexec/pkg/utils"
)

type (
	// ColumnMetaData describes one column of a logical table.
	ColumnMetaData struct {
		Name       string
		DataType   string
		PrimaryKey bool
		Generated  bool
	}

	// TableMetaData describes a logical table.
	TableMetaData struct {
		Name    string
		Columns []ColumnMetaData
		Indexes []string
	}

	// SchemaMetaData is the set of logical tables known to the sharding layer.
	// It is safe for concurrent use.
	SchemaMetaData struct {
		mu     sync.RWMutex
		tables map[string]*TableMetaData
	}
)

// ColumnNames returns the table's column names in ordinal order.
func (t *TableMetaData) ColumnNames() []string {
	result := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		result = append(result, c.Name)
	}

	return result
}

// HasIndex reports whether the table carries the named index.
func (t *TableMetaData) HasIndex(name string) bool {
	return slices.Contains(t.Indexes, utils.NormalizeIdentifier(name))
}

func (t *TableMetaData) addIndex(name string) {
	name = utils.NormalizeIdentifier(name)
	if name != "" && !slices.Contains(t.Indexes, name) {
		t.Indexes = append(t.Indexes, name)
	}
}

func (t *TableMetaData) removeIndex(name string) bool {
	i := slices.Index(t.Indexes, utils.NormalizeIdentifier(name))
	if i < 0 {
		return false
	}

	t.Indexes = slices.Delete(t.Indexes, i, i+1)
	return true
}

// NewSchemaMetaData creates SchemaMetaData holding tables.
func NewSchemaMetaData(tables ...*TableMetaData) *SchemaMetaData {
	md := &SchemaMetaData{tables: make(map[string]*TableMetaData, len(tables))}
	for _, t := range tables {
		md.Put(t)
	}

	return md
}

// Get returns the named table.
func (m *SchemaMetaData) Get(name string) (*TableMetaData, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[utils.NormalizeIdentifier(name)]
	return t, ok
}

// Contains reports whether the named table is known.
func (m *SchemaMetaData) Contains(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Put adds or replaces a table, keyed by its normalized name.
func (m *SchemaMetaData) Put(t *TableMetaData) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.Name = utils.NormalizeIdentifier(t.Name)
	m.tables[t.Name] = t
}

// Remove drops the named table.
func (m *SchemaMetaData) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tables, utils.NormalizeIdentifier(name))
}

// TableNames returns the known table names in sorted order.
func (m *SchemaMetaData) TableNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.tables))
}

// update runs fn on the named table under the write lock. It reports false
// when the table is unknown.
func (m *SchemaMetaData) update(name string, fn func(*TableMetaData)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[utils.NormalizeIdentifier(name)]
	if !ok {
		return false
	}

	fn(t)
	return true
}

// findIndexOwner returns the name of the table holding index.
func (m *SchemaMetaData) findIndexOwner(index string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range slices.Sorted(maps.Keys(m.tables)) {
		if m.tables[name].HasIndex(index) {
			return name, true
		}
	}

	return "", false
}

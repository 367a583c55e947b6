package rule

import (
	"slices"

	"github.com/pseudomuto/shardexec/pkg/utils"
)

type (
	// Config lists the logical broadcast tables.
	Config struct {
		BroadcastTables []string
	}

	// Rule classifies logical tables.
	Rule struct {
		broadcast map[string]struct{}
	}
)

// New creates a Rule from cfg. Table names are compared case-insensitively
// and without identifier quotes.
func New(cfg Config) *Rule {
	r := &Rule{broadcast: make(map[string]struct{}, len(cfg.BroadcastTables))}
	for _, name := range utils.NormalizeIdentifiers(cfg.BroadcastTables) {
		r.broadcast[name] = struct{}{}
	}

	return r
}

// IsBroadcastTable reports whether table is a broadcast table.
func (r *Rule) IsBroadcastTable(table string) bool {
	_, ok := r.broadcast[utils.NormalizeIdentifier(table)]
	return ok
}

// IsAllBroadcastTables reports whether tables is non-empty and every entry is
// a broadcast table.
func (r *Rule) IsAllBroadcastTables(tables []string) bool {
	if len(tables) == 0 {
		return false
	}

	for _, t := range tables {
		if !r.IsBroadcastTable(t) {
			return false
		}
	}

	return true
}

// BroadcastTables returns the normalized broadcast table names in sorted
// order.
func (r *Rule) BroadcastTables() []string {
	result := make([]string, 0, len(r.broadcast))
	for name := range r.broadcast {
		result = append(result, name)
	}

	slices.Sort(result)
	return result
}

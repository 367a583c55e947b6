package executor

import (
	"maps"
	"slices"

	"github.com/cespare/xxhash"
	"github.com/pseudomuto/shardexec/pkg/route"
)

type (
	// BatchExecutionUnit accumulates the parameter sets of every logical batch
	// call that targeted the same data source and SQL.
	BatchExecutionUnit struct {
		Unit          route.ExecutionUnit
		ParameterSets [][]any

		// logical batch index -> physical batch slot
		actualIndexes map[int]int
	}

	// batchIndex finds batch units by target. Targets are bucketed by hash
	// and compared exactly within a bucket.
	batchIndex struct {
		buckets map[uint64][]*BatchExecutionUnit
	}
)

func newBatchExecutionUnit(unit route.ExecutionUnit) *BatchExecutionUnit {
	return &BatchExecutionUnit{
		Unit:          unit,
		actualIndexes: make(map[int]int),
	}
}

// ActualIndex returns the physical slot of a logical batch index.
func (u *BatchExecutionUnit) ActualIndex(logical int) (int, bool) {
	slot, ok := u.actualIndexes[logical]
	return slot, ok
}

// LogicalIndexes returns the logical batch indexes mapped to this unit in
// ascending order.
func (u *BatchExecutionUnit) LogicalIndexes() []int {
	return slices.Sorted(maps.Keys(u.actualIndexes))
}

// add appends params as the physical slot for the logical index.
func (u *BatchExecutionUnit) add(logical int, params []any) {
	u.actualIndexes[logical] = len(u.ParameterSets)
	u.ParameterSets = append(u.ParameterSets, params)
}

func newBatchIndex() *batchIndex {
	return &batchIndex{buckets: make(map[uint64][]*BatchExecutionUnit)}
}

func (idx *batchIndex) find(target route.Target) *BatchExecutionUnit {
	for _, u := range idx.buckets[hashTarget(target)] {
		if u.Unit.Target() == target {
			return u
		}
	}

	return nil
}

func (idx *batchIndex) put(u *BatchExecutionUnit) {
	h := hashTarget(u.Unit.Target())
	idx.buckets[h] = append(idx.buckets[h], u)
}

func hashTarget(t route.Target) uint64 {
	buf := make([]byte, 0, len(t.DataSource)+len(t.SQL)+1)
	buf = append(buf, t.DataSource...)
	buf = append(buf, 0)
	buf = append(buf, t.SQL...)
	return xxhash.Sum64(buf)
}

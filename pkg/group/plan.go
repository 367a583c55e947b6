package group

import "github.com/pseudomuto/shardexec/pkg/route"

// Partition is the connection plan for one data source: the mode chosen for
// it and the contiguous chunks of units that will each share a connection.
type Partition struct {
	DataSource string
	Mode       ConnectionMode
	Chunks     [][]route.ExecutionUnit
}

// Plan partitions units by data source and chunks each data source's units
// so that no more than maxConnectionsSizePerQuery connections are needed.
// It performs no I/O.
//
// Data sources appear in first-seen order and units keep their routed order.
// A budget below 1 is treated as 1.
//
// Chunks hold ceil(n/m) units each, so a data source with n units and a budget
// of m uses ceil(n/ceil(n/m)) connections. That is at most min(n, m) and can be
// fewer: 4 units with a budget of 3 give two chunks of 2.
func Plan(units []route.ExecutionUnit, maxConnectionsSizePerQuery int) []Partition {
	if maxConnectionsSizePerQuery < 1 {
		maxConnectionsSizePerQuery = 1
	}

	var order []string
	byDataSource := make(map[string][]route.ExecutionUnit, len(units))
	for _, unit := range units {
		if _, ok := byDataSource[unit.DataSource]; !ok {
			order = append(order, unit.DataSource)
		}
		byDataSource[unit.DataSource] = append(byDataSource[unit.DataSource], unit)
	}

	result := make([]Partition, 0, len(order))
	for _, ds := range order {
		dsUnits := byDataSource[ds]
		result = append(result, Partition{
			DataSource: ds,
			Mode:       ModeFor(maxConnectionsSizePerQuery, len(dsUnits)),
			Chunks:     chunk(dsUnits, chunkSize(len(dsUnits), maxConnectionsSizePerQuery)),
		})
	}

	return result
}

// chunkSize is ceil(n/m), floored at 1.
func chunkSize(n, m int) int {
	size := n / m
	if n%m != 0 {
		size++
	}

	return max(size, 1)
}

func chunk(units []route.ExecutionUnit, size int) [][]route.ExecutionUnit {
	result := make([][]route.ExecutionUnit, 0, (len(units)+size-1)/size)
	for start := 0; start < len(units); start += size {
		end := min(start+size, len(units))
		result = append(result, units[start:end:end])
	}

	return result
}

// Package route defines the routed form of a logical SQL statement as it is
// handed to the execution core.
//
// Routing itself happens upstream. By the time a statement reaches this module
// it has been rewritten into one ExecutionUnit per physical fragment, each
// naming the data source (backend) it targets, and described by a
// StatementContext carrying the statement shape: its type, the logical tables
// it touches, and the index it names when it is an index DDL.
//
//	units := []route.ExecutionUnit{
//		route.NewExecutionUnit("ds0", "INSERT INTO t_order_0 (id) VALUES (?)", 1),
//		route.NewExecutionUnit("ds1", "INSERT INTO t_order_1 (id) VALUES (?)", 2),
//	}
//
//	sc := &route.StatementContext{
//		Type:   route.Insert,
//		Tables: []string{"t_order"},
//	}
//
// Two units are the same target when they name the same data source and carry
// identical SQL text; their parameters may differ. Batch execution relies on
// this to fold repeated addBatch calls into one physical batch entry.
package route

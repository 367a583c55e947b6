// Package sharding exposes routed statements as logical statements.
//
// A Statement takes an already routed route.ExecutionContext, groups its
// execution units onto physical connections, executes them and merges the
// physical results:
//
//	stmt := sharding.NewStatement(sharding.Config{
//		Provider:                   manager,
//		MaxConnectionsSizePerQuery: 2,
//		ExceptionThrown:            true,
//	})
//	defer stmt.Close()
//
//	n, err := stmt.ExecuteUpdate(ctx, ec)
//
// A PreparedStatement binds unit parameters to prepared statements and adds
// the batch lifecycle: every AddBatch call records one logical batch entry,
// ExecuteBatch coalesces entries addressed to the same data source and SQL
// into one physical batch and maps the physical counts back to the logical
// entries.
//
// Neither type is safe for concurrent use. Each execution releases the groups
// and results of the previous one.
package sharding

// Package executor runs routed statements over input groups and merges the
// physical results back into one logical result.
//
// # Fan-out
//
// Execute is the single driver every statement kind goes through. It runs a
// Callback over each execute unit of each input group, in parallel across
// groups and sequentially within a group, since the units of a group share one
// physical connection. Results are positioned by group and unit order, never
// by completion order.
//
// The exception policy is selected per call through Options:
//
//   - ExceptionThrown: the first physical failure stops the units that have
//     not started and is returned as-is.
//   - otherwise every unit runs, failures are logged and returned together as
//     a multierr aggregate of *ExecutionError values alongside the partial
//     results.
//
// # Statement execution
//
// StatementExecutor implements the query, update and execute flows:
//
//	exec := executor.NewStatementExecutor(executor.Config{
//		Pool:       executor.NewPool(8, logger),
//		Classifier: rule.New(rule.Config{BroadcastTables: []string{"t_config"}}),
//		Refresher:  refresher,
//	})
//
//	n, err := exec.ExecuteUpdate(ctx, groups, sc, executor.Options{ExceptionThrown: true})
//
// Update counts are summed across data sources unless every table of the
// statement is a broadcast table, in which case the first physical count is
// the logical one. Updates and generic executions trigger a metadata refresh
// for schema-changing statements; a refresh failure is returned as a
// *MetadataRefreshError next to a valid result.
//
// Queries return one QueryResult per physical statement. Units that own their
// connection stream rows; units sharing a connection are buffered in memory so
// the connection is free for the next unit of the group.
//
// # Batch execution
//
// BatchExecutor folds repeated logical addBatch calls into one
// BatchExecutionUnit per distinct (data source, SQL) target and remembers
// which physical slot each logical batch index landed in. ExecuteBatch runs
// the physical batches and maps their counts back into logical order.
package executor

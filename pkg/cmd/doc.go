// Package cmd provides the shardexec command line interface.
//
// # Available Commands
//
//   - groups: Show how the units of a plan are grouped onto connections,
//     without connecting to anything
//   - exec: Execute a plan against the configured data sources and print the
//     merged result
//
// # Plans
//
// Both commands read a plan file: a logical statement that has already been
// routed into per-data-source units.
//
//	kind: update
//	sql: UPDATE t_order SET status = ? WHERE user_id = ?
//	units:
//	  - data_source: ds0
//	    sql: UPDATE t_order_0 SET status = ? WHERE user_id = ?
//	    parameters: [done, 10]
//	  - data_source: ds1
//	    sql: UPDATE t_order_1 SET status = ? WHERE user_id = ?
//	    parameters: [done, 11]
//
// Batch plans list the units of every logical batch entry under batches.
//
// # Configuration
//
// Data sources, the connection budget and broadcast tables are read from
// shardexec.yaml, or the file named by $SHARDEXEC_CONFIG. The exec command
// requires it; groups falls back to defaults.
//
// Commands are provided to the root command through fx value groups, see
// Module.
package cmd

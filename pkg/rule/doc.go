// Package rule holds the sharding rule facts the executors consult.
//
// Broadcast tables are replicated identically to every data source. When every
// table a statement touches is a broadcast table, each data source reports the
// same result and the executors take the first one instead of summing.
//
//	r := rule.New(rule.Config{BroadcastTables: []string{"t_config", "t_region"}})
//	r.IsAllBroadcastTables([]string{"T_CONFIG"}) // true
//	r.IsAllBroadcastTables([]string{"t_config", "t_order"}) // false
package rule

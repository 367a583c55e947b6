// Package utils provides small helpers shared across the shardexec packages.
//
// # Identifier Utilities (identifier.go)
//
// Logical table and index names arrive from the router and from configuration
// in whatever form the user wrote them. Broadcast-table classification and
// schema metadata both compare names, so they go through a single canonical
// form first:
//
//	utils.NormalizeIdentifier("`T_Order`")
//	// Result: t_order
//
//	utils.StripQuotes("`db`.`t_order`")
//	// Result: db.t_order
//
//	utils.IsQuoted("\"t_order\"")
//	// Result: true
package utils

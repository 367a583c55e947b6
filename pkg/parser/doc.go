// Package parser recognizes the shape of SQL statements using
// github.com/alecthomas/participle/v2.
//
// The executors only need to know what kind of statement they are running and
// which logical tables it touches: broadcast classification works on the
// table names and metadata refresh is selected by the statement type. Plan
// files may state that shape explicitly; when they don't, ParseShape derives
// it from the logical SQL.
//
// The grammar is deliberately shallow. It recognizes:
//
//   - SELECT (tables after FROM and JOIN, including subqueries)
//   - INSERT, REPLACE, UPDATE and DELETE
//   - CREATE TABLE, ALTER TABLE, DROP TABLE and TRUNCATE
//   - CREATE INDEX and DROP INDEX, with the index name
//
// Anything else parses as route.Other. Expressions, column lists and values
// are skipped token by token without being interpreted.
//
//	sc, err := parser.ParseShape("CREATE INDEX idx_status ON t_order (status)")
//	// sc.Type == route.CreateIndex, sc.Tables == [t_order], sc.Index == idx_status
package parser

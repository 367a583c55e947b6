// Package storage provides the statement handles the execution core runs SQL
// through.
//
// A Statement is bound to one physical connection for its whole life. Plain
// statements execute whatever SQL they are given; prepared statements are
// prepared once against the routed SQL and carry their parameters, plus an
// optional list of batched parameter sets.
//
// Connections are shared: several statements of one input group use the same
// connection, so closing a Statement never closes its connection. The input
// group that owns the connection closes it.
//
// StatementFactory and PreparedStatementFactory plug into group.Engine as its
// storage resource factory:
//
//	engine := group.NewEngine[storage.Conn, *storage.Statement, storage.Option](
//		maxConnectionsSizePerQuery,
//		storage.PreparedStatementFactory{},
//	)
package storage

// Package group partitions routed execution units into connection-bounded
// input groups.
//
// The Engine is the first step of physical execution. It splits the units of
// a logical statement by data source, cuts each data source's units into at
// most maxConnectionsSizePerQuery contiguous chunks, acquires one connection
// per chunk and asks a StorageResourceFactory to create one storage resource
// (a statement handle) per unit on that connection.
//
// # Connection Modes
//
// Each data source gets a ConnectionMode chosen before any connection is
// acquired:
//
//   - MemoryStrictly: the data source has no more units than the budget, so
//     every unit owns a connection and results can stay on the wire.
//   - ConnectionStrictly: the data source has more units than the budget, so
//     connections are reused serially and each result must be drained before
//     the next statement on that connection runs.
//
// # Ordering
//
// Groups are emitted in first-seen data source order and each group keeps its
// units in routed order. Executors zip physical results back to logical
// positions using this order, so Generate is deterministic for a given input
// and provider.
//
// # Usage Example
//
//	engine := group.NewEngine[storage.Conn, *storage.Statement, storage.Option](
//		cfg.Props.MaxConnectionsSizePerQuery,
//		storage.PreparedStatementFactory{},
//	)
//
//	groups, err := engine.Generate(ctx, units, dataSources, storage.Option{})
//	if err != nil {
//		return err
//	}
//	defer group.CloseGroups(groups)
package group

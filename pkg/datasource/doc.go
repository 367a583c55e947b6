// Package datasource manages the physical backends execution units run on.
//
// A Manager holds one *sql.DB pool per configured data source and hands out
// dedicated connections from them. It implements
// group.ConnectionProvider[storage.Conn], so it can be passed straight to a
// grouping engine:
//
//	mgr, err := datasource.New(cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	engine := storage.NewEngine(cfg.Props.MaxConnectionsSizePerQuery)
//	groups, err := engine.Generate(ctx, units, mgr, storage.Option{})
//
// # Drivers
//
// Two drivers are supported, selected by the data source's driver field:
//
//   - clickhouse: github.com/ClickHouse/clickhouse-go/v2, DSN in the
//     clickhouse:// form
//   - mysql: github.com/go-sql-driver/mysql, DSN in the go-sql-driver form
//
// # Connection acquisition
//
// When a logical statement asks a data source for more than one connection at
// once, acquisition is serialized per data source. Two statements each holding
// part of what they need while waiting for the rest would otherwise exhaust a
// bounded pool and wait on each other forever.
//
// # Table metadata
//
// TableLoader reads column and index definitions of a table from the first
// data source that has it, for metadata refresh after DDL.
package datasource

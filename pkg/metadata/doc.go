// Package metadata keeps the logical schema the sharding layer knows about
// and updates it after schema-changing statements.
//
// SchemaMetaData maps logical table names to their columns and indexes. After
// a statement runs, the Refresher resolves a RefreshStrategy from the
// statement shape and applies it:
//
//   - CREATE TABLE loads the new table and adds it
//   - ALTER TABLE reloads the table
//   - DROP TABLE removes the table
//   - CREATE INDEX adds the index to its table
//   - DROP INDEX removes the index from whichever table owns it
//
// Other statement shapes resolve to no strategy and leave metadata untouched.
//
// Table definitions are read through a TableLoader; pkg/datasource provides
// one backed by information_schema.
//
//	md := metadata.NewSchemaMetaData()
//	refresher := metadata.NewRefresher(metadata.RefresherConfig{
//		MetaData: md,
//		Loader:   loader,
//	})
//
//	err := refresher.Refresh(ctx, &route.StatementContext{
//		Type:   route.CreateTable,
//		Tables: []string{"t_order"},
//	})
//
// Refreshes are serialized; readers of SchemaMetaData may run concurrently
// with them.
package metadata

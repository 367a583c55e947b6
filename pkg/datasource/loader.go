package datasource

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/metadata"
	"github.com/pseudomuto/shardexec/pkg/utils"
)

type (
	// TableLoader implements metadata.TableLoader over the data sources of a
	// Manager.
	TableLoader struct {
		manager *Manager
	}

	tableQueries struct {
		columns string
		indexes string
	}
)

var queries = map[string]tableQueries{
	DriverMySQL: {
		columns: `
			SELECT column_name, data_type, column_key, extra
			FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`,
		indexes: `
			SELECT DISTINCT index_name
			FROM information_schema.statistics
			WHERE table_schema = DATABASE() AND table_name = ? AND index_name <> 'PRIMARY'
			ORDER BY index_name`,
	},
	DriverClickHouse: {
		columns: `
			SELECT name, type, if(is_in_primary_key, 'PRI', ''), ''
			FROM system.columns
			WHERE database = currentDatabase() AND table = ?
			ORDER BY position`,
		indexes: `
			SELECT name
			FROM system.data_skipping_indices
			WHERE database = currentDatabase() AND table = ?
			ORDER BY name`,
	},
}

// NewTableLoader creates a TableLoader reading from m.
func NewTableLoader(m *Manager) *TableLoader {
	return &TableLoader{manager: m}
}

// Load reads the table from the first data source, in name order, that has
// it. It returns nil without error when no data source has the table.
func (l *TableLoader) Load(ctx context.Context, table string) (*metadata.TableMetaData, error) {
	name := utils.NormalizeIdentifier(table)

	for _, ds := range l.manager.Names() {
		s, err := l.manager.source(ds)
		if err != nil {
			continue
		}

		q, ok := queries[s.driver]
		if !ok {
			return nil, errors.Errorf("data source %s: no metadata queries for driver %q", ds, s.driver)
		}

		tbl, err := loadTable(ctx, s.db, q, name)
		if err != nil {
			return nil, errors.Wrapf(err, "data source %s", ds)
		}

		if tbl != nil {
			return tbl, nil
		}
	}

	return nil, nil
}

func loadTable(ctx context.Context, db *sql.DB, q tableQueries, name string) (*metadata.TableMetaData, error) {
	rows, err := db.QueryContext(ctx, q.columns, name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query columns")
	}
	defer func() { _ = rows.Close() }()

	tbl := &metadata.TableMetaData{Name: name}
	for rows.Next() {
		var col, typ, key, extra string
		if err := rows.Scan(&col, &typ, &key, &extra); err != nil {
			return nil, errors.Wrap(err, "failed to scan column row")
		}

		tbl.Columns = append(tbl.Columns, metadata.ColumnMetaData{
			Name:       col,
			DataType:   typ,
			PrimaryKey: key == "PRI",
			Generated:  strings.Contains(strings.ToLower(extra), "auto_increment"),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read column rows")
	}

	if len(tbl.Columns) == 0 {
		return nil, nil
	}

	idx, err := db.QueryContext(ctx, q.indexes, name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query indexes")
	}
	defer func() { _ = idx.Close() }()

	for idx.Next() {
		var index string
		if err := idx.Scan(&index); err != nil {
			return nil, errors.Wrap(err, "failed to scan index row")
		}
		tbl.Indexes = append(tbl.Indexes, utils.NormalizeIdentifier(index))
	}

	if err := idx.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read index rows")
	}

	return tbl, nil
}

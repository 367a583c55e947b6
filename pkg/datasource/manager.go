package datasource

import (
	"context"
	"database/sql"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/config"
	"github.com/pseudomuto/shardexec/pkg/group"
	"github.com/pseudomuto/shardexec/pkg/storage"
	"go.uber.org/multierr"
)

type (
	// Manager owns the connection pools of every data source.
	Manager struct {
		mu      sync.RWMutex
		sources map[string]*source
		logger  *slog.Logger
	}

	source struct {
		driver string
		db     *sql.DB

		// held while more than one connection is acquired at once
		acquire sync.Mutex
	}
)

// New opens a pool for every data source of cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	m := NewManager(logger)
	for _, name := range cfg.DataSourceNames() {
		db, err := Open(cfg.DataSources[name])
		if err != nil {
			return nil, multierr.Append(errors.Wrapf(err, "failed to open data source %s", name), m.Close())
		}

		m.Register(name, cfg.DataSources[name].Driver, db)
	}

	return m, nil
}

// NewManager creates a Manager without data sources.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{sources: make(map[string]*source), logger: logger}
}

// Register adds an already opened pool under name. The Manager takes
// ownership of db.
func (m *Manager) Register(name, driver string, db *sql.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sources[name] = &source{driver: driver, db: db}
}

// Names returns the data source names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.sources))
}

// DB returns the pool of the named data source.
func (m *Manager) DB(name string) (*sql.DB, bool) {
	s, err := m.source(name)
	if err != nil {
		return nil, false
	}

	return s.db, true
}

// Driver returns the driver of the named data source.
func (m *Manager) Driver(name string) (string, bool) {
	s, err := m.source(name)
	if err != nil {
		return "", false
	}

	return s.driver, true
}

// GetConnections acquires count dedicated connections from the named data
// source. Either all of them are returned or none: connections acquired
// before a failure are released.
func (m *Manager) GetConnections(ctx context.Context, dataSource string, count int, mode group.ConnectionMode) ([]storage.Conn, error) {
	s, err := m.source(dataSource)
	if err != nil {
		return nil, err
	}

	if count > 1 {
		s.acquire.Lock()
		defer s.acquire.Unlock()
	}

	m.logger.Debug("acquiring connections",
		slog.String("data_source", dataSource),
		slog.Int("count", count),
		slog.String("mode", mode.String()),
	)

	result := make([]storage.Conn, 0, count)
	for range count {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			for _, c := range result {
				err = multierr.Append(err, c.(*sql.Conn).Close())
			}

			return nil, &group.ConnectionError{DataSource: dataSource, Count: count, Err: err}
		}

		result = append(result, conn)
	}

	return result, nil
}

// Ping checks every data source.
func (m *Manager) Ping(ctx context.Context) error {
	var err error
	for _, name := range m.Names() {
		db, _ := m.DB(name)
		if pingErr := db.PingContext(ctx); pingErr != nil {
			err = multierr.Append(err, errors.Wrapf(pingErr, "failed to ping data source %s", name))
		}
	}

	return err
}

// Close closes every pool.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for _, name := range slices.Sorted(maps.Keys(m.sources)) {
		err = multierr.Append(err, m.sources[name].db.Close())
	}

	m.sources = make(map[string]*source)
	return err
}

func (m *Manager) source(name string) (*source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sources[name]
	if !ok {
		return nil, errors.Errorf("unknown data source %s", name)
	}

	return s, nil
}

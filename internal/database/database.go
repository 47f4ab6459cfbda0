// Package database provides SQL connection management for the record stores.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver, registered as "pgx"

	"github.com/dbsmedya/outreachkpi/internal/config"
)

// OpenFunc opens a database handle for a driver name and DSN.
type OpenFunc func(driverName, dsn string) (*sql.DB, error)

// Manager owns one connection pool per SQL-backed dataset.
type Manager struct {
	mu      sync.Mutex
	conns   map[string]*sql.DB
	open    OpenFunc
	retries int
	backoff time.Duration
}

// NewManager creates a new database manager.
func NewManager() *Manager {
	return &Manager{
		conns:   make(map[string]*sql.DB),
		open:    sql.Open,
		retries: 3,
		backoff: time.Second,
	}
}

// Connect returns the pool for dataset, opening it on first use.
func (m *Manager) Connect(ctx context.Context, dataset string, cfg *config.DatabaseConfig) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if db, ok := m.conns[dataset]; ok {
		return db, nil
	}

	db, err := m.connectWithRetry(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database for dataset %s: %w", cfg.Driver, dataset, err)
	}
	m.conns[dataset] = db
	return db, nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error

	backoff := m.backoff

	for i := 0; i < m.retries; i++ {
		db, err = m.connect(cfg)
		if err == nil {
			// Verify connection
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if i < m.retries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", m.retries, err)
}

// connect creates a database connection.
func (m *Manager) connect(cfg *config.DatabaseConfig) (*sql.DB, error) {
	driver, dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := m.open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN returns the database/sql driver name and DSN for cfg.
func BuildDSN(cfg *config.DatabaseConfig) (string, string, error) {
	switch cfg.Driver {
	case "mysql":
		return "mysql", BuildMySQLDSN(cfg), nil
	case "postgres":
		return "pgx", BuildPostgresDSN(cfg), nil
	default:
		return "", "", fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// BuildMySQLDSN constructs a MySQL DSN from configuration.
func BuildMySQLDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	params := "?parseTime=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// BuildPostgresDSN constructs a postgres:// URL from configuration.
func BuildPostgresDSN(cfg *config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}

	q := url.Values{}
	switch cfg.TLS {
	case "disable":
		q.Set("sslmode", "disable")
	case "required":
		q.Set("sslmode", "require")
	case "preferred", "":
		q.Set("sslmode", "prefer")
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Close closes all database connections gracefully.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, name := range m.names() {
		if err := m.conns[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", name, err))
		}
		delete(m.conns, name)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

// Ping verifies all connections are alive.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range m.names() {
		if err := m.conns[name].PingContext(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	return nil
}

func (m *Manager) names() []string {
	names := make([]string, 0, len(m.conns))
	for name := range m.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

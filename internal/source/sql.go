package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbsmedya/outreachkpi/internal/config"
	"github.com/dbsmedya/outreachkpi/internal/logger"
	"github.com/dbsmedya/outreachkpi/internal/record"
	"github.com/dbsmedya/outreachkpi/internal/sqlutil"
)

// Connector hands out the connection pool of a dataset.
// *database.Manager implements it.
type Connector interface {
	Connect(ctx context.Context, dataset string, cfg *config.DatabaseConfig) (*sql.DB, error)
}

// SQLLoader reads every row of one table.
type SQLLoader struct {
	dataset string
	cfg     config.SourceConfig
	conn    Connector
	log     *logger.Logger
}

// NewSQLLoader creates a SQL loader for dataset.
func NewSQLLoader(dataset string, cfg *config.SourceConfig, conn Connector, log *logger.Logger) *SQLLoader {
	if log == nil {
		log = logger.NewNop()
	}
	return &SQLLoader{dataset: dataset, cfg: *cfg, conn: conn, log: log}
}

// Describe returns driver://host/database.table.
func (l *SQLLoader) Describe() string {
	return fmt.Sprintf("%s://%s/%s.%s", l.cfg.Driver, l.cfg.Host, l.cfg.Database, l.cfg.Table)
}

// Query builds the read-all statement.
func (l *SQLLoader) Query() (string, error) {
	dialect := sqlutil.Dialect(l.cfg.Driver)

	table, err := sqlutil.QuoteIdentifierSafe(dialect, l.cfg.Table)
	if err != nil {
		return "", err
	}

	cols := "*"
	if len(l.cfg.Columns) > 0 {
		quoted := make([]string, len(l.cfg.Columns))
		for i, c := range l.cfg.Columns {
			quoted[i] = sqlutil.QuoteIdentifier(dialect, c)
		}
		cols = strings.Join(quoted, ", ")
	}

	return fmt.Sprintf("SELECT %s FROM %s", cols, table), nil
}

// Fetch runs the query and scans each row into a Record keyed by column name.
func (l *SQLLoader) Fetch(ctx context.Context) ([]record.Record, error) {
	src := l.Describe()

	query, err := l.Query()
	if err != nil {
		return nil, &FetchError{Source: src, Kind: KindConfig, Err: err}
	}

	db, err := l.conn.Connect(ctx, l.dataset, &l.cfg.DatabaseConfig)
	if err != nil {
		return nil, &FetchError{Source: src, Kind: KindNetwork, Err: err}
	}

	l.log.Debugw("querying records", "query", query)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, &FetchError{Source: src, Kind: KindNetwork, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &FetchError{Source: src, Kind: KindDecode, Err: fmt.Errorf("failed to get columns: %w", err)}
	}

	records := []record.Record{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, &FetchError{Source: src, Kind: KindDecode, Err: fmt.Errorf("failed to scan row: %w", err)}
		}

		r := make(record.Record, len(columns))
		for i, col := range columns {
			val := values[i]
			// Convert []byte to string
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			r[col] = val
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &FetchError{Source: src, Kind: KindNetwork, Err: err}
	}

	return records, nil
}

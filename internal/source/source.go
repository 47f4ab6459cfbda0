// Package source implements the loaders that read raw outreach records from
// REST endpoints, SQL databases and local JSON files.
package source

import (
	"context"
	"fmt"

	"github.com/dbsmedya/outreachkpi/internal/config"
	"github.com/dbsmedya/outreachkpi/internal/database"
	"github.com/dbsmedya/outreachkpi/internal/logger"
	"github.com/dbsmedya/outreachkpi/internal/record"
)

// Loader retrieves the full record list of one dataset.
type Loader interface {
	// Fetch returns every record in the order the store returned them.
	// Failures are returned as *FetchError.
	Fetch(ctx context.Context) ([]record.Record, error)
	// Describe names the source for logs and notices.
	Describe() string
}

// New builds the loader for a dataset's source configuration.
// db is only used for sql sources and may be nil otherwise.
func New(dataset string, cfg *config.SourceConfig, db *database.Manager, log *logger.Logger) (Loader, error) {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithDataset(dataset)

	switch cfg.Type {
	case "rest", "":
		return NewRESTLoader(RESTOptions{
			URL:         cfg.URL,
			Headers:     cfg.Headers,
			EnvelopeKey: cfg.EnvelopeKey,
			Timeout:     cfg.Timeout(),
			MaxRetries:  cfg.MaxRetries,
		}, log), nil
	case "sql":
		if db == nil {
			return nil, fmt.Errorf("dataset %s: sql source needs a database manager", dataset)
		}
		return NewSQLLoader(dataset, cfg, db, log), nil
	case "file":
		return NewFileLoader(cfg.Path, cfg.EnvelopeKey), nil
	default:
		return nil, fmt.Errorf("dataset %s: unknown source type %q", dataset, cfg.Type)
	}
}

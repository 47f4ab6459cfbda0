package source

import (
	"context"
	"errors"
	"os"

	"github.com/dbsmedya/outreachkpi/internal/record"
)

// FileLoader reads records from a local JSON file with the same body
// normalisation as the REST loader.
type FileLoader struct {
	path        string
	envelopeKey string
}

// NewFileLoader creates a file loader.
func NewFileLoader(path, envelopeKey string) *FileLoader {
	return &FileLoader{path: path, envelopeKey: envelopeKey}
}

// Describe returns the file path.
func (l *FileLoader) Describe() string {
	return "file://" + l.path
}

// Fetch reads and decodes the file.
func (l *FileLoader) Fetch(ctx context.Context) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: l.Describe(), Kind: KindNetwork, Err: err}
	}
	if l.path == "" {
		return nil, &FetchError{Source: l.Describe(), Kind: KindConfig, Err: errors.New("path is empty")}
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &FetchError{Source: l.Describe(), Kind: KindNetwork, Err: err}
	}

	records, err := record.Decode(data, l.envelopeKey)
	if err != nil {
		return nil, &FetchError{Source: l.Describe(), Kind: KindDecode, Err: err}
	}
	return records, nil
}

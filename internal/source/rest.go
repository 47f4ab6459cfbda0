package source

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/dbsmedya/outreachkpi/internal/logger"
	"github.com/dbsmedya/outreachkpi/internal/record"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 64 << 20

// HTTPClient is the subset of *http.Client the REST loader uses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTOptions configures a RESTLoader.
type RESTOptions struct {
	URL         string
	Headers     map[string]string
	EnvelopeKey string
	Timeout     time.Duration
	MaxRetries  int
	// Backoff is the first retry delay; it doubles per attempt. Defaults to 200ms.
	Backoff time.Duration
	// Client overrides the HTTP client. Defaults to an *http.Client with Timeout.
	Client HTTPClient
}

// RESTLoader reads records with one unfiltered GET request.
type RESTLoader struct {
	opts   RESTOptions
	client HTTPClient
	log    *logger.Logger
}

// NewRESTLoader creates a REST loader.
func NewRESTLoader(opts RESTOptions, log *logger.Logger) *RESTLoader {
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RESTLoader{opts: opts, client: client, log: log}
}

// Describe returns the endpoint without its query string.
func (l *RESTLoader) Describe() string {
	u, err := url.Parse(l.opts.URL)
	if err != nil {
		return "rest"
	}
	return u.Scheme + "://" + u.Host + u.Path
}

// Fetch performs the GET, retrying network failures, 5xx and 429 with
// exponential backoff plus jitter.
func (l *RESTLoader) Fetch(ctx context.Context) ([]record.Record, error) {
	var lastErr *FetchError
	backoff := l.opts.Backoff

	for attempt := 0; attempt <= l.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			sleep := backoff + time.Duration(rand.Int63n(int64(backoff)/2+1))
			l.log.Debugw("retrying fetch", "attempt", attempt, "delay", sleep, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, &FetchError{Source: l.Describe(), Kind: KindNetwork, Err: ctx.Err()}
			case <-time.After(sleep):
			}
			backoff *= 2
		}

		records, err := l.fetchOnce(ctx)
		if err == nil {
			return records, nil
		}
		lastErr = err
		if !err.Retryable() || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (l *RESTLoader) fetchOnce(ctx context.Context) ([]record.Record, *FetchError) {
	src := l.Describe()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.opts.URL, nil)
	if err != nil {
		return nil, &FetchError{Source: src, Kind: KindConfig, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range l.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: src, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &FetchError{
			Source: src,
			Kind:   KindStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("body=%s", string(b)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Source: src, Kind: KindNetwork, Err: err}
	}

	records, err := record.Decode(body, l.opts.EnvelopeKey)
	if err != nil {
		return nil, &FetchError{Source: src, Kind: KindDecode, Err: err}
	}
	return records, nil
}

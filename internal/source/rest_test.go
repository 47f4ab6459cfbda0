package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(url string, retries int) *RESTLoader {
	return NewRESTLoader(RESTOptions{
		URL:         url,
		Headers:     map[string]string{"xc-token": "secret"},
		EnvelopeKey: "list",
		Timeout:     2 * time.Second,
		MaxRetries:  retries,
		Backoff:     time.Millisecond,
	}, nil)
}

func TestRESTLoader_BodyShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"bare array", `[{"Status":"Enviado"},{"Status":"Pendiente"}]`, 2},
		{"nocodb envelope", `{"list":[{"Status":"Enviado"}],"pageInfo":{"totalRows":1}}`, 1},
		{"data envelope", `{"data":[{"a":1},{"a":2},{"a":3}]}`, 3},
		{"no known key", `{"message":"ok"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			records, err := newTestLoader(srv.URL, 0).Fetch(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, records)
			assert.Len(t, records, tt.expected)
		})
	}
}

func TestRESTLoader_SendsHeaders(t *testing.T) {
	var gotToken, gotAccept, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("xc-token")
		gotAccept = r.Header.Get("Accept")
		gotMethod = r.Method
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newTestLoader(srv.URL, 0).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, http.MethodGet, gotMethod)
}

func TestRESTLoader_PreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"list":[{"Id":3},{"Id":1},{"Id":2}]}`))
	}))
	defer srv.Close()

	records, err := newTestLoader(srv.URL, 0).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "3", records[0].String("Id"))
	assert.Equal(t, "1", records[1].String("Id"))
	assert.Equal(t, "2", records[2].String("Id"))
}

func TestRESTLoader_StatusErrorNotRetriedOn404(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "table not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestLoader(srv.URL, 3).Fetch(context.Background())
	require.Error(t, err)

	fe, ok := IsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, KindStatus, fe.Kind)
	assert.Equal(t, http.StatusNotFound, fe.Status)
	assert.Contains(t, err.Error(), "table not found")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRESTLoader_Retries5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"a":"b"}]`))
	}))
	defer srv.Close()

	records, err := newTestLoader(srv.URL, 3).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRESTLoader_RetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestLoader(srv.URL, 2).Fetch(context.Background())
	fe, ok := IsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, fe.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRESTLoader_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := newTestLoader(srv.URL, 3).Fetch(context.Background())
	fe, ok := IsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, KindDecode, fe.Kind)
	assert.False(t, fe.Retryable())
}

type failingClient struct{ calls int }

func (c *failingClient) Do(*http.Request) (*http.Response, error) {
	c.calls++
	return nil, errors.New("dial tcp: connection refused")
}

func TestRESTLoader_NetworkError(t *testing.T) {
	client := &failingClient{}
	l := NewRESTLoader(RESTOptions{
		URL:        "https://noco.example.com/api/v1/db/data/noco/p/t?limit=1000",
		MaxRetries: 2,
		Backoff:    time.Millisecond,
		Client:     client,
	}, nil)

	_, err := l.Fetch(context.Background())
	fe, ok := IsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.Equal(t, 3, client.calls)
	assert.Equal(t, "https://noco.example.com/api/v1/db/data/noco/p/t", l.Describe())
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRESTLoader_ContextCancelStopsRetries(t *testing.T) {
	client := &failingClient{}
	l := NewRESTLoader(RESTOptions{
		URL:        "https://noco.example.com/x",
		MaxRetries: 5,
		Backoff:    time.Hour,
		Client:     client,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := l.Fetch(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, client.calls)
}

func TestFetchError_Retryable(t *testing.T) {
	tests := []struct {
		err      *FetchError
		expected bool
	}{
		{&FetchError{Kind: KindNetwork}, true},
		{&FetchError{Kind: KindStatus, Status: 500}, true},
		{&FetchError{Kind: KindStatus, Status: 503}, true},
		{&FetchError{Kind: KindStatus, Status: 429}, true},
		{&FetchError{Kind: KindStatus, Status: 401}, false},
		{&FetchError{Kind: KindStatus, Status: 404}, false},
		{&FetchError{Kind: KindDecode}, false},
		{&FetchError{Kind: KindConfig}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.err.Retryable(), "%+v", tt.err)
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	inner := context.DeadlineExceeded
	err := &FetchError{Source: "s", Kind: KindNetwork, Err: inner}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "fetch s: network error: context deadline exceeded", err.Error())

	_, ok := IsFetchError(errors.New("plain"))
	assert.False(t, ok)
}

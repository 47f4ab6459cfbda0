package source

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a fetch failed.
type ErrorKind string

const (
	// KindStatus is a non-success HTTP status.
	KindStatus ErrorKind = "status"
	// KindNetwork is a transport, connection or query failure.
	KindNetwork ErrorKind = "network"
	// KindDecode is a body or row that could not be decoded.
	KindDecode ErrorKind = "decode"
	// KindConfig is a loader that cannot run as configured.
	KindConfig ErrorKind = "config"
)

// FetchError is returned by every Loader when records could not be retrieved.
type FetchError struct {
	Source string
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("fetch %s: unexpected status %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s error: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a later attempt could succeed.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindStatus:
		return e.Status >= 500 || e.Status == 429
	}
	return false
}

// IsFetchError reports whether err wraps a FetchError and returns it.
func IsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

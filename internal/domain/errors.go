package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed source fetch.
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindRateLimited
	KindNetwork
	KindParse
	KindUnconfiguredSource
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	case KindUnconfiguredSource:
		return "unconfigured_source"
	default:
		return "unexpected"
	}
}

// Retryable reports whether a failure of this kind may be attempted again.
// Throttling is paced by the rate limiter, and a missing limiter is a
// configuration error, so neither is retried.
func (k ErrorKind) Retryable() bool {
	return k != KindRateLimited && k != KindUnconfiguredSource
}

// FetchError is a classified failure from one source.
type FetchError struct {
	Kind   ErrorKind
	Source Source
	Err    error
}

// NewFetchError wraps err with a kind and source.
func NewFetchError(kind ErrorKind, source Source, err error) *FetchError {
	return &FetchError{Kind: kind, Source: source, Err: err}
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification of err, or KindUnexpected if err is
// not a FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnexpected
}

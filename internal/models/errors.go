package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies crawl errors
type ErrorKind string

const (
	KindSessionMissing   ErrorKind = "session_missing"
	KindMalformedInput   ErrorKind = "malformed_input"
	KindNavigationFailed ErrorKind = "navigation_failed"
	KindTimeout          ErrorKind = "timeout"
	KindEngineError      ErrorKind = "engine_error"

	// KindWriteFailed marks a target that rendered but whose artifact could not be written
	KindWriteFailed ErrorKind = "write_failed"
)

// Sentinels for errors.Is; any FetchError of the same kind matches.
var (
	ErrSessionMissing   = &FetchError{Kind: KindSessionMissing}
	ErrMalformedInput   = &FetchError{Kind: KindMalformedInput}
	ErrNavigationFailed = &FetchError{Kind: KindNavigationFailed}
	ErrTimeout          = &FetchError{Kind: KindTimeout}
	ErrEngineError      = &FetchError{Kind: KindEngineError}
	ErrWriteFailed      = &FetchError{Kind: KindWriteFailed}
)

// ErrEngineClosed is wrapped by engine errors raised after the browser has gone away
var ErrEngineClosed = errors.New("browser engine closed")

// FetchError is the typed error of the session, target and render stages
type FetchError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

// NewFetchError builds a FetchError for the given kind
func NewFetchError(kind ErrorKind, url string, err error) *FetchError {
	return &FetchError{Kind: kind, URL: url, Err: err}
}

func (e *FetchError) Error() string {
	msg := string(e.Kind)
	if e.URL != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.URL)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can test against the sentinels
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of a FetchError in err's chain, or engine_error otherwise
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindEngineError
}

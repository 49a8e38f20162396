package cache

import "errors"

var (
	// ErrCache wraps every backend failure.
	ErrCache = errors.New("cache backend failure")
	// ErrUnknownBackend is returned by New for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")
)

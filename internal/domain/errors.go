package domain

import "errors"

var (
	// ErrNoIndex means an operation needs loaded artifacts and none exist.
	ErrNoIndex = errors.New("no index loaded")

	// ErrIntegrity means the chunk id space of the metadata store, dense
	// index and sparse index has desynchronized. Continuing would lie
	// about results, so callers must fail the request.
	ErrIntegrity = errors.New("artifact id space desynchronized")

	// ErrJobInFlight means an indexing job is already running.
	ErrJobInFlight = errors.New("an indexing job is already in flight")
)

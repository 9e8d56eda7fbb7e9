package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Document lookups map this to a 404, it is never treated as a crash.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates missing or inconsistent configuration.
	// A dimension mismatch between the configured vector size and an
	// observed embedding is a configuration error: it signals model or
	// config drift and must never silently corrupt the store.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUpstream indicates an embedding or generation service failure.
	// Ingestion treats it as fatal for the whole run, query paths convert
	// it into a terminal error event for the client.
	ErrUpstream = errors.New("upstream service error")

	// ErrStore indicates a connection or query failure against the
	// vector store. Propagation policy matches ErrUpstream.
	ErrStore = errors.New("store error")
)

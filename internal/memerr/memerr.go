// Package memerr defines the sentinel error set returned by the memory
// engine's components. Callers compare against these with errors.Is;
// wrapped context is added with fmt.Errorf("...: %w", err) at the call site.
package memerr

import "errors"

// ErrInvalidSessionID is returned when a session id fails the charset or
// length constraint.
var ErrInvalidSessionID = errors.New("invalid_session_id")

// ErrInvalidMemoryID is returned when a memory id fails validation.
var ErrInvalidMemoryID = errors.New("invalid_memory_id")

// ErrInvalidQueryInput is returned when an escape or interpolation
// constraint is violated before a query would be issued.
var ErrInvalidQueryInput = errors.New("invalid_query_input")

// ErrNotFound is returned for a missing memory, missing store, or a
// session-ownership filter that hides an existing record from the caller.
var ErrNotFound = errors.New("not_found")

// ErrSessionMismatch is returned when a lifecycle operation is attempted
// across session boundaries.
var ErrSessionMismatch = errors.New("session_mismatch")

// ErrPathTraversal is returned when the store manager's containment check
// fails against the configured base directory.
var ErrPathTraversal = errors.New("path_traversal_detected")

// ErrStoreOpenFailed is returned when the underlying triple store fails to
// open.
var ErrStoreOpenFailed = errors.New("store_open_failed")

// ErrOntologyLoadFailed is returned when the ontology loader fails during
// store bring-up; the store is closed before this error is surfaced.
var ErrOntologyLoadFailed = errors.New("ontology_load_failed")

// ErrTimeout names the deadline-exceeded error kind. No engine operation
// returns it: an exceeded context deadline surfaces as the context's own
// error, wrapped by the operation that hit it.
var ErrTimeout = errors.New("timeout")

// ErrUnhealthy is returned when a store's health probe fails.
var ErrUnhealthy = errors.New("unhealthy")

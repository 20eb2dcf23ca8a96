package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrNoRowsAffected: a conditional update matched no row (predicate failed)
// - ErrConflict: unique constraint or concurrent-modification conflict
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrNoRowsAffected = errors.New("no rows affected")
	ErrConflict       = errors.New("conflict")
	ErrUnavailable    = errors.New("unavailable")
)

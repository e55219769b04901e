package shared

import "errors"

var (
	// ErrNotFound indicates a referenced community, account or supplier does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoPropertiesInCommunity is returned when a distribution targets a community without properties.
	ErrNoPropertiesInCommunity = errors.New("no properties in community")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrPersistence wraps storage failures during reads, batch writes or commits.
	ErrPersistence = errors.New("persistence failure")
	// ErrConcurrencyConflict signals a lost race on the same account row.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

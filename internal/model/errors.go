package model

import "errors"

// Error classes. Concrete errors wrap one of these and are matched with errors.Is.
var (
	// ErrProviderUnavailable marks a failed or unusable provider call.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrSchemaMismatch marks a provider table that cannot be normalized.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrStoreUnavailable marks a store failure. It is fatal for a run.
	ErrStoreUnavailable = errors.New("store unavailable")
)

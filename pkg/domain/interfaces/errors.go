package interfaces

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared by all repository backends
var (
	ErrNotFound = goerr.New("record not found")

	// ErrAlreadyProcessed guards the processed_at transition: an event
	// is marked processed at most once, making redispatch a no-op.
	ErrAlreadyProcessed = goerr.New("event already processed")
)

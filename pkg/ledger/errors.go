package ledger

import "errors"

var (
	// ErrNotFound means the asset does not exist on chain, or its record has
	// been deleted.
	ErrNotFound = errors.New("car not found")

	// ErrReverted means the chain rejected a submitted transaction. No state
	// changed on chain, so callers must treat the attempted value as
	// never-spent.
	ErrReverted = errors.New("transaction reverted")
)

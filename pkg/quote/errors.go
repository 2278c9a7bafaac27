package quote

import (
	"errors"
	"fmt"
)

// ErrNetworkUnavailable marks transport-level failures reaching the relay.
// The underlying error is wrapped so callers can still inspect it.
var ErrNetworkUnavailable = errors.New("quote relay unreachable")

// UpstreamError is a non-2xx response from the relay. Status and body are
// carried verbatim for diagnostics.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("quote relay rejected request (status %d): %s", e.Status, e.Body)
}

// MalformedResponseError marks a 2xx response missing required fields. A
// missing or non-numeric fee is never defaulted to zero: a zero-fee default
// would let a caller under-fund a real transfer.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed quote response: %s", e.Reason)
}

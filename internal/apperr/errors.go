// Package apperr defines the error taxonomy shared across the service.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReference means no canonical identifier could be derived
	// from user input. Call sites handle it locally; it is never surfaced
	// as a hard error.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrTokenUnavailable means every token resolution strategy was exhausted.
	ErrTokenUnavailable = errors.New("token unavailable")
	// ErrAuthorizationRequired means no authenticated session was present
	// at the proxy boundary.
	ErrAuthorizationRequired = errors.New("authorization required")
	// ErrNotFound is the generic missing-record sentinel.
	ErrNotFound = errors.New("not found")
)

// UpstreamError reports a failed call to the external metadata service,
// either a non-success HTTP status or a transport error.
type UpstreamError struct {
	Status  int    // upstream HTTP status, 0 on transport failure
	Message string // sanitized detail, logged server-side only
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream failure: status %d", e.Status)
	}
	return fmt.Sprintf("upstream failure: %s", e.Message)
}

// AsUpstream unwraps err into an *UpstreamError when it is one.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthExpired means no usable credential exists and an operator has to re-authorize.
	ErrAuthExpired = errors.New("spotify authorization expired, re-authorization required")
	// ErrRefreshFailed means the refresh token was rejected or the refresh call failed.
	ErrRefreshFailed = errors.New("failed to refresh spotify credential")
	// ErrInvalidAuthCode means the authorization code was rejected.
	ErrInvalidAuthCode = errors.New("authorization code rejected")
	// ErrStaleState means the current track is not part of the playlist snapshot.
	// Placement falls back to appending; it is never returned to users.
	ErrStaleState = errors.New("current track not found in playlist snapshot")
	// ErrNoResults means a catalog search returned nothing.
	ErrNoResults = errors.New("no results")
)

// ExternalAPIError wraps a failed catalog or playlist call.
type ExternalAPIError struct {
	Op  string
	Err error
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalAPIError) Unwrap() error {
	return e.Err
}

// NewExternalAPIError wraps err unless it already is an ExternalAPIError or nil.
func NewExternalAPIError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *ExternalAPIError
	if errors.As(err, &apiErr) {
		return err
	}
	return &ExternalAPIError{Op: op, Err: err}
}

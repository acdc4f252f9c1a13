package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRemoteResponse is matched by every RemoteResponseError.
	ErrRemoteResponse = errors.New("remote response error")

	// ErrChunkTooLarge is returned when more identifiers than ChunkSize are submitted.
	ErrChunkTooLarge = errors.New("chunk exceeds configured size")
)

// RemoteResponseError reports a chunk the tracking service did not answer
// usably. The whole chunk is lost; there is no retry.
type RemoteResponseError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *RemoteResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tracking %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("tracking %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RemoteResponseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrRemoteResponse) match.
func (e *RemoteResponseError) Is(target error) bool {
	return target == ErrRemoteResponse
}

// classOf extracts the error class of err, or "" when err did not come
// from the tracking service.
func classOf(err error) ErrorClass {
	var rerr *RemoteResponseError
	if errors.As(err, &rerr) {
		return rerr.ErrorClass
	}
	return ""
}

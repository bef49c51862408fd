package telegraph

import (
	"errors"
	"fmt"
)

var (
	// ErrRequest matches every failed API call: a non-success HTTP status or
	// an envelope with ok=false.
	ErrRequest = errors.New("telegraph: request error")

	// ErrUpload matches the upload-specific failures.
	ErrUpload = errors.New("telegraph: upload error")

	// ErrInvalidRequest matches request validation failures.
	ErrInvalidRequest = errors.New("telegraph: invalid request")

	// ErrNoTargets is returned by Upload when called without targets.
	ErrNoTargets = fmt.Errorf("%w: no targets given", ErrUpload)
)

// TransportError reports a non-success HTTP status.
type TransportError struct {
	Method     string
	StatusCode int
	Status     string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request error: %s: %s", e.Method, e.Status)
}

func (e *TransportError) Is(target error) bool {
	return target == ErrRequest
}

// EnvelopeError reports a response envelope with ok=false. Raw holds the
// undecoded response body.
type EnvelopeError struct {
	Method      string
	Description string
	Raw         []byte
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("request error: %s: %s", e.Method, e.Raw)
}

func (e *EnvelopeError) Is(target error) bool {
	return target == ErrRequest
}

// ValidationError reports a request that was rejected before being sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// MixedTargetsError reports an upload mixing local paths and remote URLs.
// Index and Target identify the first target whose kind differs from the
// first one.
type MixedTargetsError struct {
	Index  int
	Target string
}

func (e *MixedTargetsError) Error() string {
	return fmt.Sprintf("do not mix local and remote targets: target %d (%s)", e.Index, e.Target)
}

func (e *MixedTargetsError) Is(target error) bool {
	return target == ErrUpload
}

// IOError reports a local upload target that could not be read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("error reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrUpload
}

// FetchError reports a remote upload target that could not be fetched.
// StatusCode is zero when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("error fetching %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("error fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrUpload
}

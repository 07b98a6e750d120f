package inference

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInferenceUnavailable matches every *UnavailableError via errors.Is.
var ErrInferenceUnavailable = errors.New("inference unavailable")

// errEmptyResponse is returned when the provider answers without content.
var errEmptyResponse = errors.New("empty choices in response")

// UnavailableError is returned once retries against the provider are exhausted
// or the provider rejected the call permanently. It is terminal for a run.
type UnavailableError struct {
	Model    string
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("inference unavailable after %d attempt(s) (model %s): %v", e.Attempts, e.Model, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrInferenceUnavailable }

// permanentError marks failures that will not change on retry.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the retry loop stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// isPermanent reports whether retrying err is pointless. Provider errors are
// classified by message, since the SDK surfaces status codes only as text.
func isPermanent(err error) bool {
	var p permanentError
	if errors.As(err, &p) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"unauthorized",
		"authentication",
		"invalid api key",
		"incorrect api key",
		"status code: 400",
		"status code: 401",
		"status code: 403",
		"status code: 404",
		"model_not_found",
		"context_length_exceeded",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

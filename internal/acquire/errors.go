package acquire

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyContent means the page rendered but the container was absent
	// or empty. Retried without growing the delay.
	ErrEmptyContent = errors.New("acquire: container empty or absent")
	// ErrNavigationTimeout means the page did not load within the
	// navigation timeout. Retried with a doubled delay.
	ErrNavigationTimeout = errors.New("acquire: navigation timeout")
	// ErrAcquisition covers every other failure while using the browser.
	// Retried with a doubled delay.
	ErrAcquisition = errors.New("acquire: browser session failed")
	// ErrExhausted is returned once every attempt has failed.
	ErrExhausted = errors.New("acquire: all attempts failed")
)

// AttemptError ties a failure to the attempt it happened in.
type AttemptError struct {
	Attempt int
	Kind    error
	Err     error
}

func (e *AttemptError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("attempt %d: %s", e.Attempt, e.Kind)
	}
	return fmt.Sprintf("attempt %d: %s: %s", e.Attempt, e.Kind, e.Err)
}

func (e *AttemptError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks a Processor error as one that must not be retried, the
// controller stops and returns it as is.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

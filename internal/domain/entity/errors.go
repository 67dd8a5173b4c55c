package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrUnavailable indicates a provider cannot be used at all, typically
	// because its credential is missing. It must never be retried and must
	// never consume retry budget.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrExhausted indicates every provider in a chain ended in
	// unavailable or exhausted failure. Callers treat it as "no data for
	// this category", never as a fatal run error.
	ErrExhausted = errors.New("provider chain exhausted")

	// ErrDeliveryFailed indicates the delivery sink rejected the message
	// after all retries. This is the one error class surfaced to the
	// invoking process.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// UnavailableError wraps ErrUnavailable with the reason a provider is
// unusable (e.g. which credential is missing).
type UnavailableError struct {
	Provider string
	Reason   string
}

// Error returns a formatted message for the unavailable provider.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %s", e.Provider, e.Reason)
}

// Is makes the error match ErrUnavailable via errors.Is.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

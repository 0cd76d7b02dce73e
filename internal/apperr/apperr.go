// Package apperr defines the error taxonomy shared by the server and the
// client: every failure that crosses a component boundary wraps one of the
// sentinel kinds below, so callers can classify it with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks a malformed create/update or register payload.
	ErrValidation = errors.New("validation error")
	// ErrAuth marks bad credentials or a missing, expired or revoked token.
	ErrAuth = errors.New("authentication error")
	// ErrNotFound marks an unknown issue or user identifier.
	ErrNotFound = errors.New("not found")
	// ErrNetwork marks a transport failure where no response was received.
	ErrNetwork = errors.New("network error")
	// ErrServer marks an unclassified server-side failure.
	ErrServer = errors.New("server error")
)

// kinds is the classification order used by Kind.
var kinds = []error{ErrValidation, ErrAuth, ErrNotFound, ErrNetwork, ErrServer}

// Validation returns an ErrValidation-wrapped error with the given message.
func Validation(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, a...))
}

// Auth returns an ErrAuth-wrapped error with the given message.
func Auth(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrAuth, fmt.Sprintf(format, a...))
}

// NotFound returns an ErrNotFound-wrapped error with the given message.
func NotFound(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, a...))
}

// Kind returns the sentinel kind err wraps, or ErrServer when err carries
// no known kind. Kind(nil) is nil.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrServer
}

// Detail strips the kind prefix from err's message, leaving the part that
// describes what went wrong ("title is required" rather than
// "validation error: title is required").
func Detail(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	k := Kind(err)
	if k != nil {
		msg = strings.TrimPrefix(msg, k.Error()+": ")
	}
	return msg
}

// Message converts err into the plain string shown to a user. No structured
// error crosses into the view layer; it only ever sees this string.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch Kind(err) {
	case ErrValidation:
		return "Invalid input: " + Detail(err)
	case ErrAuth:
		return "Authentication failed: " + Detail(err)
	case ErrNotFound:
		return "Not found: " + Detail(err)
	case ErrNetwork:
		return "Cannot reach the server, check your connection and try again"
	default:
		return "Something went wrong on the server, please try again"
	}
}

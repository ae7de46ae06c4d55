package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated indicates no acting member could be resolved.
	// Absence of an actor is always an error, never an implicit allow.
	ErrUnauthenticated = errors.New("acting member not resolved")
	// ErrForbidden indicates the member lacks a required ability or role.
	ErrForbidden = errors.New("action not allowed")
	// ErrNotFound indicates a referenced record is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidValue indicates a malformed field value.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnknownPredicate indicates a gate predicate name outside the registry.
	ErrUnknownPredicate = errors.New("unknown gate predicate")
	// ErrSequenceConflict indicates a transient member-id sequence collision.
	// Retried locally by the id generator before surfacing.
	ErrSequenceConflict = errors.New("member id sequence conflict")

	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// NotFoundError carries the missing resource name for the boundary layer.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e NotFoundError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidValueError carries the offending field.
type InvalidValueError struct {
	Field  string
	Reason string
}

func (e InvalidValueError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid value for %s", e.Field)
}

func (e InvalidValueError) Unwrap() error { return ErrInvalidValue }

// UnknownPredicateError names the predicate missing from the registry.
type UnknownPredicateError struct {
	Name string
}

func (e UnknownPredicateError) Error() string {
	return fmt.Sprintf("gate predicate %q is not registered", e.Name)
}

func (e UnknownPredicateError) Unwrap() error { return ErrUnknownPredicate }

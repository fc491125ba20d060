package domain

import (
	"errors"
	"fmt"
)

// NotFoundError reports a lookup for an unknown key.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// AlreadyExistsError reports a registration against an occupied batch id.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

func (e AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.ID)
}

// InvalidTransitionError reports an illegal custody status edge.
type InvalidTransitionError struct {
	BatchID string
	From    BatchStatus
	To      BatchStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("batch %s: invalid status transition %s -> %s", e.BatchID, e.From, e.To)
}

// ValidationError reports malformed input rejected before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DecodeError reports a malformed verification token.
type DecodeError struct {
	Reason string
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("decode token: %s", e.Reason)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsAlreadyExists reports whether err is (or wraps) an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var ae AlreadyExistsError
	return errors.As(err, &ae)
}

// IsInvalidTransition reports whether err is (or wraps) an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var it InvalidTransitionError
	return errors.As(err, &it)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsDecode reports whether err is (or wraps) a DecodeError.
func IsDecode(err error) bool {
	var de DecodeError
	return errors.As(err, &de)
}

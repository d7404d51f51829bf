// Package common defines sentinel errors shared by the journal services,
// repositories and the CLI. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Identity errors.
	ErrAlreadyRegistered  = errors.New("identity already registered")
	ErrNotRegistered      = errors.New("identity not registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIdentityMismatch   = errors.New("identity does not match the stored one")

	// Record errors.
	ErrCorruptRecord = errors.New("record is unreadable")

	// Validation errors.
	ErrInvalidInput = errors.New("invalid input")
)

// CorruptRecordError reports one record that could not be decoded or did not
// authenticate. It matches ErrCorruptRecord and unwraps to the cause.
type CorruptRecordError struct {
	RecordID string
	Err      error
}

func (e *CorruptRecordError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("%v: %v", ErrCorruptRecord, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrCorruptRecord, e.RecordID, e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }

// Is implements errors.Is for ErrCorruptRecord.
func (e *CorruptRecordError) Is(target error) bool {
	return target == ErrCorruptRecord
}

// NewCorruptRecordError wraps err for the record id.
func NewCorruptRecordError(id string, err error) *CorruptRecordError {
	return &CorruptRecordError{RecordID: id, Err: err}
}

// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmobj

import (
	stderrors "errors"
)

// ErrorKind classifies a SharedObject failure.
type ErrorKind int

// Error kinds returned by SharedObject operations.
const (
	// KindNone is reported for errors, which did not originate
	// from a SharedObject operation.
	KindNone ErrorKind = iota
	// KindInvalidState - the operation is not permitted in the
	// object's current status.
	KindInvalidState
	// KindRegionAllocation - the shared memory region could not be created.
	KindRegionAllocation
	// KindLockCreation - the named lock could not be created as a new one.
	KindLockCreation
	// KindNotFound - the region and/or the lock does not exist.
	KindNotFound
	// KindAccess - an os-level error during a read/write/execute.
	KindAccess
	// KindMutation - the caller-supplied mutation routine failed.
	KindMutation
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidState:
		return "invalid state"
	case KindRegionAllocation:
		return "region allocation failure"
	case KindLockCreation:
		return "lock creation failure"
	case KindNotFound:
		return "region or lock not found"
	case KindAccess:
		return "access failure"
	case KindMutation:
		return "mutation routine failure"
	default:
		return "unknown"
	}
}

// Error is the error type returned by all SharedObject operations.
// It carries the failure kind and the underlying cause.
type Error struct {
	kind ErrorKind
	err  error
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{kind: kind, err: err}
}

// Kind returns the failure kind.
func (e *Error) Kind() ErrorKind {
	return e.kind
}

func (e *Error) Error() string {
	return e.kind.String() + ": " + e.err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.err
}

// Cause returns the underlying cause. It exists for
// github.com/pkg/errors compatibility.
func (e *Error) Cause() error {
	return e.err
}

// KindOf extracts the failure kind from an error returned by a
// SharedObject operation. It returns KindNone for a nil error and
// for errors of other origins.
func KindOf(err error) ErrorKind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.kind
	}
	return KindNone
}

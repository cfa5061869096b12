package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")

	// ErrPreconditionFailed is returned by guarded status writes when the
	// row exists but its status (or generation) no longer matches the
	// expected precondition.
	ErrPreconditionFailed = errors.New("status precondition failed")
)

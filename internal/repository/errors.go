package repository

import "errors"

// ErrOptimisticLockFailed indicates that an optimistic lock check failed during update.
// The record was modified by another process (or another scheduler instance) after it was read.
var ErrOptimisticLockFailed = errors.New("optimistic lock failed: record was modified by another process")

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// IsOptimisticLockError checks if an error is an optimistic lock failure
func IsOptimisticLockError(err error) bool {
	return errors.Is(err, ErrOptimisticLockFailed)
}

// IsNotFoundError checks if an error indicates a record was not found
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates a malformed request, rejected before any store interaction.
var ErrValidation = errors.New("validation failed")

// ErrRetriesExhausted indicates an update lost the compare-and-write race on
// every attempt. The whole operation is safe to retry.
var ErrRetriesExhausted = errors.New("retries exhausted: record is under heavy contention")

// Package repository implements MySQL persistence for the booking core.  All
// seat transitions are expressed as single-row UPDATEs guarded by the current
// status and version so that two concurrent writers racing on the same row
// produce exactly one success; the loser is classified by re-reading the row.
// This file defines sentinel errors reused across the repositories so that
// higher layers can distinguish failure scenarios with errors.Is.
package repository

import "errors"

// ErrSeatInventoryNotFound is returned when a seat inventory row does not
// exist for the requested identifier.
var ErrSeatInventoryNotFound = errors.New("seat inventory not found")

// ErrBookingNotFound is returned when no booking matches the requested ID or
// reference.  Handlers should translate this into an HTTP 404 response.
var ErrBookingNotFound = errors.New("booking not found")

// ErrShowNotFound is returned when a show does not exist.  Handlers should
// translate this into an HTTP 404 response.
var ErrShowNotFound = errors.New("show not found")

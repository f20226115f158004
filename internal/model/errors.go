// Package model defines the persistent entities of the booking core and the
// pure state transitions that govern them.  Transition methods mutate the
// in-memory struct only; persisting the result (and detecting concurrent
// writers via the version column) is the repository layer's job.  Keeping the
// state machine free of SQL makes every transition unit-testable without a
// database.
package model

import "errors"

// ErrSeatUnavailable is returned when a seat cannot be locked because it is
// not AVAILABLE, or because another caller won the race for it.  This is a
// definitive outcome for the requested seat: retrying the same seat will not
// help, the caller should offer alternatives instead.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrVersionConflict is returned when a guarded write lost against a
// concurrent writer that advanced the row version first.  Unlike
// ErrSeatUnavailable this is transient; the service retries a bounded number
// of times before surfacing it.
var ErrVersionConflict = errors.New("version conflict")

// ErrInvalidStateTransition is returned when an operation is attempted from a
// state that does not permit it, e.g. confirming a non-PENDING booking or
// releasing a seat that is not LOCKED.  It always indicates a caller or logic
// error and is never retried.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// ErrLockExpired is returned when a seat lock or booking hold has passed its
// TTL.  It is surfaced distinctly from ErrSeatUnavailable so callers can tell
// "your hold expired" apart from "seat taken by someone else".
var ErrLockExpired = errors.New("lock expired")

// ErrCapacityExceeded is returned when a booking request asks for more seats
// than the configured per-user maximum.  The request is rejected before any
// lock is attempted.
var ErrCapacityExceeded = errors.New("max seats per booking exceeded")

// ErrShowNotBookable is returned when the requested show does not accept
// bookings, e.g. it is cancelled or has already started.
var ErrShowNotBookable = errors.New("show not bookable")

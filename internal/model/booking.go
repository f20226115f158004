package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking aggregate.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"   // seats locked, payment outstanding
	BookingConfirmed BookingStatus = "CONFIRMED" // paid, seats BOOKED
	BookingExpired   BookingStatus = "EXPIRED"   // hold TTL passed before payment
	BookingCancelled BookingStatus = "CANCELLED" // cancelled by the user or refund path
)

// Booking aggregates one user's reservation of one or more seats for one
// show.  It is created PENDING together with the seat locks it holds and is
// never physically deleted; terminal rows are retained for history.
//
// Transitions are monotone: PENDING -> {CONFIRMED, EXPIRED, CANCELLED}, and a
// CONFIRMED booking may still be CANCELLED (refund) but never re-enters
// PENDING.  HolderToken links the aggregate to the seat locks acquired for it
// and is never exposed to clients.
type Booking struct {
	ID                 uint64        // bookings.id
	Reference          string        // bookings.reference (externally visible unique token)
	UserID             uint64        // bookings.user_id
	ShowID             uint64        // bookings.show_id
	Status             BookingStatus // bookings.status
	HolderToken        string        // bookings.holder_token (matches seat_inventory.locked_by)
	TotalSeats         uint32        // bookings.total_seats
	TotalAmountCents   uint32        // bookings.total_amount_cents
	ExpiresAt          time.Time     // bookings.expires_at
	ConfirmedAt        *time.Time    // bookings.confirmed_at (nullable)
	CancelledAt        *time.Time    // bookings.cancelled_at (nullable)
	CancellationReason *string       // bookings.cancellation_reason (nullable)
	CreatedAt          time.Time     // bookings.created_at
	UpdatedAt          time.Time     // bookings.updated_at
}

// HasExpired reports whether the booking's hold window has passed at the
// given instant.  A PENDING booking past ExpiresAt can no longer be
// confirmed, regardless of whether the reaper has swept it.
func (b *Booking) HasExpired(now time.Time) bool {
	return now.After(b.ExpiresAt)
}

// IsPending reports whether the booking is still awaiting payment.
func (b *Booking) IsPending() bool { return b.Status == BookingPending }

// IsConfirmed reports whether the booking has been paid and confirmed.
func (b *Booking) IsConfirmed() bool { return b.Status == BookingConfirmed }

// Confirm transitions PENDING -> CONFIRMED.  Only PENDING bookings within
// their hold window can be confirmed; an expired one yields ErrLockExpired.
func (b *Booking) Confirm(now time.Time) error {
	if b.Status != BookingPending {
		return ErrInvalidStateTransition
	}
	if b.HasExpired(now) {
		return ErrLockExpired
	}
	b.Status = BookingConfirmed
	b.ConfirmedAt = &now
	return nil
}

// Cancel transitions PENDING or CONFIRMED -> CANCELLED, recording when and
// why.  Cancelling an already terminal booking is ErrInvalidStateTransition.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if b.Status == BookingExpired || b.Status == BookingCancelled {
		return ErrInvalidStateTransition
	}
	b.Status = BookingCancelled
	b.CancelledAt = &now
	b.CancellationReason = &reason
	return nil
}

// Expire transitions PENDING -> EXPIRED.  Invoked by the reaper once the hold
// window has passed; any other starting state is ErrInvalidStateTransition.
func (b *Booking) Expire() error {
	if b.Status != BookingPending {
		return ErrInvalidStateTransition
	}
	b.Status = BookingExpired
	return nil
}

// BookingSeat is the immutable join record tying one SeatInventory row to one
// Booking.  The price is copied at lock time so later price changes never
// retroactively alter historical bookings.
type BookingSeat struct {
	ID              uint64    // booking_seats.id
	BookingID       uint64    // booking_seats.booking_id
	SeatInventoryID uint64    // booking_seats.seat_inventory_id
	ShowID          uint64    // booking_seats.show_id
	SeatID          uint64    // booking_seats.seat_id
	Label           string    // booking_seats.label (captured at lock time)
	PriceCents      uint32    // booking_seats.price_cents (captured at lock time)
	CreatedAt       time.Time // booking_seats.created_at
}

package model

import "time"

// SeatStatus enumerates the lifecycle states of a seat for one show.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE" // free to be locked
	SeatLocked    SeatStatus = "LOCKED"    // held by one session until the lock TTL passes
	SeatBooked    SeatStatus = "BOOKED"    // part of a confirmed booking
)

// SeatInventory tracks one physical seat for one show.  A row is created per
// (show, seat) pair when the show is scheduled and is never deleted while the
// show exists; only its status oscillates under the reservation state machine.
//
// Invariants:
//   - LOCKED    => LockedBy and LockExpiresAt set, BookingID nil.
//   - BOOKED    => BookingID set, all lock fields nil.
//   - AVAILABLE => LockedBy, LockedAt, LockExpiresAt and BookingID all nil.
//
// Version is a monotonic counter bumped by the repository on every write; a
// write conditioned on a stale version affects zero rows and is reported as a
// conflict.  Label, SeatType and PriceCents are copied from the catalog at
// seeding time so that later catalog changes do not alter live inventory.
type SeatInventory struct {
	ID            uint64     // seat_inventory.id
	ShowID        uint64     // seat_inventory.show_id
	SeatID        uint64     // seat_inventory.seat_id
	Label         string     // seat_inventory.label (e.g. "A1")
	SeatType      string     // seat_inventory.seat_type (STANDARD, VIP, ACCESSIBLE)
	PriceCents    uint32     // seat_inventory.price_cents
	Status        SeatStatus // seat_inventory.status
	Version       uint32     // seat_inventory.version
	LockedBy      *string    // seat_inventory.locked_by (holder token, nullable)
	LockedAt      *time.Time // seat_inventory.locked_at (nullable)
	LockExpiresAt *time.Time // seat_inventory.lock_expires_at (nullable)
	BookingID     *uint64    // seat_inventory.booking_id (nullable, set only when BOOKED)
	CreatedAt     time.Time  // seat_inventory.created_at
	UpdatedAt     time.Time  // seat_inventory.updated_at
}

// IsAvailable reports whether the seat can currently be locked.
func (s *SeatInventory) IsAvailable() bool {
	return s.Status == SeatAvailable
}

// IsLockExpired reports whether the seat is LOCKED and its lock TTL has
// passed at the given instant.  A lock past its expiry is void even before
// the reaper sweeps it.
func (s *SeatInventory) IsLockExpired(now time.Time) bool {
	return s.Status == SeatLocked && s.LockExpiresAt != nil && now.After(*s.LockExpiresAt)
}

// IsLockedBy reports whether the seat is currently LOCKED by the given
// holder token.
func (s *SeatInventory) IsLockedBy(holder string) bool {
	return s.Status == SeatLocked && s.LockedBy != nil && *s.LockedBy == holder
}

// Lock transitions AVAILABLE -> LOCKED for the given holder with the given
// TTL.  Any non-AVAILABLE status yields ErrSeatUnavailable.
func (s *SeatInventory) Lock(holder string, now time.Time, ttl time.Duration) error {
	if s.Status != SeatAvailable {
		return ErrSeatUnavailable
	}
	exp := now.Add(ttl)
	s.Status = SeatLocked
	s.LockedBy = &holder
	s.LockedAt = &now
	s.LockExpiresAt = &exp
	s.BookingID = nil
	return nil
}

// ConfirmBooking transitions LOCKED -> BOOKED, attaching the booking ID and
// clearing the lock metadata.  Expiry is checked here against the supplied
// wall clock rather than trusted from the caller: a lock past its TTL cannot
// be confirmed even if the reaper has not reclaimed it yet.
func (s *SeatInventory) ConfirmBooking(bookingID uint64, now time.Time) error {
	if s.Status != SeatLocked {
		return ErrInvalidStateTransition
	}
	if s.IsLockExpired(now) {
		return ErrLockExpired
	}
	s.Status = SeatBooked
	s.BookingID = &bookingID
	s.LockedBy = nil
	s.LockedAt = nil
	s.LockExpiresAt = nil
	return nil
}

// Release transitions LOCKED -> AVAILABLE, clearing all lock metadata.  Used
// on cancellation and by the reaper.  Releasing a seat that is not LOCKED is
// ErrInvalidStateTransition.
func (s *SeatInventory) Release() error {
	if s.Status != SeatLocked {
		return ErrInvalidStateTransition
	}
	s.clear()
	return nil
}

// ReleaseBooked transitions BOOKED -> AVAILABLE when a confirmed booking is
// cancelled (refund path).  The seat must belong to the given booking.
func (s *SeatInventory) ReleaseBooked(bookingID uint64) error {
	if s.Status != SeatBooked || s.BookingID == nil || *s.BookingID != bookingID {
		return ErrInvalidStateTransition
	}
	s.clear()
	return nil
}

func (s *SeatInventory) clear() {
	s.Status = SeatAvailable
	s.LockedBy = nil
	s.LockedAt = nil
	s.LockExpiresAt = nil
	s.BookingID = nil
}

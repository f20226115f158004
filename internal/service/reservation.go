// Package service orchestrates the reservation state machine: multi-seat lock
// acquisition, booking creation, confirmation, cancellation and expiry.  It
// depends on small store interfaces rather than the concrete repositories so
// the orchestration can be exercised against in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rajuswesust/GetMyShow/internal/clock"
	"github.com/rajuswesust/GetMyShow/internal/model"
	"github.com/rajuswesust/GetMyShow/internal/queue"
	"github.com/rajuswesust/GetMyShow/internal/repository"
)

// SeatInventoryStore is the seat-side persistence contract.  All mutating
// calls are guarded compare-and-set transitions: they either apply exactly
// once or fail with a classified conflict error.
type SeatInventoryStore interface {
	GetByID(ctx context.Context, id uint64) (*model.SeatInventory, error)
	GetByShowAndSeats(ctx context.Context, showID uint64, seatIDs []uint64) ([]model.SeatInventory, error)
	TryLock(ctx context.Context, id uint64, holder string, lockedAt, expiresAt time.Time, version uint32) error
	Confirm(ctx context.Context, id, bookingID uint64, now time.Time, version uint32) error
	Release(ctx context.Context, id uint64, holder string, version uint32) error
	ReleaseBooked(ctx context.Context, id, bookingID uint64, version uint32) error
	RevertToLocked(ctx context.Context, id uint64, holder string, lockedAt, expiresAt time.Time, version uint32) error
}

// BookingStore is the booking-side persistence contract.
type BookingStore interface {
	CreateWithSeats(ctx context.Context, b *model.Booking, seats []model.BookingSeat) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByReference(ctx context.Context, ref string) (*model.Booking, error)
	SeatsByBooking(ctx context.Context, bookingID uint64) ([]model.BookingSeat, error)
	MarkConfirmed(ctx context.Context, id uint64, confirmedAt time.Time) error
	MarkCancelled(ctx context.Context, id uint64, reason string, cancelledAt time.Time) error
	MarkExpired(ctx context.Context, id uint64) error
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}

// ShowCatalog is the lookup consumed from the catalog collaborator.
type ShowCatalog interface {
	GetByID(ctx context.Context, id uint64) (*model.Show, error)
}

// ConfirmationPublisher fans a confirmed booking out to the message broker.
// Publishing is best-effort; a broker outage never fails a confirmation.
type ConfirmationPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// SeatMapInvalidator drops cached seat maps after a seat transition.
type SeatMapInvalidator interface {
	Invalidate(ctx context.Context, showID uint64)
}

// ErrNoSeatsRequested is returned when a booking request contains no valid
// seat IDs.
var ErrNoSeatsRequested = errors.New("no seats requested")

// SeatsUnavailableError reports a failed booking attempt along with every
// seat that could not be claimed, so callers can offer alternatives.  It
// unwraps to model.ErrSeatUnavailable.
type SeatsUnavailableError struct {
	SeatIDs []uint64
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("%d seat(s) unavailable: %v", len(e.SeatIDs), e.SeatIDs)
}

func (e *SeatsUnavailableError) Unwrap() error { return model.ErrSeatUnavailable }

// Config carries the tunables of the reservation core.  LockTTL bounds both
// the seat locks and the booking hold window; MaxSeatsPerUser caps one
// request; MaxConflictRetries bounds internal re-reads on version conflicts.
type Config struct {
	LockTTL            time.Duration
	MaxSeatsPerUser    int
	MaxConflictRetries int
}

// ReservationService coordinates seat and booking transitions.  Multi-seat
// operations are not atomic across rows; instead the create path uses
// all-or-nothing compensating release, and confirm reverts partial progress
// so a booking is only ever observed fully CONFIRMED or still PENDING.
type ReservationService struct {
	seats     SeatInventoryStore
	bookings  BookingStore
	shows     ShowCatalog
	publisher ConfirmationPublisher
	cache     SeatMapInvalidator
	clk       clock.Clock
	cfg       Config
}

// NewReservationService wires the reservation core.  publisher and cache may
// be nil, in which case events and cache invalidation are skipped.
func NewReservationService(seats SeatInventoryStore, bookings BookingStore, shows ShowCatalog,
	publisher ConfirmationPublisher, cache SeatMapInvalidator, clk clock.Clock, cfg Config) *ReservationService {
	if seats == nil || bookings == nil || shows == nil || clk == nil {
		panic("nil dependency passed to NewReservationService")
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.MaxSeatsPerUser <= 0 {
		cfg.MaxSeatsPerUser = 10
	}
	if cfg.MaxConflictRetries <= 0 {
		cfg.MaxConflictRetries = 3
	}
	return &ReservationService{
		seats:     seats,
		bookings:  bookings,
		shows:     shows,
		publisher: publisher,
		cache:     cache,
		clk:       clk,
		cfg:       cfg,
	}
}

// CreateBooking locks every requested seat for the user and, only when all
// locks were won, creates a PENDING booking with the captured seat prices.
// If any seat cannot be claimed the whole request fails, every seat locked in
// this attempt is released again, and the error lists the seats that were
// lost.  Partial holds are never left behind.
func (s *ReservationService) CreateBooking(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error) {
	unique := dedupe(seatIDs)
	if len(unique) == 0 {
		return nil, ErrNoSeatsRequested
	}
	if len(unique) > s.cfg.MaxSeatsPerUser {
		return nil, fmt.Errorf("%w: requested %d, limit %d", model.ErrCapacityExceeded, len(unique), s.cfg.MaxSeatsPerUser)
	}

	now := s.clk.Now()
	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return nil, err
	}
	if !show.IsBookable(now) {
		return nil, model.ErrShowNotBookable
	}

	rows, err := s.seats.GetByShowAndSeats(ctx, showID, unique)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*model.SeatInventory, len(rows))
	for i := range rows {
		byID[rows[i].SeatID] = &rows[i]
	}

	holder := uuid.NewString()
	expiresAt := now.Add(s.cfg.LockTTL)

	var locked []*model.SeatInventory
	var failed []uint64
	for _, seatID := range unique {
		inv, ok := byID[seatID]
		if !ok || !inv.IsAvailable() {
			failed = append(failed, seatID)
			continue
		}
		if err := s.seats.TryLock(ctx, inv.ID, holder, now, expiresAt, inv.Version); err != nil {
			if errors.Is(err, model.ErrSeatUnavailable) {
				failed = append(failed, seatID)
				continue
			}
			s.releaseAcquired(ctx, locked, holder)
			return nil, err
		}
		locked = append(locked, inv)
	}
	if len(failed) > 0 {
		s.releaseAcquired(ctx, locked, holder)
		return nil, &SeatsUnavailableError{SeatIDs: failed}
	}

	booking := &model.Booking{
		Reference:   uuid.NewString(),
		UserID:      userID,
		ShowID:      showID,
		Status:      model.BookingPending,
		HolderToken: holder,
		TotalSeats:  uint32(len(locked)),
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	}
	seats := make([]model.BookingSeat, 0, len(locked))
	for _, inv := range locked {
		booking.TotalAmountCents += inv.PriceCents
		seats = append(seats, model.BookingSeat{
			SeatInventoryID: inv.ID,
			ShowID:          inv.ShowID,
			SeatID:          inv.SeatID,
			Label:           inv.Label,
			PriceCents:      inv.PriceCents,
		})
	}
	if err := s.bookings.CreateWithSeats(ctx, booking, seats); err != nil {
		s.releaseAcquired(ctx, locked, holder)
		return nil, err
	}

	s.invalidate(ctx, showID)
	return booking, nil
}

// ConfirmBooking transitions a PENDING booking and all its seats to their
// confirmed states after the payment collaborator reports success.  Expiry is
// re-checked against the wall clock here, independent of the reaper, to close
// the race where the hold lapses between request and confirmation.  If any
// individual seat confirm fails, seats confirmed earlier in this attempt are
// reverted to LOCKED and the whole operation fails; the caller must start a
// fresh booking rather than retry the confirm.
func (s *ReservationService) ConfirmBooking(ctx context.Context, reference string) (*model.Booking, error) {
	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !b.IsPending() {
		return nil, model.ErrInvalidStateTransition
	}
	now := s.clk.Now()
	if b.HasExpired(now) {
		if err := s.ExpireBooking(ctx, b.ID); err != nil {
			log.Printf("reservation: expire on late confirm of %s: %v", b.Reference, err)
		}
		return nil, model.ErrLockExpired
	}

	seatRecs, err := s.bookings.SeatsByBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	var confirmed []*model.SeatInventory // pre-confirm snapshots, kept for compensation
	for _, rec := range seatRecs {
		inv, err := s.confirmSeat(ctx, rec.SeatInventoryID, b.ID, now)
		if err != nil {
			s.revertConfirmed(ctx, confirmed)
			return nil, err
		}
		confirmed = append(confirmed, inv)
	}

	if err := s.bookings.MarkConfirmed(ctx, b.ID, now); err != nil {
		s.revertConfirmed(ctx, confirmed)
		return nil, err
	}
	b.Status = model.BookingConfirmed
	b.ConfirmedAt = &now

	s.publishConfirmed(ctx, b, seatRecs)
	s.invalidate(ctx, b.ShowID)
	return b, nil
}

// CancelBooking cancels a PENDING or CONFIRMED booking, releasing every seat
// the booking still holds: LOCKED seats go back to AVAILABLE, and seats
// BOOKED under a confirmed booking are freed for resale.  Cancelling an
// EXPIRED or already CANCELLED booking is ErrInvalidStateTransition.
func (s *ReservationService) CancelBooking(ctx context.Context, reference, reason string) (*model.Booking, error) {
	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if b.Status == model.BookingExpired || b.Status == model.BookingCancelled {
		return nil, model.ErrInvalidStateTransition
	}
	now := s.clk.Now()

	// Mark the booking first so a concurrent confirm or expire loses the
	// status CAS instead of interleaving with the seat releases below.
	if err := s.bookings.MarkCancelled(ctx, b.ID, reason, now); err != nil {
		return nil, err
	}
	b.Status = model.BookingCancelled
	b.CancelledAt = &now
	b.CancellationReason = &reason

	seatRecs, err := s.bookings.SeatsByBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	for _, rec := range seatRecs {
		if err := s.freeSeat(ctx, rec.SeatInventoryID, b); err != nil {
			log.Printf("reservation: cancel %s: free seat %d: %v", b.Reference, rec.SeatID, err)
		}
	}

	s.invalidate(ctx, b.ShowID)
	return b, nil
}

// ExpireBooking reclaims a PENDING booking whose hold window has passed:
// the booking becomes EXPIRED and its seat locks are released.  It is a no-op
// when the booking is not PENDING or not actually past its expiry, which
// makes it idempotent and safe to race against confirm and cancel.
func (s *ReservationService) ExpireBooking(ctx context.Context, bookingID uint64) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if !b.IsPending() || !b.HasExpired(s.clk.Now()) {
		return nil
	}
	if err := s.bookings.MarkExpired(ctx, b.ID); err != nil {
		if errors.Is(err, model.ErrInvalidStateTransition) {
			return nil // another path moved the booking on first
		}
		return err
	}

	seatRecs, err := s.bookings.SeatsByBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	for _, rec := range seatRecs {
		if err := s.releaseLockedSeat(ctx, rec.SeatInventoryID, b.HolderToken); err != nil {
			log.Printf("reservation: expire %s: release seat %d: %v", b.Reference, rec.SeatID, err)
		}
	}

	s.invalidate(ctx, b.ShowID)
	return nil
}

// GetBooking returns a booking owned by the user together with its seats.
// Other users' bookings are indistinguishable from missing ones.
func (s *ReservationService) GetBooking(ctx context.Context, reference string, userID uint64) (*model.Booking, []model.BookingSeat, error) {
	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, nil, err
	}
	if b.UserID != userID {
		return nil, nil, repository.ErrBookingNotFound
	}
	seats, err := s.bookings.SeatsByBooking(ctx, b.ID)
	if err != nil {
		return nil, nil, err
	}
	return b, seats, nil
}

// ListUserBookings returns the user's booking history, newest first.
func (s *ReservationService) ListUserBookings(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// confirmSeat performs the guarded LOCKED -> BOOKED write for one seat with a
// bounded retry on version conflicts.  It returns the pre-confirm snapshot so
// the caller can revert on later failure.
func (s *ReservationService) confirmSeat(ctx context.Context, invID, bookingID uint64, now time.Time) (*model.SeatInventory, error) {
	for attempt := 0; attempt <= s.cfg.MaxConflictRetries; attempt++ {
		inv, err := s.seats.GetByID(ctx, invID)
		if err != nil {
			return nil, err
		}
		err = s.seats.Confirm(ctx, invID, bookingID, now, inv.Version)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, model.ErrVersionConflict
}

// revertConfirmed undoes seat confirms after a partial confirmation failure,
// restoring the original lock metadata captured before each confirm.
func (s *ReservationService) revertConfirmed(ctx context.Context, confirmed []*model.SeatInventory) {
	for _, inv := range confirmed {
		if inv.LockedBy == nil || inv.LockedAt == nil || inv.LockExpiresAt == nil {
			continue
		}
		// The confirm bumped the version once past the snapshot.
		if err := s.seats.RevertToLocked(ctx, inv.ID, *inv.LockedBy, *inv.LockedAt, *inv.LockExpiresAt, inv.Version+1); err != nil {
			log.Printf("reservation: revert seat %d to locked: %v", inv.SeatID, err)
		}
	}
}

// releaseAcquired compensates a failed create attempt by releasing every seat
// it managed to lock.
func (s *ReservationService) releaseAcquired(ctx context.Context, locked []*model.SeatInventory, holder string) {
	for _, inv := range locked {
		if err := s.releaseLockedSeat(ctx, inv.ID, holder); err != nil {
			log.Printf("reservation: compensating release of seat %d: %v", inv.SeatID, err)
		}
	}
}

// releaseLockedSeat releases one LOCKED seat held by holder, retrying a
// bounded number of times on version conflicts.  A seat no longer held by
// this holder counts as done: the reaper or another caller got there first.
func (s *ReservationService) releaseLockedSeat(ctx context.Context, invID uint64, holder string) error {
	for attempt := 0; attempt <= s.cfg.MaxConflictRetries; attempt++ {
		inv, err := s.seats.GetByID(ctx, invID)
		if err != nil {
			return err
		}
		if !inv.IsLockedBy(holder) {
			return nil
		}
		err = s.seats.Release(ctx, invID, holder, inv.Version)
		if err == nil || errors.Is(err, model.ErrInvalidStateTransition) {
			return nil
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			return err
		}
	}
	return model.ErrVersionConflict
}

// freeSeat releases whatever claim the booking still has on one seat: a live
// lock, or the BOOKED state of a confirmed booking.  Seats already reclaimed
// by the reaper (or re-sold after it) are left alone.
func (s *ReservationService) freeSeat(ctx context.Context, invID uint64, b *model.Booking) error {
	for attempt := 0; attempt <= s.cfg.MaxConflictRetries; attempt++ {
		inv, err := s.seats.GetByID(ctx, invID)
		if err != nil {
			return err
		}
		switch {
		case inv.IsLockedBy(b.HolderToken):
			err = s.seats.Release(ctx, invID, b.HolderToken, inv.Version)
		case inv.Status == model.SeatBooked && inv.BookingID != nil && *inv.BookingID == b.ID:
			err = s.seats.ReleaseBooked(ctx, invID, b.ID, inv.Version)
		default:
			return nil
		}
		if err == nil || errors.Is(err, model.ErrInvalidStateTransition) {
			return nil
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			return err
		}
	}
	return model.ErrVersionConflict
}

func (s *ReservationService) publishConfirmed(ctx context.Context, b *model.Booking, seats []model.BookingSeat) {
	if s.publisher == nil {
		return
	}
	labels := make([]string, 0, len(seats))
	for _, rec := range seats {
		labels = append(labels, rec.Label)
	}
	ev := queue.BookingConfirmedEvent{
		BookingReference: b.Reference,
		UserID:           b.UserID,
		ShowID:           b.ShowID,
		SeatLabels:       labels,
		TotalAmountCents: b.TotalAmountCents,
		ConfirmedAt:      b.ConfirmedAt.UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishBookingConfirmed(ctx, ev); err != nil {
		log.Printf("reservation: publish booking.confirmed for %s: %v", b.Reference, err)
	}
}

func (s *ReservationService) invalidate(ctx context.Context, showID uint64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, showID)
	}
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

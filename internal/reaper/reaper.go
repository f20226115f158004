// Package reaper runs the background sweep that reclaims expired seat locks,
// expired PENDING bookings, and BOOKED seats stranded by a cancellation whose
// seat-free loop failed partway.  Every reclamation goes through the same
// guarded transitions as the request path, so the sweep is idempotent and
// safe to run concurrently with live traffic: a seat the reaper frees between
// a user's confirm check and confirm write makes that confirm fail cleanly.
package reaper

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/rajuswesust/GetMyShow/internal/clock"
	"github.com/rajuswesust/GetMyShow/internal/model"
)

type seatSweeper interface {
	ListExpiredLocks(ctx context.Context, now time.Time, limit int) ([]model.SeatInventory, error)
	ListOrphanedBooked(ctx context.Context, limit int) ([]model.SeatInventory, error)
	Release(ctx context.Context, id uint64, holder string, version uint32) error
	ReleaseBooked(ctx context.Context, id, bookingID uint64, version uint32) error
}

type bookingSweeper interface {
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Booking, error)
}

type bookingExpirer interface {
	ExpireBooking(ctx context.Context, bookingID uint64) error
}

// Reaper periodically reclaims seats whose lock outlived its TTL and
// bookings whose hold window passed without confirmation.
type Reaper struct {
	seats     seatSweeper
	bookings  bookingSweeper
	expirer   bookingExpirer
	clk       clock.Clock
	interval  time.Duration
	batchSize int
}

// New constructs a Reaper.  interval controls how often a sweep runs;
// batchSize bounds how many rows one sweep reclaims per table.
func New(seats seatSweeper, bookings bookingSweeper, expirer bookingExpirer, clk clock.Clock, interval time.Duration, batchSize int) *Reaper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Reaper{
		seats:     seats,
		bookings:  bookings,
		expirer:   expirer,
		clk:       clk,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("reaper: started (interval=%s)", r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("reaper: stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one reclamation pass.  Exported so tests and operational
// tooling can trigger a pass without the ticker.
func (r *Reaper) Sweep(ctx context.Context) {
	now := r.clk.Now()
	r.sweepSeats(ctx, now)
	r.sweepBookings(ctx, now)
	r.sweepOrphanedBooked(ctx)
}

func (r *Reaper) sweepSeats(ctx context.Context, now time.Time) {
	expired, err := r.seats.ListExpiredLocks(ctx, now, r.batchSize)
	if err != nil {
		log.Printf("reaper: list expired locks: %v", err)
		return
	}
	released := 0
	for _, inv := range expired {
		if inv.LockedBy == nil {
			continue
		}
		err := r.seats.Release(ctx, inv.ID, *inv.LockedBy, inv.Version)
		switch {
		case err == nil:
			released++
		case errors.Is(err, model.ErrInvalidStateTransition), errors.Is(err, model.ErrVersionConflict):
			// A request-path transition got to the row first; nothing to do.
		default:
			log.Printf("reaper: release seat %d: %v", inv.SeatID, err)
		}
	}
	if released > 0 {
		log.Printf("reaper: released %d expired seat lock(s)", released)
	}
}

// sweepOrphanedBooked re-drives the seat release of cancellations whose
// seat-free loop failed after the booking was already marked terminal.
// Without this pass such seats would stay BOOKED forever: the expired-lock
// sweep only covers LOCKED rows, and a repeated cancel is rejected at the
// booking status check.
func (r *Reaper) sweepOrphanedBooked(ctx context.Context) {
	orphaned, err := r.seats.ListOrphanedBooked(ctx, r.batchSize)
	if err != nil {
		log.Printf("reaper: list orphaned booked seats: %v", err)
		return
	}
	freed := 0
	for _, inv := range orphaned {
		if inv.BookingID == nil {
			continue
		}
		err := r.seats.ReleaseBooked(ctx, inv.ID, *inv.BookingID, inv.Version)
		switch {
		case err == nil:
			freed++
		case errors.Is(err, model.ErrInvalidStateTransition), errors.Is(err, model.ErrVersionConflict):
			// The row moved between the scan and the release; next pass
			// re-evaluates it.
		default:
			log.Printf("reaper: free orphaned seat %d: %v", inv.SeatID, err)
		}
	}
	if freed > 0 {
		log.Printf("reaper: freed %d orphaned booked seat(s)", freed)
	}
}

func (r *Reaper) sweepBookings(ctx context.Context, now time.Time) {
	expired, err := r.bookings.ListExpiredPending(ctx, now, r.batchSize)
	if err != nil {
		log.Printf("reaper: list expired bookings: %v", err)
		return
	}
	for _, b := range expired {
		if err := r.expirer.ExpireBooking(ctx, b.ID); err != nil {
			log.Printf("reaper: expire booking %s: %v", b.Reference, err)
		}
	}
	if len(expired) > 0 {
		log.Printf("reaper: expired %d pending booking(s)", len(expired))
	}
}

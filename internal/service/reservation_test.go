package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajuswesust/GetMyShow/internal/clock"
	"github.com/rajuswesust/GetMyShow/internal/model"
	"github.com/rajuswesust/GetMyShow/internal/queue"
	"github.com/rajuswesust/GetMyShow/internal/repository"
)

// fakeSeatStore mimics the repository's guarded compare-and-set transitions
// in memory, so the orchestration can be exercised against the same conflict
// semantics the SQL layer provides, including under real concurrency.
type fakeSeatStore struct {
	mu    sync.Mutex
	seats map[uint64]*model.SeatInventory
}

func newFakeSeatStore(seats ...model.SeatInventory) *fakeSeatStore {
	s := &fakeSeatStore{seats: make(map[uint64]*model.SeatInventory)}
	for i := range seats {
		cp := seats[i]
		s.seats[cp.ID] = &cp
	}
	return s
}

func (s *fakeSeatStore) get(id uint64) (*model.SeatInventory, error) {
	inv, ok := s.seats[id]
	if !ok {
		return nil, repository.ErrSeatInventoryNotFound
	}
	return inv, nil
}

func (s *fakeSeatStore) GetByID(_ context.Context, id uint64) (*model.SeatInventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.get(id)
	if err != nil {
		return nil, err
	}
	cp := *inv
	return &cp, nil
}

func (s *fakeSeatStore) GetByShowAndSeats(_ context.Context, showID uint64, seatIDs []uint64) ([]model.SeatInventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uint64]bool, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = true
	}
	var out []model.SeatInventory
	for _, inv := range s.seats {
		if inv.ShowID == showID && want[inv.SeatID] {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (s *fakeSeatStore) TryLock(_ context.Context, id uint64, holder string, lockedAt, expiresAt time.Time, version uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.get(id)
	if err != nil {
		return err
	}
	if inv.Status != model.SeatAvailable || inv.Version != version {
		return model.ErrSeatUnavailable
	}
	inv.Status = model.SeatLocked
	inv.LockedBy = &holder
	inv.LockedAt = &lockedAt
	inv.LockExpiresAt = &expiresAt
	inv.Version++
	return nil
}

func (s *fakeSeatStore) Confirm(_ context.Context, id, bookingID uint64, now time.Time, version uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.get(id)
	if err != nil {
		return err
	}
	switch {
	case inv.Status != model.SeatLocked:
		return model.ErrInvalidStateTransition
	case inv.LockExpiresAt != nil && !inv.LockExpiresAt.After(now):
		return model.ErrLockExpired
	case inv.Version != version:
		return model.ErrVersionConflict
	}
	inv.Status = model.SeatBooked
	inv.BookingID = &bookingID
	inv.LockedBy = nil
	inv.LockedAt = nil
	inv.LockExpiresAt = nil
	inv.Version++
	return nil
}

func (s *fakeSeatStore) Release(_ context.Context, id uint64, holder string, version uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.get(id)
	if err != nil {
		return err
	}
	switch {
	case inv.Status != model.SeatLocked || inv.LockedBy == nil || *inv.LockedBy != holder:
		return model.ErrInvalidStateTransition
	case inv.Version != version:
		return model.ErrVersionConflict
	}
	s.clear(inv)
	return nil
}

func (s *fakeSeatStore) ReleaseBooked(_ context.Context, id, bookingID uint64, version uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.get(id)
	if err != nil {
		return err
	}
	if inv.Status != model.SeatBooked || inv.BookingID == nil || *inv.BookingID != bookingID || inv.Version != version {
		return model.ErrVersionConflict
	}
	s.clear(inv)
	return nil
}

func (s *fakeSeatStore) RevertToLocked(_ context.Context, id uint64, holder string, lockedAt, expiresAt time.Time, version uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.get(id)
	if err != nil {
		return err
	}
	if inv.Status != model.SeatBooked || inv.Version != version {
		return model.ErrVersionConflict
	}
	inv.Status = model.SeatLocked
	inv.LockedBy = &holder
	inv.LockedAt = &lockedAt
	inv.LockExpiresAt = &expiresAt
	inv.BookingID = nil
	inv.Version++
	return nil
}

func (s *fakeSeatStore) clear(inv *model.SeatInventory) {
	inv.Status = model.SeatAvailable
	inv.LockedBy = nil
	inv.LockedAt = nil
	inv.LockExpiresAt = nil
	inv.BookingID = nil
	inv.Version++
}

// status returns the current seat status for assertions.
func (s *fakeSeatStore) status(id uint64) model.SeatStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seats[id].Status
}

type fakeBookingStore struct {
	mu       sync.Mutex
	nextID   uint64
	bookings map[uint64]*model.Booking
	seats    map[uint64][]model.BookingSeat
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{
		nextID:   1,
		bookings: make(map[uint64]*model.Booking),
		seats:    make(map[uint64][]model.BookingSeat),
	}
}

func (s *fakeBookingStore) CreateWithSeats(_ context.Context, b *model.Booking, seats []model.BookingSeat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextID
	s.nextID++
	cp := *b
	s.bookings[b.ID] = &cp
	recs := make([]model.BookingSeat, len(seats))
	copy(recs, seats)
	for i := range recs {
		recs[i].BookingID = b.ID
	}
	s.seats[b.ID] = recs
	return nil
}

func (s *fakeBookingStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeBookingStore) GetByReference(_ context.Context, ref string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.Reference == ref {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (s *fakeBookingStore) SeatsByBooking(_ context.Context, bookingID uint64) ([]model.BookingSeat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.BookingSeat, len(s.seats[bookingID]))
	copy(out, s.seats[bookingID])
	return out, nil
}

func (s *fakeBookingStore) MarkConfirmed(_ context.Context, id uint64, confirmedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != model.BookingPending {
		return model.ErrInvalidStateTransition
	}
	b.Status = model.BookingConfirmed
	b.ConfirmedAt = &confirmedAt
	return nil
}

func (s *fakeBookingStore) MarkCancelled(_ context.Context, id uint64, reason string, cancelledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || (b.Status != model.BookingPending && b.Status != model.BookingConfirmed) {
		return model.ErrInvalidStateTransition
	}
	b.Status = model.BookingCancelled
	b.CancelledAt = &cancelledAt
	b.CancellationReason = &reason
	return nil
}

func (s *fakeBookingStore) MarkExpired(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != model.BookingPending {
		return model.ErrInvalidStateTransition
	}
	b.Status = model.BookingExpired
	return nil
}

func (s *fakeBookingStore) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeBookingStore) bookingStatus(id uint64) model.BookingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id].Status
}

// failingReleaseBookedStore simulates a store whose BOOKED-seat release keeps
// failing with a driver error, as after a lost connection mid-cancellation.
type failingReleaseBookedStore struct {
	*fakeSeatStore
}

func (s *failingReleaseBookedStore) ReleaseBooked(context.Context, uint64, uint64, uint32) error {
	return errors.New("driver: bad connection")
}

type fakeShowCatalog struct {
	shows map[uint64]*model.Show
}

func (s *fakeShowCatalog) GetByID(_ context.Context, id uint64) (*model.Show, error) {
	show, ok := s.shows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	cp := *show
	return &cp, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
}

func (p *fakePublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeInvalidator) Invalidate(_ context.Context, _ uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *ReservationService
	seats    *fakeSeatStore
	bookings *fakeBookingStore
	pub      *fakePublisher
	cache    *fakeInvalidator
	clk      *clock.Fixed
}

// newFixture builds a service over one SCHEDULED show with the given seats.
func newFixture(t *testing.T, seats ...model.SeatInventory) *fixture {
	t.Helper()
	seatStore := newFakeSeatStore(seats...)
	bookingStore := newFakeBookingStore()
	shows := &fakeShowCatalog{shows: map[uint64]*model.Show{
		10: {ID: 10, Title: "Evening Show", StartsAt: testNow.Add(3 * time.Hour), Status: model.ShowScheduled},
	}}
	pub := &fakePublisher{}
	cache := &fakeInvalidator{}
	clk := clock.NewFixed(testNow)
	svc := NewReservationService(seatStore, bookingStore, shows, pub, cache, clk, Config{
		LockTTL:            5 * time.Minute,
		MaxSeatsPerUser:    4,
		MaxConflictRetries: 3,
	})
	return &fixture{svc: svc, seats: seatStore, bookings: bookingStore, pub: pub, cache: cache, clk: clk}
}

func seat(id, seatID uint64, label string, price uint32) model.SeatInventory {
	return model.SeatInventory{
		ID:         id,
		ShowID:     10,
		SeatID:     seatID,
		Label:      label,
		SeatType:   "STANDARD",
		PriceCents: price,
		Status:     model.SeatAvailable,
	}
}

func TestCreateBooking(t *testing.T) {
	t.Run("locks all seats and creates a pending booking", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100), seat(2, 102, "A2", 100))

		b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101, 102})

		require.NoError(t, err)
		assert.Equal(t, model.BookingPending, b.Status)
		assert.Equal(t, uint32(2), b.TotalSeats)
		assert.Equal(t, uint32(200), b.TotalAmountCents)
		assert.Equal(t, testNow.Add(5*time.Minute), b.ExpiresAt)
		assert.NotEmpty(t, b.Reference)
		assert.NotEmpty(t, b.HolderToken)
		assert.Equal(t, model.SeatLocked, fx.seats.status(1))
		assert.Equal(t, model.SeatLocked, fx.seats.status(2))
		assert.Equal(t, 1, fx.cache.calls)
	})

	t.Run("duplicate seat ids count once", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))

		b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101, 101, 101})

		require.NoError(t, err)
		assert.Equal(t, uint32(1), b.TotalSeats)
		assert.Equal(t, uint32(100), b.TotalAmountCents)
	})

	t.Run("empty request is rejected", func(t *testing.T) {
		fx := newFixture(t)

		_, err := fx.svc.CreateBooking(context.Background(), 42, 10, nil)
		assert.ErrorIs(t, err, ErrNoSeatsRequested)

		_, err = fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{0, 0})
		assert.ErrorIs(t, err, ErrNoSeatsRequested)
	})

	t.Run("seat cap is enforced", func(t *testing.T) {
		fx := newFixture(t)

		_, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{1, 2, 3, 4, 5})

		assert.ErrorIs(t, err, model.ErrCapacityExceeded)
	})

	t.Run("show that is not bookable is rejected", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))
		fx.clk.Advance(4 * time.Hour) // show has started

		_, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101})

		assert.ErrorIs(t, err, model.ErrShowNotBookable)
	})

	t.Run("partial failure releases every acquired lock", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100), seat(2, 102, "A2", 100), seat(3, 103, "A3", 100))
		// Seat A3 is already held by someone else.
		_, err := fx.svc.CreateBooking(context.Background(), 7, 10, []uint64{103})
		require.NoError(t, err)

		_, err = fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101, 102, 103})

		var unavailable *SeatsUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, []uint64{103}, unavailable.SeatIDs)
		assert.ErrorIs(t, err, model.ErrSeatUnavailable)
		assert.Equal(t, model.SeatAvailable, fx.seats.status(1))
		assert.Equal(t, model.SeatAvailable, fx.seats.status(2))
		assert.Equal(t, model.SeatLocked, fx.seats.status(3))
	})

	t.Run("unknown seats are reported as unavailable", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))

		_, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101, 999})

		var unavailable *SeatsUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, []uint64{999}, unavailable.SeatIDs)
		assert.Equal(t, model.SeatAvailable, fx.seats.status(1))
	})

	t.Run("concurrent requests for one seat have exactly one winner", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))

		const attempts = 16
		var wg sync.WaitGroup
		results := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(userID uint64) {
				defer wg.Done()
				_, err := fx.svc.CreateBooking(context.Background(), userID, 10, []uint64{101})
				results <- err
			}(uint64(i + 1))
		}
		wg.Wait()
		close(results)

		won, lost := 0, 0
		for err := range results {
			if err == nil {
				won++
				continue
			}
			assert.ErrorIs(t, err, model.ErrSeatUnavailable)
			lost++
		}
		assert.Equal(t, 1, won)
		assert.Equal(t, attempts-1, lost)
		assert.Equal(t, model.SeatLocked, fx.seats.status(1))
	})
}

func TestConfirmBooking(t *testing.T) {
	t.Run("books every seat and publishes the event", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100), seat(2, 102, "A2", 150))
		b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101, 102})
		require.NoError(t, err)

		confirmed, err := fx.svc.ConfirmBooking(context.Background(), b.Reference)

		require.NoError(t, err)
		assert.Equal(t, model.BookingConfirmed, confirmed.Status)
		require.NotNil(t, confirmed.ConfirmedAt)
		assert.Equal(t, model.SeatBooked, fx.seats.status(1))
		assert.Equal(t, model.SeatBooked, fx.seats.status(2))

		require.Len(t, fx.pub.events, 1)
		ev := fx.pub.events[0]
		assert.Equal(t, b.Reference, ev.BookingReference)
		assert.Equal(t, uint64(42), ev.UserID)
		assert.ElementsMatch(t, []string{"A1", "A2"}, ev.SeatLabels)
		assert.Equal(t, uint32(250), ev.TotalAmountCents)
	})

	t.Run("confirm after the hold window expires the booking", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))
		b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101})
		require.NoError(t, err)

		fx.clk.Advance(6 * time.Minute)

		_, err = fx.svc.ConfirmBooking(context.Background(), b.Reference)

		assert.ErrorIs(t, err, model.ErrLockExpired)
		assert.Equal(t, model.BookingExpired, fx.bookings.bookingStatus(b.ID))
		assert.Equal(t, model.SeatAvailable, fx.seats.status(1))
		assert.Empty(t, fx.pub.events)
	})

	t.Run("confirm is rejected once the booking is terminal", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))
		b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101})
		require.NoError(t, err)
		_, err = fx.svc.ConfirmBooking(context.Background(), b.Reference)
		require.NoError(t, err)

		_, err = fx.svc.ConfirmBooking(context.Background(), b.Reference)

		assert.ErrorIs(t, err, model.ErrInvalidStateTransition)
	})

	t.Run("unknown reference is not found", func(t *testing.T) {
		fx := newFixture(t)

		_, err := fx.svc.ConfirmBooking(context.Background(), "missing")

		assert.ErrorIs(t, err, repository.ErrBookingNotFound)
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("pending booking is cancelled and its locks released", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100), seat(2, 102, "A2", 100))
		b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101, 102})
		require.NoError(t, err)

		cancelled, err := fx.svc.CancelBooking(context.Background(), b.Reference, "changed plans")

		require.NoError(t, err)
		assert.Equal(t, model.BookingCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancellationReason)
		assert.Equal(t, "changed plans", *cancelled.CancellationReason)
		assert.Equal(t, model.SeatAvailable, fx.seats.status(1))
		assert.Equal(t, model.SeatAvailable, fx.seats.status(2))
	})

	t.Run("confirmed booking is cancelled and booked seats freed", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))
		b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101})
		require.NoError(t, err)
		_, err = fx.svc.ConfirmBooking(context.Background(), b.Reference)
		require.NoError(t, err)

		cancelled, err := fx.svc.CancelBooking(context.Background(), b.Reference, "refund")

		require.NoError(t, err)
		assert.Equal(t, model.BookingCancelled, cancelled.Status)
		assert.Equal(t, model.SeatAvailable, fx.seats.status(1))
	})

	t.Run("second cancel is rejected", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))
		b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101})
		require.NoError(t, err)
		_, err = fx.svc.CancelBooking(context.Background(), b.Reference, "first")
		require.NoError(t, err)

		_, err = fx.svc.CancelBooking(context.Background(), b.Reference, "second")

		assert.ErrorIs(t, err, model.ErrInvalidStateTransition)
	})

	t.Run("seat-free failure still cancels, seat stays recoverable", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))
		ctx := context.Background()
		b, err := fx.svc.CreateBooking(ctx, 42, 10, []uint64{101})
		require.NoError(t, err)
		_, err = fx.svc.ConfirmBooking(ctx, b.Reference)
		require.NoError(t, err)

		shows := &fakeShowCatalog{shows: map[uint64]*model.Show{
			10: {ID: 10, Title: "Evening Show", StartsAt: testNow.Add(3 * time.Hour), Status: model.ShowScheduled},
		}}
		broken := &failingReleaseBookedStore{fakeSeatStore: fx.seats}
		svc := NewReservationService(broken, fx.bookings, shows, nil, nil, fx.clk, Config{LockTTL: 5 * time.Minute})

		cancelled, err := svc.CancelBooking(ctx, b.Reference, "refund")

		// The cancellation itself must not fail; the seat keeps its booking
		// back-pointer so the background sweep can free it later.
		require.NoError(t, err)
		assert.Equal(t, model.BookingCancelled, cancelled.Status)
		assert.Equal(t, model.SeatBooked, fx.seats.status(1))
		inv, err := fx.seats.GetByID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, inv.BookingID)
		assert.Equal(t, b.ID, *inv.BookingID)
	})

	t.Run("seat re-locked by another holder is left alone", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))
		ctx := context.Background()
		b, err := fx.svc.CreateBooking(ctx, 42, 10, []uint64{101})
		require.NoError(t, err)

		// The reaper released the expired lock and another user re-locked
		// the seat, but the booking itself has not been swept yet.
		inv, err := fx.seats.GetByID(ctx, 1)
		require.NoError(t, err)
		require.NoError(t, fx.seats.Release(ctx, 1, b.HolderToken, inv.Version))
		inv, err = fx.seats.GetByID(ctx, 1)
		require.NoError(t, err)
		require.NoError(t, fx.seats.TryLock(ctx, 1, "other-holder", testNow, testNow.Add(5*time.Minute), inv.Version))

		cancelled, err := fx.svc.CancelBooking(ctx, b.Reference, "late cancel")

		require.NoError(t, err)
		assert.Equal(t, model.BookingCancelled, cancelled.Status)
		assert.Equal(t, model.SeatLocked, fx.seats.status(1))
		assert.True(t, fx.seats.seats[1].IsLockedBy("other-holder"))
	})
}

func TestExpireBooking(t *testing.T) {
	t.Run("expires a pending booking past its window", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))
		b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101})
		require.NoError(t, err)

		fx.clk.Advance(6 * time.Minute)

		require.NoError(t, fx.svc.ExpireBooking(context.Background(), b.ID))
		assert.Equal(t, model.BookingExpired, fx.bookings.bookingStatus(b.ID))
		assert.Equal(t, model.SeatAvailable, fx.seats.status(1))
	})

	t.Run("is idempotent", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))
		b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101})
		require.NoError(t, err)
		fx.clk.Advance(6 * time.Minute)
		require.NoError(t, fx.svc.ExpireBooking(context.Background(), b.ID))

		require.NoError(t, fx.svc.ExpireBooking(context.Background(), b.ID))
		assert.Equal(t, model.BookingExpired, fx.bookings.bookingStatus(b.ID))
	})

	t.Run("is a no-op before the window passes", func(t *testing.T) {
		fx := newFixture(t, seat(1, 101, "A1", 100))
		b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101})
		require.NoError(t, err)

		require.NoError(t, fx.svc.ExpireBooking(context.Background(), b.ID))
		assert.Equal(t, model.BookingPending, fx.bookings.bookingStatus(b.ID))
		assert.Equal(t, model.SeatLocked, fx.seats.status(1))
	})
}

func TestGetBooking(t *testing.T) {
	fx := newFixture(t, seat(1, 101, "A1", 100))
	b, err := fx.svc.CreateBooking(context.Background(), 42, 10, []uint64{101})
	require.NoError(t, err)

	t.Run("owner sees the booking with seats", func(t *testing.T) {
		got, seats, err := fx.svc.GetBooking(context.Background(), b.Reference, 42)

		require.NoError(t, err)
		assert.Equal(t, b.Reference, got.Reference)
		require.Len(t, seats, 1)
		assert.Equal(t, "A1", seats[0].Label)
	})

	t.Run("another user gets not found", func(t *testing.T) {
		_, _, err := fx.svc.GetBooking(context.Background(), b.Reference, 7)

		assert.ErrorIs(t, err, repository.ErrBookingNotFound)
	})
}

// Full round trip: two seats at 100 each are booked, confirmed and finally
// cancelled with a refund, ending with both seats back on sale.
func TestReservationLifecycle(t *testing.T) {
	fx := newFixture(t, seat(1, 101, "A1", 100), seat(2, 102, "A2", 100))
	ctx := context.Background()

	b, err := fx.svc.CreateBooking(ctx, 42, 10, []uint64{101, 102})
	require.NoError(t, err)
	assert.Equal(t, uint32(200), b.TotalAmountCents)

	confirmed, err := fx.svc.ConfirmBooking(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, confirmed.Status)
	assert.Equal(t, model.SeatBooked, fx.seats.status(1))
	assert.Equal(t, model.SeatBooked, fx.seats.status(2))

	cancelled, err := fx.svc.CancelBooking(ctx, b.Reference, "refund")
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)
	assert.Equal(t, model.SeatAvailable, fx.seats.status(1))
	assert.Equal(t, model.SeatAvailable, fx.seats.status(2))

	// The freed seats can immediately be claimed by someone else.
	_, err = fx.svc.CreateBooking(ctx, 7, 10, []uint64{101, 102})
	require.NoError(t, err)
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func pendingBooking() *Booking {
	return &Booking{
		ID:          1,
		Reference:   "ref-1",
		UserID:      42,
		ShowID:      10,
		Status:      BookingPending,
		HolderToken: "holder-1",
		TotalSeats:  2,
		ExpiresAt:   bookingNow.Add(5 * time.Minute),
	}
}

func TestBooking_Confirm(t *testing.T) {
	t.Run("pending booking within its window is confirmed", func(t *testing.T) {
		b := pendingBooking()

		err := b.Confirm(bookingNow.Add(time.Minute))

		require.NoError(t, err)
		assert.Equal(t, BookingConfirmed, b.Status)
		require.NotNil(t, b.ConfirmedAt)
		assert.Equal(t, bookingNow.Add(time.Minute), *b.ConfirmedAt)
	})

	t.Run("expired window yields ErrLockExpired, status unchanged", func(t *testing.T) {
		b := pendingBooking()

		err := b.Confirm(bookingNow.Add(6 * time.Minute))

		assert.ErrorIs(t, err, ErrLockExpired)
		assert.Equal(t, BookingPending, b.Status)
		assert.Nil(t, b.ConfirmedAt)
	})

	t.Run("confirmed booking cannot be confirmed twice", func(t *testing.T) {
		b := pendingBooking()
		require.NoError(t, b.Confirm(bookingNow))

		assert.ErrorIs(t, b.Confirm(bookingNow), ErrInvalidStateTransition)
	})
}

func TestBooking_Cancel(t *testing.T) {
	t.Run("pending booking is cancelled with a reason", func(t *testing.T) {
		b := pendingBooking()

		err := b.Cancel("changed plans", bookingNow)

		require.NoError(t, err)
		assert.Equal(t, BookingCancelled, b.Status)
		require.NotNil(t, b.CancellationReason)
		assert.Equal(t, "changed plans", *b.CancellationReason)
		require.NotNil(t, b.CancelledAt)
	})

	t.Run("confirmed booking can still be cancelled", func(t *testing.T) {
		b := pendingBooking()
		require.NoError(t, b.Confirm(bookingNow))

		assert.NoError(t, b.Cancel("refund", bookingNow.Add(time.Hour)))
		assert.Equal(t, BookingCancelled, b.Status)
	})

	t.Run("terminal bookings reject cancellation", func(t *testing.T) {
		expired := pendingBooking()
		require.NoError(t, expired.Expire())
		assert.ErrorIs(t, expired.Cancel("late", bookingNow), ErrInvalidStateTransition)

		cancelled := pendingBooking()
		require.NoError(t, cancelled.Cancel("first", bookingNow))
		assert.ErrorIs(t, cancelled.Cancel("second", bookingNow), ErrInvalidStateTransition)
	})
}

func TestBooking_Expire(t *testing.T) {
	t.Run("pending booking expires", func(t *testing.T) {
		b := pendingBooking()

		require.NoError(t, b.Expire())
		assert.Equal(t, BookingExpired, b.Status)
	})

	t.Run("non-pending bookings cannot expire", func(t *testing.T) {
		b := pendingBooking()
		require.NoError(t, b.Confirm(bookingNow))

		assert.ErrorIs(t, b.Expire(), ErrInvalidStateTransition)
		assert.Equal(t, BookingConfirmed, b.Status)
	})
}

func TestBooking_HasExpired(t *testing.T) {
	b := pendingBooking()

	assert.False(t, b.HasExpired(b.ExpiresAt))
	assert.True(t, b.HasExpired(b.ExpiresAt.Add(time.Second)))
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rajuswesust/GetMyShow/internal/model"
)

// BookingRepo provides data access to the bookings and booking_seats tables.
// Booking status writes are guarded by the status the transition is legal
// from (a compare-and-set on the status column), which keeps the PENDING ->
// terminal lifecycle monotone even under concurrent confirm/cancel/expire
// attempts.  Bookings are never deleted; terminal rows remain for history.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, reference, user_id, show_id, status, holder_token, total_seats,
       total_amount_cents, expires_at, confirmed_at, cancelled_at, cancellation_reason, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var confirmedAt, cancelledAt sql.NullTime
	var reason sql.NullString
	if err := row.Scan(
		&b.ID, &b.Reference, &b.UserID, &b.ShowID, &b.Status, &b.HolderToken, &b.TotalSeats,
		&b.TotalAmountCents, &b.ExpiresAt, &confirmedAt, &cancelledAt, &reason, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		b.ConfirmedAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	if reason.Valid {
		b.CancellationReason = &reason.String
	}
	return &b, nil
}

// CreateWithSeats inserts a booking and its seat records in one transaction.
// On success the booking's ID is populated from the insert.  The caller has
// already locked every seat; a failure here means the caller must release
// those locks again.
func (r *BookingRepo) CreateWithSeats(ctx context.Context, b *model.Booking, seats []model.BookingSeat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const ins = `INSERT INTO bookings (reference, user_id, show_id, status, holder_token, total_seats, total_amount_cents, expires_at)
	             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, b.Reference, b.UserID, b.ShowID, b.Status, b.HolderToken,
		b.TotalSeats, b.TotalAmountCents, b.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(seats) > 0 {
		query := `INSERT INTO booking_seats (booking_id, seat_inventory_id, show_id, seat_id, label, price_cents) VALUES `
		args := make([]interface{}, 0, len(seats)*6)
		for i, s := range seats {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?)"
			args = append(args, b.ID, s.SeatInventoryID, s.ShowID, s.SeatID, s.Label, s.PriceCents)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches a booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetByReference fetches a booking by its externally visible reference token.
func (r *BookingRepo) GetByReference(ctx context.Context, ref string) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, ref))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// SeatsByBooking returns the immutable seat records of a booking.
func (r *BookingRepo) SeatsByBooking(ctx context.Context, bookingID uint64) ([]model.BookingSeat, error) {
	const q = `SELECT id, booking_id, seat_inventory_id, show_id, seat_id, label, price_cents, created_at
	           FROM booking_seats WHERE booking_id = ? ORDER BY label`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingSeat
	for rows.Next() {
		var s model.BookingSeat
		if err := rows.Scan(&s.ID, &s.BookingID, &s.SeatInventoryID, &s.ShowID, &s.SeatID, &s.Label, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkConfirmed transitions PENDING -> CONFIRMED.  The status guard means a
// concurrent cancel or expire that got there first leaves zero rows, which is
// surfaced as model.ErrInvalidStateTransition.
func (r *BookingRepo) MarkConfirmed(ctx context.Context, id uint64, confirmedAt time.Time) error {
	const q = `UPDATE bookings SET status = ?, confirmed_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.BookingConfirmed, confirmedAt.UTC(), id, model.BookingPending)
	if err != nil {
		return err
	}
	return oneRowOrInvalid(res)
}

// MarkCancelled transitions PENDING or CONFIRMED -> CANCELLED, recording the
// cancellation time and reason.
func (r *BookingRepo) MarkCancelled(ctx context.Context, id uint64, reason string, cancelledAt time.Time) error {
	const q = `UPDATE bookings SET status = ?, cancelled_at = ?, cancellation_reason = ?
	           WHERE id = ? AND status IN (?, ?)`
	res, err := r.db.ExecContext(ctx, q, model.BookingCancelled, cancelledAt.UTC(), reason,
		id, model.BookingPending, model.BookingConfirmed)
	if err != nil {
		return err
	}
	return oneRowOrInvalid(res)
}

// MarkExpired transitions PENDING -> EXPIRED.  Zero rows means someone else
// already moved the booking on, which callers treat as "nothing to do".
func (r *BookingRepo) MarkExpired(ctx context.Context, id uint64) error {
	const q = `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.BookingExpired, id, model.BookingPending)
	if err != nil {
		return err
	}
	return oneRowOrInvalid(res)
}

// ListExpiredPending returns PENDING bookings whose hold window has passed,
// up to limit.  Consumed by the reaper.
func (r *BookingRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE status = ? AND expires_at <= ? ORDER BY expires_at LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, model.BookingPending, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ListByUser returns all bookings made by a user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func oneRowOrInvalid(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrInvalidStateTransition
	}
	return nil
}

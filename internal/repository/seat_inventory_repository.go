package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rajuswesust/GetMyShow/internal/model"
)

// SeatInventoryRepo encapsulates database operations for seat_inventory.
// Every mutating method bumps the version column and is guarded by the status
// and version the caller read, so a write computed from a stale read affects
// zero rows and is reported as a conflict instead of being applied.
type SeatInventoryRepo struct {
	db *sql.DB
}

// NewSeatInventoryRepo constructs a SeatInventoryRepo given a DB handle.
func NewSeatInventoryRepo(db *sql.DB) *SeatInventoryRepo {
	return &SeatInventoryRepo{db: db}
}

const seatInventoryColumns = `id, show_id, seat_id, label, seat_type, price_cents, status,
       version, locked_by, locked_at, lock_expires_at, booking_id, created_at, updated_at`

func scanSeatInventory(row interface{ Scan(...any) error }) (*model.SeatInventory, error) {
	var s model.SeatInventory
	var lockedBy sql.NullString
	var lockedAt, lockExpiresAt sql.NullTime
	var bookingID sql.NullInt64
	if err := row.Scan(
		&s.ID, &s.ShowID, &s.SeatID, &s.Label, &s.SeatType, &s.PriceCents, &s.Status,
		&s.Version, &lockedBy, &lockedAt, &lockExpiresAt, &bookingID, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lockedBy.Valid {
		s.LockedBy = &lockedBy.String
	}
	if lockedAt.Valid {
		t := lockedAt.Time
		s.LockedAt = &t
	}
	if lockExpiresAt.Valid {
		t := lockExpiresAt.Time
		s.LockExpiresAt = &t
	}
	if bookingID.Valid {
		id := uint64(bookingID.Int64)
		s.BookingID = &id
	}
	return &s, nil
}

// GetByID fetches a single seat inventory row by primary key.
func (r *SeatInventoryRepo) GetByID(ctx context.Context, id uint64) (*model.SeatInventory, error) {
	q := `SELECT ` + seatInventoryColumns + ` FROM seat_inventory WHERE id = ?`
	s, err := scanSeatInventory(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrSeatInventoryNotFound
	}
	return s, err
}

// ListByShow returns every seat inventory row for a show ordered by label.
// Used by the seat-map read path.
func (r *SeatInventoryRepo) ListByShow(ctx context.Context, showID uint64) ([]model.SeatInventory, error) {
	q := `SELECT ` + seatInventoryColumns + ` FROM seat_inventory WHERE show_id = ? ORDER BY label`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatInventory
	for rows.Next() {
		s, err := scanSeatInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetByShowAndSeats fetches the inventory rows for the given seat IDs of one
// show.  Seats without an inventory row are simply absent from the result;
// the caller decides whether that is an error.
func (r *SeatInventoryRepo) GetByShowAndSeats(ctx context.Context, showID uint64, seatIDs []uint64) ([]model.SeatInventory, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(seatIDs)), ",")
	q := `SELECT ` + seatInventoryColumns + ` FROM seat_inventory WHERE show_id = ? AND seat_id IN (` + placeholders + `)`
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, showID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatInventory
	for rows.Next() {
		s, err := scanSeatInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// TryLock attempts AVAILABLE -> LOCKED for the holder, guarded by the version
// the caller read.  Exactly one of any set of concurrent callers succeeds.
// Both a non-AVAILABLE status and a stale version surface as
// model.ErrSeatUnavailable: either way the seat is gone for this request and
// retrying the same seat is pointless.
func (r *SeatInventoryRepo) TryLock(ctx context.Context, id uint64, holder string, lockedAt, expiresAt time.Time, version uint32) error {
	const q = `UPDATE seat_inventory
	           SET status = ?, locked_by = ?, locked_at = ?, lock_expires_at = ?, booking_id = NULL, version = version + 1
	           WHERE id = ? AND status = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, model.SeatLocked, holder, lockedAt.UTC(), expiresAt.UTC(), id, model.SeatAvailable, version)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return model.ErrSeatUnavailable
	}
	return nil
}

// Confirm attempts LOCKED -> BOOKED for the booking, guarded by version and by
// a server-side expiry check on lock_expires_at.  A zero-row outcome is
// classified by re-reading the row: expired lock, wrong state, or a stale
// version (the only retryable case).
func (r *SeatInventoryRepo) Confirm(ctx context.Context, id, bookingID uint64, now time.Time, version uint32) error {
	const q = `UPDATE seat_inventory
	           SET status = ?, booking_id = ?, locked_by = NULL, locked_at = NULL, lock_expires_at = NULL, version = version + 1
	           WHERE id = ? AND status = ? AND lock_expires_at > ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, model.SeatBooked, bookingID, id, model.SeatLocked, now.UTC(), version)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return r.classifyLockedConflict(ctx, id, now, version)
	}
	return nil
}

// Release attempts LOCKED -> AVAILABLE for the given holder, clearing all lock
// metadata.  The holder guard makes release idempotent in the presence of the
// reaper: once the reaper has freed the seat (or another user re-locked it),
// the original holder's release affects zero rows.
func (r *SeatInventoryRepo) Release(ctx context.Context, id uint64, holder string, version uint32) error {
	const q = `UPDATE seat_inventory
	           SET status = ?, locked_by = NULL, locked_at = NULL, lock_expires_at = NULL, booking_id = NULL, version = version + 1
	           WHERE id = ? AND status = ? AND locked_by = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, model.SeatAvailable, id, model.SeatLocked, holder, version)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return r.classifyReleaseConflict(ctx, id, holder, version)
	}
	return nil
}

// ReleaseBooked attempts BOOKED -> AVAILABLE when a confirmed booking is
// cancelled.  Guarded by the owning booking ID so a seat re-sold after an
// earlier cancellation can never be freed by a stale caller.
func (r *SeatInventoryRepo) ReleaseBooked(ctx context.Context, id, bookingID uint64, version uint32) error {
	const q = `UPDATE seat_inventory
	           SET status = ?, locked_by = NULL, locked_at = NULL, lock_expires_at = NULL, booking_id = NULL, version = version + 1
	           WHERE id = ? AND status = ? AND booking_id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, model.SeatAvailable, id, model.SeatBooked, bookingID, version)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return model.ErrVersionConflict
	}
	return nil
}

// RevertToLocked undoes a seat confirm during compensation, restoring the
// original lock metadata.  Only used when a multi-seat confirmation fails
// partway and the already-confirmed seats must go back to LOCKED.
func (r *SeatInventoryRepo) RevertToLocked(ctx context.Context, id uint64, holder string, lockedAt, expiresAt time.Time, version uint32) error {
	const q = `UPDATE seat_inventory
	           SET status = ?, locked_by = ?, locked_at = ?, lock_expires_at = ?, booking_id = NULL, version = version + 1
	           WHERE id = ? AND status = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, model.SeatLocked, holder, lockedAt.UTC(), expiresAt.UTC(), id, model.SeatBooked, version)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return model.ErrVersionConflict
	}
	return nil
}

// ListExpiredLocks returns seats whose lock TTL has passed, up to limit.
// Consumed by the reaper; the subsequent Release of each row is guarded, so
// scanning and reclaiming need not be atomic.
func (r *SeatInventoryRepo) ListExpiredLocks(ctx context.Context, now time.Time, limit int) ([]model.SeatInventory, error) {
	q := `SELECT ` + seatInventoryColumns + ` FROM seat_inventory
	      WHERE status = ? AND lock_expires_at <= ? ORDER BY lock_expires_at LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, model.SeatLocked, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatInventory
	for rows.Next() {
		s, err := scanSeatInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ListOrphanedBooked returns BOOKED seats whose owning booking has already
// reached a terminal state, up to limit.  Such rows appear when the seat-free
// loop of a cancellation fails partway (store error, crash) after the booking
// was marked CANCELLED; the reaper re-drives their release.
func (r *SeatInventoryRepo) ListOrphanedBooked(ctx context.Context, limit int) ([]model.SeatInventory, error) {
	const q = `SELECT si.id, si.show_id, si.seat_id, si.label, si.seat_type, si.price_cents, si.status,
	       si.version, si.locked_by, si.locked_at, si.lock_expires_at, si.booking_id, si.created_at, si.updated_at
	      FROM seat_inventory si
	      JOIN bookings b ON b.id = si.booking_id
	      WHERE si.status = ? AND b.status IN (?, ?) LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, model.SeatBooked, model.BookingCancelled, model.BookingExpired, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatInventory
	for rows.Next() {
		s, err := scanSeatInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// CreateBulk inserts seat inventory rows in one statement.  Used once per
// show at scheduling time to seed the inventory from the catalog; timestamps
// default in the DB and every row starts AVAILABLE at version 0.
func (r *SeatInventoryRepo) CreateBulk(ctx context.Context, seats []model.SeatInventory) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seat_inventory (show_id, seat_id, label, seat_type, price_cents, status, version) VALUES `
	args := make([]interface{}, 0, len(seats)*7)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, 0)"
		args = append(args, s.ShowID, s.SeatID, s.Label, s.SeatType, s.PriceCents, model.SeatAvailable)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// classifyLockedConflict explains a failed LOCKED-guarded write by re-reading
// the row.  Priority order matters: a LOCKED row past expiry is reported as
// ErrLockExpired even when the version also drifted, because the expiry is
// what dooms the caller's claim.
func (r *SeatInventoryRepo) classifyLockedConflict(ctx context.Context, id uint64, now time.Time, version uint32) error {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case s.Status != model.SeatLocked:
		return model.ErrInvalidStateTransition
	// Mirrors the lock_expires_at > now guard in the UPDATE.
	case s.LockExpiresAt != nil && !s.LockExpiresAt.After(now):
		return model.ErrLockExpired
	case s.Version != version:
		return model.ErrVersionConflict
	default:
		return fmt.Errorf("seat %d: guarded confirm affected no rows", id)
	}
}

func (r *SeatInventoryRepo) classifyReleaseConflict(ctx context.Context, id uint64, holder string, version uint32) error {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case s.Status != model.SeatLocked || !s.IsLockedBy(holder):
		return model.ErrInvalidStateTransition
	case s.Version != version:
		return model.ErrVersionConflict
	default:
		return fmt.Errorf("seat %d: guarded release affected no rows", id)
	}
}

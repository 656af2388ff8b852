// internal/db/queries.go
//
// Hand-written query layer for the booking schema. The shape follows the
// usual generated-queries layout: a Queries struct bound to a DBTX so the
// same methods run against the pool or an open transaction.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotPending is returned when a finalize update matches no PENDING row,
// typically because the expiry job failed the booking while its payment was
// in flight.
var ErrNotPending = errors.New("booking is not pending")

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusFailed    = "FAILED"
)

type Court struct {
	ID           int64
	Name         string
	CourtType    string
	PricePerHour int64
	Capacity     int64
	SlotMinutes  int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type OperatingHours struct {
	CourtID   int64
	DayOfWeek int64
	IsOpen    bool
	OpensAt   string
	ClosesAt  string
}

type ExcludedTime struct {
	ID        int64
	CourtID   int64
	DayOfWeek int64
	Name      string
	StartsAt  string
	EndsAt    string
}

type Booking struct {
	ID           int64
	BookingRef   string
	CourtID      int64
	SlotID       string
	Date         string
	StartsAt     string
	EndsAt       string
	Price        int64
	PlayerCount  int64
	PayerName    string
	PayerEmail   string
	PayerContact sql.NullString
	PaymentRef   sql.NullString
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SlotPopularity struct {
	CourtID      int64
	DayOfWeek    int64
	StartsAt     string
	BookingCount int64
	ComputedAt   time.Time
}

type CreateCourtParams struct {
	Name         string
	CourtType    string
	PricePerHour int64
	Capacity     int64
	SlotMinutes  int64
}

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO courts (name, court_type, price_per_hour, capacity, slot_minutes)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, name, court_type, price_per_hour, capacity, slot_minutes, is_active, created_at, updated_at`,
		arg.Name, arg.CourtType, arg.PricePerHour, arg.Capacity, arg.SlotMinutes,
	)
	return scanCourt(row)
}

type UpdateCourtParams struct {
	ID           int64
	Name         string
	CourtType    string
	PricePerHour int64
	Capacity     int64
	SlotMinutes  int64
}

func (q *Queries) UpdateCourt(ctx context.Context, arg UpdateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE courts
		SET name = ?, court_type = ?, price_per_hour = ?, capacity = ?, slot_minutes = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING id, name, court_type, price_per_hour, capacity, slot_minutes, is_active, created_at, updated_at`,
		arg.Name, arg.CourtType, arg.PricePerHour, arg.Capacity, arg.SlotMinutes, arg.ID,
	)
	return scanCourt(row)
}

// DeactivateCourt retires a court without deleting it; existing bookings
// keep a valid court reference.
func (q *Queries) DeactivateCourt(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE courts SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

func (q *Queries) GetCourt(ctx context.Context, id int64) (Court, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, name, court_type, price_per_hour, capacity, slot_minutes, is_active, created_at, updated_at
		FROM courts WHERE id = ?`, id)
	return scanCourt(row)
}

func (q *Queries) ListCourts(ctx context.Context) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, court_type, price_per_hour, capacity, slot_minutes, is_active, created_at, updated_at
		FROM courts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		var c Court
		if err := rows.Scan(&c.ID, &c.Name, &c.CourtType, &c.PricePerHour, &c.Capacity,
			&c.SlotMinutes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

type UpsertOperatingHoursParams struct {
	CourtID   int64
	DayOfWeek int64
	IsOpen    bool
	OpensAt   string
	ClosesAt  string
}

func (q *Queries) UpsertOperatingHours(ctx context.Context, arg UpsertOperatingHoursParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO operating_hours (court_id, day_of_week, is_open, opens_at, closes_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (court_id, day_of_week)
		DO UPDATE SET is_open = excluded.is_open, opens_at = excluded.opens_at, closes_at = excluded.closes_at`,
		arg.CourtID, arg.DayOfWeek, arg.IsOpen, arg.OpensAt, arg.ClosesAt,
	)
	return err
}

func (q *Queries) ListOperatingHours(ctx context.Context, courtID int64) ([]OperatingHours, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT court_id, day_of_week, is_open, opens_at, closes_at
		FROM operating_hours WHERE court_id = ? ORDER BY day_of_week`, courtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []OperatingHours
	for rows.Next() {
		var h OperatingHours
		if err := rows.Scan(&h.CourtID, &h.DayOfWeek, &h.IsOpen, &h.OpensAt, &h.ClosesAt); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

type AddExcludedTimeParams struct {
	CourtID   int64
	DayOfWeek int64
	Name      string
	StartsAt  string
	EndsAt    string
}

func (q *Queries) AddExcludedTime(ctx context.Context, arg AddExcludedTimeParams) (ExcludedTime, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO excluded_times (court_id, day_of_week, name, starts_at, ends_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, court_id, day_of_week, name, starts_at, ends_at`,
		arg.CourtID, arg.DayOfWeek, arg.Name, arg.StartsAt, arg.EndsAt,
	)
	var e ExcludedTime
	err := row.Scan(&e.ID, &e.CourtID, &e.DayOfWeek, &e.Name, &e.StartsAt, &e.EndsAt)
	return e, err
}

func (q *Queries) DeleteExcludedTime(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM excluded_times WHERE id = ?`, id)
	return err
}

func (q *Queries) ListExcludedTimes(ctx context.Context, courtID int64) ([]ExcludedTime, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, court_id, day_of_week, name, starts_at, ends_at
		FROM excluded_times WHERE court_id = ? ORDER BY day_of_week, starts_at`, courtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breaks []ExcludedTime
	for rows.Next() {
		var e ExcludedTime
		if err := rows.Scan(&e.ID, &e.CourtID, &e.DayOfWeek, &e.Name, &e.StartsAt, &e.EndsAt); err != nil {
			return nil, err
		}
		breaks = append(breaks, e)
	}
	return breaks, rows.Err()
}

type CreateBookingParams struct {
	BookingRef   string
	CourtID      int64
	SlotID       string
	Date         string
	StartsAt     string
	EndsAt       string
	Price        int64
	PlayerCount  int64
	PayerName    string
	PayerEmail   string
	PayerContact sql.NullString
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO bookings (booking_ref, court_id, slot_id, date, starts_at, ends_at,
		                      price, player_count, payer_name, payer_email, payer_contact, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'PENDING')
		RETURNING id, booking_ref, court_id, slot_id, date, starts_at, ends_at, price,
		          player_count, payer_name, payer_email, payer_contact, payment_ref, status,
		          created_at, updated_at`,
		arg.BookingRef, arg.CourtID, arg.SlotID, arg.Date, arg.StartsAt, arg.EndsAt,
		arg.Price, arg.PlayerCount, arg.PayerName, arg.PayerEmail, arg.PayerContact,
	)
	return scanBooking(row)
}

// ConfirmBooking marks a pending booking paid. Fails with a unique
// constraint violation if another session confirmed the same slot first,
// and with ErrNotPending if the row already left PENDING (expired).
func (q *Queries) ConfirmBooking(ctx context.Context, id int64, paymentRef string) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'CONFIRMED', payment_ref = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'PENDING'`,
		paymentRef, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotPending
	}
	return nil
}

func (q *Queries) FailBooking(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'FAILED', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'PENDING'`, id)
	return err
}

func (q *Queries) GetBookingByRef(ctx context.Context, bookingRef string) (Booking, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, booking_ref, court_id, slot_id, date, starts_at, ends_at, price,
		       player_count, payer_name, payer_email, payer_contact, payment_ref, status,
		       created_at, updated_at
		FROM bookings WHERE booking_ref = ?`, bookingRef)
	return scanBooking(row)
}

// ListConfirmedSlotIDs returns the slot ids already taken for a court on a
// given date. Pending bookings do not block a slot; they either confirm
// (and win the unique index) or expire.
func (q *Queries) ListConfirmedSlotIDs(ctx context.Context, courtID int64, date string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT slot_id FROM bookings
		WHERE court_id = ? AND date = ? AND status = 'CONFIRMED'
		ORDER BY starts_at`, courtID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *Queries) CountConfirmedBySlotID(ctx context.Context, slotID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings WHERE slot_id = ? AND status = 'CONFIRMED'`, slotID).Scan(&count)
	return count, err
}

// ExpirePendingBookings fails bookings stuck in PENDING since before cutoff
// (payment started but never finalized). Returns the number expired.
func (q *Queries) ExpirePendingBookings(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'FAILED', updated_at = CURRENT_TIMESTAMP
		WHERE status = 'PENDING' AND created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RecomputeSlotPopularity rebuilds booking density per (court, weekday,
// start time) from confirmed bookings inside [windowStart, windowEnd].
// The window is strictly trailing: bookings for future dates do not count.
func (q *Queries) RecomputeSlotPopularity(ctx context.Context, windowStart, windowEnd string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM slot_popularity`); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO slot_popularity (court_id, day_of_week, starts_at, booking_count)
		SELECT court_id,
		       CAST(strftime('%w', date) AS INTEGER),
		       starts_at,
		       COUNT(*)
		FROM bookings
		WHERE status = 'CONFIRMED' AND date >= ? AND date <= ?
		GROUP BY court_id, CAST(strftime('%w', date) AS INTEGER), starts_at`,
		windowStart, windowEnd)
	return err
}

func (q *Queries) ListSlotPopularityForDay(ctx context.Context, courtID, dayOfWeek int64) ([]SlotPopularity, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT court_id, day_of_week, starts_at, booking_count, computed_at
		FROM slot_popularity
		WHERE court_id = ? AND day_of_week = ?
		ORDER BY starts_at`, courtID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SlotPopularity
	for rows.Next() {
		var s SlotPopularity
		if err := rows.Scan(&s.CourtID, &s.DayOfWeek, &s.StartsAt, &s.BookingCount, &s.ComputedAt); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func scanCourt(row *sql.Row) (Court, error) {
	var c Court
	err := row.Scan(&c.ID, &c.Name, &c.CourtType, &c.PricePerHour, &c.Capacity,
		&c.SlotMinutes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanBooking(row *sql.Row) (Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.BookingRef, &b.CourtID, &b.SlotID, &b.Date, &b.StartsAt,
		&b.EndsAt, &b.Price, &b.PlayerCount, &b.PayerName, &b.PayerEmail,
		&b.PayerContact, &b.PaymentRef, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

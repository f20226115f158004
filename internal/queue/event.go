// Package queue defines message payloads exchanged over the message broker,
// plus the publisher and the background consumer for booking confirmations.
package queue

// BookingConfirmedEvent is published when a booking is successfully
// confirmed.  It carries enough information for downstream consumers (payment
// reconciliation, notifications, analytics) to act without querying the
// primary database.
type BookingConfirmedEvent struct {
	BookingReference string   `json:"booking_reference"`
	UserID           uint64   `json:"user_id"`
	ShowID           uint64   `json:"show_id"`
	SeatLabels       []string `json:"seats"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	ConfirmedAt      string   `json:"confirmed_at"`
}

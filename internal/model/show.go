package model

import "time"

// ShowStatus enumerates the catalog-side states of a show that matter to the
// booking core.  Full show management lives with the catalog collaborator;
// the core only needs enough to answer "is this show bookable".
type ShowStatus string

const (
	ShowScheduled ShowStatus = "SCHEDULED"
	ShowCancelled ShowStatus = "CANCELLED"
	ShowFinished  ShowStatus = "FINISHED"
)

// Show is the read-only projection of a scheduled show consumed from the
// catalog.  Seat inventory rows reference shows by ID only.
//
// Fields:
//
//	ID        - primary key identifier.
//	Title     - movie or event title.
//	StartsAt  - when the show begins.
//	Status    - catalog state (SCHEDULED, CANCELLED, FINISHED).
//	CreatedAt - creation timestamp.
type Show struct {
	ID        uint64     // shows.id
	Title     string     // shows.title
	StartsAt  time.Time  // shows.starts_at
	Status    ShowStatus // shows.status
	CreatedAt time.Time  // shows.created_at
}

// IsBookable reports whether the show still accepts bookings: it must be
// SCHEDULED and must not have started yet.
func (s *Show) IsBookable(now time.Time) bool {
	return s.Status == ShowScheduled && s.StartsAt.After(now)
}

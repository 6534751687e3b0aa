package domain

import "time"

// AttributionWindow bounds how far back a booking looks for a marketing touch.
const AttributionWindow = 30 * 24 * time.Hour

// TrackingLink correlates a sent notification to a later conversion. ClickedAt
// and BookingID are both write-once: the first click and the first booking
// link win, later ones are ignored.
type TrackingLink struct {
	ID         string
	CustomerID string
	AttemptID  string
	ClickedAt  *time.Time
	BookingID  *string
	LinkedAt   *time.Time
	CreatedAt  time.Time
}

// Linked reports whether a booking already consumed this link.
func (l *TrackingLink) Linked() bool {
	return l.BookingID != nil
}

// WithinWindow reports whether the link was created inside the attribution
// window relative to a booking's creation time.
func (l *TrackingLink) WithinWindow(bookingCreatedAt time.Time) bool {
	if l.CreatedAt.After(bookingCreatedAt) {
		return false
	}
	return bookingCreatedAt.Sub(l.CreatedAt) <= AttributionWindow
}

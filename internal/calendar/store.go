package calendar

import (
	"context"
	"time"
)

// Event is a calendar event as exchanged with the backend. Start and End are
// instants; a valid event has Start before End.
type Event struct {
	Summary string
	Start   time.Time
	End     time.Time
}

// Interval returns the event's time range.
func (e Event) Interval() (start, end time.Time) {
	return e.Start, e.End
}

// CreatedEvent is the backend's response to an insert.
type CreatedEvent struct {
	ID   string
	Link string
}

// Store is the calendar backend contract the scheduling tools depend on.
// Implementations surface transport failures as plain errors; classification
// into the tool error taxonomy happens in the schedtools layer.
type Store interface {
	// List returns events in [timeMin, timeMax) ordered by start time
	// ascending. An empty result is not an error.
	List(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]Event, error)

	// Insert creates an event and returns its backend ID and browser link.
	Insert(ctx context.Context, calendarID string, event Event) (*CreatedEvent, error)
}

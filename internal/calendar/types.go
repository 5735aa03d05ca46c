package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// toEvent converts a Google Calendar event to an Event. All-day events carry a
// Date instead of a DateTime; they are converted to midnight-to-midnight UTC.
// Events whose times cannot be parsed are dropped (ok=false).
func toEvent(item *calendar.Event) (Event, bool) {
	start, ok := parseEventTime(item.Start)
	if !ok {
		return Event{}, false
	}
	end, ok := parseEventTime(item.End)
	if !ok {
		return Event{}, false
	}

	return Event{
		Summary: item.Summary,
		Start:   start,
		End:     end,
	}, true
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	if edt.Date != "" {
		t, err := time.Parse("2006-01-02", edt.Date)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

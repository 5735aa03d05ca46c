package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"
)

func TestToEventDateTime(t *testing.T) {
	item := &calendar.Event{
		Summary: "Team sync",
		Start:   &calendar.EventDateTime{DateTime: "2025-03-01T09:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2025-03-01T09:30:00Z"},
	}

	ev, ok := toEvent(item)
	require.True(t, ok)
	assert.Equal(t, "Team sync", ev.Summary)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC), ev.End)
}

func TestToEventOffsetNormalizedToUTC(t *testing.T) {
	item := &calendar.Event{
		Summary: "IST meeting",
		Start:   &calendar.EventDateTime{DateTime: "2025-03-01T14:30:00+05:30"},
		End:     &calendar.EventDateTime{DateTime: "2025-03-01T15:00:00+05:30"},
	}

	ev, ok := toEvent(item)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.UTC, ev.Start.Location())
}

func TestToEventAllDay(t *testing.T) {
	item := &calendar.Event{
		Summary: "Holiday",
		Start:   &calendar.EventDateTime{Date: "2025-03-01"},
		End:     &calendar.EventDateTime{Date: "2025-03-02"},
	}

	ev, ok := toEvent(item)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), ev.End)
}

func TestToEventInvalid(t *testing.T) {
	tests := []struct {
		name string
		item *calendar.Event
	}{
		{"nil start", &calendar.Event{End: &calendar.EventDateTime{DateTime: "2025-03-01T09:00:00Z"}}},
		{"nil end", &calendar.Event{Start: &calendar.EventDateTime{DateTime: "2025-03-01T09:00:00Z"}}},
		{"garbage datetime", &calendar.Event{
			Start: &calendar.EventDateTime{DateTime: "not-a-time"},
			End:   &calendar.EventDateTime{DateTime: "2025-03-01T09:00:00Z"},
		}},
		{"empty fields", &calendar.Event{
			Start: &calendar.EventDateTime{},
			End:   &calendar.EventDateTime{},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := toEvent(tt.item)
			assert.False(t, ok)
		})
	}
}

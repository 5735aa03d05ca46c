package schedtools

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/mweide/calagent/internal/calendar"
	"github.com/mweide/calagent/internal/logging"
	"github.com/mweide/calagent/internal/timemath"
)

const (
	// DefaultZoneName is the assistant's default presentation timezone.
	DefaultZoneName = "Asia/Kolkata"

	// defaultListWindow is the look-ahead when list_events is called without a range.
	defaultListWindow = 7 * 24 * time.Hour

	// defaultMaxResults caps how many events a single backend list call returns.
	defaultMaxResults = 20
)

// Tools implements the four scheduling operations on top of a calendar Store.
// Each operation is a pure function of its inputs plus at most one backend
// round trip; no state is cached between calls because the calendar is the
// source of truth and may change between them.
type Tools struct {
	store      calendar.Store
	calendarID string
	zone       *time.Location
	now        func() time.Time
	maxResults int64
	logger     *slog.Logger
}

// Option configures Tools.
type Option func(*Tools)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tools) { t.now = now }
}

// WithZone sets the default timezone used for day-boundary computation.
func WithZone(loc *time.Location) Option {
	return func(t *Tools) { t.zone = loc }
}

// WithMaxResults caps backend list calls.
func WithMaxResults(n int64) Option {
	return func(t *Tools) { t.maxResults = n }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tools) { t.logger = logger }
}

// New creates scheduling tools bound to a store and calendar ID.
func New(store calendar.Store, calendarID string, opts ...Option) *Tools {
	t := &Tools{
		store:      store,
		calendarID: calendarID,
		zone:       time.UTC,
		now:        timemath.Now,
		maxResults: defaultMaxResults,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Zone returns the default timezone for day-boundary computation.
func (t *Tools) Zone() *time.Location {
	return t.zone
}

// TodayInfo is the result of the today tool.
type TodayInfo struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
}

// Today returns today's date and weekday in UTC. It never fails.
func (t *Tools) Today() TodayInfo {
	now := t.now()
	return TodayInfo{
		Date:    now.Format("2006-01-02"),
		Weekday: now.Weekday().String(),
	}
}

// EventItem is one event in a list_events result.
type EventItem struct {
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// ListEvents fetches events in the range given by the query string
// ("start_time=...&end_time=..."), defaulting to [now, now+7d]. The result is
// sorted by start ascending and deduplicated by (start, summary): when the
// backend returns two entries with identical start and title, only the first
// is kept. An empty range yields an empty slice, not an error.
func (t *Tools) ListEvents(ctx context.Context, query string) ([]EventItem, error) {
	now := t.now()
	timeMin, timeMax, err := parseRangeQuery(query, now, now.Add(defaultListWindow))
	if err != nil {
		return nil, err
	}

	if !timeMin.Before(timeMax) {
		return nil, Errorf(KindInvalidRange, "start_time %s must be before end_time %s",
			timeMin.Format(time.RFC3339), timeMax.Format(time.RFC3339))
	}

	log := logging.WithTool(t.logger, "list_events")
	events, err := t.store.List(ctx, t.calendarID, timeMin, timeMax, t.maxResults)
	if err != nil {
		log.Error("backend list failed", logging.Err(err))
		return nil, BackendErrorf(err, "fetching events between %s and %s",
			timeMin.Format(time.RFC3339), timeMax.Format(time.RFC3339))
	}

	items := dedupeEvents(events)
	log.Debug("listed events", "count", len(items))
	return items, nil
}

// dedupeEvents sorts by start ascending and drops entries whose (start, summary)
// pair was already seen.
func dedupeEvents(events []calendar.Event) []EventItem {
	sorted := make([]calendar.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	type key struct {
		start   int64
		summary string
	}
	seen := make(map[key]struct{}, len(sorted))
	items := make([]EventItem, 0, len(sorted))
	for _, ev := range sorted {
		k := key{start: ev.Start.UnixNano(), summary: ev.Summary}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		items = append(items, EventItem{
			Summary: ev.Summary,
			Start:   ev.Start,
			End:     ev.End,
		})
	}
	return items
}

// Slot is one free interval in a find_available_slots result.
type Slot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
}

// FindAvailableSlots finds free intervals of at least minDurationMinutes
// within the search window. When within is nil the window is
// [now, end of today in the default zone]. The sweep keeps a cursor at
// max(windowStart, previous event end); a gap before the next event start of
// at least the minimum duration becomes a slot, and the remainder after the
// last event becomes the trailing slot.
func (t *Tools) FindAvailableSlots(ctx context.Context, minDurationMinutes int, within *timemath.Interval) ([]Slot, error) {
	if minDurationMinutes <= 0 {
		return nil, Errorf(KindInvalidDuration, "min_duration must be positive, got %d", minDurationMinutes)
	}

	now := t.now()
	window := timemath.Interval{Start: now, End: timemath.EndOfDay(now, t.zone)}
	if within != nil {
		window = *within
	}
	if !window.IsValid() {
		return nil, Errorf(KindInvalidRange, "search window start %s must be before end %s",
			window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
	}

	log := logging.WithTool(t.logger, "find_available_slots")
	events, err := t.store.List(ctx, t.calendarID, window.Start, window.End, t.maxResults)
	if err != nil {
		log.Error("backend list failed", logging.Err(err))
		return nil, BackendErrorf(err, "fetching events for availability search")
	}

	minDuration := time.Duration(minDurationMinutes) * time.Minute
	slots := sweepFreeSlots(events, window, minDuration)
	log.Debug("computed free slots", "count", len(slots))
	return slots, nil
}

// sweepFreeSlots runs the left-to-right gap sweep over the events, which may
// arrive overlapping or out of order.
func sweepFreeSlots(events []calendar.Event, window timemath.Interval, minDuration time.Duration) []Slot {
	sorted := make([]calendar.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	slots := []Slot{}
	cursor := window.Start
	for _, ev := range sorted {
		if !ev.Start.Before(window.End) {
			break
		}
		start := ev.Start
		if start.After(cursor) && start.Sub(cursor) >= minDuration {
			slots = append(slots, newSlot(cursor, start))
		}
		if ev.End.After(cursor) {
			cursor = ev.End
		}
	}

	if window.End.Sub(cursor) >= minDuration {
		slots = append(slots, newSlot(cursor, window.End))
	}

	return slots
}

func newSlot(start, end time.Time) Slot {
	return Slot{
		Start:           start,
		End:             end,
		DurationMinutes: int(end.Sub(start) / time.Minute),
	}
}

// CreateResult is the result of a successful create_event.
type CreateResult struct {
	EventID string `json:"event_id"`
	Link    string `json:"link"`
}

// CreateEvent validates and creates an event. end must be after start and
// start must not be in the past; both checks run before any backend call, so
// a validation failure guarantees nothing was created. Conflict detection is
// deliberately not performed here: it is the reasoning step's responsibility
// via list_events, keeping this primitive simple and composable. On backend
// failure the event is guaranteed not created; retries are a caller concern.
func (t *Tools) CreateEvent(ctx context.Context, summary string, start, end time.Time) (*CreateResult, error) {
	if !end.After(start) {
		return nil, Errorf(KindInvalidInterval, "end time %s must be after start time %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if start.Before(t.now()) {
		return nil, Errorf(KindPastEvent, "cannot create events in the past (start %s)",
			start.Format(time.RFC3339))
	}

	log := logging.WithTool(t.logger, "create_event")
	created, err := t.store.Insert(ctx, t.calendarID, calendar.Event{
		Summary: summary,
		Start:   start.UTC(),
		End:     end.UTC(),
	})
	if err != nil {
		log.Error("backend insert failed", logging.Err(err))
		return nil, BackendErrorf(err, "creating event %q", summary)
	}

	log.Info("event created", "event_id", created.ID)
	return &CreateResult{
		EventID: created.ID,
		Link:    created.Link,
	}, nil
}

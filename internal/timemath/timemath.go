package timemath

import "time"

// Interval is a half-open time range [Start, End). Start must be before End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// IsValid reports whether Start is strictly before End.
func (iv Interval) IsValid() bool {
	return iv.Start.Before(iv.End)
}

// Now returns the current instant in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// ToUTC reinterprets the wall-clock fields of t in the given zone and returns
// the corresponding UTC instant. Nonexistent or ambiguous local times (DST
// transitions) are resolved by the Go runtime's normalization: the offset in
// effect is chosen deterministically, never an error.
func ToUTC(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc).UTC()
}

// ToZone converts an instant to its wall-clock representation in the given zone.
// ToZone(ToUTC(t, loc), loc) equals t for any wall clock t without DST ambiguity.
func ToZone(t time.Time, loc *time.Location) time.Time {
	return t.In(loc)
}

// Overlaps reports whether two half-open intervals overlap.
// Touching endpoints do not count as overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// DayBounds returns the interval from 00:00:00 to 23:59:59 of the given day in
// the given zone, expressed in UTC.
func DayBounds(day time.Time, loc *time.Location) Interval {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, loc)
	return Interval{Start: start.UTC(), End: end.UTC()}
}

// EndOfDay returns 23:59:59 of the day containing instant t in the given zone,
// expressed in UTC.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc).UTC()
}

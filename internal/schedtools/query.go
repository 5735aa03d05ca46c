package schedtools

import (
	"net/url"
	"strings"
	"time"
)

// parseRangeQuery parses a list_events query of the form
// "start_time=ISO_UTC_TIME&end_time=ISO_UTC_TIME". Either parameter may be
// omitted; missing bounds fall back to the provided defaults. An empty query
// or one without '=' yields the defaults unchanged.
func parseRangeQuery(query string, defaultMin, defaultMax time.Time) (time.Time, time.Time, error) {
	timeMin, timeMax := defaultMin, defaultMax

	query = strings.TrimSpace(query)
	if query == "" || !strings.Contains(query, "=") {
		return timeMin, timeMax, nil
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return time.Time{}, time.Time{}, Errorf(KindInvalidQueryFormat,
			"invalid query format %q, use: start_time=ISO_TIME&end_time=ISO_TIME", query)
	}

	if v := params.Get("start_time"); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			return time.Time{}, time.Time{}, Errorf(KindInvalidQueryFormat,
				"invalid start_time %q: must be ISO-8601 with explicit offset", v)
		}
		timeMin = t
	}
	if v := params.Get("end_time"); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			return time.Time{}, time.Time{}, Errorf(KindInvalidQueryFormat,
				"invalid end_time %q: must be ISO-8601 with explicit offset", v)
		}
		timeMax = t
	}

	return timeMin, timeMax, nil
}

// parseTimestamp parses an ISO-8601 timestamp with an explicit UTC offset.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

package catalog

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mweide/calagent/internal/schedtools"
	"github.com/mweide/calagent/internal/timemath"
)

// DefaultMinSlotMinutes is the fallback minimum duration for availability
// search when the caller does not specify one.
const DefaultMinSlotMinutes = 30

// NewSchedulingCatalog builds the catalog of the four scheduling tools bound
// to the given Tools instance. create_event is the only mutating tool.
func NewSchedulingCatalog(tools *schedtools.Tools, opts ...Option) *Catalog {
	c := New(opts...)

	todayTool := mcp.NewTool("today",
		mcp.WithDescription("Get today's date and weekday (UTC). Use it to resolve relative dates like 'tomorrow' or 'next Friday'."),
	)
	c.Register(todayTool, false, func(ctx context.Context, args map[string]any) (any, error) {
		return tools.Today(), nil
	})

	listEventsTool := mcp.NewTool("list_events",
		mcp.WithDescription("List calendar events within a time range, sorted by start time and deduplicated."),
		mcp.WithString("query",
			mcp.Description("Time range as 'start_time=<RFC3339>&end_time=<RFC3339>', e.g. 'start_time=2025-01-15T00:00:00Z&end_time=2025-01-16T00:00:00Z'. Empty means the next 7 days."),
		),
	)
	c.Register(listEventsTool, false, func(ctx context.Context, args map[string]any) (any, error) {
		return tools.ListEvents(ctx, stringArg(args, "query", ""))
	})

	findSlotsTool := mcp.NewTool("find_available_slots",
		mcp.WithDescription("Find free time slots between existing events. Without a window, searches from now until the end of today."),
		mcp.WithNumber("min_duration",
			mcp.Description("Minimum slot length in minutes (default: 30)"),
		),
		mcp.WithString("start_time",
			mcp.Description("Search window start (RFC3339 UTC). Must be given together with end_time."),
		),
		mcp.WithString("end_time",
			mcp.Description("Search window end (RFC3339 UTC). Must be given together with start_time."),
		),
	)
	c.Register(findSlotsTool, false, func(ctx context.Context, args map[string]any) (any, error) {
		window, err := windowFromArgs(args)
		if err != nil {
			return nil, err
		}
		return tools.FindAvailableSlots(ctx, intArg(args, "min_duration", DefaultMinSlotMinutes), window)
	})

	createEventTool := mcp.NewTool("create_event",
		mcp.WithDescription("Create a calendar event. Times must be RFC3339 UTC and the start must be in the future."),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Event title/summary"),
		),
		mcp.WithString("start_time",
			mcp.Required(),
			mcp.Description("Start time (RFC3339 format, e.g., '2025-01-15T14:00:00Z')"),
		),
		mcp.WithString("end_time",
			mcp.Required(),
			mcp.Description("End time (RFC3339 format, e.g., '2025-01-15T15:00:00Z')"),
		),
	)
	c.Register(createEventTool, true, func(ctx context.Context, args map[string]any) (any, error) {
		start, err := timeArg(args, "start_time")
		if err != nil {
			return nil, err
		}
		end, err := timeArg(args, "end_time")
		if err != nil {
			return nil, err
		}
		return tools.CreateEvent(ctx, stringArg(args, "summary", ""), start, end)
	})

	return c
}

// timeArg parses a required RFC3339 argument.
func timeArg(args map[string]any, name string) (time.Time, error) {
	raw := stringArg(args, name, "")
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, schedtools.Errorf(schedtools.KindSchemaError,
			"argument %q must be an RFC3339 timestamp: %v", name, err)
	}
	return t, nil
}

// windowFromArgs builds the optional search window for find_available_slots.
// start_time and end_time must be given together or not at all.
func windowFromArgs(args map[string]any) (*timemath.Interval, error) {
	_, hasStart := args["start_time"]
	_, hasEnd := args["end_time"]
	if !hasStart && !hasEnd {
		return nil, nil
	}
	if hasStart != hasEnd {
		return nil, schedtools.Errorf(schedtools.KindSchemaError,
			"start_time and end_time must be given together")
	}

	start, err := timeArg(args, "start_time")
	if err != nil {
		return nil, err
	}
	end, err := timeArg(args, "end_time")
	if err != nil {
		return nil, err
	}
	return &timemath.Interval{Start: start, End: end}, nil
}

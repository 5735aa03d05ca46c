// Package schedtools implements the deterministic scheduling operations the
// assistant exposes to the reasoner: today, list_events, find_available_slots
// and create_event.
//
// Each operation validates its inputs before touching the backend, performs at
// most one calendar round trip, and classifies failures with the ToolError
// taxonomy so the reasoner can distinguish correctable argument mistakes from
// backend outages.
package schedtools

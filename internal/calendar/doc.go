// Package calendar provides the calendar backend abstraction used by the
// scheduling tools, and its Google Calendar implementation.
//
// The Store interface covers exactly the two operations the assistant needs:
// listing events in a time range (ordered by start) and inserting a new event.
// The Google client authenticates with the OAuth2 token cache from the google
// package and supports multiple accounts.
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := calendar.NewClient(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	events, err := client.List(ctx, "primary", time.Now(), time.Now().AddDate(0, 0, 7), 20)
//	if err != nil {
//	    log.Fatal(err)
//	}
package calendar

package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/mweide/calagent/internal/google"
	"github.com/mweide/calagent/internal/instrumentation"
)

// Client wraps the Google Calendar service and implements Store.
type Client struct {
	svc           *calendar.Service
	account       string
	tokenProvider google.TokenProvider
	metrics       *instrumentation.Metrics
}

var _ Store = (*Client)(nil)

// SetMetrics attaches a metrics recorder so List and Insert report API
// durations. Safe to leave unset.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// recordOperation reports one backend round trip to the metrics recorder.
func (c *Client) recordOperation(ctx context.Context, operation string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordCalendarOperation(ctx, operation, status, time.Since(start))
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// HasTokenForAccount checks if a valid OAuth token exists for the specified account.
func HasTokenForAccount(account string) bool {
	return google.HasTokenForAccount(account)
}

// HasToken checks if a valid OAuth token exists for the default account.
func HasToken() bool {
	return google.HasToken()
}

// GetAuthURLForAccount returns the OAuth consent URL for the account.
func GetAuthURLForAccount(account string) string {
	return google.GetAuthURLForAccount(account)
}

// NewClientForAccountWithProvider creates a Calendar client authenticated for
// a specific account, with the token retrieved from the given provider.
func NewClientForAccountWithProvider(ctx context.Context, account string, tokenProvider google.TokenProvider) (*Client, error) {
	if tokenProvider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	token, err := tokenProvider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	conf := google.GetOAuthConfig()
	tokenSource := conf.TokenSource(ctx, token)

	client := oauth2.NewClient(ctx, tokenSource)

	// Force HTTP/1.1 by disabling HTTP/2
	transport := client.Transport.(*oauth2.Transport)
	transport.Base = &http.Transport{
		ForceAttemptHTTP2: false,
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:           svc,
		account:       account,
		tokenProvider: tokenProvider,
	}, nil
}

// NewClientForAccount creates a Calendar client for a specific account using
// the default file-based token provider.
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	return NewClientForAccountWithProvider(ctx, account, google.NewFileTokenProvider())
}

// NewClient creates a Calendar client for the default account.
func NewClient(ctx context.Context) (*Client, error) {
	return NewClientForAccount(ctx, "default")
}

// List returns events in [timeMin, timeMax) ordered by start time ascending.
// Recurring events are expanded to single instances, matching the ordering
// contract the scheduling tools rely on.
func (c *Client) List(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]Event, error) {
	call := c.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}

	start := time.Now()
	events, err := call.Do()
	c.recordOperation(ctx, instrumentation.OperationList, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var out []Event
	for _, item := range events.Items {
		ev, ok := toEvent(item)
		if !ok {
			continue
		}
		out = append(out, ev)
	}

	return out, nil
}

// Insert creates an event with UTC date-times and returns its ID and link.
func (c *Client) Insert(ctx context.Context, calendarID string, event Event) (*CreatedEvent, error) {
	body := &calendar.Event{
		Summary: event.Summary,
		Start: &calendar.EventDateTime{
			DateTime: event.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: event.End.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}

	start := time.Now()
	created, err := c.svc.Events.Insert(calendarID, body).Context(ctx).Do()
	c.recordOperation(ctx, instrumentation.OperationInsert, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return &CreatedEvent{
		ID:   created.Id,
		Link: created.HtmlLink,
	}, nil
}

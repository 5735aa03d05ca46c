package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/mweide/calagent/internal/instrumentation"
)

// newFakeAPIClient builds a Client backed by an httptest Calendar API stub.
func newFakeAPIClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc, err := calendarapi.NewService(context.Background(),
		option.WithEndpoint(ts.URL),
		option.WithHTTPClient(ts.Client()),
	)
	require.NoError(t, err)

	return &Client{svc: svc, account: "default"}
}

func newCollectingMetrics(t *testing.T) (*instrumentation.Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)
	return m, reader
}

// calendarOperationCount sums the calendar_api_operations_total counter.
func calendarOperationCount(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "calendar_api_operations_total" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok, "expected int64 sum data for %s", metric.Name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestClientListRecordsOperationMetric(t *testing.T) {
	client := newFakeAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [
			{"summary": "Standup",
			 "start": {"dateTime": "2025-03-01T09:00:00Z"},
			 "end": {"dateTime": "2025-03-01T09:15:00Z"}}
		]}`))
	})

	metrics, reader := newCollectingMetrics(t)
	client.SetMetrics(metrics)

	events, err := client.List(context.Background(), "primary",
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		20,
	)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Summary)

	assert.Equal(t, int64(1), calendarOperationCount(t, reader))
}

func TestClientInsertRecordsOperationMetric(t *testing.T) {
	client := newFakeAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "evt-1", "htmlLink": "https://calendar.example/evt-1"}`))
	})

	metrics, reader := newCollectingMetrics(t)
	client.SetMetrics(metrics)

	created, err := client.Insert(context.Background(), "primary", Event{
		Summary: "Review",
		Start:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		End:     time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", created.ID)

	assert.Equal(t, int64(1), calendarOperationCount(t, reader))
}

func TestClientBackendErrorStillRecordsOperation(t *testing.T) {
	client := newFakeAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 500}}`, http.StatusInternalServerError)
	})

	metrics, reader := newCollectingMetrics(t)
	client.SetMetrics(metrics)

	_, err := client.List(context.Background(), "primary",
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		20,
	)
	require.Error(t, err)

	assert.Equal(t, int64(1), calendarOperationCount(t, reader))
}

func TestClientWithoutMetricsIsFine(t *testing.T) {
	client := newFakeAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": []}`))
	})

	events, err := client.List(context.Background(), "primary",
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		20,
	)
	require.NoError(t, err)
	assert.Empty(t, events)
}

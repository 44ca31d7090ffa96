package openf1

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL+"/"), WithTimeout(5*time.Second))
}

func TestClient_CarData(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 8, 5, 3, 10, 0, time.UTC)
	end := start.Add(93300 * time.Millisecond)

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/car_data", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "9693", q.Get("session_key"))
		assert.Equal(t, "81", q.Get("driver_number"))
		assert.Equal(t, "2026-03-08T05:03:10Z", q.Get("date>"))
		assert.Equal(t, "2026-03-08T05:04:43.3Z", q.Get("date<"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"date":"2026-03-08T05:03:10.123000+00:00","speed":287,"throttle":100,"brake":0,"rpm":11500,"n_gear":8,"drs":12,"session_key":9693,"driver_number":81},
			{"date":"2026-03-08T05:03:10.400000+00:00","speed":null,"throttle":99,"brake":0,"rpm":11480,"n_gear":8,"drs":12,"session_key":9693,"driver_number":81}
		]`))
	})

	data, err := c.CarData(context.Background(), 9693, 81, start, end)
	require.NoError(t, err)
	require.Len(t, data, 2)

	assert.True(t, data[0].Timestamp.Equal(start.Add(123*time.Millisecond)))
	require.NotNil(t, data[0].Speed)
	assert.Equal(t, 287.0, *data[0].Speed)
	assert.Equal(t, 8, *data[0].Gear)
	assert.Nil(t, data[1].Speed)
	assert.Equal(t, 99.0, *data[1].Throttle)
}

func TestClient_Laps(t *testing.T) {
	t.Parallel()

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/laps", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"driver_number":81,"lap_number":1,"date_start":null,"lap_duration":null,"is_pit_out_lap":false},
			{"driver_number":81,"lap_number":2,"date_start":"2026-03-08T05:03:10+00:00","lap_duration":92.5,"is_pit_out_lap":false}
		]`))
	})

	laps, err := c.Laps(context.Background(), 9693, 81)
	require.NoError(t, err)
	require.Len(t, laps, 2)
	assert.False(t, laps[0].Timed())
	assert.True(t, laps[1].Timed())
	assert.Equal(t, 92.5, *laps[1].Duration)
}

func TestClient_MeetingsAndSession(t *testing.T) {
	t.Parallel()

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/meetings":
			assert.Equal(t, "2026", r.URL.Query().Get("year"))
			_, _ = w.Write([]byte(`[{"meeting_key":1279,"meeting_name":"Australian Grand Prix","meeting_official_name":"FORMULA 1 AUSTRALIAN GRAND PRIX 2026","circuit_short_name":"Melbourne","country_name":"Australia","year":2026,"date_start":"2026-03-06T01:30:00+00:00"}]`))
		case "/sessions":
			if r.URL.Query().Get("session_key") == "404" {
				_, _ = w.Write([]byte(`[]`))
				return
			}
			_, _ = w.Write([]byte(`[{"session_key":9693,"meeting_key":1279,"session_name":"Race","session_type":"Race","circuit_short_name":"Melbourne","year":2026,"date_start":"2026-03-08T04:00:00+00:00","date_end":"2026-03-08T06:00:00+00:00"}]`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	meetings, err := c.Meetings(ctx, 2026)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, int64(1279), meetings[0].Key)
	assert.Equal(t, "Melbourne", meetings[0].CircuitShortName)

	sess, err := c.Session(ctx, 9693)
	require.NoError(t, err)
	assert.Equal(t, "Race", sess.Name)
	assert.Equal(t, int64(1279), sess.MeetingKey)

	_, err = c.Session(ctx, 404)
	assert.Error(t, err)
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"rate limited"}`, http.StatusTooManyRequests)
	})

	_, err := c.Drivers(context.Background(), 9693)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "drivers", apiErr.Endpoint)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "rate limited")
}

func TestClient_ContextCancelled(t *testing.T) {
	t.Parallel()

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Locations(ctx, 9693, 81, time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

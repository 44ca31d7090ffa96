// Package openf1 fetches race sessions and raw car telemetry from the public
// OpenF1 API.
package openf1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

const (
	DefaultBaseURL = "https://api.openf1.org/v1"
	DefaultTimeout = 30 * time.Second
)

// APIError is returned for every non-200 response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("openf1: GET %s: unexpected status %d %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Meeting is a race weekend.
type Meeting struct {
	Key              int64     `json:"meeting_key"`
	Name             string    `json:"meeting_name"`
	OfficialName     string    `json:"meeting_official_name"`
	CircuitShortName string    `json:"circuit_short_name"`
	CountryName      string    `json:"country_name"`
	Year             int       `json:"year"`
	DateStart        time.Time `json:"date_start"`
}

type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets the per request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client, WithTimeout is ignored then.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ telemetry.Provider = (*Client)(nil)

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Meetings lists the race weekends of a season.
func (c *Client) Meetings(ctx context.Context, year int) ([]Meeting, error) {
	return get[Meeting](ctx, c, "meetings", url.Values{"year": {strconv.Itoa(year)}})
}

// Sessions lists the sessions of a meeting.
func (c *Client) Sessions(ctx context.Context, meetingKey int64) ([]telemetry.Session, error) {
	return get[telemetry.Session](ctx, c, "sessions", url.Values{"meeting_key": {strconv.FormatInt(meetingKey, 10)}})
}

// Session fetches a single session by key.
func (c *Client) Session(ctx context.Context, sessionKey int64) (*telemetry.Session, error) {
	sessions, err := get[telemetry.Session](ctx, c, "sessions", url.Values{"session_key": {strconv.FormatInt(sessionKey, 10)}})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("openf1: session %d not found", sessionKey)
	}
	return &sessions[0], nil
}

func (c *Client) Drivers(ctx context.Context, sessionKey int64) ([]telemetry.Driver, error) {
	return get[telemetry.Driver](ctx, c, "drivers", url.Values{"session_key": {strconv.FormatInt(sessionKey, 10)}})
}

func (c *Client) Laps(ctx context.Context, sessionKey int64, driverNumber int) ([]telemetry.Lap, error) {
	return get[telemetry.Lap](ctx, c, "laps", driverParams(sessionKey, driverNumber))
}

// CarData fetches the car data stream of a driver strictly between start and
// end. A zero start or end leaves that side open.
func (c *Client) CarData(ctx context.Context, sessionKey int64, driverNumber int, start, end time.Time) ([]telemetry.CarData, error) {
	return get[telemetry.CarData](ctx, c, "car_data", windowParams(sessionKey, driverNumber, start, end))
}

// Locations fetches the location stream with the same window semantics as
// CarData.
func (c *Client) Locations(ctx context.Context, sessionKey int64, driverNumber int, start, end time.Time) ([]telemetry.Location, error) {
	return get[telemetry.Location](ctx, c, "location", windowParams(sessionKey, driverNumber, start, end))
}

func driverParams(sessionKey int64, driverNumber int) url.Values {
	return url.Values{
		"session_key":   {strconv.FormatInt(sessionKey, 10)},
		"driver_number": {strconv.Itoa(driverNumber)},
	}
}

func windowParams(sessionKey int64, driverNumber int, start, end time.Time) url.Values {
	params := driverParams(sessionKey, driverNumber)
	if !start.IsZero() {
		params.Set("date>", start.UTC().Format(time.RFC3339Nano))
	}
	if !end.IsZero() {
		params.Set("date<", end.UTC().Format(time.RFC3339Nano))
	}
	return params
}

// maxErrorBody bounds the response body kept in APIError.
const maxErrorBody = 512

func get[T any](ctx context.Context, c *Client, endpoint string, params url.Values) (result []T, err error) {
	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openf1: GET %s: %w", endpoint, err)
	}
	defer func() {
		if cErr := resp.Body.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("openf1: decoding %s response: %w", endpoint, err)
	}

	c.logger.Debug("openf1 request",
		slog.String("endpoint", endpoint),
		slog.Int("records", len(result)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// Package notify calls the external endpoint announcing newly created cars.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/utafrali/CarCatalog/pkg/errors"
	"github.com/utafrali/CarCatalog/pkg/httpclient"
)

// Error reports a failed notification. StatusCode is 0 when no response
// was received.
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("notification failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("notification failed: %v", e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Err, apperrors.ErrServiceUnavail}
}

type Client struct {
	endpoint string
	http     *httpclient.BreakerClient
	logger   *slog.Logger
}

// New returns a client for endpoint. An empty endpoint yields a disabled
// client whose calls succeed without doing anything.
func New(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = timeout
	cfg.MaxRetries = 0
	hc := httpclient.NewBreakerClient(httpclient.New(cfg), httpclient.DefaultBreakerConfig("notify"), logger)
	return &Client{endpoint: endpoint, http: hc, logger: logger}
}

func (c *Client) Enabled() bool { return c.endpoint != "" }

type response struct {
	Message string `json:"message"`
}

// NotifyCarCreated announces a car and returns the message the endpoint
// answered with.
func (c *Client) NotifyCarCreated(ctx context.Context, brand, model string, year int, fuelType string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", &Error{Err: fmt.Errorf("parse endpoint: %w", err)}
	}
	q := u.Query()
	q.Set("brand", brand)
	q.Set("model", model)
	q.Set("year", strconv.Itoa(year))
	q.Set("fuel_type", fuelType)
	u.RawQuery = q.Encode()

	resp, err := c.http.Get(ctx, u.String())
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return "", &Error{StatusCode: se.StatusCode, Err: err}
		}
		return "", &Error{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", body)}
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	c.logger.DebugContext(ctx, "car creation notified",
		slog.String("brand", brand),
		slog.String("model", model),
	)
	return out.Message, nil
}

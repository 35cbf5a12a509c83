// Package teesheet is an HTTP client for the external booking service that
// owns tee-time inventory and bookings. Every request carries the course
// domain in the X-Course-Domain header.
package teesheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/golfshopapp/teesheet/internal/course"
	"github.com/golfshopapp/teesheet/internal/observability/metrics"
	"github.com/golfshopapp/teesheet/pkg/logging"
)

const (
	defaultTimeout = 15 * time.Second

	courseDomainHeader = "X-Course-Domain"
)

// BaseURLResolver yields the booking service's API base URL. Like the course
// domain, where the value comes from is a deployment concern.
type BaseURLResolver func() string

// Client talks to the external booking service.
type Client struct {
	baseURL      BaseURLResolver
	courseDomain course.Resolver
	httpClient   *http.Client
	logger       *logging.Logger
	tracer       trace.Tracer
	metrics      *metrics.BookingMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithMetrics attaches booking metrics to the client.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a booking service client. baseURL and courseDomain must be
// non-nil; both are resolved per request.
func NewClient(baseURL BaseURLResolver, courseDomain course.Resolver, logger *logging.Logger, opts ...Option) *Client {
	if baseURL == nil {
		panic("teesheet: base URL resolver cannot be nil")
	}
	if courseDomain == nil {
		panic("teesheet: course domain resolver cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL:      baseURL,
		courseDomain: courseDomain,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
		tracer: otel.Tracer("teesheet.client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListAvailable returns the ordered list of open slots for a calendar date
// (YYYY-MM-DD). Transport errors and non-success statuses both surface as the
// generic fetch failure; the body of a failed listing is not interpreted.
func (c *Client) ListAvailable(ctx context.Context, date string) ([]Slot, error) {
	ctx, span := c.tracer.Start(ctx, "teesheet.list_available")
	defer span.End()

	start := time.Now()
	endpoint := fmt.Sprintf("%s/tee-times/available?date=%s", strings.TrimRight(c.baseURL(), "/"), url.QueryEscape(date))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("teesheet: create request: %w", err)
	}
	req.Header.Set(courseDomainHeader, c.resolveDomain(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		c.metrics.ObserveSlotFetch("error", time.Since(start).Seconds())
		c.logger.Error("slot listing failed", "date", date, "error", err)
		return nil, errors.New(genericFetchError)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ObserveSlotFetch("error", time.Since(start).Seconds())
		c.logger.Error("slot listing returned non-success status", "date", date, "status", resp.StatusCode)
		return nil, errors.New(genericFetchError)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		c.metrics.ObserveSlotFetch("error", time.Since(start).Seconds())
		return nil, errors.New(genericFetchError)
	}

	var out listResponse
	if err := json.Unmarshal(body, &out); err != nil {
		span.RecordError(err)
		c.metrics.ObserveSlotFetch("error", time.Since(start).Seconds())
		return nil, errors.New(genericFetchError)
	}

	// Drop slots that violate the capacity invariant rather than letting them
	// reach the filter. Order of the remainder is preserved.
	slots := make([]Slot, 0, len(out.Data.TeeTimes))
	for _, s := range out.Data.TeeTimes {
		if !s.Valid() {
			c.logger.Warn("discarding slot with invalid capacity",
				"slot_id", s.ID,
				"available", s.AvailableSpots,
				"max", s.MaxPlayers,
			)
			continue
		}
		slots = append(slots, s)
	}

	c.metrics.ObserveSlotFetch("ok", time.Since(start).Seconds())
	return slots, nil
}

// CreateBooking submits a booking. On a non-success status the error message is
// extracted from the response body ("message", then "error.message"), falling
// back to a generic message.
func (c *Client) CreateBooking(ctx context.Context, breq BookingRequest) (*BookingRecord, error) {
	ctx, span := c.tracer.Start(ctx, "teesheet.create_booking")
	defer span.End()

	payload, err := json.Marshal(breq)
	if err != nil {
		return nil, fmt.Errorf("teesheet: marshal booking request: %w", err)
	}

	endpoint := strings.TrimRight(c.baseURL(), "/") + "/bookings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("teesheet: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(courseDomainHeader, c.resolveDomain(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		c.metrics.ObserveBooking("error")
		c.logger.Error("booking request failed", "slot_id", breq.TeeTimeID, "error", err)
		return nil, errors.New(genericCreateError)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		c.metrics.ObserveBooking("error")
		return nil, errors.New(genericCreateError)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := decodeErrorMessage(body, genericCreateError)
		c.metrics.ObserveBooking("rejected")
		c.logger.Warn("booking rejected by service",
			"slot_id", breq.TeeTimeID,
			"status", resp.StatusCode,
			"message", msg,
		)
		return nil, errors.New(msg)
	}

	var out createResponse
	if err := json.Unmarshal(body, &out); err != nil {
		span.RecordError(err)
		c.metrics.ObserveBooking("error")
		return nil, errors.New(genericCreateError)
	}

	c.metrics.ObserveBooking("ok")
	c.logger.Info("booking created", "booking_id", out.Data.Booking.ID, "slot_id", breq.TeeTimeID)
	return &out.Data.Booking, nil
}

// resolveDomain prefers a per-request context override over the configured resolver.
func (c *Client) resolveDomain(ctx context.Context) string {
	if domain, ok := course.DomainFromContext(ctx); ok {
		return domain
	}
	return c.courseDomain()
}

// Package backend is the typed HTTP client for the WinBeat administration
// API. All assistant data queries and page actions go through it.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/config"
	"github.com/winbeat/assist/internal/observability"
	"github.com/winbeat/assist/model"
)

// ClientRecord is a WinBeat client as returned by GET /clients.
type ClientRecord struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	ABN      string `json:"abn"`
	ClientID int    `json:"clientID"`
}

// RegistrationRecord is a strata registration as returned by the
// registration search endpoint.
type RegistrationRecord struct {
	CompanyName string `json:"companyName"`
	CompanyABN  string `json:"companyABN"`
	LedgerID    int    `json:"ledgerID"`
	LIN         string `json:"lin"`
	ExpiryDate  string `json:"expiryDate"`
}

// ExpiryTime parses the registration's expiry date. It accepts RFC 3339
// timestamps and bare dates.
func (r RegistrationRecord) ExpiryTime() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, r.ExpiryDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UserRecord is a staff user as returned by GET /users.
type UserRecord struct {
	UserCode string `json:"userCode"`
	Security int    `json:"security"`
	BranchID int    `json:"branchID"`
	Country  string `json:"country"`
}

// itemsEnvelope is the list wrapper most WinBeat endpoints use.
type itemsEnvelope[T any] struct {
	Items []T `json:"items"`
}

// Client calls the WinBeat API. The bearer token of the end user is taken
// from the request context so every upstream call runs with the caller's
// own permissions.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *CircuitBreaker
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewClient creates a WinBeat API client from configuration. metrics may
// be nil in tests.
func NewClient(cfg config.BackendConfig, logger *zap.Logger, metrics *observability.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: NewCircuitBreaker(
			cfg.CircuitBreaker.FailureThreshold,
			cfg.CircuitBreaker.SuccessThreshold,
			cfg.CircuitBreaker.Timeout,
		),
		logger:  logger,
		metrics: metrics,
	}
}

// Clients fetches all clients.
func (c *Client) Clients(ctx context.Context) ([]ClientRecord, error) {
	var envelope itemsEnvelope[ClientRecord]
	if err := c.getJSON(ctx, "clients", "/clients", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

// SearchRegistrations searches registrations by company name, ABN, or LIN.
// Empty criteria return the full collection.
func (c *Client) SearchRegistrations(ctx context.Context, company, abn, lin string) ([]RegistrationRecord, error) {
	query := url.Values{}
	query.Set("company", company)
	query.Set("abn", abn)
	query.Set("lin", lin)

	var envelope itemsEnvelope[RegistrationRecord]
	if err := c.getJSON(ctx, "search_registrations", "/api/registrations/search", query, &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

// Users fetches all staff users. The endpoint itself is role-gated; callers
// are expected to have checked security level 2 before calling.
func (c *Client) Users(ctx context.Context) ([]UserRecord, error) {
	var users []UserRecord
	if err := c.getJSON(ctx, "users", "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// BreakerState exposes the circuit breaker state for metrics and status
// reporting.
func (c *Client) BreakerState() BreakerState {
	return c.breaker.State()
}

// HealthCheck probes the API base URL. Any HTTP response counts as healthy;
// only transport-level failures are reported.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// getJSON performs a breaker-guarded GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, operation, path string, query url.Values, out any) error {
	if err := c.breaker.Allow(); err != nil {
		c.publishBreakerState()
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.NewInternalError()
	}
	req.Header.Set("Accept", "application/json")
	if token := model.AuthTokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	observability.InjectTraceHeaders(ctx, req.Header)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		c.publishBreakerState()
		c.logWarn(ctx, "backend request failed", zap.String("operation", operation), zap.Error(err))
		if ctx.Err() != nil {
			return model.NewUpstreamTimeoutError()
		}
		return model.NewUpstreamFailureError("The WinBeat API could not be reached")
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordBackendRequest(operation, resp.StatusCode, time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.breaker.RecordFailure()
		c.publishBreakerState()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logWarn(ctx, "backend returned error status",
			zap.String("operation", operation), zap.Int("status", resp.StatusCode))
		return model.NewUpstreamFailureError(fmt.Sprintf(
			"Request failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	c.breaker.RecordSuccess()
	c.publishBreakerState()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logWarn(ctx, "backend response decode failed",
			zap.String("operation", operation), zap.Error(err))
		return model.NewUpstreamFailureError("The WinBeat API returned an unreadable response")
	}
	return nil
}

func (c *Client) publishBreakerState() {
	if c.metrics != nil {
		c.metrics.SetCircuitBreakerState(float64(c.breaker.State()))
	}
}

func (c *Client) logWarn(ctx context.Context, msg string, fields ...zap.Field) {
	observability.RequestLogger(ctx, c.logger).Warn(msg, fields...)
}

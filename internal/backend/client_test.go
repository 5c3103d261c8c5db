package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/config"
	"github.com/winbeat/assist/model"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.BackendConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}, zap.NewNop(), nil)
	return client, srv
}

func TestClients(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/clients" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want forwarded bearer", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"name":"ABC Strata","code":"ABC","abn":"51824753556","clientID":7},
			{"name":"XYZ Body Corp","code":"XYZ","abn":"","clientID":9}
		]}`))
	}))

	ctx := model.WithAuthToken(context.Background(), "tok-123")
	clients, err := client.Clients(ctx)
	if err != nil {
		t.Fatalf("Clients() error = %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("got %d clients, want 2", len(clients))
	}
	if clients[0].Name != "ABC Strata" || clients[0].ClientID != 7 {
		t.Errorf("clients[0] = %+v", clients[0])
	}
}

func TestSearchRegistrationsQuery(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/registrations/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("company") != "ABC Strata" || q.Get("abn") != "" || q.Get("lin") != "" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"items":[{"companyName":"ABC Strata","companyABN":"51824753556","ledgerID":4,"lin":"L-100","expiryDate":"2026-11-01"}]}`))
	}))

	regs, err := client.SearchRegistrations(context.Background(), "ABC Strata", "", "")
	if err != nil {
		t.Fatalf("SearchRegistrations() error = %v", err)
	}
	if len(regs) != 1 || regs[0].LedgerID != 4 {
		t.Fatalf("regs = %+v", regs)
	}
	expiry, ok := regs[0].ExpiryTime()
	if !ok || expiry.Year() != 2026 {
		t.Errorf("ExpiryTime() = %v, %v", expiry, ok)
	}
}

func TestUsersBareArray(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"userCode":"JSMITH","security":2,"branchID":1,"country":"AU"}]`))
	}))

	users, err := client.Users(context.Background())
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}
	if len(users) != 1 || users[0].UserCode != "JSMITH" {
		t.Fatalf("users = %+v", users)
	}
}

func TestErrorStatusSurfacesStatusText(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Clients(context.Background())
	var envelope *model.ErrorEnvelope
	if !errors.As(err, &envelope) || envelope.Code != model.ErrUpstreamFailure {
		t.Fatalf("error = %v, want UPSTREAM_FAILURE", err)
	}
	if !strings.Contains(envelope.Message, "502 Bad Gateway") {
		t.Errorf("message = %q, want status text embedded", envelope.Message)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(config.BackendConfig{
		BaseURL: srv.URL,
		Timeout: time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			FailureThreshold: 2,
			SuccessThreshold: 1,
			Timeout:          time.Minute,
		},
	}, zap.NewNop(), nil)

	for i := 0; i < 2; i++ {
		if _, err := client.Clients(context.Background()); err == nil {
			t.Fatal("expected failure")
		}
	}
	if client.BreakerState() != BreakerOpen {
		t.Fatalf("breaker state = %v, want open", client.BreakerState())
	}

	// Open breaker must reject without touching the server.
	before := calls
	if _, err := client.Clients(context.Background()); err == nil {
		t.Fatal("expected breaker rejection")
	}
	if calls != before {
		t.Errorf("open breaker made %d upstream calls", calls-before)
	}
}

func TestHealthCheck(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	// Any HTTP response counts as reachable.
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	down := NewClient(config.BackendConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	}, zap.NewNop(), nil)
	if err := down.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for unreachable backend")
	}
}

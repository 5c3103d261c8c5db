package pages

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/backend"
	"github.com/winbeat/assist/internal/config"
	"github.com/winbeat/assist/internal/observability"
	"github.com/winbeat/assist/internal/registry"
	"github.com/winbeat/assist/model"
)

// newTestStack wires a registry, backend client against the given handler,
// and a navigator over all three page controllers.
func newTestStack(t *testing.T, handler http.Handler) (*registry.Registry, *Navigator, *backend.Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := backend.NewClient(config.BackendConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}, zap.NewNop(), nil)

	reg := registry.New()
	logger := zap.NewNop()
	nav := NewNavigator(reg, logger, nil,
		NewRegistrationsPage(reg, client, logger),
		NewClientsPage(reg, client, logger),
		NewUsersPage(reg, client, logger),
	)
	return reg, nav, client
}

func emptyBackend() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users":
			w.Write([]byte(`[]`))
		default:
			w.Write([]byte(`{"items":[]}`))
		}
	})
}

func TestNavigateMountsController(t *testing.T) {
	reg, nav, _ := newTestStack(t, emptyBackend())

	if err := nav.Navigate(context.Background(), RouteClients, nil); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if got := reg.CurrentPage(); got != PageClients {
		t.Errorf("current page = %q, want clients", got)
	}

	if err := nav.Navigate(context.Background(), RouteRegistrations, nil); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if got := reg.CurrentPage(); got != PageRegistrations {
		t.Errorf("current page = %q, want manage-registrations", got)
	}
	if nav.CurrentPath() != RouteRegistrations {
		t.Errorf("current path = %q", nav.CurrentPath())
	}
}

func TestNavigateChromeRouteClearsRegistration(t *testing.T) {
	reg, nav, _ := newTestStack(t, emptyBackend())

	nav.Navigate(context.Background(), RouteClients, nil)
	if err := nav.Navigate(context.Background(), RouteHome, nil); err != nil {
		t.Fatalf("Navigate(home) error = %v", err)
	}
	if got := reg.CurrentPage(); got != "" {
		t.Errorf("current page = %q, want none after home", got)
	}
}

func TestNavigateUnknownPath(t *testing.T) {
	reg, nav, _ := newTestStack(t, emptyBackend())
	nav.Navigate(context.Background(), RouteClients, nil)

	err := nav.Navigate(context.Background(), "/nowhere", nil)
	var envelope *model.ErrorEnvelope
	if !errors.As(err, &envelope) || envelope.Code != model.ErrNotFound {
		t.Fatalf("error = %v, want NOT_FOUND", err)
	}
	// Failed navigation must not disturb the current page.
	if got := reg.CurrentPage(); got != PageClients {
		t.Errorf("current page = %q, want clients", got)
	}
}

func TestNavigateAutoSearchFromState(t *testing.T) {
	var searched bool
	reg, nav, _ := newTestStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/registrations/search" {
			searched = true
			if got := r.URL.Query().Get("company"); got != "ABC Strata" {
				t.Errorf("company = %q", got)
			}
			w.Write([]byte(`{"items":[{"companyName":"ABC Strata","ledgerID":4}]}`))
			return
		}
		w.Write([]byte(`{"items":[]}`))
	}))

	err := nav.Navigate(context.Background(), RouteRegistrations, map[string]any{"searchTerm": "ABC Strata"})
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if !searched {
		t.Fatal("navigation state search term did not trigger a search")
	}
	if got := reg.PageContext().Data["resultCount"]; got != 1 {
		t.Errorf("snapshot resultCount = %v, want 1", got)
	}
}

func TestNavigateTracksRegisteredPagesGauge(t *testing.T) {
	srv := httptest.NewServer(emptyBackend())
	t.Cleanup(srv.Close)
	client := backend.NewClient(config.BackendConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}, zap.NewNop(), nil)

	reg := registry.New()
	logger := zap.NewNop()
	m := observability.InitMetrics(prometheus.NewRegistry())
	nav := NewNavigator(reg, logger, m, NewClientsPage(reg, client, logger))

	if err := nav.Navigate(context.Background(), RouteClients, nil); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if got := testutil.ToFloat64(m.RegisteredPages); got != 1 {
		t.Errorf("registered pages gauge = %v, want 1", got)
	}

	if err := nav.Navigate(context.Background(), RouteHome, nil); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if got := testutil.ToFloat64(m.RegisteredPages); got != 0 {
		t.Errorf("registered pages gauge = %v, want 0 after chrome route", got)
	}
}

func TestRouteFor(t *testing.T) {
	tests := []struct {
		pageID string
		want   string
		ok     bool
	}{
		{PageRegistrations, "/manage", true},
		{PageClients, "/clients", true},
		{PageUsers, "/users", true},
		{"bogus", "", false},
	}
	for _, tt := range tests {
		got, ok := RouteFor(tt.pageID)
		if got != tt.want || ok != tt.ok {
			t.Errorf("RouteFor(%q) = %q, %v", tt.pageID, got, ok)
		}
	}
}

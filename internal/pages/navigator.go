// Package pages holds the in-process page controllers and the navigator
// that mounts them. A mounted controller registers its actions with the
// page action registry; navigating away unmounts it.
package pages

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/observability"
	"github.com/winbeat/assist/internal/registry"
	"github.com/winbeat/assist/model"
)

// Page ids and their routes.
const (
	PageRegistrations = "manage-registrations"
	PageClients       = "clients"
	PageUsers         = "users"

	RouteRegistrations  = "/manage"
	RouteClients        = "/clients"
	RouteUsers          = "/users"
	RouteHome           = "/home"
	RouteCreateRegistry = "/registration"
)

// PageRoutes resolves a logical page id to its route.
var PageRoutes = map[string]string{
	PageRegistrations: RouteRegistrations,
	PageClients:       RouteClients,
	PageUsers:         RouteUsers,
}

// Controller is a mountable page. Mount registers the page's actions with
// the registry; Unmount removes them. State carries navigation state such
// as a search term to run on arrival.
type Controller interface {
	PageID() string
	Route() string
	Mount(ctx context.Context, state map[string]any)
	Unmount()
}

// Navigator applies navigation side effects: it unmounts the current
// controller and mounts the one owning the destination route. Routes
// without a controller (home, the registration create form) simply clear
// the current registration.
type Navigator struct {
	mu           sync.Mutex
	registry     *registry.Registry
	controllers  map[string]Controller
	chromeRoutes map[string]bool
	current      Controller
	currentPath  string
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// NewNavigator creates a navigator over the given controllers. metrics may
// be nil in tests.
func NewNavigator(reg *registry.Registry, logger *zap.Logger, metrics *observability.Metrics, controllers ...Controller) *Navigator {
	byRoute := make(map[string]Controller, len(controllers))
	for _, c := range controllers {
		byRoute[c.Route()] = c
	}
	return &Navigator{
		registry:    reg,
		controllers: byRoute,
		chromeRoutes: map[string]bool{
			RouteHome:           true,
			RouteCreateRegistry: true,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Navigate moves to path, carrying state to the destination controller.
// Unknown paths return a NOT_FOUND error and leave the current page alone.
func (n *Navigator) Navigate(ctx context.Context, path string, state map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	next, ok := n.controllers[path]
	if !ok && !n.chromeRoutes[path] {
		return model.NewNotFoundError("Unknown page: " + path)
	}

	if n.current != nil {
		n.current.Unmount()
		n.current = nil
	}

	n.currentPath = path
	if next != nil {
		next.Mount(ctx, state)
		n.current = next
	}
	if n.metrics != nil {
		// The registry holds at most one page; the gauge tracks it.
		var registered float64
		if n.current != nil {
			registered = 1
		}
		n.metrics.SetRegisteredPages(registered)
	}

	observability.RequestLogger(ctx, n.logger).Info("navigated",
		zap.String("path", path), zap.Bool("has_state", len(state) > 0))
	return nil
}

// CurrentPath returns the last navigated route, or "" before any navigation.
func (n *Navigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentPath
}

// RouteFor resolves a logical page id, reporting false for unknown pages.
func RouteFor(pageID string) (string, bool) {
	route, ok := PageRoutes[pageID]
	return route, ok
}

package http

import (
	"context"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/core/usecases"
)

// Pinger is a backing store that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connectivity reports whether a long-lived connection is up.
type Connectivity interface {
	IsConnected() bool
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Catalog     *usecases.CatalogService
	Auth        *usecases.AuthService
	Preferences *usecases.PreferenceService
	Tracking    *usecases.TrackingService

	// LocationDefaults seeds the request config of every location socket.
	LocationDefaults domain.UpdateRequestConfig

	// OpenAPIPath is served at /docs/openapi.yaml.
	OpenAPIPath string

	DB    Pinger
	Mongo Pinger
	Cache Pinger
	NATS  Connectivity
}

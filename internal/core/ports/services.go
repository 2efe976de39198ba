package ports

import (
	"context"

	"github.com/samirrijal/plaza/internal/core/domain"
)

// SubscriptionHandle is the opaque token a LocationProvider returns from
// Register. Only the registrant may release it, and only once.
type SubscriptionHandle interface{}

// FixCallback receives deliveries for one registration. Calls may come from a
// goroutine owned by the provider.
type FixCallback interface {
	// OnFixes delivers a batch ordered oldest to newest. The batch may be empty.
	OnFixes(batch []domain.Fix)
	// OnError reports that the provider has stopped delivering to this registration.
	OnError(err error)
}

// LocationProvider is a push-based source of position fixes.
type LocationProvider interface {
	// Register starts delivering fix batches to cb until the handle is unregistered.
	Register(ctx context.Context, req domain.LocationRequest, cb FixCallback) (SubscriptionHandle, error)
	// Unregister stops delivery. Releasing a handle twice is a programming error.
	Unregister(h SubscriptionHandle) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// PreferenceStore is the per-user key-value preference storage.
type PreferenceStore interface {
	All(ctx context.Context, userID string) (map[string]string, error)
	Get(ctx context.Context, userID, key string) (string, error)
	Set(ctx context.Context, userID, key, value string) error
	Delete(ctx context.Context, userID, key string) error
}

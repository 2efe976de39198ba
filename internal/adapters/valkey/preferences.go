package valkey

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/plaza/internal/core/domain"
)

// Preferences implements ports.PreferenceStore with one hash per user.
type Preferences struct {
	client valkey.Client
}

// NewPreferences shares the cache's client.
func NewPreferences(c *Cache) *Preferences {
	return &Preferences{client: c.Client()}
}

func prefsKey(userID string) string {
	return "prefs:" + userID
}

// All returns every preference of userID. A user without preferences gets an
// empty map.
func (p *Preferences) All(ctx context.Context, userID string) (map[string]string, error) {
	m, err := p.client.Do(ctx, p.client.B().Hgetall().Key(prefsKey(userID)).Build()).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("hgetall: %w", err)
	}
	return m, nil
}

// Get returns one preference or domain.ErrNotFound.
func (p *Preferences) Get(ctx context.Context, userID, key string) (string, error) {
	v, err := p.client.Do(ctx, p.client.B().Hget().Key(prefsKey(userID)).Field(key).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("hget: %w", err)
	}
	return v, nil
}

// Set stores one preference.
func (p *Preferences) Set(ctx context.Context, userID, key, value string) error {
	cmd := p.client.B().Hset().Key(prefsKey(userID)).FieldValue().FieldValue(key, value).Build()
	if err := p.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("hset: %w", err)
	}
	return nil
}

// Delete removes one preference; domain.ErrNotFound if it was not set.
func (p *Preferences) Delete(ctx context.Context, userID, key string) error {
	n, err := p.client.Do(ctx, p.client.B().Hdel().Key(prefsKey(userID)).Field(key).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("hdel: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

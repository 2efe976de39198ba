package usecases_test

import (
	"context"
	"sync"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/core/ports"
)

// --- Mock CatalogRepository ---

type mockCatalogRepo struct {
	listFn           func(ctx context.Context, categoryID string, offset, limit int) ([]domain.Product, int, error)
	getByIDFn        func(ctx context.Context, id string) (*domain.Product, error)
	searchFn         func(ctx context.Context, q string, limit int) ([]domain.Product, error)
	findInBoundsFn   func(ctx context.Context, b domain.Bounds, limit int) ([]domain.Product, error)
	listCategoriesFn func(ctx context.Context) ([]domain.Category, error)
}

func (m *mockCatalogRepo) List(ctx context.Context, categoryID string, offset, limit int) ([]domain.Product, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, categoryID, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockCatalogRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockCatalogRepo) Search(ctx context.Context, q string, limit int) ([]domain.Product, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q, limit)
	}
	return nil, nil
}

func (m *mockCatalogRepo) FindInBounds(ctx context.Context, b domain.Bounds, limit int) ([]domain.Product, error) {
	if m.findInBoundsFn != nil {
		return m.findInBoundsFn(ctx, b, limit)
	}
	return nil, nil
}

func (m *mockCatalogRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return nil, nil
}

// --- In-memory CacheService ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// --- Mock SessionRepository ---

type mockSessionRepo struct {
	getByTokenFn func(ctx context.Context, token string) (*domain.Session, *domain.User, error)
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, *domain.User, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, nil, domain.ErrNotFound
}

// --- In-memory PreferenceStore ---

type memPrefs struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func newMemPrefs() *memPrefs {
	return &memPrefs{data: map[string]map[string]string{}}
}

func (p *memPrefs) All(ctx context.Context, userID string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := map[string]string{}
	for k, v := range p.data[userID] {
		out[k] = v
	}
	return out, nil
}

func (p *memPrefs) Get(ctx context.Context, userID, key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.data[userID][key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (p *memPrefs) Set(ctx context.Context, userID, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data[userID] == nil {
		p.data[userID] = map[string]string{}
	}
	p.data[userID][key] = value
	return nil
}

func (p *memPrefs) Delete(ctx context.Context, userID, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.data[userID][key]; !ok {
		return domain.ErrNotFound
	}
	delete(p.data[userID], key)
	return nil
}

// --- Scripted LocationProvider ---

// scriptedProvider runs the n-th script on its own goroutine for the n-th
// registration. Registrations past the end of the script stay silent.
type scriptedProvider struct {
	mu          sync.Mutex
	registerErr error
	scripts     []func(cb ports.FixCallback)
	requests    []domain.LocationRequest
	unregisters int
}

type scriptedHandle struct{ n int }

func (p *scriptedProvider) Register(ctx context.Context, req domain.LocationRequest, cb ports.FixCallback) (ports.SubscriptionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.registerErr != nil {
		return nil, p.registerErr
	}
	n := len(p.requests)
	p.requests = append(p.requests, req)
	if n < len(p.scripts) && p.scripts[n] != nil {
		go p.scripts[n](cb)
	}
	return &scriptedHandle{n: n}, nil
}

func (p *scriptedProvider) Unregister(h ports.SubscriptionHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unregisters++
	return nil
}

func (p *scriptedProvider) counts() (registers, unregisters int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests), p.unregisters
}

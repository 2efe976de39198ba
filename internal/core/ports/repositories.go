package ports

import (
	"context"

	"github.com/samirrijal/plaza/internal/core/domain"
)

// CatalogRepository reads products and categories from the document store.
type CatalogRepository interface {
	List(ctx context.Context, categoryID string, offset, limit int) ([]domain.Product, int, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Product, error)
	FindInBounds(ctx context.Context, bounds domain.Bounds, limit int) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// SessionRepository resolves bearer tokens issued by the auth provider.
type SessionRepository interface {
	// GetByToken returns domain.ErrNotFound for unknown tokens.
	GetByToken(ctx context.Context, token string) (*domain.Session, *domain.User, error)
}

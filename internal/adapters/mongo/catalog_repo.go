package mongoadapter

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/samirrijal/plaza/internal/core/domain"
)

const (
	productsCollection   = "products"
	categoriesCollection = "categories"
)

// CatalogRepo implements ports.CatalogRepository on MongoDB.
type CatalogRepo struct {
	products   *mongo.Collection
	categories *mongo.Collection
}

// NewCatalogRepo creates a new CatalogRepo.
func NewCatalogRepo(db *DB) *CatalogRepo {
	return &CatalogRepo{
		products:   db.Collection(productsCollection),
		categories: db.Collection(categoriesCollection),
	}
}

// EnsureIndexes creates the indexes the catalog queries rely on.
func (r *CatalogRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "location.lat", Value: 1}, {Key: "location.lon", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("product indexes: %w", err)
	}
	_, err = r.categories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("category indexes: %w", err)
	}
	return nil
}

// List returns a page of products, newest first, with the total count.
func (r *CatalogRepo) List(ctx context.Context, categoryID string, offset, limit int) ([]domain.Product, int, error) {
	filter := bson.M{}
	if categoryID != "" {
		filter["category_id"] = categoryID
	}

	total, err := r.products.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	products, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return products, int(total), nil
}

// GetByID returns one product or domain.ErrNotFound.
func (r *CatalogRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := r.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// Search matches q anywhere in the title, case-insensitively.
func (r *CatalogRepo) Search(ctx context.Context, q string, limit int) ([]domain.Product, error) {
	filter := bson.M{"title": primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

// FindInBounds returns products whose location lies inside b.
func (r *CatalogRepo) FindInBounds(ctx context.Context, b domain.Bounds, limit int) ([]domain.Product, error) {
	filter := bson.M{
		"location.lat": bson.M{"$gte": b.MinLat, "$lte": b.MaxLat},
		"location.lon": bson.M{"$gte": b.MinLon, "$lte": b.MaxLon},
	}
	return r.find(ctx, filter, options.Find().SetLimit(int64(limit)))
}

// ListCategories returns every category ordered by name.
func (r *CatalogRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cur, err := r.categories.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer cur.Close(ctx)

	categories := []domain.Category{}
	if err := cur.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return categories, nil
}

func (r *CatalogRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Product, error) {
	cur, err := r.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cur.Close(ctx)

	products := []domain.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

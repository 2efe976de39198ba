package domain

import (
	"time"
)

// Category groups catalog products (e.g. furniture, bikes).
type Category struct {
	ID   string `json:"id" bson:"_id"`
	Slug string `json:"slug" bson:"slug"`
	Name string `json:"name" bson:"name"`
}

// Product is a marketplace listing stored in the document store.
type Product struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64   `json:"price" bson:"price"`
	Currency    string    `json:"currency" bson:"currency"`
	CategoryID  string    `json:"category_id" bson:"category_id"`
	SellerID    string    `json:"seller_id" bson:"seller_id"`
	Location    GeoPoint  `json:"location" bson:"location"`
	Images      []string  `json:"images,omitempty" bson:"images,omitempty"`
	Distance    *float64  `json:"distance,omitempty" bson:"-"` // computed field
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// User is an authenticated marketplace account.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session binds a bearer token to a user until it expires.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

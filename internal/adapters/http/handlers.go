package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxQueryLength   = 200
	maxNearbyRadius  = 50000
)

// ListCategoriesHandler returns all catalog categories.
func ListCategoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		categories, err := deps.Catalog.Categories(c.UserContext())
		if err != nil {
			return errFromDomain(c, err, "")
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(categories)
	}
}

// ListProductsHandler returns a page of products, optionally filtered by category.
func ListProductsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", defaultPageLimit)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > maxPageLimit {
			limit = defaultPageLimit
		}

		products, total, err := deps.Catalog.List(c.UserContext(), c.Query("category"), offset, limit)
		if err != nil {
			return errFromDomain(c, err, "")
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: products, Pagination: pg})
	}
}

// SearchProductsHandler matches products by title.
func SearchProductsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(query) > maxQueryLength {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		products, err := deps.Catalog.Search(c.UserContext(), query, c.QueryInt("limit", defaultPageLimit))
		if err != nil {
			return errFromDomain(c, err, "")
		}
		return c.JSON(products)
	}
}

// NearbyProductsHandler returns products within a radius of a point, closest first.
func NearbyProductsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
		if errLat != nil || errLon != nil {
			return errBadRequest(c, "lat and lon must be numbers")
		}
		radius := c.QueryFloat("radius", 1000)
		if radius <= 0 || radius > maxNearbyRadius {
			return errBadRequest(c, "radius must be between 1 and 50000 meters")
		}

		products, err := deps.Catalog.Nearby(c.UserContext(), lat, lon, radius, c.QueryInt("limit", 50))
		if err != nil {
			return errFromDomain(c, err, "")
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(products)
	}
}

// GetProductHandler returns a single product.
func GetProductHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Catalog.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err, "product not found")
		}
		return c.JSON(p)
	}
}

// MeHandler returns the authenticated user.
func MeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(currentUser(c))
	}
}

// ListPreferencesHandler returns every preference of the current user.
func ListPreferencesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		prefs, err := deps.Preferences.All(c.UserContext(), currentUser(c).ID)
		if err != nil {
			return errFromDomain(c, err, "")
		}
		return c.JSON(prefs)
	}
}

type preferenceBody struct {
	Value string `json:"value"`
}

// GetPreferenceHandler returns one preference of the current user.
func GetPreferenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		v, err := deps.Preferences.Get(c.UserContext(), currentUser(c).ID, key)
		if err != nil {
			return errFromDomain(c, err, "preference not found")
		}
		return c.JSON(fiber.Map{"key": key, "value": v})
	}
}

// PutPreferenceHandler stores one preference of the current user.
func PutPreferenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body preferenceBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		key := c.Params("key")
		if err := deps.Preferences.Set(c.UserContext(), currentUser(c).ID, key, body.Value); err != nil {
			return errFromDomain(c, err, "")
		}
		return c.JSON(fiber.Map{"key": key, "value": body.Value})
	}
}

// DeletePreferenceHandler removes one preference of the current user.
func DeletePreferenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Preferences.Delete(c.UserContext(), currentUser(c).ID, c.Params("key")); err != nil {
			return errFromDomain(c, err, "preference not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type lastLocationResponse struct {
	Source string  `json:"source"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// LastLocationHandler returns the last known position of a source.
func LastLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		source := c.Params("source")
		p, err := deps.Tracking.LastKnown(c.UserContext(), source)
		if err != nil {
			return errFromDomain(c, err, "no recent location for "+source)
		}
		c.Set("Cache-Control", "private, max-age=5")
		return c.JSON(lastLocationResponse{Source: source, Lat: p.Lat, Lon: p.Lon})
	}
}

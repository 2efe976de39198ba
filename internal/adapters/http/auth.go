package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/plaza/internal/core/domain"
)

const userLocalsKey = "user"

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// AuthMiddleware resolves the bearer token and stores the user in Locals.
// Browsers cannot set headers on WebSocket upgrades, so those may pass the
// token as ?access_token=.
func AuthMiddleware(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" && websocket.IsWebSocketUpgrade(c) {
			token = c.Query("access_token")
		}
		if token == "" {
			return errUnauthorized(c, "missing bearer token")
		}

		user, err := deps.Auth.Authenticate(c.UserContext(), token)
		if errors.Is(err, domain.ErrUnauthorized) {
			return errUnauthorized(c, "invalid or expired token")
		}
		if err != nil {
			return errFromDomain(c, err, "")
		}

		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

// currentUser returns the user set by AuthMiddleware.
func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals(userLocalsKey).(*domain.User)
	return u
}

package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// NewIdentityMiddleware trusts the X-User-Id header set by the edge gateway
// after it has validated the caller's token.
func NewIdentityMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get("X-User-Id")
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed header"})
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: invalid user id"})
		}

		c.Locals("userId", userID)
		return c.Next()
	}
}

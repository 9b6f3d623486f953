package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"taskboard/internal/auth"
)

// userContextKey is the fiber locals key holding the verified claims.
const userContextKey = "user"

// AuthMiddleware validates the bearer token and stashes the claims for
// the handlers downstream.
func AuthMiddleware(authSvc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header with a Bearer token is required",
			})
		}
		claims, err := authSvc.Verify(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}
		c.Locals(userContextKey, claims)
		return c.Next()
	}
}

// claimsFrom returns the claims placed by AuthMiddleware.
func claimsFrom(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(userContextKey).(*auth.Claims)
	return claims
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return token, token != ""
}

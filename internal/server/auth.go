package server

import (
	"strings"

	"verses/internal/middleware"
	"verses/internal/models"
	"verses/internal/service"

	"github.com/gofiber/fiber/v2"
)

// bearerToken returns the token from an "Authorization: Bearer <token>" header.
func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthRequired returns the authentication middleware. On success the
// caller's id is stored in the "userID" local and the user context.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.tokens.Parse(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		c.Locals("userID", claims.UserID)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), claims.UserID))
		return c.Next()
	}
}

// optionalViewer reads the bearer token if present. A missing or invalid
// token yields the anonymous viewer rather than an error.
func (s *Server) optionalViewer(c *fiber.Ctx) service.Viewer {
	if uid, ok := c.Locals("userID").(string); ok && uid != "" {
		return service.Viewer{UserID: uid}
	}
	tokenString := bearerToken(c)
	if tokenString == "" {
		return service.Anonymous()
	}
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return service.Anonymous()
	}
	return service.Viewer{UserID: claims.UserID}
}

// currentUserID returns the id set by AuthRequired.
func currentUserID(c *fiber.Ctx) string {
	uid, _ := c.Locals("userID").(string)
	return uid
}

package server

import (
	"strings"

	"verses/internal/models"

	"github.com/gofiber/fiber/v2"
)

// userIDParam reads :id as an opaque user id.
func userIDParam(c *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid user ID"))
		return "", errResponseWritten
	}
	return id, nil
}

// GetUserProfile handles GET /api/users/:id
// @Summary User profile
// @Description Display name, join date, published poem count and the ten most liked poems
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.UserProfileResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return nil
	}

	profile, err := s.poemService.GetUserProfile(c.UserContext(), id, s.optionalViewer(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// GetUserPoems handles GET /api/users/:id/poems
// @Summary User's published poems
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Param page query int false "Page (default 1)"
// @Param pageSize query int false "Page size, 1-50 (default 10)"
// @Success 200 {object} models.PoemListResponse
// @Router /users/{id}/poems [get]
func (s *Server) GetUserPoems(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return nil
	}
	page, pageSize := parsePage(c)

	resp, err := s.poemService.GetPublicUserPoems(c.UserContext(), id, page, pageSize, s.optionalViewer(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(resp)
}

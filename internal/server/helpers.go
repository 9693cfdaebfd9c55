package server

import (
	"errors"
	"math"

	"verses/internal/identity"
	"verses/internal/middleware"
	"verses/internal/models"
	"verses/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	defaultPageSize = 10
	maxPageSize     = 50
	// keeps (page-1)*pageSize well inside int range
	maxPage         = math.MaxInt32 / maxPageSize
)

// parsePage reads page and pageSize. page < 1 becomes 1 and page is capped
// at maxPage; a pageSize outside [1, maxPageSize] falls back to defaultPageSize.
func parsePage(c *fiber.Ctx) (page, pageSize int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	pageSize = c.QueryInt("pageSize", defaultPageSize)
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

// parseID extracts the :id route parameter as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// respondServiceError maps domain errors to HTTP statuses.
func respondServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrPoemNotFound):
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Poem", nil))
	case errors.Is(err, service.ErrUserNotFound):
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("User", nil))
	case models.HasCode(err, models.CodeValidation):
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	case errors.Is(err, identity.ErrEmailTaken):
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email already registered"))
	case errors.Is(err, identity.ErrInvalidCredentials):
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	middleware.Logger.ErrorContext(c.UserContext(), "request failed",
		"path", c.Path(), "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

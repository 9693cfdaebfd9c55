package server

import (
	"context"

	"verses/internal/models"
	"verses/internal/notifications"
	"verses/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/poems/feed
// @Summary Feed
// @Description Published poems from all authors, newest first
// @Tags poems
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param pageSize query int false "Page size, 1-50 (default 10)"
// @Success 200 {object} models.PoemListResponse
// @Router /poems/feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page, pageSize := parsePage(c)

	resp, err := s.poemService.GetFeed(c.UserContext(), page, pageSize, s.optionalViewer(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(resp)
}

// GetPoem handles GET /api/poems/:id
// @Summary Get poem
// @Tags poems
// @Produce json
// @Param id path int true "Poem ID"
// @Success 200 {object} models.PoemResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /poems/{id} [get]
func (s *Server) GetPoem(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}

	poem, err := s.poemService.GetByID(c.UserContext(), id, s.optionalViewer(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(poem)
}

// GetMyPoems handles GET /api/poems/my-poems
// @Summary My poems
// @Description The caller's poems including drafts
// @Tags poems
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param pageSize query int false "Page size, 1-50 (default 10)"
// @Success 200 {object} models.PoemListResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /poems/my-poems [get]
func (s *Server) GetMyPoems(c *fiber.Ctx) error {
	userID := currentUserID(c)
	page, pageSize := parsePage(c)

	resp, err := s.poemService.GetUserPoems(c.UserContext(), userID, page, pageSize, service.Viewer{UserID: userID})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(resp)
}

// CreatePoem handles POST /api/poems
// @Summary Create poem
// @Tags poems
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreatePoemRequest true "Poem"
// @Success 201 {object} models.PoemResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /poems [post]
func (s *Server) CreatePoem(c *fiber.Ctx) error {
	var req models.CreatePoemRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	published := true
	if req.IsPublished != nil {
		published = *req.IsPublished
	}

	poem, err := s.poemService.Create(c.UserContext(), currentUserID(c), service.CreatePoemInput{
		Title:       req.Title,
		Content:     req.Content,
		IsPublished: published,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	if poem.IsPublished {
		s.publishPoemEvent(c.UserContext(), notifications.EventPoemCreated, poem)
	}
	return c.Status(fiber.StatusCreated).JSON(poem)
}

// UpdatePoem handles PUT /api/poems/:id
// @Summary Update poem
// @Description Partial update; only the owner may update
// @Tags poems
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Poem ID"
// @Param request body models.UpdatePoemRequest true "Fields to change"
// @Success 200 {object} models.PoemResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /poems/{id} [put]
func (s *Server) UpdatePoem(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}

	var req models.UpdatePoemRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	poem, err := s.poemService.Update(c.UserContext(), id, currentUserID(c), service.UpdatePoemInput{
		Title:       req.Title,
		Content:     req.Content,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishPoemEvent(c.UserContext(), notifications.EventPoemUpdated, poem)
	return c.JSON(poem)
}

// DeletePoem handles DELETE /api/poems/:id
// @Summary Delete poem
// @Tags poems
// @Security BearerAuth
// @Param id path int true "Poem ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /poems/{id} [delete]
func (s *Server) DeletePoem(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	deleted, err := s.poemService.Delete(c.UserContext(), id, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if !deleted {
		return respondServiceError(c, service.ErrPoemNotFound)
	}

	s.publishFeedEvent(c.UserContext(), notifications.FeedEvent{
		Type:     notifications.EventPoemDeleted,
		PoemID:   id,
		AuthorID: userID,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePoem handles POST /api/poems/:id/like
// @Summary Like poem
// @Description Idempotent
// @Tags poems
// @Produce json
// @Security BearerAuth
// @Param id path int true "Poem ID"
// @Success 200 {object} models.PoemResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /poems/{id}/like [post]
func (s *Server) LikePoem(c *fiber.Ctx) error {
	return s.changeLike(c, s.poemService.Like)
}

// UnlikePoem handles DELETE /api/poems/:id/like
// @Summary Unlike poem
// @Description Idempotent
// @Tags poems
// @Produce json
// @Security BearerAuth
// @Param id path int true "Poem ID"
// @Success 200 {object} models.PoemResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /poems/{id}/like [delete]
func (s *Server) UnlikePoem(c *fiber.Ctx) error {
	return s.changeLike(c, s.poemService.Unlike)
}

func (s *Server) changeLike(c *fiber.Ctx, apply func(context.Context, uint, string) (*models.PoemResponse, error)) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}

	poem, err := apply(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	if poem.IsPublished {
		s.publishPoemEvent(c.UserContext(), notifications.EventPoemLikeUpdated, poem)
	}
	return c.JSON(poem)
}

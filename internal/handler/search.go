package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ItsAltus/Worshipify/internal/client"
	"github.com/ItsAltus/Worshipify/internal/model"
	"github.com/ItsAltus/Worshipify/internal/service"
	"github.com/ItsAltus/Worshipify/pkg/response"
)

type SearchHandler struct {
	service   *service.SearchService
	validator *validator.Validate
}

func NewSearchHandler(svc *service.SearchService, v *validator.Validate) *SearchHandler {
	return &SearchHandler{
		service:   svc,
		validator: v,
	}
}

// Search handles GET /api/search?song=...&artist=...
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var req model.SearchRequest
	if err := c.QueryParser(&req); err != nil {
		return response.ValidationError(c, "Invalid query parameters", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Search(c.Context(), &req)
	if err != nil {
		if errors.Is(err, client.ErrTrackNotFound) {
			return response.NotFound(c, "Song not found")
		}
		return response.UpstreamError(c, err.Error())
	}

	return response.OK(c, result)
}

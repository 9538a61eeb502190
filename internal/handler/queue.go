package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ItsAltus/Worshipify/internal/client"
	"github.com/ItsAltus/Worshipify/internal/model"
	"github.com/ItsAltus/Worshipify/internal/service"
	"github.com/ItsAltus/Worshipify/internal/store"
	"github.com/ItsAltus/Worshipify/pkg/response"
)

type QueueHandler struct {
	service   *service.QueueService
	validator *validator.Validate
}

func NewQueueHandler(svc *service.QueueService, v *validator.Validate) *QueueHandler {
	return &QueueHandler{
		service:   svc,
		validator: v,
	}
}

// Enqueue handles POST /api/queue
func (h *QueueHandler) Enqueue(c *fiber.Ctx) error {
	var req model.EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	var (
		result *model.EnqueueResponse
		err    error
	)
	switch req.Kind {
	case "album":
		result, err = h.service.EnqueueAlbum(c.Context(), req.Ref)
	case "playlist":
		result, err = h.service.EnqueuePlaylist(c.Context(), req.Ref)
	default:
		result, err = h.service.EnqueueTrack(c.Context(), req.Ref)
	}
	if err != nil {
		switch {
		case errors.Is(err, client.ErrTrackNotFound):
			return response.NotFound(c, "Track not found")
		case errors.Is(err, store.ErrAlreadyQueued):
			return response.Conflict(c, "Track is already queued")
		default:
			return response.ServiceError(c, err.Error())
		}
	}

	return response.Accepted(c, result)
}

// List handles GET /api/queue?status=...
func (h *QueueHandler) List(c *fiber.Ctx) error {
	status := model.JobStatus(strings.ToLower(c.Query("status")))
	switch status {
	case "", model.JobStatusPending, model.JobStatusProcessing, model.JobStatusDone, model.JobStatusFailed:
	default:
		return response.ValidationError(c, "Unknown status filter", nil)
	}

	jobs, err := h.service.List(status)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, jobs)
}

// formatValidationErrors converts validator errors into a field→rule map.
func formatValidationErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}

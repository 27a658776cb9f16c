package handlers

import (
	"errors"

	"room-advisor/internal/dto"
	"room-advisor/internal/service"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps service error kinds to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrNoRecommendations):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrConfiguration):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, service.ErrUpstreamUnavailable), errors.Is(err, service.ErrMalformedResponse):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	body := dto.ErrorResponse{Error: err.Error()}

	var recErr *service.RecommendationError
	if errors.As(err, &recErr) {
		body.Error = recErr.Kind.Error()
		body.Reason = recErr.Reason
	}
	if status == fiber.StatusInternalServerError {
		body.Error = "Internal server error"
	}
	return c.Status(status).JSON(body)
}

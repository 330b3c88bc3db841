package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classtrack/portal-api/internal/middleware"
	"github.com/classtrack/portal-api/internal/service"
	"github.com/classtrack/portal-api/internal/utils"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

// ViolationHandler serves the proctoring violation review page.
type ViolationHandler struct {
	service service.ViolationService
	logger  zerolog.Logger
}

// NewViolationHandler builds a violation review handler instance.
func NewViolationHandler(service service.ViolationService, logger zerolog.Logger) *ViolationHandler {
	return &ViolationHandler{
		service: service,
		logger:  logger.With().Str("component", "violation_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ViolationHandler) Register(router fiber.Router) {
	router.Get("/assignments/:id/violations", h.review)
}

func (h *ViolationHandler) review(c *fiber.Ctx) error {
	assignmentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	review, degraded, err := h.service.Review(c.Context(), middleware.BearerToken(c), assignmentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, review, "violation review ready", degradedMeta(degraded))
}

func (h *ViolationHandler) handleError(c *fiber.Ctx, err error) error {
	var apiErr *classtrack.APIError
	switch {
	case errors.Is(err, classtrack.ErrUnauthorized):
		return utils.Fail(c, fiber.StatusUnauthorized, "session expired")
	case errors.Is(err, classtrack.ErrForbidden):
		return utils.Fail(c, fiber.StatusForbidden, "forbidden")
	case errors.As(err, &apiErr):
		requestLogger(h.logger, c).Error().Err(err).Msg("upstream request failed")
		return utils.Fail(c, fiber.StatusBadGateway, "upstream unavailable")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}
}

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

// StudentHandler serves the student-facing portal pages.
type StudentHandler struct {
	service service.StudentPortalService
	logger  zerolog.Logger
}

// NewStudentHandler builds a student portal handler instance.
func NewStudentHandler(service service.StudentPortalService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service: service,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("/classes", h.classes)
	router.Get("/assignments", h.assignments)
	router.Get("/assignments/:id", h.assignmentDetail)
}

func (h *StudentHandler) classes(c *fiber.Ctx) error {
	classes, err := h.service.Classes(c.Context(), middleware.BearerToken(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, classes, "classes retrieved")
}

func (h *StudentHandler) assignments(c *fiber.Ctx) error {
	cards, degraded, err := h.service.Assignments(c.Context(), middleware.BearerToken(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, cards, "assignments retrieved", degradedMeta(degraded))
}

func (h *StudentHandler) assignmentDetail(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	detail, err := h.service.AssignmentDetail(c.Context(), middleware.BearerToken(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, detail, "assignment retrieved")
}

func (h *StudentHandler) handleError(c *fiber.Ctx, err error) error {
	var apiErr *classtrack.APIError
	switch {
	case errors.Is(err, classtrack.ErrUnauthorized):
		return utils.Fail(c, fiber.StatusUnauthorized, "session expired")
	case errors.Is(err, classtrack.ErrForbidden):
		return utils.Fail(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, classtrack.ErrNotFound):
		return utils.Fail(c, fiber.StatusNotFound, "assignment not found")
	case errors.As(err, &apiErr):
		requestLogger(h.logger, c).Error().Err(err).Msg("upstream request failed")
		return utils.Fail(c, fiber.StatusBadGateway, "upstream unavailable")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}
}

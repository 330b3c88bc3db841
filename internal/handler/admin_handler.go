package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classtrack/portal-api/internal/dto"
	"github.com/classtrack/portal-api/internal/middleware"
	"github.com/classtrack/portal-api/internal/service"
	"github.com/classtrack/portal-api/internal/utils"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

// AdminHandler serves the admin dashboard and the schedule and announcement
// create forms.
type AdminHandler struct {
	service   service.AdminDashboardService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminHandler builds an admin dashboard handler instance.
func NewAdminHandler(service service.AdminDashboardService, validator *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
	router.Get("/live", h.live)
	router.Post("/schedules", h.createSchedule)
	router.Post("/announcements", h.createAnnouncement)
}

func (h *AdminHandler) dashboard(c *fiber.Ctx) error {
	dashboard, degraded, err := h.service.Dashboard(c.Context(), middleware.BearerToken(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, dashboard, "dashboard ready", degradedMeta(degraded))
}

func (h *AdminHandler) live(c *fiber.Ctx) error {
	board, degraded, err := h.service.Live(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, board, "live board ready", degradedMeta(degraded))
}

func (h *AdminHandler) createSchedule(c *fiber.Ctx) error {
	var payload dto.ScheduleCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(&payload); err != nil {
		return h.handleError(c, err)
	}

	schedule, err := h.service.CreateSchedule(c.Context(), middleware.BearerToken(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.Created(c, schedule, "schedule created")
}

func (h *AdminHandler) createAnnouncement(c *fiber.Ctx) error {
	var payload dto.AnnouncementCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(&payload); err != nil {
		return h.handleError(c, err)
	}

	announcement, err := h.service.CreateAnnouncement(c.Context(), middleware.BearerToken(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.Created(c, announcement, "announcement created")
}

func (h *AdminHandler) handleError(c *fiber.Ctx, err error) error {
	var apiErr *classtrack.APIError
	switch {
	case errors.Is(err, classtrack.ErrUnauthorized):
		return utils.Fail(c, fiber.StatusUnauthorized, "session expired")
	case errors.Is(err, classtrack.ErrForbidden):
		return utils.Fail(c, fiber.StatusForbidden, "admin role required")
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.As(err, &apiErr):
		requestLogger(h.logger, c).Error().Err(err).Msg("upstream request failed")
		return utils.Fail(c, fiber.StatusBadGateway, "upstream unavailable")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}
}

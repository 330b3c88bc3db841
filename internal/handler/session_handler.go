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

// SessionHandler exposes the cached viewer profile and logout.
type SessionHandler struct {
	service service.SessionService
	logger  zerolog.Logger
}

// NewSessionHandler builds a session handler instance.
func NewSessionHandler(service service.SessionService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("", h.profile)
	router.Delete("", h.logout)
}

func (h *SessionHandler) profile(c *fiber.Ctx) error {
	profile, err := h.service.Profile(c.Context(), middleware.BearerToken(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, profile, "profile retrieved")
}

func (h *SessionHandler) logout(c *fiber.Ctx) error {
	if err := h.service.Logout(c.Context(), middleware.BearerToken(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, nil, "session cleared")
}

func (h *SessionHandler) handleError(c *fiber.Ctx, err error) error {
	var apiErr *classtrack.APIError
	switch {
	case errors.Is(err, classtrack.ErrUnauthorized):
		return utils.Fail(c, fiber.StatusUnauthorized, "session expired")
	case errors.As(err, &apiErr):
		requestLogger(h.logger, c).Error().Err(err).Msg("upstream request failed")
		return utils.Fail(c, fiber.StatusBadGateway, "upstream unavailable")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}
}

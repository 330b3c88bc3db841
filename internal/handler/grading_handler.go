package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/classtrack/portal-api/internal/dto"
	"github.com/classtrack/portal-api/internal/gradeflow"
	"github.com/classtrack/portal-api/internal/middleware"
	"github.com/classtrack/portal-api/internal/service"
	"github.com/classtrack/portal-api/internal/utils"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

// GradingHandler serves the teacher grading workspace and the grade edit
// lifecycle for individual submission rows.
type GradingHandler struct {
	service     service.GradingService
	validator   *validator.Validate
	saveLimiter fiber.Handler
	logger      zerolog.Logger
}

// NewGradingHandler builds a grading handler instance. saveLimiter throttles
// the save route and may be nil.
func NewGradingHandler(service service.GradingService, validator *validator.Validate, saveLimiter fiber.Handler, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service:     service,
		validator:   validator,
		saveLimiter: saveLimiter,
		logger:      logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Get("/overview", h.overview)
	router.Get("/assignments/:id/grading", h.workspace)
	router.Post("/submissions/:id/edit", h.beginEdit)
	router.Put("/submissions/:id/edit", h.updateBuffer)
	router.Delete("/submissions/:id/edit", h.cancelEdit)

	if h.saveLimiter != nil {
		router.Post("/submissions/:id/save", h.saveLimiter, h.save)
	} else {
		router.Post("/submissions/:id/save", h.save)
	}

	router.Use("/assignments/:id/grading/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/assignments/:id/grading/stream", websocket.New(h.stream))
}

func (h *GradingHandler) overview(c *fiber.Ctx) error {
	overview, degraded, err := h.service.Overview(c.Context(), middleware.BearerToken(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, overview, "teacher overview ready", degradedMeta(degraded))
}

func (h *GradingHandler) workspace(c *fiber.Ctx) error {
	assignmentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	var query dto.GradingQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := h.validator.Struct(&query); err != nil {
		return h.handleError(c, err)
	}

	workspace, degraded, err := h.service.Workspace(c.Context(), middleware.BearerToken(c), assignmentID, query)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, workspace, "grading workspace ready", degradedMeta(degraded))
}

func (h *GradingHandler) beginEdit(c *fiber.Ctx) error {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	// The seed body is optional: an ungraded row opens an empty buffer.
	var payload dto.GradeEditRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := h.validator.Struct(&payload); err != nil {
		return h.handleError(c, err)
	}

	state, err := h.service.BeginEdit(submissionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, state, "edit started")
}

func (h *GradingHandler) updateBuffer(c *fiber.Ctx) error {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeBufferRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(&payload); err != nil {
		return h.handleError(c, err)
	}

	state, err := h.service.UpdateBuffer(submissionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, state, "buffer updated")
}

func (h *GradingHandler) cancelEdit(c *fiber.Ctx) error {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	state := h.service.CancelEdit(submissionID)

	return utils.OK(c, state, "edit cancelled")
}

func (h *GradingHandler) save(c *fiber.Ctx) error {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	state, err := h.service.Save(c.Context(), middleware.BearerToken(c), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, state, "grade saved")
}

func (h *GradingHandler) stream(conn *websocket.Conn) {
	assignmentID, err := strconv.ParseInt(conn.Params("id"), 10, 64)
	if err != nil || assignmentID <= 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "invalid id"))
		_ = conn.Close()
		return
	}

	h.logger.Info().Int64("assignment_id", assignmentID).Msg("grade stream connected")
	h.service.StreamGrades(conn, assignmentID)
	h.logger.Info().Int64("assignment_id", assignmentID).Msg("grade stream disconnected")
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	var apiErr *classtrack.APIError
	switch {
	case errors.Is(err, gradeflow.ErrGradeOutOfRange):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "grade must be between 0 and 100")
	case errors.Is(err, gradeflow.ErrSaveInFlight):
		return utils.Fail(c, fiber.StatusConflict, "save already in progress")
	case errors.Is(err, gradeflow.ErrNotEditing):
		return utils.Fail(c, fiber.StatusConflict, "row is not being edited")
	case errors.Is(err, classtrack.ErrUnauthorized):
		return utils.Fail(c, fiber.StatusUnauthorized, "session expired")
	case errors.Is(err, classtrack.ErrForbidden):
		return utils.Fail(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, classtrack.ErrNotFound):
		return utils.Fail(c, fiber.StatusNotFound, "submission not found")
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

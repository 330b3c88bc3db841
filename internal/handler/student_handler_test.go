package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/portal-api/internal/dto"
	"github.com/classtrack/portal-api/internal/handler"
	"github.com/classtrack/portal-api/internal/middleware"
	"github.com/classtrack/portal-api/internal/service"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

type stubStudentService struct {
	classes     []dto.ClassResponse
	assignments []dto.AssignmentCardResponse
	detail      dto.AssignmentDetailResponse
	degraded    []string
	err         error
	lastToken   string
	lastID      int64
}

func (s *stubStudentService) Classes(_ context.Context, token string) ([]dto.ClassResponse, error) {
	s.lastToken = token
	if s.err != nil {
		return nil, s.err
	}
	return s.classes, nil
}

func (s *stubStudentService) Assignments(_ context.Context, token string) ([]dto.AssignmentCardResponse, []string, error) {
	s.lastToken = token
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.assignments, s.degraded, nil
}

func (s *stubStudentService) AssignmentDetail(_ context.Context, token string, assignmentID int64) (dto.AssignmentDetailResponse, error) {
	s.lastToken = token
	s.lastID = assignmentID
	if s.err != nil {
		return dto.AssignmentDetailResponse{}, s.err
	}
	return s.detail, nil
}

var _ service.StudentPortalService = (*stubStudentService)(nil)

func setupStudentApp(svc service.StudentPortalService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/portal/student", middleware.RequireBearer())
	handler.NewStudentHandler(svc, zerolog.Nop()).Register(group)
	return app
}

func TestStudentHandlerClasses(t *testing.T) {
	svc := &stubStudentService{
		classes: []dto.ClassResponse{
			{ID: 3, Name: "Algebra", Code: "MATH3", TeacherName: "Ms Reed"},
		},
	}
	app := setupStudentApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portal/student/classes", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer student-token")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                `json:"success"`
		Message string              `json:"message"`
		Data    []dto.ClassResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)

	require.True(t, payload.Success)
	require.Equal(t, "classes retrieved", payload.Message)
	require.Len(t, payload.Data, 1)
	require.Equal(t, "Algebra", payload.Data[0].Name)
	require.Equal(t, "student-token", svc.lastToken)
}

func TestStudentHandlerAssignmentsReportsDegradedStages(t *testing.T) {
	due := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	svc := &stubStudentService{
		assignments: []dto.AssignmentCardResponse{
			{ID: 7, Name: "Essay One", ClassID: 3, ClassName: "Algebra", DueDate: &due},
		},
		degraded: []string{"submissions"},
	}
	app := setupStudentApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portal/student/assignments", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer student-token")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                         `json:"success"`
		Data    []dto.AssignmentCardResponse `json:"data"`
		Meta    map[string]interface{}       `json:"meta"`
	}
	decodeResponse(t, resp, &payload)

	require.True(t, payload.Success)
	require.Len(t, payload.Data, 1)
	require.Equal(t, []interface{}{"submissions"}, payload.Meta["degraded"])
}

func TestStudentHandlerAssignmentDetailNotFound(t *testing.T) {
	svc := &stubStudentService{err: classtrack.ErrNotFound}
	app := setupStudentApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portal/student/assignments/99", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer student-token")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var payload struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &payload)

	require.False(t, payload.Success)
	require.Equal(t, "assignment not found", payload.Message)
	require.Equal(t, int64(99), svc.lastID)
}

func TestStudentHandlerRequiresToken(t *testing.T) {
	svc := &stubStudentService{}
	app := setupStudentApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portal/student/classes", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, svc.lastToken)
}

package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/portal-api/internal/dto"
	"github.com/classtrack/portal-api/internal/handler"
)

type stubAdminService struct {
	dashboard dto.AdminDashboardResponse
}

func (s stubAdminService) Dashboard(context.Context, string) (dto.AdminDashboardResponse, []string, error) {
	return s.dashboard, nil, nil
}

func (s stubAdminService) Live(context.Context) (dto.LiveBoardResponse, []string, error) {
	return dto.LiveBoardResponse{}, nil, nil
}

func (s stubAdminService) CreateSchedule(context.Context, string, dto.ScheduleCreateRequest) (dto.ScheduleResponse, error) {
	return dto.ScheduleResponse{}, nil
}

func (s stubAdminService) CreateAnnouncement(context.Context, string, dto.AnnouncementCreateRequest) (dto.AnnouncementResponse, error) {
	return dto.AnnouncementResponse{}, nil
}

func TestAdminDashboardContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "admin_dashboard.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	dashboard := dto.AdminDashboardResponse{
		TotalUsers:   120,
		TotalClasses: 14,
		Schedules: []dto.ScheduleResponse{
			{
				ID:          1,
				ClassID:     3,
				ClassName:   "Algebra",
				ClassCode:   "MATH3",
				TeacherName: "Ms Reed",
				RoomNumber:  "R101",
				StartTime:   now.Add(time.Hour),
				EndTime:     now.Add(2 * time.Hour),
				Status:      "Occupied",
			},
		},
		Announcements: []dto.AnnouncementResponse{
			{
				ID:         5,
				Title:      "Welcome back",
				Content:    "Spring term starts Monday.",
				IsUrgent:   false,
				DatePosted: now.Add(-48 * time.Hour),
			},
		},
		GeneratedAt: now,
		CacheHit:    false,
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	adminHandler := handler.NewAdminHandler(stubAdminService{dashboard: dashboard}, validate, zerolog.Nop())

	app := fiber.New()
	adminHandler.Register(app.Group("/api/v1/portal/admin"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portal/admin/dashboard", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

package integration_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/portal-api/internal/bus"
	"github.com/classtrack/portal-api/internal/config"
	"github.com/classtrack/portal-api/internal/dto"
	"github.com/classtrack/portal-api/internal/handler"
	"github.com/classtrack/portal-api/internal/middleware"
	"github.com/classtrack/portal-api/internal/observability"
	"github.com/classtrack/portal-api/internal/router"
	"github.com/classtrack/portal-api/internal/service"
	"github.com/classtrack/portal-api/internal/session"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

// upstreamRecorder counts hits per upstream path and captures the last
// grade payload the portal forwarded.
type upstreamRecorder struct {
	mu        sync.Mutex
	hits      map[string]int
	lastGrade classtrack.GradeUpdate
}

func (r *upstreamRecorder) count(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits[path]++
}

func (r *upstreamRecorder) hitsFor(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[path]
}

func (r *upstreamRecorder) recordGrade(update classtrack.GradeUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastGrade = update
}

func (r *upstreamRecorder) gradePayload() classtrack.GradeUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastGrade
}

func setupPortalApp(t *testing.T) (*fiber.App, *upstreamRecorder) {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	recorder := &upstreamRecorder{hits: make(map[string]int)}

	mux := http.NewServeMux()
	respond := func(pattern string, body any) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body)
		})
	}

	respond("/users/me", map[string]any{
		"id":         40,
		"username":   "treed",
		"email":      "treed@classtrack.test",
		"first_name": "Taylor",
		"last_name":  "Reed",
		"role":       "teacher",
	})
	respond("/assignments/7", map[string]any{
		"id":       7,
		"name":     "Essay One",
		"class_id": 3,
	})
	respond("/classes/", []map[string]any{
		{"id": 3, "name": "Algebra", "code": "MATH3", "teacher_name": "Ms Reed"},
	})
	respond("/teachers/me/classes/3/roster", []map[string]any{
		{"id": 21, "username": "ann", "first_name": "Ann", "last_name": "Park", "email": "ann@classtrack.test"},
		{"id": 22, "username": "ben", "first_name": "Ben", "last_name": "Ortiz", "email": "ben@classtrack.test"},
	})
	respond("/assignments/7/submissions", []map[string]any{
		{
			"id":                 11,
			"assignment_id":      7,
			"student_id":         21,
			"student_name":       "Ann Park",
			"student_email":      "ann@classtrack.test",
			"grade":              90,
			"feedback":           "good start",
			"is_graded":          true,
			"time_spent_minutes": 34,
			"submitted_at":       "2026-03-01T10:00:00",
		},
		{
			"id":            12,
			"assignment_id": 7,
			"student_id":    22,
			"student_name":  "Ben Ortiz",
			"student_email": "ben@classtrack.test",
			"submitted_at":  "2026-03-02T10:00:00",
		},
	})
	respond("/assignments/7/violations", []map[string]any{})
	mux.HandleFunc("PATCH /submissions/12/grade", func(w http.ResponseWriter, r *http.Request) {
		var update classtrack.GradeUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		recorder.recordGrade(update)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            12,
			"assignment_id": 7,
			"student_id":    22,
			"grade":         update.Grade,
			"feedback":      update.Feedback,
			"is_graded":     true,
			"submitted_at":  "2026-03-02T10:00:00",
		})
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder.count(r.URL.Path)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	logger := zerolog.New(io.Discard)
	sessions := session.NewStore(redisClient, time.Hour, logger)

	upstream, err := classtrack.New(classtrack.Config{
		BaseURL:        server.URL,
		OnUnauthorized: sessions.OnUnauthorized,
		Logger:         logger,
	})
	require.NoError(t, err)

	events := bus.New(redisClient, nil, "portal", logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	gradingService := service.NewGradingService(upstream, sessions, redisClient, time.Minute, events, logger)
	studentService := service.NewStudentPortalService(upstream, logger)
	violationService := service.NewViolationService(upstream, logger)
	adminService := service.NewAdminDashboardService(upstream, redisClient, time.Minute, 5*time.Second, logger)
	sessionService := service.NewSessionService(upstream, sessions, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "ClassTrack Portal Test"}, router.Dependencies{
		SessionHandler:   handler.NewSessionHandler(sessionService, logger),
		StudentHandler:   handler.NewStudentHandler(studentService, logger),
		GradingHandler:   handler.NewGradingHandler(gradingService, validate, nil, logger),
		ViolationHandler: handler.NewViolationHandler(violationService, logger),
		AdminHandler:     handler.NewAdminHandler(adminService, validate, logger),
	})

	return app, recorder
}

func decode[T any](t *testing.T, resp *http.Response, target *T) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func authedRequest(method, target string, body []byte) *http.Request {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer teacher-token")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestPortalGradingEndToEnd(t *testing.T) {
	app, recorder := setupPortalApp(t)

	// Health does not need a token.
	healthResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, healthResp.StatusCode)
	require.Equal(t, "ClassTrack Portal Test", healthResp.Header.Get("X-Application"))
	_ = healthResp.Body.Close()

	// Portal pages do.
	unauthResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/portal/teacher/assignments/7/grading", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, unauthResp.StatusCode)

	var unauthBody struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decode(t, unauthResp, &unauthBody)
	require.False(t, unauthBody.Success)
	require.Equal(t, "authorization header missing", unauthBody.Message)

	// Step 1: load the grading workspace.
	workspaceResp, err := app.Test(authedRequest(http.MethodGet, "/api/v1/portal/teacher/assignments/7/grading", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, workspaceResp.StatusCode)

	var workspaceBody struct {
		Success bool                         `json:"success"`
		Data    dto.GradingWorkspaceResponse `json:"data"`
	}
	decode(t, workspaceResp, &workspaceBody)
	require.True(t, workspaceBody.Success)
	require.Equal(t, "Essay One", workspaceBody.Data.AssignmentName)
	require.Equal(t, "Algebra", workspaceBody.Data.ClassName)
	require.Len(t, workspaceBody.Data.Rows, 2)
	require.Equal(t, int64(12), workspaceBody.Data.Rows[0].ID)
	require.Equal(t, int64(11), workspaceBody.Data.Rows[1].ID)
	require.NotNil(t, workspaceBody.Data.Stats)
	require.Equal(t, 1, workspaceBody.Data.Stats.GradedCount)
	require.Equal(t, 90.0, workspaceBody.Data.Stats.AverageGrade)
	require.Equal(t, 2, workspaceBody.Data.Roster.RosterSize)
	require.Equal(t, 0, workspaceBody.Data.Roster.MissingCount)
	require.Equal(t, 100, workspaceBody.Data.Roster.SubmissionRate)

	// Step 2: open an edit buffer on the ungraded row.
	editResp, err := app.Test(authedRequest(http.MethodPost, "/api/v1/portal/teacher/submissions/12/edit", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, editResp.StatusCode)

	var editBody struct {
		Success bool                   `json:"success"`
		Data    dto.GradeStateResponse `json:"data"`
	}
	decode(t, editResp, &editBody)
	require.Equal(t, "editing", editBody.Data.Phase)

	// Step 3: stage a grade.
	bufferPayload, err := json.Marshal(map[string]any{"grade": 85, "feedback": "nice recovery"})
	require.NoError(t, err)
	bufferResp, err := app.Test(authedRequest(http.MethodPut, "/api/v1/portal/teacher/submissions/12/edit", bufferPayload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, bufferResp.StatusCode)

	var bufferBody struct {
		Data dto.GradeStateResponse `json:"data"`
	}
	decode(t, bufferResp, &bufferBody)
	require.Equal(t, 85.0, bufferBody.Data.Grade)

	// Step 4: save. The grade lands upstream and the buffer closes.
	saveResp, err := app.Test(authedRequest(http.MethodPost, "/api/v1/portal/teacher/submissions/12/save", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, saveResp.StatusCode)

	var saveBody struct {
		Data dto.GradeStateResponse `json:"data"`
	}
	decode(t, saveResp, &saveBody)
	require.Equal(t, "viewing", saveBody.Data.Phase)

	require.Equal(t, 1, recorder.hitsFor("/submissions/12/grade"))
	require.Equal(t, 85.0, recorder.gradePayload().Grade)
	require.Equal(t, "nice recovery", recorder.gradePayload().Feedback)

	// Step 5: the cached workspace was rewritten in place, not refetched.
	secondResp, err := app.Test(authedRequest(http.MethodGet, "/api/v1/portal/teacher/assignments/7/grading", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, secondResp.StatusCode)

	var secondBody struct {
		Data dto.GradingWorkspaceResponse `json:"data"`
	}
	decode(t, secondResp, &secondBody)
	require.Equal(t, 1, recorder.hitsFor("/assignments/7/submissions"))
	require.Equal(t, 1, recorder.hitsFor("/assignments/7"))

	saved := secondBody.Data.Rows[0]
	require.Equal(t, int64(12), saved.ID)
	require.True(t, saved.Graded)
	require.NotNil(t, saved.Grade)
	require.Equal(t, 85.0, *saved.Grade)
	require.Equal(t, 2, secondBody.Data.Stats.GradedCount)
	require.Equal(t, 87.5, secondBody.Data.Stats.AverageGrade)

	// Step 6: the profile was cached during the workspace build.
	profileResp, err := app.Test(authedRequest(http.MethodGet, "/api/v1/portal/session", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, profileResp.StatusCode)

	var profileBody struct {
		Data dto.ProfileResponse `json:"data"`
	}
	decode(t, profileResp, &profileBody)
	require.Equal(t, "Taylor Reed", profileBody.Data.DisplayName)
	require.Equal(t, 1, recorder.hitsFor("/users/me"))

	// Step 7: logout clears the session, the next profile refetches.
	logoutResp, err := app.Test(authedRequest(http.MethodDelete, "/api/v1/portal/session", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, logoutResp.StatusCode)
	_ = logoutResp.Body.Close()

	refetchResp, err := app.Test(authedRequest(http.MethodGet, "/api/v1/portal/session", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, refetchResp.StatusCode)
	_ = refetchResp.Body.Close()
	require.Equal(t, 2, recorder.hitsFor("/users/me"))
}

func TestGradeStreamBroadcastsSaves(t *testing.T) {
	app, recorder := setupPortalApp(t)

	baseURL, shutdown := startPortalServer(t, app)
	defer shutdown()

	streamURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/portal/teacher/assignments/7/grading/stream"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	// The stream sits behind the same bearer guard as the rest of the page.
	_, badResp, err := dialer.Dial(streamURL, nil)
	require.Error(t, err)
	if badResp != nil {
		require.Equal(t, fiber.StatusUnauthorized, badResp.StatusCode)
		_ = badResp.Body.Close()
	}

	conn, resp, err := dialer.Dial(streamURL, http.Header{"Authorization": {"Bearer teacher-token"}})
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	// Save only after the server side has registered the subscription.
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(observability.GradingStreamClients()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	editResp, err := app.Test(authedRequest(http.MethodPost, "/api/v1/portal/teacher/submissions/12/edit", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, editResp.StatusCode)
	_ = editResp.Body.Close()

	bufferPayload, err := json.Marshal(map[string]any{"grade": 85, "feedback": "nice recovery"})
	require.NoError(t, err)
	bufferResp, err := app.Test(authedRequest(http.MethodPut, "/api/v1/portal/teacher/submissions/12/edit", bufferPayload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, bufferResp.StatusCode)
	_ = bufferResp.Body.Close()

	saveResp, err := app.Test(authedRequest(http.MethodPost, "/api/v1/portal/teacher/submissions/12/save", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, saveResp.StatusCode)
	_ = saveResp.Body.Close()
	require.Equal(t, 1, recorder.hitsFor("/submissions/12/grade"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event dto.GradeEventResponse
	require.NoError(t, conn.ReadJSON(&event))

	require.Equal(t, int64(7), event.AssignmentID)
	require.Equal(t, int64(12), event.SubmissionID)
	require.Equal(t, int64(22), event.StudentID)
	require.Equal(t, 85.0, event.Grade)
	require.Equal(t, "Taylor Reed", event.GradedBy)
	require.False(t, event.SentAt.IsZero())
}

func startPortalServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

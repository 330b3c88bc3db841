package classtrack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, onUnauthorized func(ctx context.Context, token string)) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL:        srv.URL,
		Logger:         zerolog.Nop(),
		OnUnauthorized: onUnauthorized,
	})
	require.NoError(t, err)
	return client
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestWithAuth_ReturnsCopyWithBearerHeader(t *testing.T) {
	original, err := http.NewRequest(http.MethodGet, "http://upstream/users/me", nil)
	require.NoError(t, err)

	authed := WithAuth(original, "token-123")

	require.Equal(t, "Bearer token-123", authed.Header.Get("Authorization"))
	require.Empty(t, original.Header.Get("Authorization"), "input request must not be mutated")
}

func TestWithAuth_EmptyTokenOmitsHeader(t *testing.T) {
	original, err := http.NewRequest(http.MethodGet, "http://upstream/schedules/live", nil)
	require.NoError(t, err)

	authed := WithAuth(original, "")

	require.Empty(t, authed.Header.Get("Authorization"))
}

func TestClient_UnauthorizedInvokesCallbackAndMapsError(t *testing.T) {
	var gotToken string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
	})

	client := newTestClient(t, handler, func(_ context.Context, token string) {
		gotToken = token
	})

	_, err := client.Me(context.Background(), "expired-token")

	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, "expired-token", gotToken)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Could not validate credentials", apiErr.Detail)
}

func TestClient_NotFoundAndForbiddenMapToSentinels(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/assignments/99":
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Assignment not found"})
		case "/metrics/users/count":
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Not authorized to view user metrics"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	client := newTestClient(t, handler, nil)

	_, err := client.Assignment(context.Background(), "token", 99)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = client.UserCount(context.Background(), "token")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestClient_TransportFailureIsNotAPIError(t *testing.T) {
	client, err := New(Config{BaseURL: "http://127.0.0.1:1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = client.StudentClasses(context.Background(), "token")
	require.Error(t, err)

	var apiErr *APIError
	require.False(t, errors.As(err, &apiErr))
}

func TestClient_GradeSubmissionSendsPatchWithBody(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotAuth   string
		gotBody   GradeUpdate
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            42,
			"assignment_id": 7,
			"student_id":    3,
			"grade":         88.5,
			"feedback":      "solid work",
			"is_graded":     true,
		})
	})

	client := newTestClient(t, handler, nil)

	record, err := client.GradeSubmission(context.Background(), "teacher-token", 42, GradeUpdate{Grade: 88.5, Feedback: "solid work"})
	require.NoError(t, err)

	require.Equal(t, http.MethodPatch, gotMethod)
	require.Equal(t, "/submissions/42/grade", gotPath)
	require.Equal(t, "Bearer teacher-token", gotAuth)
	require.Equal(t, GradeUpdate{Grade: 88.5, Feedback: "solid work"}, gotBody)

	require.Equal(t, int64(42), record.ID)
	require.NotNil(t, record.Grade)
	require.Equal(t, 88.5, *record.Grade)
}

func TestClient_SubmissionsPreservesFieldAbsence(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/assignments/7/submissions", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id": 1, "assignment_id": 7, "student_id": 3, "grade": null, "violations_count": 0},
			{"id": 2, "assignment_id": 7, "student_id": 4, "grade": 91.0}
		]`))
	})

	client := newTestClient(t, handler, nil)

	records, err := client.Submissions(context.Background(), "token", 7)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Nil(t, records[0].Grade)
	require.NotNil(t, records[0].ViolationsCount, "explicit zero must survive decoding")
	require.Equal(t, 0, *records[0].ViolationsCount)

	require.NotNil(t, records[1].Grade)
	require.Nil(t, records[1].ViolationsCount, "absent field must stay nil")
}

func TestClient_AlternateSubmissionShapeDecodes(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/assignments/7/submissions-with-violations", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{
				"submission_id": 11,
				"student_id": 3,
				"student_name": "casey lee",
				"grade": 77.0,
				"submitted_at": "2025-03-02T10:00:00",
				"is_graded": true,
				"violation_count": 2,
				"violations": [
					{"id": 5, "student_id": 3, "assignment_id": 7, "violation_type": "tab_switch", "detected_at": "2025-03-02T09:55:00", "severity": "low"}
				]
			}
		]`))
	})

	client := newTestClient(t, handler, nil)

	records, err := client.SubmissionsWithViolations(context.Background(), "token", 7)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.Equal(t, int64(11), records[0].SubmissionID)
	require.NotNil(t, records[0].ViolationCount)
	require.Equal(t, 2, *records[0].ViolationCount)
	require.Len(t, records[0].Violations, 1)
}

func TestReadDetail_FallsBackToRawBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	client := newTestClient(t, handler, nil)

	_, err := client.Classes(context.Background(), "token")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, "upstream exploded", apiErr.Detail)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/classtrack/portal-api/internal/bus"
	"github.com/classtrack/portal-api/internal/dto"
	"github.com/classtrack/portal-api/internal/gradeflow"
	"github.com/classtrack/portal-api/internal/models"
	"github.com/classtrack/portal-api/internal/normalize"
	"github.com/classtrack/portal-api/internal/observability"
	"github.com/classtrack/portal-api/internal/reconcile"
	"github.com/classtrack/portal-api/internal/session"
	"github.com/classtrack/portal-api/internal/stats"
	"github.com/classtrack/portal-api/internal/viewstate"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

const streamKeepalive = 30 * time.Second

// Stage names reported in the degraded marker of partial responses.
const (
	StageAssignment  = "assignment"
	StageClasses     = "classes"
	StageSubmissions = "submissions"
	StageViolations  = "violations"
	StageRoster      = "roster"
)

// GradingService assembles the grading workspace and runs the grade
// editing flow against the upstream API.
type GradingService interface {
	Overview(ctx context.Context, token string) (dto.TeacherOverviewResponse, []string, error)
	Workspace(ctx context.Context, token string, assignmentID int64, query dto.GradingQuery) (dto.GradingWorkspaceResponse, []string, error)
	BeginEdit(submissionID int64, req dto.GradeEditRequest) (dto.GradeStateResponse, error)
	UpdateBuffer(submissionID int64, req dto.GradeBufferRequest) (dto.GradeStateResponse, error)
	CancelEdit(submissionID int64) dto.GradeStateResponse
	Save(ctx context.Context, token string, submissionID int64) (dto.GradeStateResponse, error)
	StreamGrades(conn *websocket.Conn, assignmentID int64)
}

// workspaceSnapshot is the cached reconciliation result for one assignment.
// Filtering and sorting are never cached; they are recomputed per request
// from these rows.
type workspaceSnapshot struct {
	AssignmentID   int64                   `json:"assignment_id"`
	AssignmentName string                  `json:"assignment_name"`
	ClassName      string                  `json:"class_name"`
	Rows           []models.SubmissionView `json:"rows"`
	Roster         []models.RosterEntry    `json:"roster"`
	Degraded       []string                `json:"degraded,omitempty"`
	FetchedAt      time.Time               `json:"fetched_at"`
}

type gradingService struct {
	upstream  *classtrack.Client
	sessions  *session.Store
	cache     *redis.Client
	cacheTTL  time.Duration
	events    *bus.Bus
	normalize *normalize.Normalizer
	flow      *gradeflow.Flow
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGradingService constructs the grading workspace service and registers
// its cache invalidation hook on the event bus.
func NewGradingService(upstream *classtrack.Client, sessions *session.Store, cache *redis.Client, ttl time.Duration, events *bus.Bus, logger zerolog.Logger) GradingService {
	s := &gradingService{
		upstream:  upstream,
		sessions:  sessions,
		cache:     cache,
		cacheTTL:  ttl,
		events:    events,
		normalize: normalize.New(),
		flow:      gradeflow.New(),
		logger:    logger.With().Str("component", "grading_service").Logger(),
		now:       time.Now,
	}

	if events != nil {
		events.OnEvent(func(event bus.GradeEvent) {
			s.invalidate(context.Background(), event.AssignmentID)
		})
	}

	return s
}

func workspaceCacheKey(assignmentID int64) string {
	return fmt.Sprintf("portal:grading:%d", assignmentID)
}

func (s *gradingService) Workspace(ctx context.Context, token string, assignmentID int64, query dto.GradingQuery) (dto.GradingWorkspaceResponse, []string, error) {
	tracer := otel.Tracer("github.com/classtrack/portal-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.workspace")
	span.SetAttributes(attribute.Int64("grading.assignment_id", assignmentID))
	defer span.End()

	snapshot, hit, err := s.snapshot(ctx, token, assignmentID, query.Refresh)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "workspace_fetch_failed")
		return dto.GradingWorkspaceResponse{}, nil, err
	}
	span.SetAttributes(
		attribute.Bool("grading.cache_hit", hit),
		attribute.Int("grading.row_count", len(snapshot.Rows)),
	)

	state := viewstate.Parse(query.Search, query.Status, query.Sort, query.Dir, query.Density)
	visible := viewstate.Visible(snapshot.Rows, state)

	response := dto.GradingWorkspaceResponse{
		AssignmentID:   snapshot.AssignmentID,
		AssignmentName: snapshot.AssignmentName,
		ClassName:      snapshot.ClassName,
		Rows:           dto.NewSubmissionRowResponseSlice(visible),
		Stats:          dto.NewGradeStatisticsResponse(stats.Grades(snapshot.Rows)),
		Roster:         dto.NewRosterStatsResponse(stats.Roster(snapshot.Rows, snapshot.Roster)),
		View:           dto.NewViewStateResponse(state),
	}

	return response, snapshot.Degraded, nil
}

// Overview serves the teacher landing page: the classes they run and the
// assignments they grade from. Both fetches are independent; either one
// degrades to an empty section rather than failing the page.
func (s *gradingService) Overview(ctx context.Context, token string) (dto.TeacherOverviewResponse, []string, error) {
	tracer := otel.Tracer("github.com/classtrack/portal-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.overview")
	defer span.End()

	var (
		classes     classtrack.TeacherClassesRecord
		assignments []models.Assignment
	)

	group, groupCtx := newFetchGroup(ctx)
	group.Go(func() error {
		rec, err := s.upstream.TeacherClasses(groupCtx, token)
		if err != nil {
			return stageError(StageClasses, err)
		}
		classes = rec
		return nil
	})
	group.Go(func() error {
		recs, err := s.upstream.TeacherAssignments(groupCtx, token)
		if err != nil {
			return stageError(StageAssignment, err)
		}
		assignments = s.normalize.Assignments(recs)
		return nil
	})

	degraded, err := group.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "overview_fetch_failed")
		return dto.TeacherOverviewResponse{}, nil, err
	}

	normalized := s.normalize.Classes(classes.Classes)
	views := reconcile.Assignments(assignments, normalized, nil, s.now())
	span.SetAttributes(
		attribute.Int("grading.class_count", len(normalized)),
		attribute.Int("grading.assignment_count", len(views)),
	)

	totalClasses := classes.Metrics.TotalClasses
	if totalClasses == 0 {
		totalClasses = len(normalized)
	}

	return dto.TeacherOverviewResponse{
		Classes:       dto.NewClassResponseSlice(normalized),
		TotalClasses:  totalClasses,
		TotalStudents: classes.Metrics.TotalStudents,
		Assignments:   dto.NewAssignmentCardResponseSlice(views),
	}, degraded, nil
}

// snapshot returns the reconciled workspace, from cache unless refresh is
// set, fetching and reconciling on a miss.
func (s *gradingService) snapshot(ctx context.Context, token string, assignmentID int64, refresh bool) (workspaceSnapshot, bool, error) {
	key := workspaceCacheKey(assignmentID)

	if s.cache != nil && !refresh {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var snap workspaceSnapshot
			if unmarshalErr := json.Unmarshal([]byte(cached), &snap); unmarshalErr == nil {
				return snap, true, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read grading cache")
		}
	}

	snap, err := s.build(ctx, token, assignmentID)
	if err != nil {
		return workspaceSnapshot{}, false, err
	}

	// A degraded snapshot is never cached: the failed stage should retry on
	// the next request instead of persisting for the TTL.
	if s.cache != nil && len(snap.Degraded) == 0 {
		if payload, err := json.Marshal(snap); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store grading cache")
			}
		}
	}

	return snap, false, nil
}

// build fetches every collection the grading page needs and reconciles
// them. Independent fetches run in parallel; the roster follows once the
// assignment's class is known. Every stage except authentication degrades
// to a partial page instead of failing it.
func (s *gradingService) build(ctx context.Context, token string, assignmentID int64) (workspaceSnapshot, error) {
	var (
		assignment     models.Assignment
		haveAssignment bool
		classes        []models.ClassRef
		violations     []models.Violation
		submissions    []models.Submission
		degraded       []string
	)

	group, groupCtx := newFetchGroup(ctx)

	group.Go(func() error {
		rec, err := s.upstream.Assignment(groupCtx, token, assignmentID)
		if err != nil {
			return stageError(StageAssignment, err)
		}
		assignment = s.normalize.Assignment(rec)
		haveAssignment = true
		return nil
	})
	group.Go(func() error {
		recs, err := s.upstream.Classes(groupCtx, token)
		if err != nil {
			return stageError(StageClasses, err)
		}
		classes = s.normalize.Classes(recs)
		return nil
	})
	group.Go(func() error {
		recs, err := s.upstream.AssignmentViolations(groupCtx, token, assignmentID)
		if err != nil {
			return stageError(StageViolations, err)
		}
		violations = s.normalize.Violations(recs)
		return nil
	})
	group.Go(func() error {
		subs, stage, err := s.fetchSubmissions(groupCtx, token, assignmentID)
		if err != nil {
			return stageError(StageSubmissions, err)
		}
		submissions = subs
		if stage != "" {
			return stageError(stage, errDegradedOnly)
		}
		return nil
	})

	failed, err := group.Wait()
	if err != nil {
		return workspaceSnapshot{}, err
	}
	degraded = append(degraded, failed...)

	var roster []models.RosterEntry
	if haveAssignment && assignment.ClassID != 0 {
		recs, err := s.upstream.ClassRoster(ctx, token, assignment.ClassID)
		switch {
		case err == nil:
			roster = s.normalize.Roster(recs)
		case errors.Is(err, classtrack.ErrUnauthorized):
			return workspaceSnapshot{}, err
		default:
			s.logger.Warn().Err(err).Int64("class_id", assignment.ClassID).Msg("roster fetch failed")
			degraded = append(degraded, StageRoster)
		}
	}

	viewer := s.viewer(ctx, token)

	var assignments []models.Assignment
	if haveAssignment {
		assignments = []models.Assignment{assignment}
	}
	rows := reconcile.Submissions(reconcile.Input{
		Assignments: assignments,
		Classes:     classes,
		Submissions: submissions,
		Violations:  violations,
		Viewer:      viewer,
	})

	snap := workspaceSnapshot{
		AssignmentID: assignmentID,
		Rows:         rows,
		Roster:       roster,
		Degraded:     degraded,
		FetchedAt:    s.now().UTC(),
	}
	snap.AssignmentName, snap.ClassName = headerContext(assignmentID, assignment, haveAssignment, rows)

	return snap, nil
}

// fetchSubmissions tries the primary endpoint, then the alternate
// violations-inline endpoint once, then settles for an empty list. The
// empty-list case reports the degraded stage; an expired token fails
// instead of degrading.
func (s *gradingService) fetchSubmissions(ctx context.Context, token string, assignmentID int64) ([]models.Submission, string, error) {
	recs, err := s.upstream.Submissions(ctx, token, assignmentID)
	if err == nil {
		return s.normalize.Submissions(recs), "", nil
	}
	if errors.Is(err, classtrack.ErrUnauthorized) {
		return nil, "", err
	}

	s.logger.Warn().Err(err).Int64("assignment_id", assignmentID).Msg("primary submissions fetch failed, trying alternate")
	observability.UpstreamFallbacks().WithLabelValues(StageSubmissions).Inc()

	alternates, altErr := s.upstream.SubmissionsWithViolations(ctx, token, assignmentID)
	if altErr == nil {
		return s.normalize.SubmissionsFromAlternate(assignmentID, alternates), "", nil
	}
	if errors.Is(altErr, classtrack.ErrUnauthorized) {
		return nil, "", altErr
	}

	s.logger.Error().Err(altErr).Int64("assignment_id", assignmentID).Msg("alternate submissions fetch failed, serving empty list")
	return []models.Submission{}, StageSubmissions, nil
}

// viewer returns the session-cached profile, fetching and caching it on a
// miss. A failed lookup returns a zero profile; the teacher-name chain then
// falls through to its literal fallback.
func (s *gradingService) viewer(ctx context.Context, token string) models.Profile {
	if s.sessions != nil {
		if profile, ok, err := s.sessions.Get(ctx, token); err == nil && ok {
			return profile
		}
	}

	rec, err := s.upstream.Me(ctx, token)
	if err != nil {
		return models.Profile{}
	}
	profile := s.normalize.Profile(rec)
	if s.sessions != nil {
		if err := s.sessions.Save(ctx, token, profile); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache viewer profile")
		}
	}
	return profile
}

func (s *gradingService) BeginEdit(submissionID int64, req dto.GradeEditRequest) (dto.GradeStateResponse, error) {
	_, err := s.flow.Edit(submissionID, req.Grade, req.Feedback)
	return dto.NewGradeStateResponse(submissionID, s.flow.Row(submissionID)), err
}

func (s *gradingService) UpdateBuffer(submissionID int64, req dto.GradeBufferRequest) (dto.GradeStateResponse, error) {
	buffer := gradeflow.Buffer{Feedback: req.Feedback}
	if req.Grade != nil {
		buffer.Grade = *req.Grade
	}
	err := s.flow.Update(submissionID, buffer)
	return dto.NewGradeStateResponse(submissionID, s.flow.Row(submissionID)), err
}

func (s *gradingService) CancelEdit(submissionID int64) dto.GradeStateResponse {
	s.flow.Cancel(submissionID)
	return dto.NewGradeStateResponse(submissionID, s.flow.Row(submissionID))
}

// Save validates the row's buffer locally, sends the grade upstream, and
// resolves the state machine. Success updates the cached workspace row in
// place and announces the change on the event bus; failure keeps the buffer
// so nothing typed is lost.
func (s *gradingService) Save(ctx context.Context, token string, submissionID int64) (dto.GradeStateResponse, error) {
	tracer := otel.Tracer("github.com/classtrack/portal-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.save")
	span.SetAttributes(attribute.Int64("grading.submission_id", submissionID))
	defer span.End()

	buffer, err := s.flow.BeginSave(submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save_rejected")
		return dto.NewGradeStateResponse(submissionID, s.flow.Row(submissionID)), err
	}

	record, err := s.upstream.GradeSubmission(ctx, token, submissionID, classtrack.GradeUpdate{
		Grade:    buffer.Grade,
		Feedback: buffer.Feedback,
	})
	s.flow.ResolveSave(submissionID, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream_save_failed")
		return dto.NewGradeStateResponse(submissionID, s.flow.Row(submissionID)), err
	}

	saved := s.normalize.Submission(record)
	s.applyGrade(ctx, saved.AssignmentID, submissionID, buffer)

	if s.events != nil {
		event := bus.GradeEvent{
			AssignmentID: saved.AssignmentID,
			SubmissionID: submissionID,
			StudentID:    saved.StudentID,
			Grade:        buffer.Grade,
			GradedBy:     s.viewer(ctx, token).DisplayName(),
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish grade event")
		}
	}

	return dto.NewGradeStateResponse(submissionID, s.flow.Row(submissionID)), nil
}

// StreamGrades pushes grade events for one assignment over an open
// websocket until the peer disconnects. Saves made on this page still
// arrive through the normal save response; the stream carries everyone
// else's.
func (s *gradingService) StreamGrades(conn *websocket.Conn, assignmentID int64) {
	if s.events == nil {
		_ = conn.Close()
		return
	}

	events, cancel := s.events.Subscribe(assignmentID)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(dto.NewGradeEventResponse(event)); err != nil {
				s.logger.Debug().Err(err).Int64("assignment_id", assignmentID).Msg("grade stream write failed")
				return
			}
		case <-time.After(streamKeepalive):
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// applyGrade rewrites one row of the cached workspace after a successful
// save, keeping the cache a faithful copy of the remote state.
func (s *gradingService) applyGrade(ctx context.Context, assignmentID, submissionID int64, buffer gradeflow.Buffer) {
	if s.cache == nil || assignmentID == 0 {
		return
	}
	key := workspaceCacheKey(assignmentID)

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read grading cache for update")
		}
		return
	}

	var snap workspaceSnapshot
	if err := json.Unmarshal([]byte(cached), &snap); err != nil {
		s.invalidate(ctx, assignmentID)
		return
	}

	for i := range snap.Rows {
		if snap.Rows[i].ID != submissionID {
			continue
		}
		grade := buffer.Grade
		feedback := buffer.Feedback
		snap.Rows[i].Grade = &grade
		snap.Rows[i].Feedback = &feedback
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		s.invalidate(ctx, assignmentID)
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store updated grading cache")
	}
}

func (s *gradingService) invalidate(ctx context.Context, assignmentID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, workspaceCacheKey(assignmentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Int64("assignment_id", assignmentID).Msg("failed to invalidate grading cache")
	}
}

// headerContext picks the workspace header, preferring the reconciled rows
// (they already carry resolved or synthesized context) and synthesizing the
// same placeholders for an empty page.
func headerContext(assignmentID int64, assignment models.Assignment, haveAssignment bool, rows []models.SubmissionView) (string, string) {
	if len(rows) > 0 {
		return rows[0].AssignmentName, rows[0].ClassName
	}
	if haveAssignment {
		className := assignment.ClassName
		if className == "" {
			className = fmt.Sprintf("Class %d", assignment.ClassID)
		}
		return assignment.Name, className
	}
	return fmt.Sprintf("Assignment %d", assignmentID), fmt.Sprintf("Class %d", assignmentID)
}

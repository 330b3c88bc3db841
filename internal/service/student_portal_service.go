package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/classtrack/portal-api/internal/dto"
	"github.com/classtrack/portal-api/internal/models"
	"github.com/classtrack/portal-api/internal/normalize"
	"github.com/classtrack/portal-api/internal/reconcile"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

// StudentPortalService serves the student-facing pages: enrolled classes
// and the assignment list enriched with class context and submission state.
type StudentPortalService interface {
	Classes(ctx context.Context, token string) ([]dto.ClassResponse, error)
	Assignments(ctx context.Context, token string) ([]dto.AssignmentCardResponse, []string, error)
	AssignmentDetail(ctx context.Context, token string, assignmentID int64) (dto.AssignmentDetailResponse, error)
}

type studentPortalService struct {
	upstream  *classtrack.Client
	normalize *normalize.Normalizer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewStudentPortalService constructs the student portal service.
func NewStudentPortalService(upstream *classtrack.Client, logger zerolog.Logger) StudentPortalService {
	return &studentPortalService{
		upstream:  upstream,
		normalize: normalize.New(),
		logger:    logger.With().Str("component", "student_portal_service").Logger(),
		now:       time.Now,
	}
}

func (s *studentPortalService) Classes(ctx context.Context, token string) ([]dto.ClassResponse, error) {
	recs, err := s.upstream.StudentClasses(ctx, token)
	if err != nil {
		return nil, err
	}
	return dto.NewClassResponseSlice(s.normalize.Classes(recs)), nil
}

// Assignments joins the student's assignments with their classes and own
// submissions. The three fetches are independent and run in parallel;
// class and submission failures degrade the enrichment rather than the
// page.
func (s *studentPortalService) Assignments(ctx context.Context, token string) ([]dto.AssignmentCardResponse, []string, error) {
	tracer := otel.Tracer("github.com/classtrack/portal-api/internal/service/student_portal")
	ctx, span := tracer.Start(ctx, "student.assignments")
	defer span.End()

	var (
		assignments []models.Assignment
		classes     []models.ClassRef
		submissions []models.Submission
	)

	group, groupCtx := newFetchGroup(ctx)
	group.Go(func() error {
		recs, err := s.upstream.StudentAssignments(groupCtx, token)
		if err != nil {
			return stageError(StageAssignment, err)
		}
		assignments = s.normalize.Assignments(recs)
		return nil
	})
	group.Go(func() error {
		recs, err := s.upstream.StudentClasses(groupCtx, token)
		if err != nil {
			return stageError(StageClasses, err)
		}
		classes = s.normalize.Classes(recs)
		return nil
	})
	group.Go(func() error {
		recs, err := s.upstream.StudentSubmissions(groupCtx, token)
		if err != nil {
			return stageError(StageSubmissions, err)
		}
		submissions = s.normalize.Submissions(recs)
		return nil
	})

	degraded, err := group.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assignments_fetch_failed")
		return nil, nil, err
	}
	span.SetAttributes(
		attribute.Int("student.assignment_count", len(assignments)),
		attribute.Int("student.degraded_stages", len(degraded)),
	)

	views := reconcile.Assignments(assignments, classes, submissions, s.now())
	return dto.NewAssignmentCardResponseSlice(views), degraded, nil
}

// AssignmentDetail is the dependent-fetch page: the assignment first, its
// class second, then the viewer's integrity events for that assignment.
func (s *studentPortalService) AssignmentDetail(ctx context.Context, token string, assignmentID int64) (dto.AssignmentDetailResponse, error) {
	tracer := otel.Tracer("github.com/classtrack/portal-api/internal/service/student_portal")
	ctx, span := tracer.Start(ctx, "student.assignment_detail")
	span.SetAttributes(attribute.Int64("student.assignment_id", assignmentID))
	defer span.End()

	rec, err := s.upstream.Assignment(ctx, token, assignmentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assignment_fetch_failed")
		return dto.AssignmentDetailResponse{}, err
	}
	assignment := s.normalize.Assignment(rec)

	var class models.ClassRef
	haveClass := false
	if assignment.ClassID != 0 {
		classRec, err := s.upstream.Class(ctx, token, assignment.ClassID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("class_id", assignment.ClassID).Msg("class fetch failed, using embedded context")
		} else {
			class = s.normalize.Class(classRec)
			haveClass = true
		}
	}

	violationCount := 0
	if violations, err := s.upstream.AssignmentViolations(ctx, token, assignmentID); err == nil {
		violationCount = len(violations)
	} else {
		s.logger.Warn().Err(err).Int64("assignment_id", assignmentID).Msg("violations fetch failed, count omitted")
	}

	views := reconcile.Assignments([]models.Assignment{assignment}, classRefs(class, haveClass), nil, s.now())

	detail := dto.AssignmentDetailResponse{
		Assignment:     dto.NewAssignmentCardResponse(views[0]),
		ViolationCount: violationCount,
	}
	if haveClass {
		detail.Class = dto.NewClassResponse(class)
	} else {
		detail.Class = dto.ClassResponse{
			ID:          assignment.ClassID,
			Name:        views[0].ClassName,
			Code:        views[0].ClassCode,
			TeacherName: views[0].TeacherName,
		}
	}

	return detail, nil
}

func classRefs(class models.ClassRef, have bool) []models.ClassRef {
	if !have {
		return nil
	}
	return []models.ClassRef{class}
}

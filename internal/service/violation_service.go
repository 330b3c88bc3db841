package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/classtrack/portal-api/internal/dto"
	"github.com/classtrack/portal-api/internal/models"
	"github.com/classtrack/portal-api/internal/normalize"
	"github.com/classtrack/portal-api/internal/stats"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

// ViolationService assembles the violation review page for an assignment.
type ViolationService interface {
	Review(ctx context.Context, token string, assignmentID int64) (dto.ViolationReviewResponse, []string, error)
}

type violationService struct {
	upstream  *classtrack.Client
	normalize *normalize.Normalizer
	logger    zerolog.Logger
}

// NewViolationService constructs the violation review service.
func NewViolationService(upstream *classtrack.Client, logger zerolog.Logger) ViolationService {
	return &violationService{
		upstream:  upstream,
		normalize: normalize.New(),
		logger:    logger.With().Str("component", "violation_service").Logger(),
	}
}

// Review fetches the assignment, its violation list and its submissions in
// parallel. When the standalone violation list is unavailable it falls back
// to the violations embedded in the submissions; student names resolve from
// the submission records.
func (s *violationService) Review(ctx context.Context, token string, assignmentID int64) (dto.ViolationReviewResponse, []string, error) {
	tracer := otel.Tracer("github.com/classtrack/portal-api/internal/service/violation")
	ctx, span := tracer.Start(ctx, "violations.review")
	span.SetAttributes(attribute.Int64("violations.assignment_id", assignmentID))
	defer span.End()

	var (
		assignment     models.Assignment
		haveAssignment bool
		violations     []models.Violation
		haveViolations bool
		submissions    []models.Submission
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
		recs, err := s.upstream.AssignmentViolations(groupCtx, token, assignmentID)
		if err != nil {
			return stageError(StageViolations, err)
		}
		violations = s.normalize.Violations(recs)
		haveViolations = true
		return nil
	})
	group.Go(func() error {
		recs, err := s.upstream.Submissions(groupCtx, token, assignmentID)
		if err != nil {
			return stageError(StageSubmissions, err)
		}
		submissions = s.normalize.Submissions(recs)
		return nil
	})

	degraded, err := group.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "review_fetch_failed")
		return dto.ViolationReviewResponse{}, nil, err
	}

	if !haveViolations {
		violations = embeddedViolations(submissions)
	}
	span.SetAttributes(attribute.Int("violations.count", len(violations)))

	if !haveAssignment {
		assignment = models.Assignment{
			ID:   assignmentID,
			Name: fmt.Sprintf("Assignment %d", assignmentID),
		}
	}

	className := s.className(ctx, token, assignment)
	summary := stats.Violations(assignment, className, violations)

	names := make(map[int64]string, len(submissions))
	for _, sub := range submissions {
		names[sub.StudentID] = sub.StudentName
	}

	items := make([]dto.ViolationDetailResponse, 0, len(violations))
	for _, violation := range violations {
		name, ok := names[violation.StudentID]
		if !ok {
			name = fmt.Sprintf("Student %d", violation.StudentID)
		}
		items = append(items, dto.ViolationDetailResponse{
			ViolationResponse: dto.NewViolationResponse(violation),
			StudentName:       name,
		})
	}

	return dto.ViolationReviewResponse{
		Summary: dto.NewViolationSummaryResponse(summary),
		Items:   items,
	}, degraded, nil
}

// className resolves the assignment's class display name, preferring the
// authoritative class record, then the embedded field, then a placeholder.
func (s *violationService) className(ctx context.Context, token string, assignment models.Assignment) string {
	if assignment.ClassID != 0 {
		if rec, err := s.upstream.Class(ctx, token, assignment.ClassID); err == nil {
			return s.normalize.Class(rec).Name
		}
		s.logger.Debug().Int64("class_id", assignment.ClassID).Msg("class lookup failed for violation summary")
	}
	if assignment.ClassName != "" {
		return assignment.ClassName
	}
	if assignment.ClassID != 0 {
		return fmt.Sprintf("Class %d", assignment.ClassID)
	}
	return ""
}

func embeddedViolations(submissions []models.Submission) []models.Violation {
	var out []models.Violation
	for _, sub := range submissions {
		out = append(out, sub.Violations...)
	}
	return out
}

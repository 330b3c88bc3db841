package dto

import (
	"time"

	"github.com/classtrack/portal-api/internal/models"
)

// ViolationResponse serializes one proctoring violation.
type ViolationResponse struct {
	ID              int64     `json:"id"`
	StudentID       int64     `json:"student_id"`
	AssignmentID    int64     `json:"assignment_id"`
	Type            string    `json:"violation_type"`
	Description     string    `json:"description"`
	DetectedAt      time.Time `json:"detected_at"`
	TimeAwaySeconds *float64  `json:"time_away_seconds,omitempty"`
	Severity        string    `json:"severity"`
	ContentAdded    *int      `json:"content_added_during_absence,omitempty"`
	AISimilarity    *float64  `json:"ai_similarity_score,omitempty"`
	PasteLength     *int      `json:"paste_content_length,omitempty"`
}

// ViolationDetailResponse is a violation enriched with the student's
// display name for the review page.
type ViolationDetailResponse struct {
	ViolationResponse
	StudentName string `json:"student_name"`
}

// ViolationSummaryResponse aggregates integrity events for an assignment.
type ViolationSummaryResponse struct {
	AssignmentID    int64          `json:"assignment_id"`
	AssignmentName  string         `json:"assignment_name"`
	ClassName       string         `json:"class_name"`
	Total           int            `json:"total"`
	ByType          map[string]int `json:"by_type"`
	BySeverity      map[string]int `json:"by_severity"`
	FlaggedStudents int            `json:"flagged_students"`
	AverageTimeAway float64        `json:"average_time_away_seconds"`
}

// ViolationReviewResponse is the violation review page payload.
type ViolationReviewResponse struct {
	Summary ViolationSummaryResponse  `json:"summary"`
	Items   []ViolationDetailResponse `json:"items"`
}

// NewViolationResponse converts a violation model into a DTO.
func NewViolationResponse(violation models.Violation) ViolationResponse {
	return ViolationResponse{
		ID:              violation.ID,
		StudentID:       violation.StudentID,
		AssignmentID:    violation.AssignmentID,
		Type:            string(violation.Type),
		Description:     violation.Description,
		DetectedAt:      violation.DetectedAt,
		TimeAwaySeconds: violation.TimeAwaySeconds,
		Severity:        string(violation.Severity),
		ContentAdded:    violation.ContentAdded,
		AISimilarity:    violation.AISimilarity,
		PasteLength:     violation.PasteLength,
	}
}

// NewViolationResponseSlice converts violation models into DTOs.
func NewViolationResponseSlice(violations []models.Violation) []ViolationResponse {
	responses := make([]ViolationResponse, 0, len(violations))
	for _, violation := range violations {
		responses = append(responses, NewViolationResponse(violation))
	}

	return responses
}

// NewViolationSummaryResponse converts a summary model into a DTO.
func NewViolationSummaryResponse(summary models.ViolationSummary) ViolationSummaryResponse {
	byType := make(map[string]int, len(summary.ByType))
	for violationType, count := range summary.ByType {
		byType[string(violationType)] = count
	}
	bySeverity := make(map[string]int, len(summary.BySeverity))
	for severity, count := range summary.BySeverity {
		bySeverity[string(severity)] = count
	}

	return ViolationSummaryResponse{
		AssignmentID:    summary.AssignmentID,
		AssignmentName:  summary.AssignmentName,
		ClassName:       summary.ClassName,
		Total:           summary.Total,
		ByType:          byType,
		BySeverity:      bySeverity,
		FlaggedStudents: summary.FlaggedStudents,
		AverageTimeAway: summary.AverageTimeAway,
	}
}

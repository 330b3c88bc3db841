package dto

import (
	"time"

	"github.com/classtrack/portal-api/internal/bus"
	"github.com/classtrack/portal-api/internal/gradeflow"
	"github.com/classtrack/portal-api/internal/models"
	"github.com/classtrack/portal-api/internal/viewstate"
)

// GradingQuery describes the view parameters of the grading workspace.
// Unrecognized values fall back to defaults rather than failing.
type GradingQuery struct {
	Search  string `query:"search"`
	Status  string `query:"status" validate:"omitempty,oneof=all graded pending"`
	Sort    string `query:"sort" validate:"omitempty,oneof=name submitted grade time"`
	Dir     string `query:"dir" validate:"omitempty,oneof=asc desc"`
	Density string `query:"density" validate:"omitempty,oneof=list grid"`
	Refresh bool   `query:"refresh"`
}

// GradeEditRequest opens an edit buffer, seeded from the row values the
// caller currently displays. Both fields are optional: an ungraded row
// seeds a zero grade and empty feedback.
type GradeEditRequest struct {
	Grade    *float64 `json:"grade" validate:"omitempty,gte=0,lte=100"`
	Feedback *string  `json:"feedback" validate:"omitempty,max=5000"`
}

// GradeBufferRequest carries uncommitted grade edits for one row.
type GradeBufferRequest struct {
	Grade    *float64 `json:"grade" validate:"required,gte=0,lte=100"`
	Feedback string   `json:"feedback" validate:"omitempty,max=5000"`
}

// ViewStateResponse echoes the view parameters actually applied.
type ViewStateResponse struct {
	Search    string `json:"search"`
	Status    string `json:"status"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
	Density   string `json:"density"`
}

// SubmissionRowResponse is one reconciled grading row.
type SubmissionRowResponse struct {
	ID               int64               `json:"id"`
	AssignmentID     int64               `json:"assignment_id"`
	StudentID        int64               `json:"student_id"`
	StudentName      string              `json:"student_name"`
	StudentEmail     string              `json:"student_email"`
	Content          string              `json:"content,omitempty"`
	FileName         string              `json:"file_name,omitempty"`
	LinkURL          string              `json:"link_url,omitempty"`
	Grade            *float64            `json:"grade"`
	Graded           bool                `json:"graded"`
	Feedback         *string             `json:"feedback"`
	TimeSpentMinutes int                 `json:"time_spent_minutes"`
	SubmittedAt      time.Time           `json:"submitted_at"`
	AssignmentName   string              `json:"assignment_name"`
	ClassName        string              `json:"class_name"`
	ClassCode        string              `json:"class_code"`
	TeacherName      string              `json:"teacher_name"`
	ViolationCount   int                 `json:"violation_count"`
	Violations       []ViolationResponse `json:"violations"`
	Placeholder      bool                `json:"placeholder,omitempty"`
}

// GradeDistributionResponse is the five-bucket letter histogram.
type GradeDistributionResponse struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
	D int `json:"d"`
	F int `json:"f"`
}

// GradeStatisticsResponse summarizes the graded rows. It is null in the
// workspace response when nothing is graded yet.
type GradeStatisticsResponse struct {
	GradedCount  int                       `json:"graded_count"`
	AverageGrade float64                   `json:"average_grade"`
	HighestGrade float64                   `json:"highest_grade"`
	LowestGrade  float64                   `json:"lowest_grade"`
	Distribution GradeDistributionResponse `json:"distribution"`
}

// RosterStatsResponse reports submission progress against the roster.
type RosterStatsResponse struct {
	RosterSize      int `json:"roster_size"`
	SubmittedCount  int `json:"submitted_count"`
	GradedCount     int `json:"graded_count"`
	MissingCount    int `json:"missing_count"`
	FlaggedStudents int `json:"flagged_students"`
	SubmissionRate  int `json:"submission_rate"`
	ViolationRate   int `json:"violation_rate"`
}

// GradeStateResponse snapshots the editing state machine of one row.
type GradeStateResponse struct {
	SubmissionID int64   `json:"submission_id"`
	Phase        string  `json:"phase"`
	Grade        float64 `json:"grade"`
	Feedback     string  `json:"feedback"`
	Error        string  `json:"error,omitempty"`
}

// GradingWorkspaceResponse is the full grading page payload.
type GradingWorkspaceResponse struct {
	AssignmentID   int64                    `json:"assignment_id"`
	AssignmentName string                   `json:"assignment_name"`
	ClassName      string                   `json:"class_name"`
	Rows           []SubmissionRowResponse  `json:"rows"`
	Stats          *GradeStatisticsResponse `json:"stats"`
	Roster         RosterStatsResponse      `json:"roster"`
	View           ViewStateResponse        `json:"view"`
}

// GradeEventResponse is one live grade update pushed to open grading pages.
type GradeEventResponse struct {
	AssignmentID int64     `json:"assignment_id"`
	SubmissionID int64     `json:"submission_id"`
	StudentID    int64     `json:"student_id"`
	Grade        float64   `json:"grade"`
	GradedBy     string    `json:"graded_by"`
	SentAt       time.Time `json:"sent_at"`
}

// TeacherOverviewResponse is the teacher landing page: the classes they
// run, enrollment totals, and the assignments they grade from.
type TeacherOverviewResponse struct {
	Classes       []ClassResponse          `json:"classes"`
	TotalClasses  int                      `json:"total_classes"`
	TotalStudents int                      `json:"total_students"`
	Assignments   []AssignmentCardResponse `json:"assignments"`
}

// NewViewStateResponse converts applied view state into a DTO.
func NewViewStateResponse(state viewstate.State) ViewStateResponse {
	return ViewStateResponse{
		Search:    state.Search,
		Status:    string(state.Status),
		Sort:      string(state.Sort),
		Direction: string(state.Direction),
		Density:   string(state.Density),
	}
}

// NewSubmissionRowResponse converts a reconciled view into a DTO.
func NewSubmissionRowResponse(view models.SubmissionView) SubmissionRowResponse {
	return SubmissionRowResponse{
		ID:               view.ID,
		AssignmentID:     view.AssignmentID,
		StudentID:        view.StudentID,
		StudentName:      view.StudentName,
		StudentEmail:     view.StudentEmail,
		Content:          view.Content,
		FileName:         view.FileName,
		LinkURL:          view.LinkURL,
		Grade:            view.Grade,
		Graded:           view.IsGraded(),
		Feedback:         view.Feedback,
		TimeSpentMinutes: view.TimeSpentMinutes,
		SubmittedAt:      view.SubmittedAt,
		AssignmentName:   view.AssignmentName,
		ClassName:        view.ClassName,
		ClassCode:        view.ClassCode,
		TeacherName:      view.TeacherName,
		ViolationCount:   view.ViolationTotal(),
		Violations:       NewViolationResponseSlice(view.Violations),
		Placeholder:      view.Placeholder,
	}
}

// NewSubmissionRowResponseSlice converts reconciled views into DTOs.
func NewSubmissionRowResponseSlice(views []models.SubmissionView) []SubmissionRowResponse {
	responses := make([]SubmissionRowResponse, 0, len(views))
	for _, view := range views {
		responses = append(responses, NewSubmissionRowResponse(view))
	}

	return responses
}

// NewGradeStatisticsResponse converts grade statistics into a DTO,
// preserving nil for the nothing-graded case.
func NewGradeStatisticsResponse(stats *models.GradeStatistics) *GradeStatisticsResponse {
	if stats == nil {
		return nil
	}

	return &GradeStatisticsResponse{
		GradedCount:  stats.GradedCount,
		AverageGrade: stats.AverageGrade,
		HighestGrade: stats.HighestGrade,
		LowestGrade:  stats.LowestGrade,
		Distribution: GradeDistributionResponse{
			A: stats.Distribution.A,
			B: stats.Distribution.B,
			C: stats.Distribution.C,
			D: stats.Distribution.D,
			F: stats.Distribution.F,
		},
	}
}

// NewRosterStatsResponse converts roster statistics into a DTO.
func NewRosterStatsResponse(stats models.RosterStats) RosterStatsResponse {
	return RosterStatsResponse{
		RosterSize:      stats.RosterSize,
		SubmittedCount:  stats.SubmittedCount,
		GradedCount:     stats.GradedCount,
		MissingCount:    stats.MissingCount,
		FlaggedStudents: stats.FlaggedStudents,
		SubmissionRate:  stats.SubmissionRate,
		ViolationRate:   stats.ViolationRate,
	}
}

// NewGradeStateResponse converts a state machine snapshot into a DTO.
func NewGradeStateResponse(submissionID int64, state gradeflow.RowState) GradeStateResponse {
	return GradeStateResponse{
		SubmissionID: submissionID,
		Phase:        string(state.Phase),
		Grade:        state.Buffer.Grade,
		Feedback:     state.Buffer.Feedback,
		Error:        state.Error,
	}
}

// NewGradeEventResponse converts a bus event into its wire shape. The node
// id stays internal.
func NewGradeEventResponse(event bus.GradeEvent) GradeEventResponse {
	return GradeEventResponse{
		AssignmentID: event.AssignmentID,
		SubmissionID: event.SubmissionID,
		StudentID:    event.StudentID,
		Grade:        event.Grade,
		GradedBy:     event.GradedBy,
		SentAt:       event.SentAt,
	}
}

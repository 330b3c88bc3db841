package dto

import (
	"time"

	"github.com/classtrack/portal-api/internal/models"
)

// ClassResponse serializes an enrolled class for the student portal.
type ClassResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	TeacherName string `json:"teacher_name"`
	Description string `json:"description,omitempty"`
}

// AssignmentCardResponse is one entry on the student assignment list:
// the assignment plus its class context and the viewer's submission state.
type AssignmentCardResponse struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ClassID     int64      `json:"class_id"`
	ClassName   string     `json:"class_name"`
	ClassCode   string     `json:"class_code"`
	TeacherName string     `json:"teacher_name"`
	DueDate     *time.Time `json:"due_date"`
	PastDue     bool       `json:"past_due"`
	Submitted   bool       `json:"submitted"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Grade       *float64   `json:"grade"`
	Graded      bool       `json:"graded"`
}

// AssignmentDetailResponse is the dependent-fetch detail view: the
// assignment, its resolved class, and the viewer's integrity event count.
type AssignmentDetailResponse struct {
	Assignment     AssignmentCardResponse `json:"assignment"`
	Class          ClassResponse          `json:"class"`
	ViolationCount int                    `json:"violation_count"`
}

// NewClassResponse converts a class model into a DTO.
func NewClassResponse(class models.ClassRef) ClassResponse {
	return ClassResponse{
		ID:          class.ID,
		Name:        class.Name,
		Code:        class.Code,
		TeacherName: class.TeacherName,
		Description: class.Description,
	}
}

// NewClassResponseSlice converts class models into DTOs.
func NewClassResponseSlice(classes []models.ClassRef) []ClassResponse {
	responses := make([]ClassResponse, 0, len(classes))
	for _, class := range classes {
		responses = append(responses, NewClassResponse(class))
	}

	return responses
}

// NewAssignmentCardResponse converts an assignment view into a DTO.
func NewAssignmentCardResponse(view models.AssignmentView) AssignmentCardResponse {
	return AssignmentCardResponse{
		ID:          view.ID,
		Name:        view.Name,
		Description: view.Description,
		ClassID:     view.ClassID,
		ClassName:   view.ClassName,
		ClassCode:   view.ClassCode,
		TeacherName: view.TeacherName,
		DueDate:     view.DueDate,
		PastDue:     view.PastDue,
		Submitted:   view.Submitted,
		SubmittedAt: view.SubmittedAt,
		Grade:       view.Grade,
		Graded:      view.Graded,
	}
}

// NewAssignmentCardResponseSlice converts assignment views into DTOs.
func NewAssignmentCardResponseSlice(views []models.AssignmentView) []AssignmentCardResponse {
	responses := make([]AssignmentCardResponse, 0, len(views))
	for _, view := range views {
		responses = append(responses, NewAssignmentCardResponse(view))
	}

	return responses
}

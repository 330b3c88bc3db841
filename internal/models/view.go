package models

import "time"

// SubmissionView is a fully reconciled grading row: the submission joined
// with its assignment and class context, de-duplicated violations, and the
// resolved teacher display name. Placeholder marks rows whose assignment or
// class could not be resolved, so their context fields are synthesized.
type SubmissionView struct {
	Submission

	AssignmentName string `json:"assignment_name"`
	ClassID        int64  `json:"class_id"`
	ClassName      string `json:"class_name"`
	ClassCode      string `json:"class_code"`
	TeacherName    string `json:"teacher_name"`

	Placeholder bool `json:"placeholder,omitempty"`
}

// AssignmentView is an assignment enriched with class context and the
// viewer's submission state, ready for the student assignment list.
type AssignmentView struct {
	Assignment

	Submitted   bool       `json:"submitted"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Grade       *float64   `json:"grade"`
	Graded      bool       `json:"graded"`
	PastDue     bool       `json:"past_due"`
}

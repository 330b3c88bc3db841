package models

import "time"

// Submission is a normalized submission record. Grade and Feedback stay nil
// until a grade exists so an ungraded submission is distinguishable from a
// zero score. ViolationCount likewise stays nil when the upstream response
// omitted the field; the reconciler resolves it against the violation lists
// and writes the final value back.
type Submission struct {
	ID               int64       `json:"id"`
	AssignmentID     int64       `json:"assignment_id"`
	StudentID        int64       `json:"student_id"`
	StudentName      string      `json:"student_name"`
	StudentEmail     string      `json:"student_email"`
	Content          string      `json:"content"`
	FileName         string      `json:"file_name,omitempty"`
	LinkURL          string      `json:"link_url,omitempty"`
	Grade            *float64    `json:"grade"`
	Feedback         *string     `json:"feedback"`
	TimeSpentMinutes int         `json:"time_spent_minutes"`
	SubmittedAt      time.Time   `json:"submitted_at"`
	ClassName        string      `json:"-"`
	ClassCode        string      `json:"-"`
	ViolationCount   *int        `json:"violation_count,omitempty"`
	Violations       []Violation `json:"violations,omitempty"`
}

// IsGraded reports whether the submission carries a grade.
func (s Submission) IsGraded() bool {
	return s.Grade != nil
}

// GradeOrZero returns the grade, treating ungraded as zero. Used by grade
// sorting so ungraded rows collate below every real score.
func (s Submission) GradeOrZero() float64 {
	if s.Grade == nil {
		return 0
	}
	return *s.Grade
}

// ViolationTotal returns the resolved violation count, zero when unresolved.
func (s Submission) ViolationTotal() int {
	if s.ViolationCount == nil {
		return 0
	}
	return *s.ViolationCount
}

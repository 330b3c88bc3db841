package models

// GradeDistribution buckets graded submissions into letter bands. Boundaries
// are right-open: A covers [90,100], B [80,90), C [70,80), D [60,70) and F
// everything below 60.
type GradeDistribution struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
	D int `json:"d"`
	F int `json:"f"`
}

// GradeStatistics summarizes the graded portion of a submission set. A nil
// value (rather than a zeroed struct) signals that nothing is graded yet so
// consumers render an empty state instead of a misleading zero average.
type GradeStatistics struct {
	GradedCount  int               `json:"graded_count"`
	AverageGrade float64           `json:"average_grade"`
	HighestGrade float64           `json:"highest_grade"`
	LowestGrade  float64           `json:"lowest_grade"`
	Distribution GradeDistribution `json:"distribution"`
}

// RosterStats reports submission and integrity progress against a class
// roster. Rates are whole percentages in [0,100] and stay zero on an empty
// roster.
type RosterStats struct {
	RosterSize      int `json:"roster_size"`
	SubmittedCount  int `json:"submitted_count"`
	GradedCount     int `json:"graded_count"`
	MissingCount    int `json:"missing_count"`
	FlaggedStudents int `json:"flagged_students"`
	SubmissionRate  int `json:"submission_rate"`
	ViolationRate   int `json:"violation_rate"`
}

// ViolationSummary aggregates integrity events for an assignment.
type ViolationSummary struct {
	AssignmentID    int64                 `json:"assignment_id"`
	AssignmentName  string                `json:"assignment_name"`
	ClassName       string                `json:"class_name"`
	Total           int                   `json:"total"`
	ByType          map[ViolationType]int `json:"by_type"`
	BySeverity      map[Severity]int      `json:"by_severity"`
	FlaggedStudents int                   `json:"flagged_students"`
	AverageTimeAway float64               `json:"average_time_away_seconds"`
}

// Package stats derives aggregate figures from reconciled submission views.
// Everything here is a pure function over in-memory lists; aggregation is
// recomputed whenever the underlying set changes.
package stats

import (
	"math"

	"github.com/classtrack/portal-api/internal/models"
)

// Grades summarizes the graded submissions in a view list. It returns nil
// when no submission carries a grade, so callers can tell "no data" apart
// from "all zeros". Grades outside [0,100] are rejected upstream at input
// time; this function does not clamp.
func Grades(views []models.SubmissionView) *models.GradeStatistics {
	var (
		sum    float64
		count  int
		high   float64
		low    float64
		spread models.GradeDistribution
	)

	for _, view := range views {
		if view.Grade == nil {
			continue
		}
		grade := *view.Grade

		if count == 0 {
			high, low = grade, grade
		} else {
			high = math.Max(high, grade)
			low = math.Min(low, grade)
		}
		sum += grade
		count++

		switch {
		case grade >= 90:
			spread.A++
		case grade >= 80:
			spread.B++
		case grade >= 70:
			spread.C++
		case grade >= 60:
			spread.D++
		default:
			spread.F++
		}
	}

	if count == 0 {
		return nil
	}

	return &models.GradeStatistics{
		GradedCount:  count,
		AverageGrade: roundHalfUp1(sum / float64(count)),
		HighestGrade: high,
		LowestGrade:  low,
		Distribution: spread,
	}
}

// Roster reports submission and integrity progress against the class
// roster. Rates are whole percentages and stay zero on an empty roster
// rather than dividing by zero.
func Roster(views []models.SubmissionView, roster []models.RosterEntry) models.RosterStats {
	out := models.RosterStats{
		RosterSize:     len(roster),
		SubmittedCount: len(views),
	}

	flagged := make(map[int64]struct{})
	for _, view := range views {
		if view.IsGraded() {
			out.GradedCount++
		}
		if view.ViolationTotal() > 0 {
			flagged[view.StudentID] = struct{}{}
		}
	}
	out.FlaggedStudents = len(flagged)

	if missing := out.RosterSize - out.SubmittedCount; missing > 0 {
		out.MissingCount = missing
	}

	if out.RosterSize > 0 {
		out.SubmissionRate = percent(out.SubmittedCount, out.RosterSize)
		out.ViolationRate = percent(out.FlaggedStudents, out.RosterSize)
	}
	return out
}

// Violations aggregates the integrity events of one assignment into a
// summary for the review page.
func Violations(assignment models.Assignment, className string, violations []models.Violation) models.ViolationSummary {
	summary := models.ViolationSummary{
		AssignmentID:   assignment.ID,
		AssignmentName: assignment.Name,
		ClassName:      className,
		Total:          len(violations),
		ByType:         make(map[models.ViolationType]int),
		BySeverity:     make(map[models.Severity]int),
	}

	students := make(map[int64]struct{})
	var awaySum float64
	var awayCount int
	for _, v := range violations {
		summary.ByType[v.Type]++
		summary.BySeverity[v.Severity]++
		students[v.StudentID] = struct{}{}
		if v.TimeAwaySeconds != nil {
			awaySum += *v.TimeAwaySeconds
			awayCount++
		}
	}
	summary.FlaggedStudents = len(students)
	if awayCount > 0 {
		summary.AverageTimeAway = roundHalfUp1(awaySum / float64(awayCount))
	}
	return summary
}

// roundHalfUp1 rounds to one decimal digit with half-up tie breaking, the
// convention grade averages are displayed with.
func roundHalfUp1(value float64) float64 {
	return math.Floor(value*10+0.5) / 10
}

func percent(part, whole int) int {
	return int(math.Round(float64(part) / float64(whole) * 100))
}

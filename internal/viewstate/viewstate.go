// Package viewstate holds the grading page's filter, search and sort
// parameters and derives the visible subset of reconciled rows. The derived
// subset is recomputed synchronously on every parameter change; list sizes
// are tens to low hundreds of rows, so nothing is cached.
package viewstate

import (
	"sort"
	"strings"

	"github.com/classtrack/portal-api/internal/models"
)

// Status filters rows by grading state.
type Status string

const (
	StatusAll     Status = "all"
	StatusGraded  Status = "graded"
	StatusPending Status = "pending"
)

// SortKey selects the comparator applied to the visible rows.
type SortKey string

const (
	SortName      SortKey = "name"
	SortSubmitted SortKey = "submitted"
	SortGrade     SortKey = "grade"
	SortTime      SortKey = "time"
)

// Direction orders the sorted rows.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Density is how the page lays out rows. It never affects which rows are
// visible or their order.
type Density string

const (
	DensityList Density = "list"
	DensityGrid Density = "grid"
)

// State is one page's current view parameters.
type State struct {
	Search    string    `json:"search"`
	Status    Status    `json:"status"`
	Sort      SortKey   `json:"sort"`
	Direction Direction `json:"direction"`
	Density   Density   `json:"density"`
}

// Default returns the parameters a grading page opens with: everything
// visible, newest submissions first.
func Default() State {
	return State{
		Status:    StatusAll,
		Sort:      SortSubmitted,
		Direction: Descending,
		Density:   DensityList,
	}
}

// Parse builds a State from raw query values, substituting defaults for
// anything unrecognized.
func Parse(search, status, sortKey, direction, density string) State {
	state := Default()
	state.Search = strings.TrimSpace(search)

	switch Status(status) {
	case StatusAll, StatusGraded, StatusPending:
		state.Status = Status(status)
	}
	switch SortKey(sortKey) {
	case SortName, SortSubmitted, SortGrade, SortTime:
		state.Sort = SortKey(sortKey)
	}
	switch Direction(direction) {
	case Ascending, Descending:
		state.Direction = Direction(direction)
	}
	switch Density(density) {
	case DensityList, DensityGrid:
		state.Density = Density(density)
	}
	return state
}

// Visible returns the ordered subset of views matching the state. The input
// slice is never reordered; ties keep their relative input order.
func Visible(views []models.SubmissionView, state State) []models.SubmissionView {
	visible := make([]models.SubmissionView, 0, len(views))
	needle := strings.ToLower(state.Search)

	for _, view := range views {
		if !matchesStatus(view, state.Status) {
			continue
		}
		if needle != "" && !matchesSearch(view, needle) {
			continue
		}
		visible = append(visible, view)
	}

	less := comparator(state.Sort)
	sort.SliceStable(visible, func(i, j int) bool {
		if state.Direction == Descending {
			return less(visible[j], visible[i])
		}
		return less(visible[i], visible[j])
	})
	return visible
}

func matchesStatus(view models.SubmissionView, status Status) bool {
	switch status {
	case StatusGraded:
		return view.IsGraded()
	case StatusPending:
		return !view.IsGraded()
	default:
		return true
	}
}

// matchesSearch looks at the student display name and email only; content
// and feedback are deliberately not searched.
func matchesSearch(view models.SubmissionView, needle string) bool {
	return strings.Contains(strings.ToLower(view.StudentName), needle) ||
		strings.Contains(strings.ToLower(view.StudentEmail), needle)
}

func comparator(key SortKey) func(a, b models.SubmissionView) bool {
	switch key {
	case SortName:
		return func(a, b models.SubmissionView) bool {
			return strings.ToLower(a.StudentName) < strings.ToLower(b.StudentName)
		}
	case SortGrade:
		return func(a, b models.SubmissionView) bool {
			return a.GradeOrZero() < b.GradeOrZero()
		}
	case SortTime:
		return func(a, b models.SubmissionView) bool {
			return a.TimeSpentMinutes < b.TimeSpentMinutes
		}
	default:
		return func(a, b models.SubmissionView) bool {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
	}
}

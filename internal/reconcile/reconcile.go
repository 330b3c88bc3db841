// Package reconcile joins independently fetched collections into
// denormalized, UI-ready view records. Lookups that fail degrade to
// synthesized placeholders; a broken relationship never blocks the rest of
// the page.
package reconcile

import (
	"fmt"
	"time"

	"github.com/classtrack/portal-api/internal/models"
)

// Input carries the fetched collections for one grading page. Viewer is the
// authenticated user, used as a late fallback for the teacher display name.
type Input struct {
	Assignments []models.Assignment
	Classes     []models.ClassRef
	Submissions []models.Submission
	Violations  []models.Violation
	Viewer      models.Profile
}

// Submissions produces one SubmissionView per input submission, in input
// order.
//
// Per view:
//   - the parent assignment resolves by id, else the submission's own
//     denormalized class fields, else "Class {assignment_id}" placeholders
//   - the teacher name falls through assignment, class, viewer, "Teacher"
//   - violations are the union of the embedded list and the separate list
//     matched on student and assignment, de-duplicated by violation id;
//     zero-id records never count as duplicates
//   - the exposed count prefers the explicit wire count, then the embedded
//     list length, then the matched list length, even when the sources
//     disagree with each other
func Submissions(in Input) []models.SubmissionView {
	assignments := make(map[int64]models.Assignment, len(in.Assignments))
	for _, a := range in.Assignments {
		assignments[a.ID] = a
	}
	classes := make(map[int64]models.ClassRef, len(in.Classes))
	for _, c := range in.Classes {
		classes[c.ID] = c
	}
	byStudent := make(map[int64][]models.Violation)
	for _, v := range in.Violations {
		byStudent[v.StudentID] = append(byStudent[v.StudentID], v)
	}

	views := make([]models.SubmissionView, 0, len(in.Submissions))
	for _, sub := range in.Submissions {
		view := models.SubmissionView{Submission: sub}

		assignment, haveAssignment := assignments[sub.AssignmentID]
		var class models.ClassRef
		var haveClass bool
		if haveAssignment {
			view.AssignmentName = assignment.Name
			view.ClassID = assignment.ClassID
			class, haveClass = classes[assignment.ClassID]
		} else {
			view.AssignmentName = fmt.Sprintf("Assignment %d", sub.AssignmentID)
			view.Placeholder = true
		}

		view.ClassName, view.ClassCode = classContext(sub, assignment, haveAssignment, class, haveClass)
		view.TeacherName = teacherName(assignment, class, in.Viewer)

		matched := matchViolations(byStudent[sub.StudentID], sub.AssignmentID)
		merged := mergeViolations(sub.Violations, matched)
		count := resolveCount(sub.ViolationCount, sub.Violations, matched)

		view.Submission.Violations = merged
		view.Submission.ViolationCount = &count

		views = append(views, view)
	}
	return views
}

// classContext resolves the display name and code for the class a
// submission belongs to, degrading through denormalized fields to
// placeholders keyed by whatever id is still known.
func classContext(sub models.Submission, assignment models.Assignment, haveAssignment bool, class models.ClassRef, haveClass bool) (string, string) {
	if haveClass {
		return class.Name, class.Code
	}

	var name, code string
	if haveAssignment {
		name, code = assignment.ClassName, assignment.ClassCode
	}
	if name == "" {
		name = sub.ClassName
	}
	if code == "" {
		code = sub.ClassCode
	}

	placeholderID := sub.AssignmentID
	if haveAssignment && assignment.ClassID != 0 {
		placeholderID = assignment.ClassID
	}
	if name == "" {
		name = fmt.Sprintf("Class %d", placeholderID)
	}
	if code == "" {
		code = fmt.Sprintf("CODE%d", placeholderID)
	}
	return name, code
}

// teacherName resolves the teacher display name for a view: the
// assignment's embedded name, the class's, the viewer's own, then the
// literal "Teacher".
func teacherName(assignment models.Assignment, class models.ClassRef, viewer models.Profile) string {
	if assignment.TeacherName != "" {
		return assignment.TeacherName
	}
	if class.TeacherName != "" {
		return class.TeacherName
	}
	if own := viewer.DisplayName(); own != "" {
		return own
	}
	return "Teacher"
}

func matchViolations(candidates []models.Violation, assignmentID int64) []models.Violation {
	var matched []models.Violation
	for _, v := range candidates {
		if v.AssignmentID == assignmentID {
			matched = append(matched, v)
		}
	}
	return matched
}

// mergeViolations unions the embedded and matched lists, dropping matched
// records whose id already appeared. Zero-id records are kept
// unconditionally since an absent id proves nothing about identity.
func mergeViolations(embedded, matched []models.Violation) []models.Violation {
	if len(embedded) == 0 && len(matched) == 0 {
		return nil
	}

	merged := make([]models.Violation, 0, len(embedded)+len(matched))
	seen := make(map[int64]struct{}, len(embedded))
	for _, v := range embedded {
		merged = append(merged, v)
		if v.ID != 0 {
			seen[v.ID] = struct{}{}
		}
	}
	for _, v := range matched {
		if v.ID != 0 {
			if _, dup := seen[v.ID]; dup {
				continue
			}
			seen[v.ID] = struct{}{}
		}
		merged = append(merged, v)
	}
	return merged
}

// resolveCount applies the count priority: explicit wire count, embedded
// list length, matched list length. The first present source wins even when
// the sources disagree.
func resolveCount(explicit *int, embedded, matched []models.Violation) int {
	if explicit != nil {
		return *explicit
	}
	if len(embedded) > 0 {
		return len(embedded)
	}
	return len(matched)
}

// Assignments enriches each assignment with class context and the viewer's
// own submission state, for the student assignment list. The submissions
// are the viewer's own across all assignments.
func Assignments(assignments []models.Assignment, classes []models.ClassRef, own []models.Submission, now time.Time) []models.AssignmentView {
	classIndex := make(map[int64]models.ClassRef, len(classes))
	for _, c := range classes {
		classIndex[c.ID] = c
	}
	submitted := make(map[int64]models.Submission, len(own))
	for _, s := range own {
		submitted[s.AssignmentID] = s
	}

	views := make([]models.AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		view := models.AssignmentView{Assignment: a}

		// The embedded assignment may already carry denormalized class
		// fields; the authoritative class record overrides them.
		class, haveClass := classIndex[a.ClassID]
		if haveClass {
			view.ClassName = class.Name
			view.ClassCode = class.Code
		}
		if view.ClassName == "" {
			view.ClassName = fmt.Sprintf("Class %d", a.ClassID)
		}
		if view.ClassCode == "" {
			view.ClassCode = fmt.Sprintf("CODE%d", a.ClassID)
		}
		view.TeacherName = teacherName(a, class, models.Profile{})

		if sub, ok := submitted[a.ID]; ok {
			view.Submitted = true
			at := sub.SubmittedAt
			view.SubmittedAt = &at
			view.Grade = sub.Grade
			view.Graded = sub.IsGraded()
		}
		view.PastDue = a.IsPastDue(now)

		views = append(views, view)
	}
	return views
}

package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/classtrack/portal-api/internal/models"
)

func intPtr(i int) *int { return &i }

func f64Ptr(f float64) *float64 { return &f }

func baseInput() Input {
	return Input{
		Assignments: []models.Assignment{
			{ID: 7, Name: "Essay One", ClassID: 2},
		},
		Classes: []models.ClassRef{
			{ID: 2, Name: "Algebra I", Code: "ALG1", TeacherID: 9, TeacherName: "Ms. Rivera"},
		},
		Submissions: []models.Submission{
			{ID: 11, AssignmentID: 7, StudentID: 3, StudentName: "casey lee"},
		},
		Viewer: models.Profile{Username: "rivera", FirstName: "Dana", LastName: "Rivera", Role: models.RoleTeacher},
	}
}

func TestSubmissions_JoinsAssignmentAndClass(t *testing.T) {
	views := Submissions(baseInput())

	require.Len(t, views, 1)
	v := views[0]
	require.Equal(t, "Essay One", v.AssignmentName)
	require.Equal(t, int64(2), v.ClassID)
	require.Equal(t, "Algebra I", v.ClassName)
	require.Equal(t, "ALG1", v.ClassCode)
	require.False(t, v.Placeholder)
}

func TestSubmissions_MissingAssignmentSynthesizesPlaceholders(t *testing.T) {
	in := baseInput()
	in.Assignments = nil
	in.Classes = nil

	views := Submissions(in)

	require.Len(t, views, 1)
	v := views[0]
	require.Equal(t, "Assignment 7", v.AssignmentName)
	require.Equal(t, "Class 7", v.ClassName)
	require.Equal(t, "CODE7", v.ClassCode)
	require.True(t, v.Placeholder)
}

func TestSubmissions_MissingAssignmentUsesDenormalizedClassFields(t *testing.T) {
	in := baseInput()
	in.Assignments = nil
	in.Classes = nil
	in.Submissions[0].ClassName = "History II"
	in.Submissions[0].ClassCode = "HIS2"

	views := Submissions(in)

	require.Equal(t, "History II", views[0].ClassName)
	require.Equal(t, "HIS2", views[0].ClassCode)
	require.True(t, views[0].Placeholder)
}

func TestSubmissions_MissingClassKeepsAssignmentContext(t *testing.T) {
	in := baseInput()
	in.Classes = nil

	views := Submissions(in)

	v := views[0]
	require.Equal(t, "Essay One", v.AssignmentName)
	require.Equal(t, "Class 2", v.ClassName, "placeholder keys off the known class id")
	require.Equal(t, "CODE2", v.ClassCode)
	require.False(t, v.Placeholder, "assignment resolved, row is not degraded")
}

func TestTeacherName_FallbackChain(t *testing.T) {
	assignment := models.Assignment{TeacherName: "Embedded Teacher"}
	class := models.ClassRef{TeacherName: "Class Teacher"}
	viewer := models.Profile{FirstName: "Dana", LastName: "Rivera"}

	require.Equal(t, "Embedded Teacher", teacherName(assignment, class, viewer))
	require.Equal(t, "Class Teacher", teacherName(models.Assignment{}, class, viewer))
	require.Equal(t, "Dana Rivera", teacherName(models.Assignment{}, models.ClassRef{}, viewer))
	require.Equal(t, "Teacher", teacherName(models.Assignment{}, models.ClassRef{}, models.Profile{}))
}

func TestSubmissions_ViolationCountPriority(t *testing.T) {
	in := baseInput()
	in.Submissions[0].ViolationCount = intPtr(3)
	in.Submissions[0].Violations = []models.Violation{
		{ID: 1, StudentID: 3, AssignmentID: 7, Type: models.ViolationTabSwitch},
	}
	in.Violations = []models.Violation{
		{ID: 2, StudentID: 3, AssignmentID: 7},
		{ID: 3, StudentID: 3, AssignmentID: 7},
		{ID: 4, StudentID: 3, AssignmentID: 7},
		{ID: 5, StudentID: 3, AssignmentID: 7},
		{ID: 6, StudentID: 3, AssignmentID: 7},
	}

	views := Submissions(in)

	// The explicit wire count wins even though it disagrees with both lists.
	require.Equal(t, 3, views[0].ViolationTotal())
}

func TestSubmissions_ViolationCountFallsToEmbeddedThenMatched(t *testing.T) {
	in := baseInput()
	in.Submissions[0].Violations = []models.Violation{
		{ID: 1, StudentID: 3, AssignmentID: 7},
		{ID: 2, StudentID: 3, AssignmentID: 7},
	}
	in.Violations = []models.Violation{
		{ID: 3, StudentID: 3, AssignmentID: 7},
	}

	views := Submissions(in)
	require.Equal(t, 2, views[0].ViolationTotal())

	in.Submissions[0].Violations = nil
	views = Submissions(in)
	require.Equal(t, 1, views[0].ViolationTotal())
}

func TestSubmissions_ViolationUnionDeduplicatesById(t *testing.T) {
	in := baseInput()
	in.Submissions[0].Violations = []models.Violation{
		{ID: 5, StudentID: 3, AssignmentID: 7, Type: models.ViolationTabSwitch},
	}
	in.Violations = []models.Violation{
		{ID: 5, StudentID: 3, AssignmentID: 7, Type: models.ViolationTabSwitch},
		{ID: 6, StudentID: 3, AssignmentID: 7, Type: models.ViolationPasteDetected},
	}

	views := Submissions(in)

	require.Len(t, views[0].Violations, 2)
	require.Equal(t, int64(5), views[0].Violations[0].ID)
	require.Equal(t, int64(6), views[0].Violations[1].ID)
}

func TestSubmissions_ZeroIdViolationsNeverDeduplicate(t *testing.T) {
	in := baseInput()
	in.Submissions[0].Violations = []models.Violation{
		{StudentID: 3, AssignmentID: 7, Type: models.ViolationTabSwitch},
	}
	in.Violations = []models.Violation{
		{StudentID: 3, AssignmentID: 7, Type: models.ViolationTabSwitch},
		{StudentID: 3, AssignmentID: 7, Type: models.ViolationAppSwitch},
	}

	views := Submissions(in)

	require.Len(t, views[0].Violations, 3, "identical-looking zero-id records all survive")
}

func TestSubmissions_ViolationsMatchOnStudentAndAssignment(t *testing.T) {
	in := baseInput()
	in.Violations = []models.Violation{
		{ID: 1, StudentID: 3, AssignmentID: 7},
		{ID: 2, StudentID: 3, AssignmentID: 99},
		{ID: 3, StudentID: 4, AssignmentID: 7},
	}

	views := Submissions(in)

	require.Len(t, views[0].Violations, 1)
	require.Equal(t, int64(1), views[0].Violations[0].ID)
}

func TestSubmissions_PreservesInputOrder(t *testing.T) {
	in := baseInput()
	in.Submissions = []models.Submission{
		{ID: 31, AssignmentID: 7, StudentID: 1},
		{ID: 12, AssignmentID: 7, StudentID: 2},
		{ID: 25, AssignmentID: 7, StudentID: 3},
	}

	views := Submissions(in)

	require.Equal(t, int64(31), views[0].ID)
	require.Equal(t, int64(12), views[1].ID)
	require.Equal(t, int64(25), views[2].ID)
}

func TestAssignments_EnrichesWithOwnSubmissionState(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-24 * time.Hour)

	assignments := []models.Assignment{
		{ID: 7, Name: "Essay One", ClassID: 2, DueDate: &due},
		{ID: 8, Name: "Essay Two", ClassID: 2},
	}
	classes := []models.ClassRef{
		{ID: 2, Name: "Algebra I", Code: "ALG1", TeacherName: "Ms. Rivera"},
	}
	own := []models.Submission{
		{ID: 11, AssignmentID: 7, StudentID: 3, Grade: f64Ptr(91), SubmittedAt: now.Add(-48 * time.Hour)},
	}

	views := Assignments(assignments, classes, own, now)

	require.Len(t, views, 2)

	require.True(t, views[0].Submitted)
	require.True(t, views[0].Graded)
	require.NotNil(t, views[0].Grade)
	require.True(t, views[0].PastDue)
	require.Equal(t, "Algebra I", views[0].ClassName)
	require.Equal(t, "Ms. Rivera", views[0].TeacherName)

	require.False(t, views[1].Submitted)
	require.False(t, views[1].PastDue, "no due date means never past due")
}

func TestAssignments_MissingClassSynthesizesPlaceholder(t *testing.T) {
	views := Assignments([]models.Assignment{{ID: 7, ClassID: 4}}, nil, nil, time.Now())

	require.Equal(t, "Class 4", views[0].ClassName)
	require.Equal(t, "CODE4", views[0].ClassCode)
	require.Equal(t, "Teacher", views[0].TeacherName)
}

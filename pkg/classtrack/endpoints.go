package classtrack

import (
	"context"
	"fmt"
	"net/http"
)

// Route templates, used both to build paths and as low-cardinality metric
// labels.
const (
	routeMe                        = "/users/me"
	routeStudentClasses            = "/students/me/classes"
	routeStudentAssignments        = "/students/me/assignments"
	routeStudentSubmissions        = "/students/me/submissions"
	routeTeacherClasses            = "/teachers/me/classes"
	routeTeacherAssignments        = "/assignments/teacher/"
	routeClasses                   = "/classes/"
	routeClass                     = "/classes/{id}"
	routeAssignment                = "/assignments/{id}"
	routeClassRoster               = "/teachers/me/classes/{id}/roster"
	routeSubmissions               = "/assignments/{id}/submissions"
	routeSubmissionsWithViolations = "/assignments/{id}/submissions-with-violations"
	routeAssignmentViolations      = "/assignments/{id}/violations"
	routeGradeSubmission           = "/submissions/{id}/grade"
	routeUserCount                 = "/metrics/users/count"
	routeClassCount                = "/metrics/classes/count"
	routeSchedules                 = "/schedules/"
	routeLiveSchedules             = "/schedules/live"
	routeAnnouncements             = "/announcements/"
	routeLiveAnnouncements         = "/announcements/live"
)

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context, token string) (UserRecord, error) {
	var out UserRecord
	err := c.do(ctx, token, request{method: http.MethodGet, route: routeMe, path: routeMe}, &out)
	return out, err
}

// StudentClasses fetches the classes the authenticated student is enrolled in.
func (c *Client) StudentClasses(ctx context.Context, token string) ([]ClassRecord, error) {
	var out []ClassRecord
	err := c.do(ctx, token, request{method: http.MethodGet, route: routeStudentClasses, path: routeStudentClasses}, &out)
	return out, err
}

// TeacherClasses fetches the authenticated teacher's classes with aggregate
// metrics.
func (c *Client) TeacherClasses(ctx context.Context, token string) (TeacherClassesRecord, error) {
	var out TeacherClassesRecord
	err := c.do(ctx, token, request{method: http.MethodGet, route: routeTeacherClasses, path: routeTeacherClasses}, &out)
	return out, err
}

// Classes fetches all classes. Used as the lookup source when enriching
// assignments with class and teacher display data.
func (c *Client) Classes(ctx context.Context, token string) ([]ClassRecord, error) {
	var out []ClassRecord
	err := c.do(ctx, token, request{method: http.MethodGet, route: routeClasses, path: routeClasses}, &out)
	return out, err
}

// Class fetches one class by id.
func (c *Client) Class(ctx context.Context, token string, id int64) (ClassRecord, error) {
	var out ClassRecord
	err := c.do(ctx, token, request{
		method: http.MethodGet,
		route:  routeClass,
		path:   fmt.Sprintf("/classes/%d", id),
	}, &out)
	return out, err
}

// StudentAssignments fetches the authenticated student's assignments across
// all enrolled classes.
func (c *Client) StudentAssignments(ctx context.Context, token string) ([]AssignmentRecord, error) {
	var out []AssignmentRecord
	err := c.do(ctx, token, request{method: http.MethodGet, route: routeStudentAssignments, path: routeStudentAssignments}, &out)
	return out, err
}

// StudentSubmissions fetches the authenticated student's own submissions.
// The response is a lean shape: only ids, grade, time spent and submitted_at.
func (c *Client) StudentSubmissions(ctx context.Context, token string) ([]SubmissionRecord, error) {
	var out []SubmissionRecord
	err := c.do(ctx, token, request{method: http.MethodGet, route: routeStudentSubmissions, path: routeStudentSubmissions}, &out)
	return out, err
}

// TeacherAssignments fetches the assignments the authenticated teacher
// created.
func (c *Client) TeacherAssignments(ctx context.Context, token string) ([]AssignmentRecord, error) {
	var out []AssignmentRecord
	err := c.do(ctx, token, request{method: http.MethodGet, route: routeTeacherAssignments, path: routeTeacherAssignments}, &out)
	return out, err
}

// Assignment fetches one assignment by id.
func (c *Client) Assignment(ctx context.Context, token string, id int64) (AssignmentRecord, error) {
	var out AssignmentRecord
	err := c.do(ctx, token, request{
		method: http.MethodGet,
		route:  routeAssignment,
		path:   fmt.Sprintf("/assignments/%d", id),
	}, &out)
	return out, err
}

// ClassRoster fetches the students enrolled in one of the authenticated
// teacher's classes.
func (c *Client) ClassRoster(ctx context.Context, token string, classID int64) ([]RosterEntryRecord, error) {
	var out []RosterEntryRecord
	err := c.do(ctx, token, request{
		method: http.MethodGet,
		route:  routeClassRoster,
		path:   fmt.Sprintf("/teachers/me/classes/%d/roster", classID),
	}, &out)
	return out, err
}

// Submissions fetches all submissions for an assignment.
func (c *Client) Submissions(ctx context.Context, token string, assignmentID int64) ([]SubmissionRecord, error) {
	var out []SubmissionRecord
	err := c.do(ctx, token, request{
		method: http.MethodGet,
		route:  routeSubmissions,
		path:   fmt.Sprintf("/assignments/%d/submissions", assignmentID),
	}, &out)
	return out, err
}

// SubmissionsWithViolations fetches the alternate submissions shape that
// carries violations inline. Serves as the fallback when Submissions fails.
func (c *Client) SubmissionsWithViolations(ctx context.Context, token string, assignmentID int64) ([]SubmissionWithViolationsRecord, error) {
	var out []SubmissionWithViolationsRecord
	err := c.do(ctx, token, request{
		method: http.MethodGet,
		route:  routeSubmissionsWithViolations,
		path:   fmt.Sprintf("/assignments/%d/submissions-with-violations", assignmentID),
	}, &out)
	return out, err
}

// AssignmentViolations fetches the integrity violations recorded for an
// assignment.
func (c *Client) AssignmentViolations(ctx context.Context, token string, assignmentID int64) ([]ViolationRecord, error) {
	var out []ViolationRecord
	err := c.do(ctx, token, request{
		method: http.MethodGet,
		route:  routeAssignmentViolations,
		path:   fmt.Sprintf("/assignments/%d/violations", assignmentID),
	}, &out)
	return out, err
}

// GradeSubmission sends a grade and feedback update for a submission and
// returns the updated record.
func (c *Client) GradeSubmission(ctx context.Context, token string, submissionID int64, update GradeUpdate) (SubmissionRecord, error) {
	var out SubmissionRecord
	err := c.do(ctx, token, request{
		method: http.MethodPatch,
		route:  routeGradeSubmission,
		path:   fmt.Sprintf("/submissions/%d/grade", submissionID),
		body:   update,
	}, &out)
	return out, err
}

// UserCount fetches the total number of registered users.
func (c *Client) UserCount(ctx context.Context, token string) (int64, error) {
	var out CountRecord
	err := c.do(ctx, token, request{method: http.MethodGet, route: routeUserCount, path: routeUserCount}, &out)
	return out.Count, err
}

// ClassCount fetches the total number of classes.
func (c *Client) ClassCount(ctx context.Context, token string) (int64, error) {
	var out CountRecord
	err := c.do(ctx, token, request{method: http.MethodGet, route: routeClassCount, path: routeClassCount}, &out)
	return out.Count, err
}

// Schedules fetches all schedule entries.
func (c *Client) Schedules(ctx context.Context, token string) ([]ScheduleRecord, error) {
	var out []ScheduleRecord
	err := c.do(ctx, token, request{method: http.MethodGet, route: routeSchedules, path: routeSchedules}, &out)
	return out, err
}

// LiveSchedules fetches the public, enriched schedule feed.
func (c *Client) LiveSchedules(ctx context.Context) ([]ScheduleRecord, error) {
	var out []ScheduleRecord
	err := c.do(ctx, "", request{method: http.MethodGet, route: routeLiveSchedules, path: routeLiveSchedules}, &out)
	return out, err
}

// CreateSchedule creates a schedule entry and returns the stored record.
func (c *Client) CreateSchedule(ctx context.Context, token string, create ScheduleCreate) (ScheduleRecord, error) {
	var out ScheduleRecord
	err := c.do(ctx, token, request{
		method: http.MethodPost,
		route:  routeSchedules,
		path:   routeSchedules,
		body:   create,
	}, &out)
	return out, err
}

// Announcements fetches all announcements.
func (c *Client) Announcements(ctx context.Context, token string) ([]AnnouncementRecord, error) {
	var out []AnnouncementRecord
	err := c.do(ctx, token, request{method: http.MethodGet, route: routeAnnouncements, path: routeAnnouncements}, &out)
	return out, err
}

// LiveAnnouncements fetches the public announcement feed.
func (c *Client) LiveAnnouncements(ctx context.Context) ([]AnnouncementRecord, error) {
	var out []AnnouncementRecord
	err := c.do(ctx, "", request{method: http.MethodGet, route: routeLiveAnnouncements, path: routeLiveAnnouncements}, &out)
	return out, err
}

// CreateAnnouncement creates an announcement and returns the stored record.
func (c *Client) CreateAnnouncement(ctx context.Context, token string, create AnnouncementCreate) (AnnouncementRecord, error) {
	var out AnnouncementRecord
	err := c.do(ctx, token, request{
		method: http.MethodPost,
		route:  routeAnnouncements,
		path:   routeAnnouncements,
		body:   create,
	}, &out)
	return out, err
}

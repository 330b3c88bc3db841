// Package normalize converts raw ClassTrack wire records into fully
// populated domain models. Every optional field gets a deterministic
// fallback, so normalization is total: it never fails, whatever the
// upstream sends.
//
// Fallbacks, per field class:
//   - display names:  "{Kind} {id}"  (e.g. "Class 7", "Assignment 12")
//   - class codes:    "CODE{id}"
//   - timestamps:     the current wall-clock time at normalization
//   - counters:       zero
//
// The timestamp fallback fabricates recency. Derived values must therefore
// never treat a normalized creation time as evidence the record is new;
// recency logic keys off due dates, which stay nil when absent.
package normalize

import (
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/classtrack/portal-api/internal/models"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

// Upstream timestamps are datetime.isoformat() output: RFC 3339 when the
// value carries a zone, bare "2006-01-02T15:04:05[.ffffff]" when naive.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Normalizer fills in missing fields on upstream records and strips any
// HTML from free-text fields before they reach a page.
type Normalizer struct {
	now      func() time.Time
	sanitize *bluemonday.Policy
}

// New builds a Normalizer using the system clock.
func New() *Normalizer {
	return &Normalizer{
		now:      time.Now,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// Class normalizes one class record.
func (n *Normalizer) Class(rec classtrack.ClassRecord) models.ClassRef {
	return models.ClassRef{
		ID:          rec.ID,
		Name:        n.name("Class", rec.ID, rec.Name),
		Code:        n.code(rec.ID, rec.Code),
		TeacherID:   int64Or(rec.TeacherID, 0),
		TeacherName: n.text(rec.TeacherName),
		Description: n.text(rec.Description),
		CreatedAt:   n.timestamp(rec.CreatedAt),
	}
}

// Classes normalizes a class list, preserving order.
func (n *Normalizer) Classes(recs []classtrack.ClassRecord) []models.ClassRef {
	out := make([]models.ClassRef, 0, len(recs))
	for _, rec := range recs {
		out = append(out, n.Class(rec))
	}
	return out
}

// Assignment normalizes one assignment record.
func (n *Normalizer) Assignment(rec classtrack.AssignmentRecord) models.Assignment {
	return models.Assignment{
		ID:          rec.ID,
		Name:        n.name("Assignment", rec.ID, rec.Name),
		Description: n.text(rec.Description),
		ClassID:     int64Or(rec.ClassID, 0),
		CreatorID:   int64Or(rec.CreatorID, 0),
		CreatedAt:   n.timestamp(rec.CreatedAt),
		DueDate:     n.optionalTimestamp(rec.DueDate),
		ClassName:   n.text(rec.ClassName),
		ClassCode:   n.text(rec.ClassCode),
		TeacherName: n.text(rec.TeacherName),
	}
}

// Assignments normalizes an assignment list, preserving order.
func (n *Normalizer) Assignments(recs []classtrack.AssignmentRecord) []models.Assignment {
	out := make([]models.Assignment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, n.Assignment(rec))
	}
	return out
}

// Submission normalizes one submission record. The violation count pointer
// is carried through untouched: its presence or absence drives the
// reconciler's count resolution.
func (n *Normalizer) Submission(rec classtrack.SubmissionRecord) models.Submission {
	return models.Submission{
		ID:               rec.ID,
		AssignmentID:     rec.AssignmentID,
		StudentID:        rec.StudentID,
		StudentName:      n.name("Student", rec.StudentID, rec.StudentName),
		StudentEmail:     n.text(rec.StudentEmail),
		Content:          n.text(rec.Content),
		FileName:         n.text(rec.FileName),
		LinkURL:          n.text(rec.LinkURL),
		Grade:            rec.Grade,
		Feedback:         n.optionalText(rec.Feedback),
		TimeSpentMinutes: intOr(rec.TimeSpentMinutes, 0),
		SubmittedAt:      n.timestamp(rec.SubmittedAt),
		ClassName:        n.text(rec.ClassName),
		ClassCode:        n.text(rec.ClassCode),
		ViolationCount:   rec.ViolationsCount,
		Violations:       n.Violations(rec.Violations),
	}
}

// Submissions normalizes a submission list, preserving order.
func (n *Normalizer) Submissions(recs []classtrack.SubmissionRecord) []models.Submission {
	out := make([]models.Submission, 0, len(recs))
	for _, rec := range recs {
		out = append(out, n.Submission(rec))
	}
	return out
}

// SubmissionFromAlternate normalizes one entry of the alternate
// submissions-with-violations shape. The assignment id comes from the
// request path since the shape omits it.
func (n *Normalizer) SubmissionFromAlternate(assignmentID int64, rec classtrack.SubmissionWithViolationsRecord) models.Submission {
	return models.Submission{
		ID:               rec.SubmissionID,
		AssignmentID:     assignmentID,
		StudentID:        rec.StudentID,
		StudentName:      n.name("Student", rec.StudentID, rec.StudentName),
		Grade:            rec.Grade,
		TimeSpentMinutes: intOr(rec.TimeSpentMinutes, 0),
		SubmittedAt:      n.timestamp(rec.SubmittedAt),
		ViolationCount:   rec.ViolationCount,
		Violations:       n.Violations(rec.Violations),
	}
}

// SubmissionsFromAlternate normalizes the alternate list shape.
func (n *Normalizer) SubmissionsFromAlternate(assignmentID int64, recs []classtrack.SubmissionWithViolationsRecord) []models.Submission {
	out := make([]models.Submission, 0, len(recs))
	for _, rec := range recs {
		out = append(out, n.SubmissionFromAlternate(assignmentID, rec))
	}
	return out
}

// Violation normalizes one violation record. Records without an id keep id
// zero; the reconciler never treats zero-id violations as duplicates of one
// another.
func (n *Normalizer) Violation(rec classtrack.ViolationRecord) models.Violation {
	return models.Violation{
		ID:              int64Or(rec.ID, 0),
		StudentID:       rec.StudentID,
		AssignmentID:    rec.AssignmentID,
		Type:            models.NormalizeViolationType(stringOr(rec.ViolationType, "")),
		Description:     n.text(rec.Description),
		DetectedAt:      n.timestamp(rec.DetectedAt),
		TimeAwaySeconds: rec.TimeAwaySeconds,
		Severity:        models.NormalizeSeverity(stringOr(rec.Severity, "")),
		ContentAdded:    rec.ContentAddedDuringAbsence,
		AISimilarity:    rec.AISimilarityScore,
		PasteLength:     rec.PasteContentLength,
	}
}

// Violations normalizes a violation list, preserving order.
func (n *Normalizer) Violations(recs []classtrack.ViolationRecord) []models.Violation {
	if len(recs) == 0 {
		return nil
	}
	out := make([]models.Violation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, n.Violation(rec))
	}
	return out
}

// RosterEntry normalizes one roster row, composing the display name from
// whatever name parts are present.
func (n *Normalizer) RosterEntry(rec classtrack.RosterEntryRecord) models.RosterEntry {
	name := composeName(stringOr(rec.FirstName, ""), stringOr(rec.LastName, ""), rec.Username)
	if name == "" {
		name = fmt.Sprintf("Student %d", rec.ID)
	}
	return models.RosterEntry{
		ID:         rec.ID,
		Name:       n.sanitize.Sanitize(name),
		Email:      stringOr(rec.Email, rec.Username),
		EnrolledAt: n.timestamp(rec.EnrolledAt),
	}
}

// Roster normalizes a roster list, preserving order.
func (n *Normalizer) Roster(recs []classtrack.RosterEntryRecord) []models.RosterEntry {
	out := make([]models.RosterEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, n.RosterEntry(rec))
	}
	return out
}

// Profile normalizes the authenticated user's record.
func (n *Normalizer) Profile(rec classtrack.UserRecord) models.Profile {
	return models.Profile{
		ID:        rec.ID,
		Username:  rec.Username,
		Email:     rec.Email,
		FirstName: n.text(rec.FirstName),
		LastName:  n.text(rec.LastName),
		Role:      rec.Role,
	}
}

// Schedule normalizes one schedule record.
func (n *Normalizer) Schedule(rec classtrack.ScheduleRecord) models.Schedule {
	teacher := stringOr(rec.TeacherFullName, "")
	if teacher == "" {
		teacher = stringOr(rec.TeacherName, "")
	}
	return models.Schedule{
		ID:          rec.ID,
		ClassID:     rec.ClassID,
		ClassName:   n.text(rec.ClassName),
		ClassCode:   n.text(rec.ClassCode),
		TeacherName: n.sanitize.Sanitize(teacher),
		RoomNumber:  n.text(rec.RoomNumber),
		StartTime:   n.timestamp(rec.StartTime),
		EndTime:     n.timestamp(rec.EndTime),
		Status:      stringOr(rec.Status, models.RoomOccupied),
	}
}

// Schedules normalizes a schedule list, preserving order.
func (n *Normalizer) Schedules(recs []classtrack.ScheduleRecord) []models.Schedule {
	out := make([]models.Schedule, 0, len(recs))
	for _, rec := range recs {
		out = append(out, n.Schedule(rec))
	}
	return out
}

// Announcement normalizes one announcement record.
func (n *Normalizer) Announcement(rec classtrack.AnnouncementRecord) models.Announcement {
	return models.Announcement{
		ID:         rec.ID,
		Title:      n.text(rec.Title),
		Content:    n.text(rec.Content),
		IsUrgent:   boolOr(rec.IsUrgent, false),
		DatePosted: n.timestamp(rec.DatePosted),
	}
}

// Announcements normalizes an announcement list, preserving order.
func (n *Normalizer) Announcements(recs []classtrack.AnnouncementRecord) []models.Announcement {
	out := make([]models.Announcement, 0, len(recs))
	for _, rec := range recs {
		out = append(out, n.Announcement(rec))
	}
	return out
}

func (n *Normalizer) name(kind string, id int64, value *string) string {
	if value == nil || *value == "" {
		return fmt.Sprintf("%s %d", kind, id)
	}
	return n.sanitize.Sanitize(*value)
}

func (n *Normalizer) code(id int64, value *string) string {
	if value == nil || *value == "" {
		return fmt.Sprintf("CODE%d", id)
	}
	return n.sanitize.Sanitize(*value)
}

func (n *Normalizer) text(value *string) string {
	if value == nil {
		return ""
	}
	return n.sanitize.Sanitize(*value)
}

func (n *Normalizer) optionalText(value *string) *string {
	if value == nil {
		return nil
	}
	clean := n.sanitize.Sanitize(*value)
	return &clean
}

func (n *Normalizer) timestamp(value *string) time.Time {
	if t, ok := parseTime(value); ok {
		return t
	}
	return n.now()
}

func (n *Normalizer) optionalTimestamp(value *string) *time.Time {
	if t, ok := parseTime(value); ok {
		return &t
	}
	return nil
}

func parseTime(value *string) (time.Time, bool) {
	if value == nil || *value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, *value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func composeName(first, last, username string) string {
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return username
	}
}

func stringOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}

func intOr(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

func int64Or(value *int64, fallback int64) int64 {
	if value == nil {
		return fallback
	}
	return *value
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

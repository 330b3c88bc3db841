package models

import "time"

// Assignment is a normalized assignment record. ClassName, ClassCode and
// TeacherName are carried when the upstream response embedded them; the
// reconciler prefers the authoritative class lookup and falls back to these.
type Assignment struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ClassID     int64      `json:"class_id"`
	CreatorID   int64      `json:"creator_id"`
	CreatedAt   time.Time  `json:"created_at"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	ClassName   string     `json:"class_name,omitempty"`
	ClassCode   string     `json:"class_code,omitempty"`
	TeacherName string     `json:"teacher_name,omitempty"`
}

// IsPastDue reports whether the assignment deadline has already passed.
// Assignments without a due date are never past due.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}

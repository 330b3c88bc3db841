package models

import "time"

// ClassRef is a normalized class record used to enrich assignments and
// submissions with class and teacher display data.
type ClassRef struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	TeacherID   int64     `json:"teacher_id"`
	TeacherName string    `json:"teacher_name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// RosterEntry is one enrolled student on a class roster.
type RosterEntry struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

package models

import "time"

// Room statuses accepted by the scheduling endpoints.
const (
	RoomOccupied      = "Occupied"
	RoomClean         = "Clean"
	RoomNeedsCleaning = "Needs Cleaning"
)

// Schedule is a room reservation entry from the scheduling board. Class and
// teacher display fields are filled from the live enriched feed when present.
type Schedule struct {
	ID          int64     `json:"id"`
	ClassID     int64     `json:"class_id"`
	ClassName   string    `json:"class_name,omitempty"`
	ClassCode   string    `json:"class_code,omitempty"`
	TeacherName string    `json:"teacher_name,omitempty"`
	RoomNumber  string    `json:"room_number"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
}

// Announcement is a campus-wide notice shown on dashboards.
type Announcement struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	IsUrgent   bool      `json:"is_urgent"`
	DatePosted time.Time `json:"date_posted"`
}

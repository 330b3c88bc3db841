package dto

import (
	"time"

	"github.com/classtrack/portal-api/internal/models"
)

// ScheduleCreateRequest captures a new room reservation. Times are RFC3339;
// the end must come after the start.
type ScheduleCreateRequest struct {
	ClassID    int64     `json:"class_id" validate:"required,gt=0"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	RoomNumber string    `json:"room_number" validate:"required,min=1,max=50"`
	Status     string    `json:"status" validate:"required,oneof=Occupied Clean 'Needs Cleaning'"`
}

// AnnouncementCreateRequest captures a new campus announcement.
type AnnouncementCreateRequest struct {
	Title    string `json:"title" validate:"required,min=3,max=200"`
	Content  string `json:"content" validate:"required,min=3,max=5000"`
	IsUrgent bool   `json:"is_urgent"`
}

// ScheduleResponse serializes a room reservation entry.
type ScheduleResponse struct {
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

// AnnouncementResponse serializes a campus announcement.
type AnnouncementResponse struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	IsUrgent   bool      `json:"is_urgent"`
	DatePosted time.Time `json:"date_posted"`
}

// AdminDashboardResponse aggregates the admin landing page.
type AdminDashboardResponse struct {
	TotalUsers    int                    `json:"total_users"`
	TotalClasses  int                    `json:"total_classes"`
	Schedules     []ScheduleResponse     `json:"schedules"`
	Announcements []AnnouncementResponse `json:"announcements"`
	GeneratedAt   time.Time              `json:"generated_at"`
	CacheHit      bool                   `json:"cache_hit"`
}

// LiveBoardResponse carries the live schedule and announcement feeds.
type LiveBoardResponse struct {
	Schedules     []ScheduleResponse     `json:"schedules"`
	Announcements []AnnouncementResponse `json:"announcements"`
	AsOf          time.Time              `json:"as_of"`
}

// NewScheduleResponse converts a schedule model into a DTO.
func NewScheduleResponse(schedule models.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:          schedule.ID,
		ClassID:     schedule.ClassID,
		ClassName:   schedule.ClassName,
		ClassCode:   schedule.ClassCode,
		TeacherName: schedule.TeacherName,
		RoomNumber:  schedule.RoomNumber,
		StartTime:   schedule.StartTime,
		EndTime:     schedule.EndTime,
		Status:      schedule.Status,
	}
}

// NewScheduleResponseSlice converts schedule models into DTOs.
func NewScheduleResponseSlice(schedules []models.Schedule) []ScheduleResponse {
	responses := make([]ScheduleResponse, 0, len(schedules))
	for _, schedule := range schedules {
		responses = append(responses, NewScheduleResponse(schedule))
	}

	return responses
}

// NewAnnouncementResponse converts an announcement model into a DTO.
func NewAnnouncementResponse(announcement models.Announcement) AnnouncementResponse {
	return AnnouncementResponse{
		ID:         announcement.ID,
		Title:      announcement.Title,
		Content:    announcement.Content,
		IsUrgent:   announcement.IsUrgent,
		DatePosted: announcement.DatePosted,
	}
}

// NewAnnouncementResponseSlice converts announcement models into DTOs.
func NewAnnouncementResponseSlice(announcements []models.Announcement) []AnnouncementResponse {
	responses := make([]AnnouncementResponse, 0, len(announcements))
	for _, announcement := range announcements {
		responses = append(responses, NewAnnouncementResponse(announcement))
	}

	return responses
}

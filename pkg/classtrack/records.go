package classtrack

// Raw wire records as the ClassTrack API returns them. Optional fields are
// pointers so absence survives decoding; the normalize package is the only
// consumer that should reason about nil here.

// UserRecord mirrors the /users/me response.
type UserRecord struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      string  `json:"role"`
}

// ClassRecord mirrors class list and detail responses.
type ClassRecord struct {
	ID           int64   `json:"id"`
	Name         *string `json:"name"`
	Code         *string `json:"code"`
	TeacherID    *int64  `json:"teacher_id"`
	TeacherName  *string `json:"teacher_name"`
	Description  *string `json:"description"`
	CreatedAt    *string `json:"created_at"`
	StudentCount *int    `json:"student_count"`
}

// TeacherClassesRecord mirrors the teacher classes response, which wraps the
// class list together with aggregate metrics.
type TeacherClassesRecord struct {
	Classes []ClassRecord `json:"classes"`
	Metrics struct {
		TotalClasses  int `json:"total_classes"`
		TotalStudents int `json:"total_students"`
	} `json:"metrics"`
}

// AssignmentRecord mirrors assignment list and detail responses. Class and
// teacher display fields are only present on some endpoints.
type AssignmentRecord struct {
	ID          int64   `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ClassID     *int64  `json:"class_id"`
	CreatorID   *int64  `json:"creator_id"`
	CreatedAt   *string `json:"created_at"`
	DueDate     *string `json:"due_date"`
	ClassName   *string `json:"class_name"`
	ClassCode   *string `json:"class_code"`
	TeacherName *string `json:"teacher_name"`
}

// SubmissionRecord mirrors the assignment submissions response.
type SubmissionRecord struct {
	ID               int64             `json:"id"`
	AssignmentID     int64             `json:"assignment_id"`
	StudentID        int64             `json:"student_id"`
	StudentName      *string           `json:"student_name"`
	StudentEmail     *string           `json:"student_email"`
	Content          *string           `json:"content"`
	FilePath         *string           `json:"file_path"`
	FileName         *string           `json:"file_name"`
	Grade            *float64          `json:"grade"`
	Feedback         *string           `json:"feedback"`
	TimeSpentMinutes *int              `json:"time_spent_minutes"`
	SubmittedAt      *string           `json:"submitted_at"`
	IsGraded         *bool             `json:"is_graded"`
	LinkURL          *string           `json:"link_url"`
	ClassName        *string           `json:"class_name"`
	ClassCode        *string           `json:"class_code"`
	ViolationsCount  *int              `json:"violations_count"`
	Violations       []ViolationRecord `json:"violations"`
}

// SubmissionWithViolationsRecord mirrors the alternate
// submissions-with-violations response. The shape is narrower than
// SubmissionRecord and renames the identity and count fields.
type SubmissionWithViolationsRecord struct {
	SubmissionID     int64             `json:"submission_id"`
	StudentID        int64             `json:"student_id"`
	StudentName      *string           `json:"student_name"`
	Grade            *float64          `json:"grade"`
	TimeSpentMinutes *int              `json:"time_spent_minutes"`
	SubmittedAt      *string           `json:"submitted_at"`
	IsGraded         *bool             `json:"is_graded"`
	ViolationCount   *int              `json:"violation_count"`
	Violations       []ViolationRecord `json:"violations"`
}

// ViolationRecord mirrors violation entries wherever they appear.
type ViolationRecord struct {
	ID                        *int64   `json:"id"`
	StudentID                 int64    `json:"student_id"`
	AssignmentID              int64    `json:"assignment_id"`
	ViolationType             *string  `json:"violation_type"`
	Description               *string  `json:"description"`
	DetectedAt                *string  `json:"detected_at"`
	TimeAwaySeconds           *float64 `json:"time_away_seconds"`
	Severity                  *string  `json:"severity"`
	ContentAddedDuringAbsence *int     `json:"content_added_during_absence"`
	AISimilarityScore         *float64 `json:"ai_similarity_score"`
	PasteContentLength        *int     `json:"paste_content_length"`
}

// RosterEntryRecord mirrors one row of the class roster response.
type RosterEntryRecord struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Email      *string `json:"email"`
	EnrolledAt *string `json:"enrolled_at"`
}

// ScheduleRecord mirrors the schedules responses. The live variant enriches
// entries with class and teacher display fields.
type ScheduleRecord struct {
	ID              int64   `json:"id"`
	ClassID         int64   `json:"class_id"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	RoomNumber      *string `json:"room_number"`
	Status          *string `json:"status"`
	ClassName       *string `json:"class_name"`
	ClassCode       *string `json:"class_code"`
	TeacherName     *string `json:"teacher_name"`
	TeacherFullName *string `json:"teacher_full_name"`
}

// AnnouncementRecord mirrors the announcements responses.
type AnnouncementRecord struct {
	ID         int64   `json:"id"`
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	IsUrgent   *bool   `json:"is_urgent"`
	DatePosted *string `json:"date_posted"`
}

// CountRecord mirrors the /metrics/*/count responses.
type CountRecord struct {
	Count int64 `json:"count"`
}

// GradeUpdate is the request body for the grade mutation endpoint.
type GradeUpdate struct {
	Grade    float64 `json:"grade"`
	Feedback string  `json:"feedback"`
}

// ScheduleCreate is the request body for creating a schedule entry.
type ScheduleCreate struct {
	ClassID    int64  `json:"class_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	RoomNumber string `json:"room_number"`
	Status     string `json:"status"`
}

// AnnouncementCreate is the request body for creating an announcement.
type AnnouncementCreate struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsUrgent bool   `json:"is_urgent"`
}

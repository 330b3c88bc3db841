package models

import "time"

// ViolationType is the closed set of integrity violation categories the
// portal understands. Unrecognized upstream values map to
// ViolationSuspicious so new categories degrade instead of disappearing.
type ViolationType string

const (
	ViolationTabSwitch         ViolationType = "tab_switch"
	ViolationAppSwitch         ViolationType = "app_switch"
	ViolationRapidCompletion   ViolationType = "rapid_completion"
	ViolationPasteDetected     ViolationType = "paste_detected"
	ViolationSuspicious        ViolationType = "suspicious_activity"
	ViolationExcessiveInactive ViolationType = "excessive_inactivity"
	ViolationAIContentDetected ViolationType = "ai_content_detected"
)

// NormalizeViolationType coerces an upstream type string into the closed set.
func NormalizeViolationType(raw string) ViolationType {
	switch ViolationType(raw) {
	case ViolationTabSwitch, ViolationAppSwitch, ViolationRapidCompletion,
		ViolationPasteDetected, ViolationSuspicious,
		ViolationExcessiveInactive, ViolationAIContentDetected:
		return ViolationType(raw)
	default:
		return ViolationSuspicious
	}
}

// Severity levels attached to violations. Unknown values default to medium.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// NormalizeSeverity coerces an upstream severity string, defaulting to medium.
func NormalizeSeverity(raw string) Severity {
	switch Severity(raw) {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return Severity(raw)
	default:
		return SeverityMedium
	}
}

// Violation is a normalized academic-integrity event attached to a
// submission or assignment.
type Violation struct {
	ID              int64         `json:"id"`
	StudentID       int64         `json:"student_id"`
	AssignmentID    int64         `json:"assignment_id"`
	Type            ViolationType `json:"violation_type"`
	Description     string        `json:"description"`
	DetectedAt      time.Time     `json:"detected_at"`
	TimeAwaySeconds *float64      `json:"time_away_seconds,omitempty"`
	Severity        Severity      `json:"severity"`
	ContentAdded    *int          `json:"content_added_during_absence,omitempty"`
	AISimilarity    *float64      `json:"ai_similarity_score,omitempty"`
	PasteLength     *int          `json:"paste_content_length,omitempty"`
}

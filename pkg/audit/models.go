package audit

import "time"

// Outcomes recorded on audit events.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailure  = "failure"
)

// Event is the GORM model for one audited search request.
type Event struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Actor      string    `gorm:"column:actor;index:idx_audit_actor_time,priority:1;not null"`
	RequestID  string    `gorm:"column:request_id"`
	Method     string    `gorm:"column:method;not null"`
	Path       string    `gorm:"column:path;not null"`
	StatusCode int       `gorm:"column:status_code;not null"`
	Outcome    string    `gorm:"column:outcome;index:idx_audit_outcome_time,priority:1;not null"`
	DurationMs int64     `gorm:"column:duration_ms;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;index:idx_audit_actor_time,priority:2;index:idx_audit_outcome_time,priority:2;index:idx_audit_created_at;not null"`
}

// TableName returns the GORM table name.
func (Event) TableName() string { return "audit_events" }

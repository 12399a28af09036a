package models

// GORM models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned by repository lookups that match no row.
var ErrNotFound = errors.New("record not found")

// StringArray for PostgreSQL array support
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}
	return fmt.Sprintf("{%s}", strings.Join(s, ",")), nil
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		v = strings.Trim(v, "{}")
		if v == "" {
			*s = StringArray{}
			return nil
		}
		*s = StringArray(strings.Split(v, ","))
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	return nil
}

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedbackEntry is a persisted student rating of a tutoring answer. Record
// ids are derived from the content and may repeat; every entry is kept.
type FeedbackEntry struct {
	BaseModel
	RecordID            string    `json:"record_id" gorm:"index;not null"`
	Question            string    `json:"question" gorm:"not null"`
	OriginalResponse    string    `json:"original_response"`
	Rating              int       `json:"rating" gorm:"not null;check:rating BETWEEN 1 AND 5"`
	FeedbackText        string    `json:"feedback_text"`
	SuggestedCorrection string    `json:"suggested_correction"`
	IssuedAt            time.Time `json:"issued_at" gorm:"not null"`
}

// RequestAudit is the durable copy of a gateway request log entry
type RequestAudit struct {
	BaseModel
	RequestID        string      `json:"request_id" gorm:"uniqueIndex;not null"`
	UserQuery        string      `json:"user_query" gorm:"not null"`
	ResponseLength   int         `json:"response_length"`
	ProcessingTime   float64     `json:"processing_time"`
	GuardrailsPassed int         `json:"guardrails_passed"`
	GuardrailsFailed int         `json:"guardrails_failed"`
	Success          bool        `json:"success"`
	Blocked          bool        `json:"blocked"`
	AgentUsed        string      `json:"agent_used"`
	Confidence       float64     `json:"confidence"`
	States           StringArray `json:"states" gorm:"type:text[]"`
	RequestedAt      time.Time   `json:"requested_at" gorm:"index;not null"`
}

// AuditSummary aggregates request audits over a time window
type AuditSummary struct {
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	BlockedRequests    int64   `json:"blocked_requests"`
	AvgProcessingTime  float64 `json:"avg_processing_time"`
}

// SystemHealth represents service health monitoring
type SystemHealth struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ServiceName    string    `json:"service_name" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null;check:status IN ('healthy','degraded','unhealthy')"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message"`
	CheckedAt      time.Time `json:"checked_at" gorm:"default:NOW()"`
}

// Database interfaces for repository pattern
type FeedbackRepository interface {
	Create(entry *FeedbackEntry) error
	GetAll() ([]FeedbackEntry, error)
}

type RequestAuditRepository interface {
	Create(audit *RequestAudit) error
	GetByRequestID(requestID string) (*RequestAudit, error)
	GetRecent(limit int) ([]RequestAudit, error)
	GetSummary(from, to time.Time) (*AuditSummary, error)
}

type SystemHealthRepository interface {
	UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error
	GetServiceHealth(serviceName string) (*SystemHealth, error)
	GetAllServicesHealth() ([]SystemHealth, error)
	GetUnhealthyServices() ([]SystemHealth, error)
}

// TableName methods for custom table names
func (FeedbackEntry) TableName() string { return "feedback" }
func (RequestAudit) TableName() string  { return "request_audits" }
func (SystemHealth) TableName() string  { return "system_health" }

// Model validation methods
func (f *FeedbackEntry) Validate() error {
	if f.RecordID == "" {
		return fmt.Errorf("record ID is required")
	}
	if f.Question == "" {
		return fmt.Errorf("question is required")
	}
	if f.Rating < 1 || f.Rating > 5 {
		return fmt.Errorf("invalid rating: %d", f.Rating)
	}
	return nil
}

func (a *RequestAudit) Validate() error {
	if a.RequestID == "" {
		return fmt.Errorf("request ID is required")
	}
	if a.ProcessingTime < 0 {
		return fmt.Errorf("processing time cannot be negative")
	}
	return nil
}

// GORM hooks
func (f *FeedbackEntry) BeforeCreate(tx *gorm.DB) error {
	return f.Validate()
}

func (a *RequestAudit) BeforeCreate(tx *gorm.DB) error {
	return a.Validate()
}

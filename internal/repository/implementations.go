package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Ayash-Bera/mathgate/backend/internal/models"
)

// FeedbackRepositoryImpl implements FeedbackRepository
type FeedbackRepositoryImpl struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) models.FeedbackRepository {
	return &FeedbackRepositoryImpl{db: db}
}

func (r *FeedbackRepositoryImpl) Create(entry *models.FeedbackEntry) error {
	return r.db.Create(entry).Error
}

// GetAll returns every entry in insertion order
func (r *FeedbackRepositoryImpl) GetAll() ([]models.FeedbackEntry, error) {
	var entries []models.FeedbackEntry
	err := r.db.Order("id ASC").Find(&entries).Error
	return entries, err
}

// RequestAuditRepositoryImpl implements RequestAuditRepository
type RequestAuditRepositoryImpl struct {
	db *gorm.DB
}

func NewRequestAuditRepository(db *gorm.DB) models.RequestAuditRepository {
	return &RequestAuditRepositoryImpl{db: db}
}

func (r *RequestAuditRepositoryImpl) Create(audit *models.RequestAudit) error {
	return r.db.Create(audit).Error
}

func (r *RequestAuditRepositoryImpl) GetByRequestID(requestID string) (*models.RequestAudit, error) {
	var audit models.RequestAudit
	err := r.db.Where("request_id = ?", requestID).First(&audit).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &audit, nil
}

// GetRecent returns the newest audits first. A non-positive limit returns
// every row.
func (r *RequestAuditRepositoryImpl) GetRecent(limit int) ([]models.RequestAudit, error) {
	var audits []models.RequestAudit
	query := r.db.Order("requested_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&audits).Error
	return audits, err
}

func (r *RequestAuditRepositoryImpl) GetSummary(from, to time.Time) (*models.AuditSummary, error) {
	var summary models.AuditSummary
	err := r.db.Raw(`
		SELECT
			COUNT(*) AS total_requests,
			COUNT(*) FILTER (WHERE success) AS successful_requests,
			COUNT(*) FILTER (WHERE blocked) AS blocked_requests,
			COALESCE(AVG(processing_time), 0) AS avg_processing_time
		FROM request_audits
		WHERE requested_at BETWEEN ? AND ?
	`, from, to).Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// SystemHealthRepositoryImpl implements SystemHealthRepository
type SystemHealthRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemHealthRepository(db *gorm.DB) models.SystemHealthRepository {
	return &SystemHealthRepositoryImpl{db: db}
}

func (r *SystemHealthRepositoryImpl) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	return r.db.Exec(`
		INSERT INTO system_health (service_name, status, response_time_ms, error_message, checked_at)
		VALUES (?, ?, ?, ?, NOW())
	`, serviceName, status, responseTime, errorMsg).Error
}

func (r *SystemHealthRepositoryImpl) GetServiceHealth(serviceName string) (*models.SystemHealth, error) {
	var health models.SystemHealth
	err := r.db.Where("service_name = ?", serviceName).
		Order("checked_at DESC").
		First(&health).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &health, nil
}

func (r *SystemHealthRepositoryImpl) GetAllServicesHealth() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT DISTINCT ON (service_name) *
		FROM system_health
		ORDER BY service_name, checked_at DESC
	`).Scan(&health).Error
	return health, err
}

func (r *SystemHealthRepositoryImpl) GetUnhealthyServices() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT DISTINCT ON (service_name) *
		FROM system_health
		WHERE status != 'healthy'
		ORDER BY service_name, checked_at DESC
	`).Scan(&health).Error
	return health, err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Feedback     models.FeedbackRepository
	RequestAudit models.RequestAuditRepository
	SystemHealth models.SystemHealthRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Feedback:     NewFeedbackRepository(db),
		RequestAudit: NewRequestAuditRepository(db),
		SystemHealth: NewSystemHealthRepository(db),
	}
}

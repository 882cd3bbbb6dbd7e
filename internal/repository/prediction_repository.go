package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"classifier-service/internal/models"
)

// PredictionRepository persists the prediction audit trail.
type PredictionRepository interface {
	Create(record *models.PredictionRecord) error
	GetByID(id uuid.UUID) (*models.PredictionRecord, error)
	ListRecent(limit int) ([]models.PredictionRecord, error)
	CountByFingerprint(fingerprint string) (int64, error)
}

// PredictionRepositoryImpl provides GORM-backed access to prediction records.
type PredictionRepositoryImpl struct {
	db *gorm.DB
}

func NewPredictionRepository(db *gorm.DB) *PredictionRepositoryImpl {
	return &PredictionRepositoryImpl{db: db}
}

func (r *PredictionRepositoryImpl) Create(record *models.PredictionRecord) error {
	return r.db.Create(record).Error
}

func (r *PredictionRepositoryImpl) GetByID(id uuid.UUID) (*models.PredictionRecord, error) {
	var record models.PredictionRecord
	err := r.db.First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *PredictionRepositoryImpl) ListRecent(limit int) ([]models.PredictionRecord, error) {
	var records []models.PredictionRecord
	err := r.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

func (r *PredictionRepositoryImpl) CountByFingerprint(fingerprint string) (int64, error) {
	var count int64
	err := r.db.Model(&models.PredictionRecord{}).Where("fingerprint = ?", fingerprint).Count(&count).Error
	return count, err
}

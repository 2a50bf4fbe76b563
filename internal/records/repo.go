package records

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seqstage/seqstage-backend/pkg/db/models"
	"github.com/seqstage/seqstage-backend/pkg/enums"
)

// Repository persists staged submission records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.SubmissionRecord) (*models.SubmissionRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.SubmissionRecord, error)
	FindLatestByEntity(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) (*models.SubmissionRecord, error)
	ListByEntity(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) ([]models.SubmissionRecord, error)
	HasInFlight(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SubmissionStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a submission record repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.SubmissionRecord) (*models.SubmissionRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SubmissionRecord, error) {
	var record models.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindLatestByEntity(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) (*models.SubmissionRecord, error) {
	var record models.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListByEntity(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) ([]models.SubmissionRecord, error) {
	var rows []models.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// HasInFlight reports whether any record for the entity is currently
// submitting, regardless of version order.
func (r *repository) HasInFlight(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SubmissionRecord{}).
		Where("entity_type = ? AND entity_id = ? AND status = ?", entityType, entityID, enums.SubmissionStatusSubmitting).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SubmissionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.SubmissionRecord{}).
		Where("id = ?", id).
		Update("status", status).Error
}

package accessions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seqstage/seqstage-backend/pkg/db/models"
	"github.com/seqstage/seqstage-backend/pkg/enums"
)

// Repository persists the idempotent accession registry. Rows are inserted
// once and never mutated; duplicate inserts are silent no-ops.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Register(ctx context.Context, entry *models.AccessionEntry) error
	FindByAccession(ctx context.Context, authority enums.Authority, accession string) (*models.AccessionEntry, error)
	FindByEntity(ctx context.Context, authority enums.Authority, entityType enums.EntityType, entityID uuid.UUID) (*models.AccessionEntry, error)
	ListByEntityType(ctx context.Context, entityType enums.EntityType) ([]models.AccessionEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an accession registry repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Register inserts the entry unless an equivalent row already exists.
// Conflicts on (authority, accession) or (authority, entity_type, entity_id)
// leave the existing row untouched.
func (r *repository) Register(ctx context.Context, entry *models.AccessionEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry).Error
}

func (r *repository) FindByAccession(ctx context.Context, authority enums.Authority, accession string) (*models.AccessionEntry, error) {
	var entry models.AccessionEntry
	err := r.db.WithContext(ctx).
		Where("authority = ? AND accession = ?", authority, accession).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByEntity(ctx context.Context, authority enums.Authority, entityType enums.EntityType, entityID uuid.UUID) (*models.AccessionEntry, error) {
	var entry models.AccessionEntry
	err := r.db.WithContext(ctx).
		Where("authority = ? AND entity_type = ? AND entity_id = ?", authority, entityType, entityID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByEntityType(ctx context.Context, entityType enums.EntityType) ([]models.AccessionEntry, error) {
	var rows []models.AccessionEntry
	err := r.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		Order("accepted_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// IsNotFound reports whether the error is a missing-row lookup result.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

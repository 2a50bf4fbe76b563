package events

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seqstage/seqstage-backend/pkg/db/models"
	"github.com/seqstage/seqstage-backend/pkg/enums"
	"github.com/seqstage/seqstage-backend/pkg/types"
)

// Repository persists and reads the append-only submission audit trail.
// Events are never updated or deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, event *models.SubmissionEvent) error
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.SubmissionEvent, error)
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.SubmissionEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an event repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, event *models.SubmissionEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.SubmissionEvent, error) {
	var rows []models.SubmissionEvent
	err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.SubmissionEvent, error) {
	var rows []models.SubmissionEvent
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Build assembles an event row from its transition parts.
func Build(attemptID uuid.UUID, record *models.SubmissionRecord, action enums.EventAction, details types.PayloadMap) *models.SubmissionEvent {
	event := &models.SubmissionEvent{
		ID:           uuid.New(),
		AttemptID:    attemptID,
		EntityType:   record.EntityType,
		SubmissionID: record.ID,
		Action:       action,
		Details:      details,
	}
	if record.Accession != nil {
		accession := *record.Accession
		event.Accession = &accession
	}
	return event
}

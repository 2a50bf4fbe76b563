package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seqstage/seqstage-backend/pkg/db/models"
	"github.com/seqstage/seqstage-backend/pkg/enums"
)

// Repository persists attempts and drives the row-level claim protocol.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateAttempt(ctx context.Context, attempt *models.SubmissionAttempt) (*models.SubmissionAttempt, error)
	FindAttempt(ctx context.Context, id uuid.UUID) (*models.SubmissionAttempt, error)
	UpdateAttempt(ctx context.Context, id uuid.UUID, updates map[string]any) error

	CandidateIDs(ctx context.Context, entityType enums.EntityType, scopeKey string, limit int) ([]uuid.UUID, error)
	CandidateIDsByExplicit(ctx context.Context, entityType enums.EntityType, ids []uuid.UUID) ([]uuid.UUID, error)
	AcquireRecords(ctx context.Context, ids []uuid.UUID, attemptID uuid.UUID, acquiredAt, expiresAt time.Time) ([]models.SubmissionRecord, error)

	FindRecord(ctx context.Context, id uuid.UUID) (*models.SubmissionRecord, error)
	ApplyRecordUpdates(ctx context.Context, id uuid.UUID, updates map[string]any) error
	BoundRecords(ctx context.Context, attemptID uuid.UUID) ([]models.SubmissionRecord, error)
	AssociatedRecords(ctx context.Context, attemptID uuid.UUID) ([]models.SubmissionRecord, error)
	PropagateLeaseExpiry(ctx context.Context, attemptID uuid.UUID, expiry time.Time) error

	StaleRecords(ctx context.Context, now time.Time) ([]models.SubmissionRecord, error)
	ExpireAttempts(ctx context.Context, now time.Time) (int64, error)

	LatestAcceptedRecord(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) (*models.SubmissionRecord, error)
	ParentEntityID(ctx context.Context, childType enums.EntityType, childEntityID uuid.UUID) (uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a broker repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAttempt(ctx context.Context, attempt *models.SubmissionAttempt) (*models.SubmissionAttempt, error) {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *repository) FindAttempt(ctx context.Context, id uuid.UUID) (*models.SubmissionAttempt, error) {
	var attempt models.SubmissionAttempt
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) UpdateAttempt(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SubmissionAttempt{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// scopeJoin returns the join/filter fragment tying a submission record's
// entity to its owning organism key.
func scopeJoin(entityType enums.EntityType) (string, error) {
	switch entityType {
	case enums.EntityTypeSample:
		return "JOIN samples scope ON scope.id = sr.entity_id", nil
	case enums.EntityTypeExperiment:
		return "JOIN experiments child ON child.id = sr.entity_id JOIN samples scope ON scope.id = child.sample_id", nil
	case enums.EntityTypeRead:
		return "JOIN reads grandchild ON grandchild.id = sr.entity_id JOIN experiments child ON child.id = grandchild.experiment_id JOIN samples scope ON scope.id = child.sample_id", nil
	case enums.EntityTypeProject:
		return "JOIN projects scope ON scope.id = sr.entity_id", nil
	default:
		return "", fmt.Errorf("entity type %s is not claimable", entityType)
	}
}

// CandidateIDs selects, per distinct entity in scope, the single most
// recently created draft record, capped at limit.
func (r *repository) CandidateIDs(ctx context.Context, entityType enums.EntityType, scopeKey string, limit int) ([]uuid.UUID, error) {
	join, err := scopeJoin(entityType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT id FROM (
    SELECT sr.id AS id,
           ROW_NUMBER() OVER (PARTITION BY sr.entity_id ORDER BY sr.created_at DESC, sr.id DESC) AS rn
    FROM submission_records sr
    %s
    WHERE sr.entity_type = ? AND sr.status = ? AND scope.organism_key = ?
) ranked
WHERE rn = 1
LIMIT ?`, join)

	var ids []uuid.UUID
	err = r.db.WithContext(ctx).
		Raw(query, entityType, enums.SubmissionStatusDraft, scopeKey, limit).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CandidateIDsByExplicit narrows the requested ids to claimable drafts.
// Like the ranked path, at most one row per entity survives: if the caller
// names several drafts of the same entity, only the newest is a candidate,
// so a single claim can never lease two rows for one entity.
func (r *repository) CandidateIDsByExplicit(ctx context.Context, entityType enums.EntityType, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
SELECT id FROM (
    SELECT sr.id AS id,
           ROW_NUMBER() OVER (PARTITION BY sr.entity_id ORDER BY sr.created_at DESC, sr.id DESC) AS rn
    FROM submission_records sr
    WHERE sr.id IN ? AND sr.entity_type = ? AND sr.status = ?
) ranked
WHERE rn = 1`

	var found []uuid.UUID
	err := r.db.WithContext(ctx).
		Raw(query, ids, entityType, enums.SubmissionStatusDraft).
		Scan(&found).Error
	if err != nil {
		return nil, err
	}
	return found, nil
}

// AcquireRecords transitions the candidate rows to submitting under the
// attempt's lease. The conditional UPDATE only matches rows still in draft,
// so a row contended by two claims is won by exactly one of them; on
// Postgres the candidates are additionally row-locked with SKIP LOCKED so
// concurrent claims never block each other.
func (r *repository) AcquireRecords(ctx context.Context, ids []uuid.UUID, attemptID uuid.UUID, acquiredAt, expiresAt time.Time) ([]models.SubmissionRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	lockable := ids
	if r.db.Dialector.Name() == "postgres" {
		var free []uuid.UUID
		err := r.db.WithContext(ctx).
			Model(&models.SubmissionRecord{}).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("id IN ? AND status = ?", ids, enums.SubmissionStatusDraft).
			Pluck("id", &free).Error
		if err != nil {
			return nil, err
		}
		if len(free) == 0 {
			return nil, nil
		}
		lockable = free
	}

	err := r.db.WithContext(ctx).
		Model(&models.SubmissionRecord{}).
		Where("id IN ? AND status = ?", lockable, enums.SubmissionStatusDraft).
		Updates(map[string]any{
			"status":           enums.SubmissionStatusSubmitting,
			"attempt_id":       attemptID,
			"lock_acquired_at": acquiredAt,
			"lock_expires_at":  expiresAt,
		}).Error
	if err != nil {
		return nil, err
	}

	var acquired []models.SubmissionRecord
	err = r.db.WithContext(ctx).
		Where("id IN ? AND attempt_id = ?", lockable, attemptID).
		Order("created_at ASC").
		Find(&acquired).Error
	if err != nil {
		return nil, err
	}
	return acquired, nil
}

func (r *repository) FindRecord(ctx context.Context, id uuid.UUID) (*models.SubmissionRecord, error) {
	var record models.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ApplyRecordUpdates(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SubmissionRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// BoundRecords returns the records still leased to the attempt.
func (r *repository) BoundRecords(ctx context.Context, attemptID uuid.UUID) ([]models.SubmissionRecord, error) {
	var rows []models.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("attempt_id = ? AND status = ?", attemptID, enums.SubmissionStatusSubmitting).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AssociatedRecords returns every record that was ever bound to the attempt,
// including those finalized out of it.
func (r *repository) AssociatedRecords(ctx context.Context, attemptID uuid.UUID) ([]models.SubmissionRecord, error) {
	var rows []models.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("attempt_id = ? OR finalized_attempt_id = ?", attemptID, attemptID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) PropagateLeaseExpiry(ctx context.Context, attemptID uuid.UUID, expiry time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SubmissionRecord{}).
		Where("attempt_id = ? AND status = ?", attemptID, enums.SubmissionStatusSubmitting).
		Update("lock_expires_at", expiry).Error
}

// StaleRecords returns submitting rows whose lease has lapsed. Rows with a
// null lock_expires_at are never reapable.
func (r *repository) StaleRecords(ctx context.Context, now time.Time) ([]models.SubmissionRecord, error) {
	var rows []models.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND lock_expires_at IS NOT NULL AND lock_expires_at < ?", enums.SubmissionStatusSubmitting, now).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ExpireAttempts(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SubmissionAttempt{}).
		Where("status = ? AND lock_expires_at IS NOT NULL AND lock_expires_at < ?", enums.AttemptStatusProcessing, now).
		Update("status", enums.AttemptStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) LatestAcceptedRecord(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) (*models.SubmissionRecord, error) {
	var record models.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND status = ?", entityType, entityID, enums.SubmissionStatusAccepted).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ParentEntityID resolves which upstream entity a child entity belongs to.
// Unknown children and parentless types resolve to uuid.Nil without error.
func (r *repository) ParentEntityID(ctx context.Context, childType enums.EntityType, childEntityID uuid.UUID) (uuid.UUID, error) {
	switch childType {
	case enums.EntityTypeExperiment:
		var experiment models.Experiment
		err := r.db.WithContext(ctx).
			Select("sample_id").
			Where("id = ?", childEntityID).
			Take(&experiment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, nil
			}
			return uuid.Nil, err
		}
		return experiment.SampleID, nil
	case enums.EntityTypeRead:
		var read models.Read
		err := r.db.WithContext(ctx).
			Select("experiment_id").
			Where("id = ?", childEntityID).
			Take(&read).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, nil
			}
			return uuid.Nil, err
		}
		return read.ExperimentID, nil
	default:
		return uuid.Nil, nil
	}
}

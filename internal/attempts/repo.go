package attempts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seqstage/seqstage-backend/pkg/db/models"
	"github.com/seqstage/seqstage-backend/pkg/enums"
	"github.com/seqstage/seqstage-backend/pkg/pagination"
)

// statusCountRow is the scan target of the per-organism aggregation query.
type statusCountRow struct {
	EntityType enums.EntityType       `gorm:"column:entity_type"`
	Status     enums.SubmissionStatus `gorm:"column:status"`
	Count      int                    `gorm:"column:count"`
}

// Repository reads attempts and the derived dashboard aggregates.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.SubmissionAttempt, error)
	List(ctx context.Context, organismKey string, limit int, cursor *pagination.Cursor) ([]models.SubmissionAttempt, error)
	AssociatedRecords(ctx context.Context, attemptID uuid.UUID) ([]models.SubmissionRecord, error)
	StatusCountsByOrganism(ctx context.Context, organismKey string) (map[enums.EntityType]map[enums.SubmissionStatus]int, error)
	RecentByOrganism(ctx context.Context, organismKey string, limit int) ([]models.SubmissionAttempt, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an attempts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SubmissionAttempt, error) {
	var attempt models.SubmissionAttempt
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) List(ctx context.Context, organismKey string, limit int, cursor *pagination.Cursor) ([]models.SubmissionAttempt, error) {
	query := r.db.WithContext(ctx).Model(&models.SubmissionAttempt{})
	if organismKey != "" {
		query = query.Where("organism_key = ?", organismKey)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.SubmissionAttempt
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AssociatedRecords returns every record currently leased to or finalized
// under the attempt.
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

func (r *repository) StatusCountsByOrganism(ctx context.Context, organismKey string) (map[enums.EntityType]map[enums.SubmissionStatus]int, error) {
	query := `
SELECT sr.entity_type AS entity_type, sr.status AS status, COUNT(*) AS count
FROM submission_records sr
WHERE sr.entity_id IN (
        SELECT id FROM samples WHERE organism_key = @scope
        UNION ALL
        SELECT e.id FROM experiments e JOIN samples s ON s.id = e.sample_id WHERE s.organism_key = @scope
        UNION ALL
        SELECT rd.id FROM reads rd JOIN experiments e ON e.id = rd.experiment_id JOIN samples s ON s.id = e.sample_id WHERE s.organism_key = @scope
        UNION ALL
        SELECT id FROM projects WHERE organism_key = @scope
    )
GROUP BY sr.entity_type, sr.status`

	var rows []statusCountRow
	err := r.db.WithContext(ctx).
		Raw(query, map[string]any{"scope": organismKey}).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.EntityType]map[enums.SubmissionStatus]int)
	for _, row := range rows {
		if counts[row.EntityType] == nil {
			counts[row.EntityType] = make(map[enums.SubmissionStatus]int)
		}
		counts[row.EntityType][row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) RecentByOrganism(ctx context.Context, organismKey string, limit int) ([]models.SubmissionAttempt, error) {
	var rows []models.SubmissionAttempt
	err := r.db.WithContext(ctx).
		Where("organism_key = ?", organismKey).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

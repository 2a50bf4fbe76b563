package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seqstage/seqstage-backend/pkg/db/models"
	"github.com/seqstage/seqstage-backend/pkg/enums"
	pkgerrors "github.com/seqstage/seqstage-backend/pkg/errors"
	"github.com/seqstage/seqstage-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service stages draft submission records on behalf of the entity-edit
// workflow. Once a draft is claimed, every further transition belongs to the
// broker.
type Service interface {
	StageDraft(ctx context.Context, input StageDraftInput) (*models.SubmissionRecord, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*models.SubmissionRecord, error)
	ListForEntity(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) ([]models.SubmissionRecord, error)
}

// StageDraftInput carries the fields needed to stage a new draft version.
type StageDraftInput struct {
	EntityType enums.EntityType
	EntityID   uuid.UUID
	Authority  enums.Authority
	Payload    types.PayloadMap
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the record staging service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("records repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// StageDraft creates a fresh draft for the entity, keeping at most one draft
// per entity: a prior draft or accepted version is superseded (status becomes
// replaced) and its accession is carried forward so the archive identifier
// survives re-edits. Rejected and replaced rows are historical and stay as
// they are. Staging is refused while any version of the entity is in flight.
func (s *service) StageDraft(ctx context.Context, input StageDraftInput) (*models.SubmissionRecord, error) {
	if !input.EntityType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid entity type")
	}
	if input.EntityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id is required")
	}
	if !input.Authority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid authority")
	}
	if len(input.Payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prepared payload is required")
	}

	var staged *models.SubmissionRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Any submitting version blocks staging, not just the latest one.
		inFlight, err := repo.HasInFlight(ctx, input.EntityType, input.EntityID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check in-flight submission")
		}
		if inFlight {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "entity has an in-flight submission")
		}

		var carried *string
		prior, err := repo.FindLatestByEntity(ctx, input.EntityType, input.EntityID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup prior record")
		}
		if prior != nil {
			switch prior.Status {
			case enums.SubmissionStatusDraft, enums.SubmissionStatusAccepted:
				if err := repo.UpdateStatus(ctx, prior.ID, enums.SubmissionStatusReplaced); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "supersede prior record")
				}
				carried = prior.Accession
			case enums.SubmissionStatusRejected, enums.SubmissionStatusReplaced:
				carried = prior.Accession
			}
		}

		record := &models.SubmissionRecord{
			ID:              uuid.New(),
			EntityType:      input.EntityType,
			EntityID:        input.EntityID,
			Authority:       input.Authority,
			Status:          enums.SubmissionStatusDraft,
			PreparedPayload: input.Payload,
			Accession:       carried,
		}
		created, err := repo.Create(ctx, record)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create draft record")
		}
		staged = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return staged, nil
}

func (s *service) GetRecord(ctx context.Context, id uuid.UUID) (*models.SubmissionRecord, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id is required")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "submission record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup record")
	}
	return record, nil
}

func (s *service) ListForEntity(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) ([]models.SubmissionRecord, error) {
	if !entityType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid entity type")
	}
	if entityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id is required")
	}
	rows, err := s.repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list records")
	}
	return rows, nil
}

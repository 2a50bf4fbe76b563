package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seqstage/seqstage-backend/internal/accessions"
	"github.com/seqstage/seqstage-backend/internal/events"
	"github.com/seqstage/seqstage-backend/pkg/config"
	"github.com/seqstage/seqstage-backend/pkg/db/models"
	"github.com/seqstage/seqstage-backend/pkg/enums"
	pkgerrors "github.com/seqstage/seqstage-backend/pkg/errors"
	"github.com/seqstage/seqstage-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}


// Service is the submission broker: it claims drafts under a lease, applies
// externally observed outcomes, and manages the lease lifecycle.
type Service interface {
	Claim(ctx context.Context, input ClaimInput) (*ClaimResult, error)
	Renew(ctx context.Context, attemptID uuid.UUID, extendMinutes int) (*RenewResult, error)
	Report(ctx context.Context, input ReportInput) (*ReportResult, error)
	Finalize(ctx context.Context, attemptID uuid.UUID) (*FinalizeResult, error)
	ExpireStaleLeases(ctx context.Context) (*ExpireResult, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	events     events.Repository
	accessions accessions.Repository
	logg       *logger.Logger
	cfg        config.BrokerConfig
	now        func() time.Time
}

// NewService builds the broker service.
func NewService(repo Repository, tx txRunner, eventsRepo events.Repository, accessionsRepo accessions.Repository, cfg config.BrokerConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("broker repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if eventsRepo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if accessionsRepo == nil {
		return nil, fmt.Errorf("accessions repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		events:     eventsRepo,
		accessions: accessionsRepo,
		cfg:        cfg,
		logg:       logg,
		now:        time.Now,
	}, nil
}

const (
	minLeaseMinutes  = 1
	minExtendMinutes = 1

	// fallbackMaxLeaseMinutes bounds leases when the config carries no cap.
	fallbackMaxLeaseMinutes = 180
)

func (s *service) maxLeaseMinutes() int {
	if s.cfg.MaxLeaseMinutes > 0 {
		return s.cfg.MaxLeaseMinutes
	}
	return fallbackMaxLeaseMinutes
}

// Claim creates an attempt and exclusively acquires eligible draft records
// under its lease. Two concurrent claims never both win the same row.
func (s *service) Claim(ctx context.Context, input ClaimInput) (*ClaimResult, error) {
	if strings.TrimSpace(input.ScopeKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scope key is required")
	}

	lease := input.LeaseMinutes
	if lease == 0 {
		lease = s.cfg.DefaultLeaseMinutes
	}
	if lease < minLeaseMinutes || lease > s.maxLeaseMinutes() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("lease_duration_minutes must be between 1 and %d", s.maxLeaseMinutes()))
	}

	limit := input.PerTypeLimit
	if limit == 0 {
		limit = s.cfg.DefaultPerTypeLimit
	}
	if limit < 1 || limit > s.cfg.MaxPerTypeLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("per_type_limit must be between 1 and %d", s.cfg.MaxPerTypeLimit))
	}

	for entityType := range input.ExplicitIDs {
		if !isClaimable(entityType) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entity type %s is not claimable", entityType))
		}
	}

	now := s.now().UTC()
	expiry := now.Add(time.Duration(lease) * time.Minute)

	var result *ClaimResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		eventsRepo := s.events.WithTx(tx)

		scope := input.ScopeKey
		attempt, err := repo.CreateAttempt(ctx, &models.SubmissionAttempt{
			ID:             uuid.New(),
			OrganismKey:    &scope,
			CampaignLabel:  input.CampaignLabel,
			Status:         enums.AttemptStatusProcessing,
			LockAcquiredAt: now,
			LockExpiresAt:  &expiry,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create attempt")
		}

		claimed := make(map[enums.EntityType][]models.SubmissionRecord)
		for _, entityType := range enums.ClaimableEntityTypes {
			var candidates []uuid.UUID
			if explicit, ok := input.ExplicitIDs[entityType]; ok {
				candidates, err = repo.CandidateIDsByExplicit(ctx, entityType, explicit)
			} else {
				candidates, err = repo.CandidateIDs(ctx, entityType, input.ScopeKey, limit)
			}
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select claim candidates")
			}

			acquired, err := repo.AcquireRecords(ctx, candidates, attempt.ID, now, expiry)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire records")
			}
			for i := range acquired {
				if err := eventsRepo.Append(ctx, events.Build(attempt.ID, &acquired[i], enums.EventActionClaimed, nil)); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append claimed event")
				}
			}
			claimed[entityType] = acquired
		}

		items, err := s.resolveClaimedItems(ctx, repo, claimed)
		if err != nil {
			return err
		}

		result = &ClaimResult{
			AttemptID:      attempt.ID,
			LockAcquiredAt: now,
			LockExpiresAt:  expiry,
			Items:          items,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := 0
	for _, list := range result.Items {
		total += len(list)
	}
	s.logg.Info(s.logg.WithAttemptID(ctx, result.AttemptID.String()), fmt.Sprintf("claimed %d records", total))
	return result, nil
}

// resolveClaimedItems shapes the claim output and resolves each child's
// upstream reference: a same-attempt claimed parent wins, otherwise the most
// recent accepted parent record. A missing parent is not an error.
func (s *service) resolveClaimedItems(ctx context.Context, repo Repository, claimed map[enums.EntityType][]models.SubmissionRecord) (map[enums.EntityType][]ClaimedItem, error) {
	byEntity := make(map[enums.EntityType]map[uuid.UUID]*models.SubmissionRecord)
	for entityType, list := range claimed {
		index := make(map[uuid.UUID]*models.SubmissionRecord, len(list))
		for i := range list {
			index[list[i].EntityID] = &list[i]
		}
		byEntity[entityType] = index
	}

	items := make(map[enums.EntityType][]ClaimedItem, len(claimed))
	for entityType, list := range claimed {
		shaped := make([]ClaimedItem, 0, len(list))
		parentType := entityType.Parent()
		for i := range list {
			record := &list[i]
			item := ClaimedItem{
				SubmissionID:    record.ID,
				EntityID:        record.EntityID,
				Status:          record.Status,
				PreparedPayload: record.PreparedPayload,
				Accession:       record.Accession,
			}

			if parentType != "" {
				parentEntityID, err := repo.ParentEntityID(ctx, entityType, record.EntityID)
				if err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve parent entity")
				}
				if parentEntityID != uuid.Nil {
					if parent, ok := byEntity[parentType][parentEntityID]; ok {
						parentID := parent.ID
						item.ParentSubmissionID = &parentID
						item.ParentAccession = parent.Accession
					} else {
						parent, err := repo.LatestAcceptedRecord(ctx, parentType, parentEntityID)
						if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
							return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup accepted parent")
						}
						if parent != nil {
							parentID := parent.ID
							item.ParentSubmissionID = &parentID
							item.ParentAccession = parent.Accession
						}
					}
				}
			}
			shaped = append(shaped, item)
		}
		items[entityType] = shaped
	}
	return items, nil
}

// Renew extends the attempt's lease and propagates the new expiry to every
// record still submitting under it. Repeated calls are safe.
func (s *service) Renew(ctx context.Context, attemptID uuid.UUID, extendMinutes int) (*RenewResult, error) {
	if attemptID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attempt id is required")
	}
	if extendMinutes == 0 {
		extendMinutes = s.cfg.DefaultRenewMinutes
	}
	if extendMinutes < minExtendMinutes || extendMinutes > s.maxLeaseMinutes() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("extend_minutes must be between 1 and %d", s.maxLeaseMinutes()))
	}

	var result *RenewResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		attempt, err := repo.FindAttempt(ctx, attemptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "attempt not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup attempt")
		}
		if attempt.Status != enums.AttemptStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "attempt is no longer processing")
		}

		now := s.now().UTC()
		base := now
		if attempt.LockExpiresAt != nil && attempt.LockExpiresAt.After(now) {
			base = *attempt.LockExpiresAt
		}
		newExpiry := base.Add(time.Duration(extendMinutes) * time.Minute)

		if err := repo.UpdateAttempt(ctx, attemptID, map[string]any{"lock_expires_at": newExpiry}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend attempt lease")
		}
		if err := repo.PropagateLeaseExpiry(ctx, attemptID, newExpiry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "propagate lease expiry")
		}

		result = &RenewResult{AttemptID: attemptID, LockExpiresAt: newExpiry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Report applies externally observed outcomes to the attempt's records.
// The whole call is all-or-nothing: any invalid item aborts every write.
func (s *service) Report(ctx context.Context, input ReportInput) (*ReportResult, error) {
	if input.AttemptID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attempt id is required")
	}
	for entityType, list := range input.Items {
		if !entityType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entity type %s", entityType))
		}
		for _, item := range list {
			if item.SubmissionID == uuid.Nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "submission id is required")
			}
			if !item.Status.IsValid() {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", item.Status))
			}
		}
	}

	counts := make(map[enums.EntityType]int)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		eventsRepo := s.events.WithTx(tx)
		registrar := s.accessions.WithTx(tx)

		if _, err := repo.FindAttempt(ctx, input.AttemptID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "attempt not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup attempt")
		}

		// Validate every item before mutating anything.
		located := make(map[uuid.UUID]*models.SubmissionRecord)
		for _, list := range input.Items {
			for _, item := range list {
				record, err := repo.FindRecord(ctx, item.SubmissionID)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("submission record %s not found", item.SubmissionID))
					}
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup record")
				}
				if record.Status != enums.SubmissionStatusSubmitting {
					return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("record %s is not submitting", record.ID))
				}
				if record.AttemptID == nil || *record.AttemptID != input.AttemptID {
					return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("record %s is bound to a different attempt", record.ID))
				}
				located[item.SubmissionID] = record
			}
		}

		now := s.now().UTC()
		for entityType, list := range input.Items {
			for _, item := range list {
				record := located[item.SubmissionID]
				if err := s.applyReportItem(ctx, repo, eventsRepo, registrar, record, item, input.AttemptID, now); err != nil {
					return err
				}
				counts[entityType]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ReportResult{UpdatedCounts: counts}, nil
}

func (s *service) applyReportItem(ctx context.Context, repo Repository, eventsRepo events.Repository, registrar accessions.Repository, record *models.SubmissionRecord, item ReportItem, attemptID uuid.UUID, now time.Time) error {
	updates := map[string]any{"status": item.Status}
	if item.ResponsePayload != nil {
		updates["response_payload"] = item.ResponsePayload
	}

	// A dependent upstream reference needs its accession registered before
	// the reference itself is written.
	if item.ParentAccession != nil {
		parentType := record.EntityType.Parent()
		if parentType != "" {
			parentEntityID, err := repo.ParentEntityID(ctx, record.EntityType, record.EntityID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve parent entity")
			}
			if parentEntityID != uuid.Nil {
				err := registrar.Register(ctx, &models.AccessionEntry{
					Authority:  record.Authority,
					Accession:  *item.ParentAccession,
					EntityType: parentType,
					EntityID:   parentEntityID,
					AcceptedAt: now,
				})
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register parent accession")
				}
			}
		}
		updates["parent_accession"] = *item.ParentAccession
	}

	if item.Accession != nil {
		updates["accession"] = *item.Accession
		record.Accession = item.Accession
		err := registrar.Register(ctx, &models.AccessionEntry{
			Authority:  record.Authority,
			Accession:  *item.Accession,
			EntityType: record.EntityType,
			EntityID:   record.EntityID,
			AcceptedAt: now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register accession")
		}
	}

	if item.Status != enums.SubmissionStatusSubmitting {
		updates["attempt_id"] = nil
		updates["lock_acquired_at"] = nil
		updates["lock_expires_at"] = nil
		updates["finalized_attempt_id"] = attemptID
		if item.Status == enums.SubmissionStatusAccepted {
			submittedAt := now
			if item.SubmittedAt != nil {
				submittedAt = item.SubmittedAt.UTC()
			}
			updates["submitted_at"] = submittedAt
		}
	}

	if err := repo.ApplyRecordUpdates(ctx, record.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply report updates")
	}

	if item.Status != enums.SubmissionStatusSubmitting {
		action := enums.EventActionReleased
		switch item.Status {
		case enums.SubmissionStatusAccepted:
			action = enums.EventActionAccepted
		case enums.SubmissionStatusRejected:
			action = enums.EventActionRejected
		}
		if err := eventsRepo.Append(ctx, events.Build(attemptID, record, action, nil)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append report event")
		}
	}
	return nil
}

// Finalize releases every record still leased to the attempt and marks the
// attempt complete. Finalizing an already terminal attempt is a no-op.
func (s *service) Finalize(ctx context.Context, attemptID uuid.UUID) (*FinalizeResult, error) {
	if attemptID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attempt id is required")
	}

	released := make(map[enums.EntityType]int)
	var status enums.AttemptStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		eventsRepo := s.events.WithTx(tx)

		attempt, err := repo.FindAttempt(ctx, attemptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "attempt not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup attempt")
		}
		if attempt.Status.IsTerminal() {
			status = attempt.Status
			return nil
		}

		bound, err := repo.BoundRecords(ctx, attemptID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list leased records")
		}
		for i := range bound {
			record := &bound[i]
			err := repo.ApplyRecordUpdates(ctx, record.ID, map[string]any{
				"status":           enums.SubmissionStatusDraft,
				"attempt_id":       nil,
				"lock_acquired_at": nil,
				"lock_expires_at":  nil,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release record")
			}
			if err := eventsRepo.Append(ctx, events.Build(attemptID, record, enums.EventActionReleased, nil)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append released event")
			}
			released[record.EntityType]++
		}

		if err := repo.UpdateAttempt(ctx, attemptID, map[string]any{"status": enums.AttemptStatusComplete}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete attempt")
		}
		status = enums.AttemptStatusComplete
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &FinalizeResult{AttemptID: attemptID, Released: released, Status: status}, nil
}

// ExpireStaleLeases reaps lapsed leases: submitting records whose expiry has
// passed go back to draft, and processing attempts past their window expire.
// Safe to run repeatedly and concurrently with claim and report.
func (s *service) ExpireStaleLeases(ctx context.Context) (*ExpireResult, error) {
	expired := make(map[enums.EntityType]int)
	var attemptsExpired int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		eventsRepo := s.events.WithTx(tx)
		now := s.now().UTC()

		stale, err := repo.StaleRecords(ctx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select stale records")
		}
		for i := range stale {
			record := &stale[i]
			err := repo.ApplyRecordUpdates(ctx, record.ID, map[string]any{
				"status":           enums.SubmissionStatusDraft,
				"attempt_id":       nil,
				"lock_acquired_at": nil,
				"lock_expires_at":  nil,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire record lease")
			}
			ownerID := uuid.Nil
			if record.AttemptID != nil {
				ownerID = *record.AttemptID
			}
			if err := eventsRepo.Append(ctx, events.Build(ownerID, record, enums.EventActionExpired, nil)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append expired event")
			}
			expired[record.EntityType]++
		}

		attemptsExpired, err = repo.ExpireAttempts(ctx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire attempts")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(expired) > 0 || attemptsExpired > 0 {
		s.logg.Info(ctx, fmt.Sprintf("lease sweep expired %d attempts", attemptsExpired))
	}
	return &ExpireResult{RecordsExpired: expired, AttemptsExpired: int(attemptsExpired)}, nil
}

func isClaimable(entityType enums.EntityType) bool {
	for _, candidate := range enums.ClaimableEntityTypes {
		if candidate == entityType {
			return true
		}
	}
	return false
}

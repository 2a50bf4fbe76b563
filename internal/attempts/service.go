package attempts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seqstage/seqstage-backend/pkg/db/models"
	"github.com/seqstage/seqstage-backend/pkg/enums"
	pkgerrors "github.com/seqstage/seqstage-backend/pkg/errors"
	pkgpagination "github.com/seqstage/seqstage-backend/pkg/pagination"
)

const recentAttemptsLimit = 10

// Service is the read-only dashboard surface over attempts and their records.
type Service interface {
	ListAttempts(ctx context.Context, params ListParams) (*ListResult, error)
	GetAttempt(ctx context.Context, id uuid.UUID, includeItems bool) (*AttemptDetail, error)
	AttemptItems(ctx context.Context, id uuid.UUID) (map[enums.EntityType][]models.SubmissionRecord, error)
	SummarizeOrganism(ctx context.Context, organismKey string) (*OrganismSummary, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the attempts read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("attempts repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) ListAttempts(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)

	var cursor *pkgpagination.Cursor
	if params.Cursor != "" {
		parsed, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, err := s.repo.List(ctx, params.OrganismKey, pkgpagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attempts")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]AttemptView, 0, len(rows))
	for i := range rows {
		view, err := s.buildView(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *view)
	}

	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) GetAttempt(ctx context.Context, id uuid.UUID, includeItems bool) (*AttemptDetail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attempt id is required")
	}

	attempt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "attempt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup attempt")
	}

	associated, err := s.repo.AssociatedRecords(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attempt records")
	}

	detail := &AttemptDetail{AttemptView: toView(attempt, Derive(attempt, associated, s.now().UTC()))}
	if includeItems {
		detail.Items = groupByType(associated)
	}
	return detail, nil
}

func (s *service) AttemptItems(ctx context.Context, id uuid.UUID) (map[enums.EntityType][]models.SubmissionRecord, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attempt id is required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "attempt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup attempt")
	}

	associated, err := s.repo.AssociatedRecords(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attempt records")
	}
	return groupByType(associated), nil
}

func (s *service) SummarizeOrganism(ctx context.Context, organismKey string) (*OrganismSummary, error) {
	if strings.TrimSpace(organismKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organism key is required")
	}

	counts, err := s.repo.StatusCountsByOrganism(ctx, organismKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate status counts")
	}

	recent, err := s.repo.RecentByOrganism(ctx, organismKey, recentAttemptsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent attempts")
	}

	views := make([]AttemptView, 0, len(recent))
	for i := range recent {
		view, err := s.buildView(ctx, &recent[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}

	return &OrganismSummary{
		OrganismKey:    organismKey,
		StatusCounts:   counts,
		RecentAttempts: views,
	}, nil
}

func (s *service) buildView(ctx context.Context, attempt *models.SubmissionAttempt) (*AttemptView, error) {
	associated, err := s.repo.AssociatedRecords(ctx, attempt.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attempt records")
	}
	view := toView(attempt, Derive(attempt, associated, s.now().UTC()))
	return &view, nil
}

func toView(attempt *models.SubmissionAttempt, derived DerivedStatus) AttemptView {
	return AttemptView{
		ID:             attempt.ID,
		OrganismKey:    attempt.OrganismKey,
		CampaignLabel:  attempt.CampaignLabel,
		Status:         attempt.Status,
		DerivedStatus:  derived,
		LockAcquiredAt: attempt.LockAcquiredAt,
		LockExpiresAt:  attempt.LockExpiresAt,
		CreatedAt:      attempt.CreatedAt,
	}
}

func groupByType(rows []models.SubmissionRecord) map[enums.EntityType][]models.SubmissionRecord {
	grouped := make(map[enums.EntityType][]models.SubmissionRecord)
	for _, row := range rows {
		grouped[row.EntityType] = append(grouped[row.EntityType], row)
	}
	return grouped
}

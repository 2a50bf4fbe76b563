package attempts

import (
	"time"

	"github.com/google/uuid"

	"github.com/seqstage/seqstage-backend/pkg/db/models"
	"github.com/seqstage/seqstage-backend/pkg/enums"
)

// DerivedStatus is the attempt state shown to clients. It is computed from
// the attempt's lease window and its associated records, not stored.
type DerivedStatus string

const (
	DerivedStatusActive   DerivedStatus = "active"
	DerivedStatusComplete DerivedStatus = "complete"
	DerivedStatusExpired  DerivedStatus = "expired"
	DerivedStatusEmpty    DerivedStatus = "empty"
	DerivedStatusIdle     DerivedStatus = "idle"
)

// AttemptView is one attempt row with its derived status.
type AttemptView struct {
	ID             uuid.UUID           `json:"id"`
	OrganismKey    *string             `json:"organism_key,omitempty"`
	CampaignLabel  *string             `json:"campaign_label,omitempty"`
	Status         enums.AttemptStatus `json:"status"`
	DerivedStatus  DerivedStatus       `json:"derived_status"`
	LockAcquiredAt time.Time           `json:"lock_acquired_at"`
	LockExpiresAt  *time.Time          `json:"lock_expires_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// AttemptDetail is an attempt plus, optionally, its associated records.
type AttemptDetail struct {
	AttemptView
	Items map[enums.EntityType][]models.SubmissionRecord `json:"items,omitempty"`
}

// ListParams filters and paginates the attempt listing.
type ListParams struct {
	OrganismKey string
	Limit       int
	Cursor      string
}

// ListResult is one page of attempts.
type ListResult struct {
	Items  []AttemptView `json:"items"`
	Cursor string        `json:"cursor,omitempty"`
}

// OrganismSummary aggregates staging state for one organism.
type OrganismSummary struct {
	OrganismKey    string                                              `json:"organism_key"`
	StatusCounts   map[enums.EntityType]map[enums.SubmissionStatus]int `json:"status_counts"`
	RecentAttempts []AttemptView                                       `json:"recent_attempts"`
}

// Derive computes the client-facing attempt status from its records.
func Derive(attempt *models.SubmissionAttempt, associated []models.SubmissionRecord, now time.Time) DerivedStatus {
	if len(associated) == 0 {
		return DerivedStatusEmpty
	}

	leaseLapsed := attempt.LockExpiresAt != nil && attempt.LockExpiresAt.Before(now)
	anySubmitting := false
	anyAccepted := false
	for i := range associated {
		switch associated[i].Status {
		case enums.SubmissionStatusSubmitting:
			anySubmitting = true
		case enums.SubmissionStatusAccepted:
			anyAccepted = true
		}
	}

	switch {
	case anySubmitting && !leaseLapsed:
		return DerivedStatusActive
	case anySubmitting && leaseLapsed:
		return DerivedStatusExpired
	case anyAccepted:
		return DerivedStatusComplete
	default:
		return DerivedStatusIdle
	}
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/seqstage/seqstage-backend/pkg/enums"
)

// SubmissionAttempt is one broker work session: the unit claimed records and
// their outcomes are bound to for the duration of a lease window.
type SubmissionAttempt struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganismKey   *string             `gorm:"column:organism_key" json:"organism_key,omitempty"`
	CampaignLabel *string             `gorm:"column:campaign_label" json:"campaign_label,omitempty"`
	Status        enums.AttemptStatus `gorm:"column:status;type:attempt_status;not null;default:processing" json:"status"`

	LockAcquiredAt time.Time  `gorm:"column:lock_acquired_at;not null" json:"lock_acquired_at"`
	LockExpiresAt  *time.Time `gorm:"column:lock_expires_at" json:"lock_expires_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the GORM default pluralization.
func (SubmissionAttempt) TableName() string {
	return "submission_attempts"
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/seqstage/seqstage-backend/pkg/enums"
	"github.com/seqstage/seqstage-backend/pkg/types"
)

// SubmissionRecord is one staged version of an entity's archive submission.
// Draft rows are created by the entity-edit workflow; once claimed, every
// transition is owned by the broker.
//
// Invariants enforced by the broker repositories:
//   - status=submitting implies attempt_id and lock_expires_at are set;
//   - any transition out of submitting clears the lease fields and stamps
//     finalized_attempt_id;
//   - at most one submitting row exists per (entity_type, entity_id).
type SubmissionRecord struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityType enums.EntityType `gorm:"column:entity_type;type:entity_type;not null" json:"entity_type"`
	EntityID   uuid.UUID        `gorm:"column:entity_id;type:uuid;not null" json:"entity_id"`
	Authority  enums.Authority  `gorm:"column:authority;type:authority_type;not null;default:ENA" json:"authority"`

	Status          enums.SubmissionStatus `gorm:"column:status;type:submission_status;not null;default:draft" json:"status"`
	PreparedPayload types.PayloadMap       `gorm:"column:prepared_payload;type:jsonb;not null" json:"prepared_payload"`
	ResponsePayload types.PayloadMap       `gorm:"column:response_payload;type:jsonb" json:"response_payload,omitempty"`
	Accession       *string                `gorm:"column:accession" json:"accession,omitempty"`
	ParentAccession *string                `gorm:"column:parent_accession" json:"parent_accession,omitempty"`

	AttemptID          *uuid.UUID `gorm:"column:attempt_id;type:uuid" json:"attempt_id,omitempty"`
	FinalizedAttemptID *uuid.UUID `gorm:"column:finalized_attempt_id;type:uuid" json:"finalized_attempt_id,omitempty"`
	LockAcquiredAt     *time.Time `gorm:"column:lock_acquired_at" json:"lock_acquired_at,omitempty"`
	LockExpiresAt      *time.Time `gorm:"column:lock_expires_at" json:"lock_expires_at,omitempty"`

	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the GORM default pluralization.
func (SubmissionRecord) TableName() string {
	return "submission_records"
}

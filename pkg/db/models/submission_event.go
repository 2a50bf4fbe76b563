package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/seqstage/seqstage-backend/pkg/enums"
	"github.com/seqstage/seqstage-backend/pkg/types"
)

// SubmissionEvent is one append-only audit entry for a submission record
// under a specific attempt. Events are never updated or deleted; they remain
// the source of truth for what happened after lease fields are cleared.
type SubmissionEvent struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AttemptID    uuid.UUID         `gorm:"column:attempt_id;type:uuid;not null" json:"attempt_id"`
	EntityType   enums.EntityType  `gorm:"column:entity_type;type:entity_type;not null" json:"entity_type"`
	SubmissionID uuid.UUID         `gorm:"column:submission_id;type:uuid;not null" json:"submission_id"`
	Action       enums.EventAction `gorm:"column:action;type:event_action;not null" json:"action"`
	Accession    *string           `gorm:"column:accession" json:"accession,omitempty"`
	Details      types.PayloadMap  `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	At           time.Time         `gorm:"column:at;autoCreateTime" json:"at"`
}

// TableName overrides the GORM default pluralization.
func (SubmissionEvent) TableName() string {
	return "submission_events"
}

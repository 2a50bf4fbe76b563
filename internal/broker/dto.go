package broker

import (
	"time"

	"github.com/google/uuid"

	"github.com/seqstage/seqstage-backend/pkg/enums"
	"github.com/seqstage/seqstage-backend/pkg/types"
)

// ClaimInput carries the parameters of one claim call.
type ClaimInput struct {
	ScopeKey      string
	PerTypeLimit  int
	LeaseMinutes  int
	CampaignLabel *string
	ExplicitIDs   map[enums.EntityType][]uuid.UUID
}

// ClaimedItem is one record acquired by a claim, with its upstream reference
// resolved when a parent accession is known.
type ClaimedItem struct {
	SubmissionID       uuid.UUID              `json:"submission_id"`
	EntityID           uuid.UUID              `json:"entity_id"`
	Status             enums.SubmissionStatus `json:"status"`
	PreparedPayload    types.PayloadMap       `json:"prepared_payload"`
	Accession          *string                `json:"accession,omitempty"`
	ParentAccession    *string                `json:"parent_accession,omitempty"`
	ParentSubmissionID *uuid.UUID             `json:"parent_submission_id,omitempty"`
}

// ClaimResult is the outcome of a claim call. Empty per-type lists are a
// valid result: nothing was eligible.
type ClaimResult struct {
	AttemptID      uuid.UUID                          `json:"attempt_id"`
	LockAcquiredAt time.Time                          `json:"lock_acquired_at"`
	LockExpiresAt  time.Time                          `json:"lock_expires_at"`
	Items          map[enums.EntityType][]ClaimedItem `json:"items"`
}

// ReportItem is one externally observed outcome for a claimed record.
type ReportItem struct {
	SubmissionID    uuid.UUID
	Status          enums.SubmissionStatus
	Accession       *string
	ParentAccession *string
	ResponsePayload types.PayloadMap
	SubmittedAt     *time.Time
}

// ReportInput carries the per-type outcome lists of one report call.
type ReportInput struct {
	AttemptID uuid.UUID
	Items     map[enums.EntityType][]ReportItem
}

// ReportResult returns how many records each entity type updated.
type ReportResult struct {
	UpdatedCounts map[enums.EntityType]int `json:"updated_counts"`
}

// RenewResult returns the lease window after a renew call.
type RenewResult struct {
	AttemptID     uuid.UUID `json:"attempt_id"`
	LockExpiresAt time.Time `json:"lock_expires_at"`
}

// FinalizeResult returns the per-type release counts of a finalize call.
type FinalizeResult struct {
	AttemptID uuid.UUID                `json:"attempt_id"`
	Released  map[enums.EntityType]int `json:"released"`
	Status    enums.AttemptStatus      `json:"status"`
}

// ExpireResult summarizes one reap sweep.
type ExpireResult struct {
	RecordsExpired  map[enums.EntityType]int `json:"records_expired"`
	AttemptsExpired int                      `json:"attempts_expired"`
}

package attempts

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/seqstage/seqstage-backend/pkg/db/models"
	"github.com/seqstage/seqstage-backend/pkg/enums"
)

func TestDerive(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	record := func(status enums.SubmissionStatus) models.SubmissionRecord {
		return models.SubmissionRecord{
			ID:         uuid.New(),
			EntityType: enums.EntityTypeSample,
			EntityID:   uuid.New(),
			Status:     status,
		}
	}

	tests := []struct {
		name       string
		expiresAt  *time.Time
		associated []models.SubmissionRecord
		want       DerivedStatus
	}{
		{
			name: "no records is empty",
			want: DerivedStatusEmpty,
		},
		{
			name:       "submitting within lease is active",
			expiresAt:  &future,
			associated: []models.SubmissionRecord{record(enums.SubmissionStatusSubmitting)},
			want:       DerivedStatusActive,
		},
		{
			name:       "submitting past lease is expired",
			expiresAt:  &past,
			associated: []models.SubmissionRecord{record(enums.SubmissionStatusSubmitting)},
			want:       DerivedStatusExpired,
		},
		{
			name:      "accepted outcome is complete",
			expiresAt: &past,
			associated: []models.SubmissionRecord{
				record(enums.SubmissionStatusAccepted),
				record(enums.SubmissionStatusRejected),
			},
			want: DerivedStatusComplete,
		},
		{
			name:       "only rejected outcomes is idle",
			expiresAt:  &past,
			associated: []models.SubmissionRecord{record(enums.SubmissionStatusRejected)},
			want:       DerivedStatusIdle,
		},
		{
			name:       "released drafts with no outcome is idle",
			expiresAt:  &future,
			associated: []models.SubmissionRecord{record(enums.SubmissionStatusDraft)},
			want:       DerivedStatusIdle,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			attempt := &models.SubmissionAttempt{
				ID:             uuid.New(),
				Status:         enums.AttemptStatusProcessing,
				LockAcquiredAt: now.Add(-time.Minute),
				LockExpiresAt:  tc.expiresAt,
			}
			assert.Equal(t, tc.want, Derive(attempt, tc.associated, now))
		})
	}
}

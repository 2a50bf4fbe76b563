package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/seqstage/seqstage-backend/pkg/db/models"
	"github.com/seqstage/seqstage-backend/pkg/enums"
	"github.com/seqstage/seqstage-backend/pkg/types"
)

func setupEventsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS submission_events (
  id TEXT PRIMARY KEY,
  attempt_id TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  submission_id TEXT NOT NULL,
  action TEXT NOT NULL,
  accession TEXT,
  details TEXT,
  at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestAppendAndListByAttempt(t *testing.T) {
	db := setupEventsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	attemptID := uuid.New()
	submissionID := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)

	actions := []enums.EventAction{
		enums.EventActionClaimed,
		enums.EventActionAccepted,
		enums.EventActionReleased,
	}
	for i, action := range actions {
		require.NoError(t, repo.Append(ctx, &models.SubmissionEvent{
			AttemptID:    attemptID,
			EntityType:   enums.EntityTypeSample,
			SubmissionID: submissionID,
			Action:       action,
			At:           base.Add(time.Duration(i) * time.Second),
		}))
	}
	// Event on another attempt stays out of the listing.
	require.NoError(t, repo.Append(ctx, &models.SubmissionEvent{
		AttemptID:    uuid.New(),
		EntityType:   enums.EntityTypeSample,
		SubmissionID: uuid.New(),
		Action:       enums.EventActionClaimed,
		At:           base,
	}))

	rows, err := repo.ListByAttempt(ctx, attemptID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, action := range actions {
		assert.Equal(t, action, rows[i].Action)
	}

	bySubmission, err := repo.ListBySubmission(ctx, submissionID)
	require.NoError(t, err)
	assert.Len(t, bySubmission, 3)
}

func TestBuildCopiesRecordAccession(t *testing.T) {
	attemptID := uuid.New()
	accession := "SAMEA1"
	record := &models.SubmissionRecord{
		ID:         uuid.New(),
		EntityType: enums.EntityTypeSample,
		EntityID:   uuid.New(),
		Accession:  &accession,
	}

	event := Build(attemptID, record, enums.EventActionAccepted, types.PayloadMap{"note": "ok"})
	assert.Equal(t, attemptID, event.AttemptID)
	assert.Equal(t, record.ID, event.SubmissionID)
	assert.Equal(t, enums.EventActionAccepted, event.Action)
	require.NotNil(t, event.Accession)
	assert.Equal(t, accession, *event.Accession)

	// Mutating the record afterwards must not reach the event.
	*record.Accession = "SAMEA2"
	assert.Equal(t, "SAMEA1", *event.Accession)
}

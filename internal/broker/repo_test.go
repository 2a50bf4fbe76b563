package broker

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

func setupBrokerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS organisms (
  grouping_key TEXT PRIMARY KEY,
  tax_id INTEGER NOT NULL,
  scientific_name TEXT,
  common_name TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS samples (
  id TEXT PRIMARY KEY,
  organism_key TEXT NOT NULL,
  source_sample_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS experiments (
  id TEXT PRIMARY KEY,
  sample_id TEXT NOT NULL,
  source_package_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS reads (
  id TEXT PRIMARY KEY,
  experiment_id TEXT NOT NULL,
  file_name TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  organism_key TEXT NOT NULL,
  alias TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS submission_attempts (
  id TEXT PRIMARY KEY,
  organism_key TEXT,
  campaign_label TEXT,
  status TEXT NOT NULL DEFAULT 'processing',
  lock_acquired_at DATETIME NOT NULL,
  lock_expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS submission_records (
  id TEXT PRIMARY KEY,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  authority TEXT NOT NULL DEFAULT 'ENA',
  status TEXT NOT NULL DEFAULT 'draft',
  prepared_payload TEXT NOT NULL,
  response_payload TEXT,
  accession TEXT,
  parent_accession TEXT,
  attempt_id TEXT,
  finalized_attempt_id TEXT,
  lock_acquired_at DATETIME,
  lock_expires_at DATETIME,
  submitted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS submission_events (
  id TEXT PRIMARY KEY,
  attempt_id TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  submission_id TEXT NOT NULL,
  action TEXT NOT NULL,
  accession TEXT,
  details TEXT,
  at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS accession_registry (
  id TEXT PRIMARY KEY,
  authority TEXT NOT NULL,
  accession TEXT NOT NULL,
  secondary_accession TEXT,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  accepted_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (authority, accession),
  UNIQUE (authority, entity_type, entity_id)
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newSample(t *testing.T, db *gorm.DB, organismKey, sourceID string) *models.Sample {
	t.Helper()
	sample := &models.Sample{
		ID:             uuid.New(),
		OrganismKey:    organismKey,
		SourceSampleID: sourceID,
	}
	require.NoError(t, db.Create(sample).Error)
	return sample
}

func newDraft(t *testing.T, db *gorm.DB, entityType enums.EntityType, entityID uuid.UUID, createdAt time.Time) *models.SubmissionRecord {
	t.Helper()
	record := &models.SubmissionRecord{
		ID:              uuid.New(),
		EntityType:      entityType,
		EntityID:        entityID,
		Authority:       enums.AuthorityENA,
		Status:          enums.SubmissionStatusDraft,
		PreparedPayload: types.PayloadMap{"title": "draft"},
		CreatedAt:       createdAt,
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestCandidateIDsPicksLatestDraftPerEntity(t *testing.T) {
	db := setupBrokerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sample := newSample(t, db, "G1", "S-1")
	older := newDraft(t, db, enums.EntityTypeSample, sample.ID, time.Now().Add(-time.Hour))
	newer := newDraft(t, db, enums.EntityTypeSample, sample.ID, time.Now())

	ids, err := repo.CandidateIDs(ctx, enums.EntityTypeSample, "G1", 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, newer.ID, ids[0])
	assert.NotEqual(t, older.ID, ids[0])
}

func TestCandidateIDsScopesToOrganism(t *testing.T) {
	db := setupBrokerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	inScope := newSample(t, db, "G1", "S-1")
	outOfScope := newSample(t, db, "G2", "S-2")
	newDraft(t, db, enums.EntityTypeSample, inScope.ID, time.Now())
	newDraft(t, db, enums.EntityTypeSample, outOfScope.ID, time.Now())

	ids, err := repo.CandidateIDs(ctx, enums.EntityTypeSample, "G1", 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
}

func TestCandidateIDsRespectsLimit(t *testing.T) {
	db := setupBrokerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		sample := newSample(t, db, "G1", "S-"+uuid.NewString())
		newDraft(t, db, enums.EntityTypeSample, sample.ID, time.Now())
	}

	ids, err := repo.CandidateIDs(ctx, enums.EntityTypeSample, "G1", 3)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestAcquireRecordsOnlyTakesDrafts(t *testing.T) {
	db := setupBrokerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sample := newSample(t, db, "G1", "S-1")
	draft := newDraft(t, db, enums.EntityTypeSample, sample.ID, time.Now())

	attemptA := uuid.New()
	now := time.Now().UTC()
	expiry := now.Add(30 * time.Minute)

	acquired, err := repo.AcquireRecords(ctx, []uuid.UUID{draft.ID}, attemptA, now, expiry)
	require.NoError(t, err)
	require.Len(t, acquired, 1)
	assert.Equal(t, enums.SubmissionStatusSubmitting, acquired[0].Status)
	require.NotNil(t, acquired[0].AttemptID)
	assert.Equal(t, attemptA, *acquired[0].AttemptID)

	// A second attempt contending for the same row wins nothing.
	attemptB := uuid.New()
	stolen, err := repo.AcquireRecords(ctx, []uuid.UUID{draft.ID}, attemptB, now, expiry)
	require.NoError(t, err)
	assert.Empty(t, stolen)

	var persisted models.SubmissionRecord
	require.NoError(t, db.First(&persisted, "id = ?", draft.ID).Error)
	assert.Equal(t, attemptA, *persisted.AttemptID)
}

func TestStaleRecordsIgnoresNullExpiry(t *testing.T) {
	db := setupBrokerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sample := newSample(t, db, "G1", "S-1")
	attemptID := uuid.New()
	past := time.Now().UTC().Add(-time.Hour)

	lapsed := newDraft(t, db, enums.EntityTypeSample, sample.ID, time.Now())
	require.NoError(t, db.Model(&models.SubmissionRecord{}).Where("id = ?", lapsed.ID).Updates(map[string]any{
		"status":          enums.SubmissionStatusSubmitting,
		"attempt_id":      attemptID,
		"lock_expires_at": past,
	}).Error)

	// Submitting but with no lease window: never reapable.
	unleased := newDraft(t, db, enums.EntityTypeSample, sample.ID, time.Now())
	require.NoError(t, db.Model(&models.SubmissionRecord{}).Where("id = ?", unleased.ID).Update("status", enums.SubmissionStatusSubmitting).Error)

	stale, err := repo.StaleRecords(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, lapsed.ID, stale[0].ID)
}

func TestExpireAttemptsOnlyTouchesLapsedProcessing(t *testing.T) {
	db := setupBrokerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	lapsed := &models.SubmissionAttempt{ID: uuid.New(), Status: enums.AttemptStatusProcessing, LockAcquiredAt: now.Add(-time.Hour), LockExpiresAt: &past}
	active := &models.SubmissionAttempt{ID: uuid.New(), Status: enums.AttemptStatusProcessing, LockAcquiredAt: now, LockExpiresAt: &future}
	done := &models.SubmissionAttempt{ID: uuid.New(), Status: enums.AttemptStatusComplete, LockAcquiredAt: now.Add(-time.Hour), LockExpiresAt: &past}
	require.NoError(t, db.Create(lapsed).Error)
	require.NoError(t, db.Create(active).Error)
	require.NoError(t, db.Create(done).Error)

	count, err := repo.ExpireAttempts(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var reloadedLapsed models.SubmissionAttempt
	require.NoError(t, db.First(&reloadedLapsed, "id = ?", lapsed.ID).Error)
	assert.Equal(t, enums.AttemptStatusExpired, reloadedLapsed.Status)
	var reloadedActive models.SubmissionAttempt
	require.NoError(t, db.First(&reloadedActive, "id = ?", active.ID).Error)
	assert.Equal(t, enums.AttemptStatusProcessing, reloadedActive.Status)
	var reloadedDone models.SubmissionAttempt
	require.NoError(t, db.First(&reloadedDone, "id = ?", done.ID).Error)
	assert.Equal(t, enums.AttemptStatusComplete, reloadedDone.Status)
}

func TestParentEntityIDResolvesHierarchy(t *testing.T) {
	db := setupBrokerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sample := newSample(t, db, "G1", "S-1")
	experiment := &models.Experiment{ID: uuid.New(), SampleID: sample.ID, SourcePackageID: "P-1"}
	require.NoError(t, db.Create(experiment).Error)
	read := &models.Read{ID: uuid.New(), ExperimentID: experiment.ID}
	require.NoError(t, db.Create(read).Error)

	parentID, err := repo.ParentEntityID(ctx, enums.EntityTypeExperiment, experiment.ID)
	require.NoError(t, err)
	assert.Equal(t, sample.ID, parentID)

	parentID, err = repo.ParentEntityID(ctx, enums.EntityTypeRead, read.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.ID, parentID)

	parentID, err = repo.ParentEntityID(ctx, enums.EntityTypeSample, sample.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, parentID)
}

package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seqstage/seqstage-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestBrokerMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_submission_broker.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no broker migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS submission_records",
		"CREATE TABLE IF NOT EXISTS submission_attempts",
		"CREATE TABLE IF NOT EXISTS submission_events",
		"CREATE TABLE IF NOT EXISTS accession_registry",
		"UNIQUE (authority, accession)",
		"UNIQUE (authority, entity_type, entity_id)",
		"CHECK (status != 'submitting' OR (attempt_id IS NOT NULL AND lock_expires_at IS NOT NULL))",
		"WHERE status = 'submitting'",
		"DROP TABLE IF EXISTS submission_records",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

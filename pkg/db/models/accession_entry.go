package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/seqstage/seqstage-backend/pkg/enums"
)

// AccessionEntry maps an externally issued accession to the entity it was
// granted for. Rows are inserted idempotently and never mutated.
type AccessionEntry struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Authority          enums.Authority  `gorm:"column:authority;type:authority_type;not null" json:"authority"`
	Accession          string           `gorm:"column:accession;not null;uniqueIndex:idx_accession_registry_authority_accession" json:"accession"`
	SecondaryAccession *string          `gorm:"column:secondary_accession" json:"secondary_accession,omitempty"`
	EntityType         enums.EntityType `gorm:"column:entity_type;type:entity_type;not null" json:"entity_type"`
	EntityID           uuid.UUID        `gorm:"column:entity_id;type:uuid;not null" json:"entity_id"`
	AcceptedAt         time.Time        `gorm:"column:accepted_at;not null" json:"accepted_at"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName pins the historical registry table name.
func (AccessionEntry) TableName() string {
	return "accession_registry"
}

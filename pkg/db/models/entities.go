package models

import (
	"time"

	"github.com/google/uuid"
)

// The parent entity tables below are owned by the curation services; the
// broker only joins through them for claim scoping and parent-accession
// resolution.

// Organism groups samples under a stable key.
type Organism struct {
	GroupingKey    string    `gorm:"column:grouping_key;primaryKey" json:"grouping_key"`
	TaxID          int64     `gorm:"column:tax_id;not null" json:"tax_id"`
	ScientificName *string   `gorm:"column:scientific_name" json:"scientific_name,omitempty"`
	CommonName     *string   `gorm:"column:common_name" json:"common_name,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the GORM default pluralization.
func (Organism) TableName() string {
	return "organisms"
}

// Sample is a biological sample tied to an organism.
type Sample struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganismKey    string    `gorm:"column:organism_key;not null" json:"organism_key"`
	SourceSampleID string    `gorm:"column:source_sample_id;not null;unique" json:"source_sample_id"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the GORM default pluralization.
func (Sample) TableName() string {
	return "samples"
}

// Experiment is a sequencing experiment run against a sample.
type Experiment struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SampleID        uuid.UUID `gorm:"column:sample_id;type:uuid;not null" json:"sample_id"`
	SourcePackageID string    `gorm:"column:source_package_id;not null;unique" json:"source_package_id"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the GORM default pluralization.
func (Experiment) TableName() string {
	return "experiments"
}

// Read is a raw sequencing output file produced by an experiment.
type Read struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ExperimentID uuid.UUID `gorm:"column:experiment_id;type:uuid;not null" json:"experiment_id"`
	FileName     *string   `gorm:"column:file_name" json:"file_name,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the GORM default pluralization.
func (Read) TableName() string {
	return "reads"
}

// Project is an umbrella archive project for an organism.
type Project struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganismKey string    `gorm:"column:organism_key;not null" json:"organism_key"`
	Alias       *string   `gorm:"column:alias" json:"alias,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the GORM default pluralization.
func (Project) TableName() string {
	return "projects"
}

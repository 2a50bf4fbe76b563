package enums

import "fmt"

// EntityType tags which parent entity a submission record stages.
type EntityType string

const (
	EntityTypeOrganism   EntityType = "organism"
	EntityTypeSample     EntityType = "sample"
	EntityTypeExperiment EntityType = "experiment"
	EntityTypeRead       EntityType = "read"
	EntityTypeAssembly   EntityType = "assembly"
	EntityTypeProject    EntityType = "project"
)

// ClaimableEntityTypes lists the entity types the claim coordinator selects,
// parents before children so upstream accessions resolve first.
var ClaimableEntityTypes = []EntityType{
	EntityTypeProject,
	EntityTypeSample,
	EntityTypeExperiment,
	EntityTypeRead,
}

var validEntityTypes = []EntityType{
	EntityTypeOrganism,
	EntityTypeSample,
	EntityTypeExperiment,
	EntityTypeRead,
	EntityTypeAssembly,
	EntityTypeProject,
}

// String implements fmt.Stringer.
func (e EntityType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EntityType.
func (e EntityType) IsValid() bool {
	for _, candidate := range validEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// Parent returns the entity type a child submission resolves its upstream
// accession from, or empty when the type has no broker-visible parent.
func (e EntityType) Parent() EntityType {
	switch e {
	case EntityTypeExperiment:
		return EntityTypeSample
	case EntityTypeRead:
		return EntityTypeExperiment
	default:
		return ""
	}
}

// ParseEntityType converts raw input into an EntityType.
func ParseEntityType(value string) (EntityType, error) {
	for _, candidate := range validEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity type %q", value)
}

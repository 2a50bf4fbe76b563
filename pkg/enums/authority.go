package enums

import "fmt"

// Authority identifies the external archive that issues accessions.
type Authority string

const (
	AuthorityENA  Authority = "ENA"
	AuthorityNCBI Authority = "NCBI"
	AuthorityDDBJ Authority = "DDBJ"
)

var validAuthorities = []Authority{
	AuthorityENA,
	AuthorityNCBI,
	AuthorityDDBJ,
}

// String implements fmt.Stringer.
func (a Authority) String() string {
	return string(a)
}

// IsValid reports whether the value is a known Authority.
func (a Authority) IsValid() bool {
	for _, candidate := range validAuthorities {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuthority converts raw input into an Authority.
func ParseAuthority(value string) (Authority, error) {
	for _, candidate := range validAuthorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid authority %q", value)
}

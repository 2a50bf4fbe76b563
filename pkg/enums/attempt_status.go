package enums

import "fmt"

// AttemptStatus tracks the lifecycle of a broker submission attempt.
// Processing is the only non-terminal state.
type AttemptStatus string

const (
	AttemptStatusProcessing AttemptStatus = "processing"
	AttemptStatusComplete   AttemptStatus = "complete"
	AttemptStatusExpired    AttemptStatus = "expired"
)

var validAttemptStatuses = []AttemptStatus{
	AttemptStatusProcessing,
	AttemptStatusComplete,
	AttemptStatusExpired,
}

// String implements fmt.Stringer.
func (a AttemptStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AttemptStatus.
func (a AttemptStatus) IsValid() bool {
	for _, candidate := range validAttemptStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the attempt can no longer change.
func (a AttemptStatus) IsTerminal() bool {
	return a == AttemptStatusComplete || a == AttemptStatusExpired
}

// ParseAttemptStatus converts raw input into an AttemptStatus.
func ParseAttemptStatus(value string) (AttemptStatus, error) {
	for _, candidate := range validAttemptStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attempt status %q", value)
}

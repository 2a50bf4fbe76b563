package enums

import "fmt"

// SubmissionStatus tracks the lifecycle of a staged submission record.
type SubmissionStatus string

const (
	SubmissionStatusDraft      SubmissionStatus = "draft"
	SubmissionStatusReady      SubmissionStatus = "ready"
	SubmissionStatusSubmitting SubmissionStatus = "submitting"
	SubmissionStatusAccepted   SubmissionStatus = "accepted"
	SubmissionStatusRejected   SubmissionStatus = "rejected"
	SubmissionStatusReplaced   SubmissionStatus = "replaced"
)

var validSubmissionStatuses = []SubmissionStatus{
	SubmissionStatusDraft,
	SubmissionStatusReady,
	SubmissionStatusSubmitting,
	SubmissionStatusAccepted,
	SubmissionStatusRejected,
	SubmissionStatusReplaced,
}

// String implements fmt.Stringer.
func (s SubmissionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubmissionStatus.
func (s SubmissionStatus) IsValid() bool {
	for _, candidate := range validSubmissionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminalOutcome reports whether the status ends a lease when reported.
func (s SubmissionStatus) IsTerminalOutcome() bool {
	return s != SubmissionStatusSubmitting
}

// ParseSubmissionStatus converts raw input into a SubmissionStatus.
func ParseSubmissionStatus(value string) (SubmissionStatus, error) {
	for _, candidate := range validSubmissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid submission status %q", value)
}

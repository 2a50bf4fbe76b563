package enums

import "fmt"

// EventAction labels an audit event recorded against a submission record.
type EventAction string

const (
	EventActionClaimed  EventAction = "claimed"
	EventActionAccepted EventAction = "accepted"
	EventActionRejected EventAction = "rejected"
	EventActionReleased EventAction = "released"
	EventActionExpired  EventAction = "expired"
)

var validEventActions = []EventAction{
	EventActionClaimed,
	EventActionAccepted,
	EventActionRejected,
	EventActionReleased,
	EventActionExpired,
}

// String implements fmt.Stringer.
func (e EventAction) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventAction.
func (e EventAction) IsValid() bool {
	for _, candidate := range validEventActions {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventAction converts raw input into an EventAction.
func ParseEventAction(value string) (EventAction, error) {
	for _, candidate := range validEventActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event action %q", value)
}

package enums

import "fmt"

// SessionStatus tracks where a checkout session sits in its lifecycle.
// Only active sessions accept heartbeats; the other three are terminal.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusAbandoned SessionStatus = "abandoned"
	SessionStatusConverted SessionStatus = "converted"
	SessionStatusExpired   SessionStatus = "expired"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusActive,
	SessionStatusAbandoned,
	SessionStatusConverted,
	SessionStatusExpired,
}

// String implements fmt.Stringer.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SessionStatus.
func (s SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status rejects further heartbeats.
func (s SessionStatus) IsTerminal() bool {
	return s != SessionStatusActive
}

// ParseSessionStatus converts raw input into a SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	for _, candidate := range validSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}

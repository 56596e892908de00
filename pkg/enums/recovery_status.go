package enums

import "fmt"

// RecoveryStatus tracks whether an abandoned session is eligible for
// re-engagement outreach and whether the shopper eventually came back.
type RecoveryStatus string

const (
	RecoveryStatusNone      RecoveryStatus = "none"
	RecoveryStatusPending   RecoveryStatus = "pending"
	RecoveryStatusRecovered RecoveryStatus = "recovered"
)

var validRecoveryStatuses = []RecoveryStatus{
	RecoveryStatusNone,
	RecoveryStatusPending,
	RecoveryStatusRecovered,
}

// IsValid reports whether the value is a known RecoveryStatus.
func (r RecoveryStatus) IsValid() bool {
	for _, candidate := range validRecoveryStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRecoveryStatus converts raw input into a RecoveryStatus.
func ParseRecoveryStatus(value string) (RecoveryStatus, error) {
	for _, candidate := range validRecoveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recovery status %q", value)
}

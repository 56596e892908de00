package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateCheckoutSession OutboxAggregateType = "checkout_session"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCheckoutSession,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventSessionAbandoned OutboxEventType = "checkout_session_abandoned"
	EventSessionConverted OutboxEventType = "checkout_session_converted"
	EventSessionExpired   OutboxEventType = "checkout_session_expired"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSessionAbandoned,
	EventSessionConverted,
	EventSessionExpired,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

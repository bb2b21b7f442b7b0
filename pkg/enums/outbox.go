package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateResourceRequest OutboxAggregateType = "resource_request"
	AggregateInventoryItem   OutboxAggregateType = "inventory_item"
	AggregateComment         OutboxAggregateType = "comment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateResourceRequest,
	AggregateInventoryItem,
	AggregateComment,
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

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventRequestSubmitted     OutboxEventType = "request_submitted"
	EventRequestStatusChanged OutboxEventType = "request_status_changed"
	EventRequestLineEdited    OutboxEventType = "request_line_edited"
	EventRequestCommented     OutboxEventType = "request_commented"
	EventInventoryRestocked   OutboxEventType = "inventory_restocked"
)

var validOutboxEventTypes = []OutboxEventType{
	EventRequestSubmitted,
	EventRequestStatusChanged,
	EventRequestLineEdited,
	EventRequestCommented,
	EventInventoryRestocked,
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
	return "", fmt.Errorf("invalid event type %q", value)
}

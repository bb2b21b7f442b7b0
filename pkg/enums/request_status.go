package enums

import "fmt"

// RequestStatus tracks where a resource request sits in the approval workflow.
type RequestStatus string

const (
	RequestStatusPending                RequestStatus = "pending"
	RequestStatusPendingManagerApproval RequestStatus = "pending_manager_approval"
	RequestStatusApproved               RequestStatus = "approved"
	RequestStatusRejected               RequestStatus = "rejected"
	RequestStatusDelivered              RequestStatus = "delivered"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusPendingManagerApproval,
	RequestStatusApproved,
	RequestStatusRejected,
	RequestStatusDelivered,
}

// String implements fmt.Stringer.
func (r RequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestStatus.
func (r RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are permitted.
func (r RequestStatus) IsTerminal() bool {
	return r == RequestStatusRejected || r == RequestStatusDelivered
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}

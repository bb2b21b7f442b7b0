package enums

import "fmt"

// ApprovalAction is a workflow verb applied to a resource request.
type ApprovalAction string

const (
	ApprovalActionApprove ApprovalAction = "approve"
	ApprovalActionReject  ApprovalAction = "reject"
	ApprovalActionDeliver ApprovalAction = "deliver"
)

var validApprovalActions = []ApprovalAction{
	ApprovalActionApprove,
	ApprovalActionReject,
	ApprovalActionDeliver,
}

// String implements fmt.Stringer.
func (a ApprovalAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ApprovalAction.
func (a ApprovalAction) IsValid() bool {
	for _, candidate := range validApprovalActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseApprovalAction converts raw input into an ApprovalAction.
func ParseApprovalAction(value string) (ApprovalAction, error) {
	for _, candidate := range validApprovalActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval action %q", value)
}

package workflow

import (
	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
)

// Decide returns the status a request moves to when actor applies action.
//
// Rules:
//   - only elevated roles act on requests; requesters just watch
//   - the school manager acts only on escalated requests; anywhere else
//     they are forbidden outright
//   - an admin approving a pending request may escalate it to the school
//     manager instead of approving outright
//   - once escalated, only the school manager approves; any listed role
//     may still reject
//   - delivery is admin or super admin, only from approved
//   - terminal states accept nothing
//
// The escalate flag is honored only for an admin approving a pending
// request; everywhere else it is ignored.
func Decide(from enums.RequestStatus, action enums.ApprovalAction, role enums.UserRole, escalate bool) (enums.RequestStatus, error) {
	if !from.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown request status")
	}
	if !action.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown approval action")
	}
	if !role.IsElevated() {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "only staff can act on requests")
	}
	if role == enums.UserRoleSchoolManager && from != enums.RequestStatusPendingManagerApproval {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "the school manager only acts on escalated requests")
	}

	switch from {
	case enums.RequestStatusPending:
		switch action {
		case enums.ApprovalActionApprove:
			if role == enums.UserRoleAdmin && escalate {
				return enums.RequestStatusPendingManagerApproval, nil
			}
			return enums.RequestStatusApproved, nil
		case enums.ApprovalActionReject:
			return enums.RequestStatusRejected, nil
		}

	case enums.RequestStatusPendingManagerApproval:
		switch action {
		case enums.ApprovalActionApprove:
			if role != enums.UserRoleSchoolManager {
				return "", pkgerrors.New(pkgerrors.CodeForbidden, "escalated requests need the school manager")
			}
			return enums.RequestStatusApproved, nil
		case enums.ApprovalActionReject:
			return enums.RequestStatusRejected, nil
		}

	case enums.RequestStatusApproved:
		if action == enums.ApprovalActionDeliver {
			return enums.RequestStatusDelivered, nil
		}
	}

	return "", pkgerrors.New(pkgerrors.CodeInvalidTransition, "action "+action.String()+" is not valid from "+from.String()).
		WithDetails(map[string]any{
			"from":   from.String(),
			"action": action.String(),
		})
}

// ReleasesStock reports whether moving to the status returns reserved
// stock to inventory. Rejection is the only release path; delivery consumes
// the reservation.
func ReleasesStock(to enums.RequestStatus) bool {
	return to == enums.RequestStatusRejected
}

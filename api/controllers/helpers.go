package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/edures/resourcedesk-backend/api/middleware"
	"github.com/edures/resourcedesk-backend/internal/requests"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
)

// actorFromContext recovers the authenticated caller seeded by the auth
// middleware. A miss here means the route was wired without Auth.
func actorFromContext(ctx context.Context) (uuid.UUID, enums.UserRole, error) {
	rawID := middleware.UserIDFromContext(ctx)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	role := enums.UserRole(middleware.RoleFromContext(ctx))
	if !role.IsValid() {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return userID, role, nil
}

func viewerFromContext(ctx context.Context) (requests.Viewer, error) {
	userID, role, err := actorFromContext(ctx)
	if err != nil {
		return requests.Viewer{}, err
	}
	return requests.Viewer{UserID: userID, Role: role}, nil
}

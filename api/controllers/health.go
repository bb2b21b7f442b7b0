package controllers

import (
	"net/http"

	"github.com/edures/resourcedesk-backend/api/responses"
	"github.com/edures/resourcedesk-backend/pkg/db"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
	"github.com/edures/resourcedesk-backend/pkg/logger"
	"github.com/edures/resourcedesk-backend/pkg/redis"
)

// Live reports process liveness. It never touches dependencies.
func Live() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// Ready reports whether the API can serve traffic: database and redis must
// both answer.
func Ready(dbClient *db.Client, redisClient *redis.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := dbClient.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
			return
		}
		if err := redisClient.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"status":        "ready",
			"databaseFiles": len(dbClient.RotationStats()),
		})
	}
}

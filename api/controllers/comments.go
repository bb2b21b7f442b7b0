package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edures/resourcedesk-backend/api/responses"
	"github.com/edures/resourcedesk-backend/api/validators"
	"github.com/edures/resourcedesk-backend/internal/comments"
	"github.com/edures/resourcedesk-backend/pkg/logger"
)

func ListComments(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		viewer, err := viewerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		requestID, err := validators.UUIDParam(chi.URLParam(r, "requestID"), "requestID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.List(ctx, viewer, requestID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type addCommentRequest struct {
	Body string `json:"body" validate:"required"`
}

func AddComment(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		viewer, err := viewerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		requestID, err := validators.UUIDParam(chi.URLParam(r, "requestID"), "requestID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body addCommentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.Add(ctx, viewer, requestID, body.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edures/resourcedesk-backend/api/responses"
	"github.com/edures/resourcedesk-backend/api/validators"
	"github.com/edures/resourcedesk-backend/internal/requests"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
	"github.com/edures/resourcedesk-backend/pkg/logger"
)

type submitRequestBody struct {
	Notes *string `json:"notes"`
}

// SubmitRequest turns the caller's cart into a resource request.
func SubmitRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		viewer, err := viewerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body submitRequestBody
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		dto, err := svc.Submit(ctx, viewer, body.Notes)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func ListRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		viewer, err := viewerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params, err := validators.ParseListParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ListRequests(ctx, viewer, requests.ListRequestsInput{
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
			Cursor: params.Cursor,
			Limit:  params.Limit,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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

		dto, err := svc.GetRequest(ctx, viewer, requestID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type editLineRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// EditRequestLine changes a line's quantity while the request is pending.
func EditRequestLine(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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
		lineID, err := validators.UUIDParam(chi.URLParam(r, "lineID"), "lineID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body editLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.EditLineQuantity(ctx, viewer, requestID, lineID, body.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type requestActionBody struct {
	Action     string  `json:"action" validate:"required,oneof=approve reject deliver"`
	Escalate   bool    `json:"escalate"`
	AdminNotes *string `json:"adminNotes"`
}

// ApplyRequestAction moves a request through the approval workflow.
func ApplyRequestAction(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body requestActionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		action, err := enums.ParseApprovalAction(body.Action)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown action"))
			return
		}

		dto, err := svc.ApplyAction(ctx, viewer, requestID, requests.ActionInput{
			Action:     action,
			Escalate:   body.Escalate,
			AdminNotes: body.AdminNotes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
	"github.com/edures/resourcedesk-backend/pkg/pagination"
)

// ListParams holds the cursor pagination parameters common to list endpoints.
type ListParams struct {
	Cursor string
	Limit  int
}

// ParseListParams reads cursor/limit from the query string. The cursor is
// validated for shape here so a garbage cursor fails fast with a 400.
func ParseListParams(r *http.Request) (ListParams, error) {
	params := ListParams{
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}

	if params.Cursor != "" {
		if _, err := pagination.ParseCursor(params.Cursor); err != nil {
			return ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return ListParams{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a non-negative integer")
		}
		params.Limit = limit
	}
	params.Limit = pagination.NormalizeLimit(params.Limit)

	return params, nil
}

// UUIDParam parses a URL path parameter as a UUID.
func UUIDParam(value, name string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" must be a valid uuid")
	}
	return parsed, nil
}

package requests

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
)

// RequestDTO is the request aggregate shape returned to clients.
type RequestDTO struct {
	ID          uuid.UUID           `json:"id"`
	RequesterID uuid.UUID           `json:"requesterId"`
	Status      enums.RequestStatus `json:"status"`
	TotalCost   decimal.Decimal     `json:"totalCost"`
	Notes       *string             `json:"notes,omitempty"`
	AdminNotes  *string             `json:"adminNotes,omitempty"`
	Lines       []RequestLineDTO    `json:"lines"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// RequestLineDTO is one snapshotted line.
type RequestLineDTO struct {
	ID        uuid.UUID       `json:"id"`
	ItemID    uuid.UUID       `json:"itemId"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// RequestListResult carries one page of requests.
type RequestListResult struct {
	Requests   []RequestDTO `json:"requests"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

func toRequestDTO(request models.ResourceRequest) RequestDTO {
	dto := RequestDTO{
		ID:          request.ID,
		RequesterID: request.RequesterID,
		Status:      request.Status,
		TotalCost:   request.TotalCost,
		Notes:       request.Notes,
		AdminNotes:  request.AdminNotes,
		Lines:       make([]RequestLineDTO, 0, len(request.Lines)),
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
	}
	for _, line := range request.Lines {
		dto.Lines = append(dto.Lines, RequestLineDTO{
			ID:        line.ID,
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			UnitCost:  line.Cost,
			LineTotal: line.Cost.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return dto
}

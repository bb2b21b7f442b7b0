package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edures/resourcedesk-backend/pkg/enums"
)

// RequestLineSnapshot captures one line of a request as it looked when the
// event was emitted. Cost is the per-unit snapshot, not the current price.
type RequestLineSnapshot struct {
	ItemID   uuid.UUID       `json:"itemId"`
	ItemName string          `json:"itemName"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unitCost"`
}

// RequestSubmittedEvent announces a freshly submitted resource request.
type RequestSubmittedEvent struct {
	RequestID   uuid.UUID             `json:"requestId"`
	RequesterID uuid.UUID             `json:"requesterId"`
	Status      enums.RequestStatus   `json:"status"`
	TotalCost   decimal.Decimal       `json:"totalCost"`
	Lines       []RequestLineSnapshot `json:"lines"`
}

// RequestStatusChangedEvent records a workflow transition on a request.
type RequestStatusChangedEvent struct {
	RequestID      uuid.UUID           `json:"requestId"`
	RequesterID    uuid.UUID           `json:"requesterId"`
	PreviousStatus enums.RequestStatus `json:"previousStatus"`
	NewStatus      enums.RequestStatus `json:"newStatus"`
	Action         string              `json:"action"`
	Escalated      bool                `json:"escalated,omitempty"`
	AdminNotes     *string             `json:"adminNotes,omitempty"`
}

// RequestLineEditedEvent records a quantity change on a pending request line.
type RequestLineEditedEvent struct {
	RequestID    uuid.UUID       `json:"requestId"`
	RequesterID  uuid.UUID       `json:"requesterId"`
	LineID       uuid.UUID       `json:"lineId"`
	ItemID       uuid.UUID       `json:"itemId"`
	OldQuantity  int             `json:"oldQuantity"`
	NewQuantity  int             `json:"newQuantity"`
	UnitCost     decimal.Decimal `json:"unitCost"`
	NewTotalCost decimal.Decimal `json:"newTotalCost"`
}

// RequestCommentedEvent announces a new comment on a request thread.
type RequestCommentedEvent struct {
	RequestID   uuid.UUID `json:"requestId"`
	CommentID   uuid.UUID `json:"commentId"`
	AuthorID    uuid.UUID `json:"authorId"`
	RequesterID uuid.UUID `json:"requesterId"`
	Preview     string    `json:"preview"`
}

// InventoryRestockedEvent announces replenished stock on an item.
type InventoryRestockedEvent struct {
	ItemID        uuid.UUID `json:"itemId"`
	Name          string    `json:"name"`
	QuantityAdded int       `json:"quantityAdded"`
	NewQuantity   int       `json:"newQuantity"`
}

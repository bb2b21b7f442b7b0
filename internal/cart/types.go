package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the ephemeral working set a user builds before submitting a
// request. It lives in Redis only; nothing is reserved until submission.
type Cart struct {
	UserID    uuid.UUID  `json:"userId"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartLine holds one item selection.
type CartLine struct {
	ItemID   uuid.UUID `json:"itemId"`
	Quantity int       `json:"quantity"`
}

// Line returns a pointer to the line for itemID, nil when absent.
func (c *Cart) Line(itemID uuid.UUID) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			return &c.Lines[i]
		}
	}
	return nil
}

// CartDTO is the enriched cart returned to clients. Prices come from the
// current catalog; they are estimates until submission snapshots them.
type CartDTO struct {
	UserID         uuid.UUID       `json:"userId"`
	Lines          []CartLineDTO   `json:"lines"`
	EstimatedTotal decimal.Decimal `json:"estimatedTotal"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// CartLineDTO pairs a selection with current catalog data. StockShort warns
// that the selection currently exceeds available stock; submission is where
// that actually fails.
type CartLineDTO struct {
	ItemID     uuid.UUID       `json:"itemId"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unitCost"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
	Available  int             `json:"available"`
	StockShort bool            `json:"stockShort,omitempty"`
}

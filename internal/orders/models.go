package orders

import (
	"time"

	"github.com/ariefcatur/go-commerce-bench/internal/identity"
)

// Line is a priced order line. The unit price is snapshotted when the order is
// created and never re-read from the catalog, so historical orders stay intact
// when products are repriced or deleted.
type Line struct {
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

type Order struct {
	ID         string         `json:"id"`
	Owner      identity.Owner `json:"-"`
	BuyerEmail string         `json:"buyer_email,omitempty"`
	Status     Status         `json:"status"`
	TotalCents int64          `json:"total_cents"`
	Lines      []Line         `json:"items"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type ListQuery struct {
	Owner    identity.Owner
	AllOwner bool // privileged callers see every order
	Status   Status
	Page     int
	PageSize int
}

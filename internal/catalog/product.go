package catalog

import "time"

type Product struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReserveLine is one conditional decrement: take Qty units of SKU if at least
// that many are on hand.
type ReserveLine struct {
	SKU string
	Qty int
}

// FieldUpdates carries the admin PATCH; nil means leave the column alone.
type FieldUpdates struct {
	Name        *string
	Category    *string
	Description *string
	PriceCents  *int64
	Stock       *int
}

type ListQuery struct {
	Search   string
	Category string
	Page     int
	PageSize int
}

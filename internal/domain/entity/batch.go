package entity

import "time"

// Defaults applied when a new batch has no existing name family to
// inherit category/unit/reorder level from.
const (
	DefaultCategory     = "MEDICINE"
	DefaultUnit         = "pcs"
	DefaultReorderLevel = 10
)

// InventoryBatch is one purchasable stock lot of a medicine within a
// store. Within a store the pair (name, case-insensitive; batch number,
// exact) identifies at most one batch for reconciliation purposes; the
// database does not enforce this as a unique key.
type InventoryBatch struct {
	ID           int64      `json:"id"`
	StoreID      string     `json:"store_id"`
	SKU          string     `json:"sku"`
	Name         string     `json:"name"`
	BatchNumber  string     `json:"batch_number"`
	Quantity     int        `json:"quantity"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	MRP          float64    `json:"mrp"`
	CostPrice    float64    `json:"cost_price"`
	SellingPrice float64    `json:"selling_price"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Category     string     `json:"category"`
	Unit         string     `json:"unit"`
	ReorderLevel int        `json:"reorder_level"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

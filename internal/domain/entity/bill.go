package entity

import "time"

// ExtractedItem is one line of a supplier purchase bill as read by the
// structured parsing model. Immutable once produced.
type ExtractedItem struct {
	MedicineName   string  `json:"medicine_name"`
	Quantity       int     `json:"quantity"`
	BatchNumber    string  `json:"batch_number"`
	ExpiryDateText string  `json:"expiry_date"`
	MRP            float64 `json:"mrp"`
	CostRate       float64 `json:"rate"`
}

// ParsedBill is the structured form of one bill page. Invoice metadata
// fields may be empty; Items preserves the order in which lines appear
// on the page.
type ParsedBill struct {
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   string          `json:"invoice_date"`
	SupplierName  string          `json:"supplier_name"`
	TotalAmount   float64         `json:"total_amount"`
	Items         []ExtractedItem `json:"items"`
}

// HasMetadata reports whether the page carried any invoice-level fields.
func (b *ParsedBill) HasMetadata() bool {
	return b.InvoiceNumber != "" || b.InvoiceDate != "" || b.SupplierName != "" || b.TotalAmount > 0
}

// NormalizedItem is an ExtractedItem after name normalization and expiry
// interpretation, ready for reconciliation. OriginalName keeps the raw
// bill spelling for audit.
type NormalizedItem struct {
	MedicineName string
	OriginalName string
	Quantity     int
	BatchNumber  string
	ExpiryDate   *time.Time // nil when the bill carried no interpretable expiry
	MRP          float64
	CostRate     float64
	SupplierName string
}

// ImportResult is the caller-facing outcome of one bill import.
type ImportResult struct {
	ImportID       string  `json:"import_id"`
	CreatedCount   int     `json:"created_count"`
	UpdatedCount   int     `json:"updated_count"`
	ItemCount      int     `json:"item_count"`
	PagesProcessed int     `json:"pages_processed"`
	PagesDegraded  int     `json:"pages_degraded"`
	InvoiceNumber  string  `json:"invoice_number,omitempty"`
	SupplierName   string  `json:"supplier_name,omitempty"`
	TotalAmount    float64 `json:"total_amount,omitempty"`
	ReportPath     string  `json:"report_path,omitempty"`
}

package receipt

import (
	"time"

	"github.com/mokgadi/loyalty-receipts/internal/parse"
)

// StatusPendingValidation marks a freshly parsed receipt awaiting manual
// review by the loyalty team.
const StatusPendingValidation = "pending_validation"

// Receipt is the final aggregate produced by one pipeline run: store
// identity, header/footer fields, the reconstructed item list and
// provenance. It is persisted exactly once and never mutated here.
type Receipt struct {
	ID string `json:"id" validate:"required"`

	// Store identity
	BrandName     string `json:"brand_name" validate:"required"`
	StoreName     string `json:"store_name"`
	StoreAddress  string `json:"store_address"`
	FullStoreName string `json:"full_store_name"`

	// Header/footer fields
	InvoiceNumber string   `json:"invoice_number,omitempty"`
	Date          string   `json:"date,omitempty"`
	Time          string   `json:"time,omitempty"`
	WaiterName    string   `json:"waiter_name,omitempty"`
	TableNumber   string   `json:"table_number,omitempty"`
	VATAmount     *float64 `json:"vat_amount,omitempty"`
	TotalAmount   *float64 `json:"total_amount,omitempty" validate:"required"`

	// Items
	Items        []parse.LineItem `json:"items" validate:"required,min=1,dive"`
	Subtotal     float64          `json:"subtotal" validate:"gte=0"`
	DroppedItems int              `json:"dropped_items"`

	// Provenance
	ImageURL         string    `json:"image_url"`
	GuestPhoneNumber string    `json:"guest_phone_number" validate:"required"`
	Status           string    `json:"status" validate:"required"`
	RawText          string    `json:"raw_text"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// Campaign is one loyalty campaign record. Each campaign contributes its
// brand name to the set used for store identity extraction.
type Campaign struct {
	ID        string    `json:"id"`
	BrandName string    `json:"brand_name" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package dto

import "github.com/shopspring/decimal"

// ─── Requests ────────────────────────────────────────────────────────────────

type SaleLineRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity"   validate:"required,min=1"`
	Discount  decimal.Decimal `json:"discount"   validate:"min=0"`
	// PriceOverride replaces the catalog price for this line. The caller is
	// responsible for having authorized the override.
	PriceOverride *decimal.Decimal `json:"price_override" validate:"omitempty,gt=0"`
}

type CreateSaleRequest struct {
	LocationID    string            `json:"location_id"    validate:"required,uuid"`
	ActorID       string            `json:"actor_id"       validate:"required,uuid"`
	Lines         []SaleLineRequest `json:"lines"          validate:"required,min=1,dive"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=cash card transfer"`
	// At most one of DiscountAmount / DiscountPercent may be set.
	DiscountAmount  *decimal.Decimal `json:"discount_amount"  validate:"omitempty,min=0"`
	DiscountPercent *decimal.Decimal `json:"discount_percent" validate:"omitempty,min=0,max=100"`
	// Tendered is the cash handed over; change is derived from it.
	Tendered *decimal.Decimal `json:"tendered" validate:"omitempty,min=0"`
}

type VoidSaleRequest struct {
	ActorID string `json:"actor_id" validate:"required,uuid"`
	Reason  string `json:"reason"   validate:"required,min=5"`
}

type RefundLineRequest struct {
	LineID   string `json:"line_id"  validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type RefundRequest struct {
	ActorID string              `json:"actor_id" validate:"required,uuid"`
	Reason  string              `json:"reason"   validate:"required,min=5"`
	Lines   []RefundLineRequest `json:"lines"    validate:"required,min=1,dive"`
}

// ─── Responses ───────────────────────────────────────────────────────────────

type SaleLineResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Product   string          `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	Discount  decimal.Decimal `json:"discount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type SaleResponse struct {
	ID            string             `json:"id"`
	Number        int                `json:"number"`
	LocationID    string             `json:"location_id"`
	ActorID       string             `json:"actor_id"`
	Lines         []SaleLineResponse `json:"lines"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Discount      decimal.Decimal    `json:"discount"`
	Tax           decimal.Decimal    `json:"tax"`
	Total         decimal.Decimal    `json:"total"`
	PaymentMethod string             `json:"payment_method"`
	Change        decimal.Decimal    `json:"change"`
	Status        string             `json:"status"`
	VoidReason    *string            `json:"void_reason,omitempty"`
	RefundForID   *string            `json:"refund_for_id,omitempty"`
	CreatedAt     string             `json:"created_at"`
}

package dto

// ─── Requests ────────────────────────────────────────────────────────────────

// AdjustRequest is the raw entry point used by purchasing and stock-count
// tooling. Kind is restricted to the kinds callers may apply directly;
// sale/return/transfer kinds are reserved for the sale and transfer flows.
type AdjustRequest struct {
	ProductID  string  `json:"product_id"  validate:"required,uuid"`
	LocationID string  `json:"location_id" validate:"required,uuid"`
	ActorID    string  `json:"actor_id"    validate:"required,uuid"`
	Delta      int     `json:"delta"       validate:"required"`
	Kind       string  `json:"kind"        validate:"required,oneof=purchase initial adjustment_in adjustment_out"`
	Reference  *string `json:"reference"`
	Notes      *string `json:"notes"`
}

type TransferRequest struct {
	ProductID      string `json:"product_id"       validate:"required,uuid"`
	FromLocationID string `json:"from_location_id" validate:"required,uuid"`
	ToLocationID   string `json:"to_location_id"   validate:"required,uuid"`
	ActorID        string `json:"actor_id"         validate:"required,uuid"`
	Quantity       int    `json:"quantity"         validate:"required,min=1"`
}

type ReserveRequest struct {
	ProductID  string `json:"product_id"  validate:"required,uuid"`
	LocationID string `json:"location_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity"    validate:"required,min=1"`
}

// ManualAdjustmentRequest covers the stock-count tool: add/subtract a
// quantity, or set the counter to an absolute value.
type ManualAdjustmentRequest struct {
	ProductID  string `json:"product_id"  validate:"required,uuid"`
	LocationID string `json:"location_id" validate:"required,uuid"`
	ActorID    string `json:"actor_id"    validate:"required,uuid"`
	Mode       string `json:"mode"        validate:"required,oneof=add subtract set"`
	Quantity   int    `json:"quantity"    validate:"min=0"`
	Reason     string `json:"reason"      validate:"required,min=3"`
}

// MovementFilter is bound from the query string of GET /v1/stock/movements.
type MovementFilter struct {
	ProductID  string `form:"product_id"`
	LocationID string `form:"location_id"`
	Kind       string `form:"kind"`
	From       string `form:"from"` // YYYY-MM-DD
	To         string `form:"to"`   // YYYY-MM-DD
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=100"`
}

// ─── Responses ───────────────────────────────────────────────────────────────

type StockLevelResponse struct {
	ProductID    string `json:"product_id"`
	SKU          string `json:"sku"`
	LocationID   string `json:"location_id"`
	Quantity     int    `json:"quantity"`
	Reserved     int    `json:"reserved"`
	Available    int    `json:"available"`
	BelowMinimum bool   `json:"below_minimum"`
}

type MovementResponse struct {
	ID                    string  `json:"id"`
	ProductID             string  `json:"product_id"`
	LocationID            string  `json:"location_id"`
	Kind                  string  `json:"kind"`
	Delta                 int     `json:"delta"`
	PreviousQuantity      int     `json:"previous_quantity"`
	NewQuantity           int     `json:"new_quantity"`
	Reference             *string `json:"reference,omitempty"`
	CounterpartLocationID *string `json:"counterpart_location_id,omitempty"`
	ActorID               string  `json:"actor_id"`
	Notes                 *string `json:"notes,omitempty"`
	CreatedAt             string  `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type TransferResponse struct {
	Out MovementResponse `json:"out"`
	In  MovementResponse `json:"in"`
}

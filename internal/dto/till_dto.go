package dto

import "github.com/shopspring/decimal"

type OpenTillRequest struct {
	LocationID    string          `json:"location_id"    validate:"required,uuid"`
	ActorID       string          `json:"actor_id"       validate:"required,uuid"`
	OpeningAmount decimal.Decimal `json:"opening_amount" validate:"min=0"`
}

type CloseTillRequest struct {
	LocationID    string          `json:"location_id"    validate:"required,uuid"`
	ActorID       string          `json:"actor_id"       validate:"required,uuid"`
	ClosingAmount decimal.Decimal `json:"closing_amount" validate:"min=0"`
	Notes         *string         `json:"notes"`
}

type TillResponse struct {
	ID            string           `json:"id"`
	LocationID    string           `json:"location_id"`
	Date          string           `json:"date"`
	OpeningAmount decimal.Decimal  `json:"opening_amount"`
	ClosingAmount *decimal.Decimal `json:"closing_amount,omitempty"`
	CashTotal     decimal.Decimal  `json:"cash_total"`
	CardTotal     decimal.Decimal  `json:"card_total"`
	TransferTotal decimal.Decimal  `json:"transfer_total"`
	Expected      *decimal.Decimal `json:"expected,omitempty"`
	Difference    *decimal.Decimal `json:"difference,omitempty"`
	Closed        bool             `json:"closed"`
	Notes         *string          `json:"notes,omitempty"`
	OpenedAt      string           `json:"opened_at"`
	ClosedAt      *string          `json:"closed_at,omitempty"`
}

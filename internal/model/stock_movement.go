package model

import (
	"time"

	"github.com/google/uuid"
)

// Movement kinds. Positive-delta kinds: purchase, transfer_in,
// adjustment_in, return, initial. Negative-delta kinds: sale,
// transfer_out, adjustment_out.
const (
	MovementPurchase      = "purchase"
	MovementSale          = "sale"
	MovementTransferIn    = "transfer_in"
	MovementTransferOut   = "transfer_out"
	MovementAdjustmentIn  = "adjustment_in"
	MovementAdjustmentOut = "adjustment_out"
	MovementReturn        = "return"
	MovementInitial       = "initial"
)

// StockMovement is one immutable entry in the append-only stock ledger.
// Previous/new quantity are captured at write time inside the same
// transaction that updated the StockLevel row. Movements are NEVER
// updated or deleted — voids and refunds append compensating entries.
type StockMovement struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID        uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_movements_pair"`
	LocationID       uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_movements_pair"`
	Kind             string    `gorm:"type:varchar(20);not null"`
	Delta            int       `gorm:"not null"`
	PreviousQuantity int       `gorm:"not null"`
	NewQuantity      int       `gorm:"not null"`
	// Reference links the movement to its originating record: a sale id,
	// a purchase order number, or free text for manual counts.
	Reference *string
	// CounterpartLocationID is set on transfer legs and points at the
	// other endpoint.
	CounterpartLocationID *uuid.UUID `gorm:"type:uuid"`
	ActorID               uuid.UUID  `gorm:"type:uuid;not null"`
	Notes                 *string
	CreatedAt             time.Time

	Product  *Product  `gorm:"foreignKey:ProductID"`
	Location *Location `gorm:"foreignKey:LocationID"`
}

// Inbound reports whether kind adds stock.
func Inbound(kind string) bool {
	switch kind {
	case MovementPurchase, MovementTransferIn, MovementAdjustmentIn, MovementReturn, MovementInitial:
		return true
	}
	return false
}

// KnownMovementKind reports whether kind is one of the ledger kinds.
func KnownMovementKind(kind string) bool {
	switch kind {
	case MovementPurchase, MovementSale, MovementTransferIn, MovementTransferOut,
		MovementAdjustmentIn, MovementAdjustmentOut, MovementReturn, MovementInitial:
		return true
	}
	return false
}

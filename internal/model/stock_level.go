package model

import (
	"time"

	"github.com/google/uuid"
)

// StockLevel holds the current on-hand counters for one product at one
// location. Exactly one row exists per pair; rows are created lazily on
// first movement. Quantity must never go negative, and Reserved stays
// within [0, Quantity] — both enforced by the stock service under a
// row-level lock, with CHECK constraints as backstop.
type StockLevel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_levels_product_location"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_levels_product_location"`
	Quantity   int       `gorm:"not null;default:0"`
	Reserved   int       `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Product  *Product  `gorm:"foreignKey:ProductID"`
	Location *Location `gorm:"foreignKey:LocationID"`
}

// Available is the quantity not held for pending commitments.
func (l *StockLevel) Available() int { return l.Quantity - l.Reserved }

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TillRecord reconciles one cash drawer for one location and operating
// date. At most one row per (location, date). Opened once, closed once;
// closing is terminal. Totals are recomputed from sales at close time,
// never read from running counters.
type TillRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_till_records_location_date"`
	Date       time.Time `gorm:"type:date;not null;uniqueIndex:idx_till_records_location_date"`

	OpenedBy uuid.UUID  `gorm:"type:uuid;not null"`
	ClosedBy *uuid.UUID `gorm:"type:uuid"`

	OpeningAmount decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	ClosingAmount *decimal.Decimal `gorm:"type:decimal(12,2)"`

	CashTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CardTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TransferTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	// Expected = OpeningAmount + CashTotal; Difference = closing − expected.
	Expected   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Difference *decimal.Decimal `gorm:"type:decimal(12,2)"`

	Notes    *string
	OpenedAt time.Time
	ClosedAt *time.Time

	Location *Location `gorm:"foreignKey:LocationID"`
}

// Closed reports whether the record has been reconciled.
func (t *TillRecord) Closed() bool { return t.ClosedAt != nil }

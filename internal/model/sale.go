package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale statuses. Transitions: completed → voided (terminal). Refunds do
// not transition the original — they create a new compensating Sale with
// StatusRefunded and negative amounts.
const (
	SaleCompleted = "completed"
	SaleVoided    = "voided"
	SaleRefunded  = "refunded"
)

// Payment methods accepted at the till.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

// Sale is a transaction header. Totals are derived from its lines at
// creation time and never hand-set. Created atomically with its lines
// and the stock movements that consumed inventory.
type Sale struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Number int       `gorm:"column:sale_number;uniqueIndex;not null"`

	LocationID uuid.UUID `gorm:"type:uuid;not null;index"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null"`

	Subtotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Tax      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total    decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	PaymentMethod string `gorm:"type:varchar(20);not null"`
	Status        string `gorm:"type:varchar(20);not null;default:'completed'"`

	VoidedBy   *uuid.UUID `gorm:"type:uuid"`
	VoidReason *string
	VoidedAt   *time.Time

	// RefundForID is set on compensating refund sales and points at the
	// original, which stays completed.
	RefundForID *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time

	Lines    []SaleLine `gorm:"foreignKey:SaleID"`
	Location *Location  `gorm:"foreignKey:LocationID"`
}

// SaleLine is one line item. Unit price and cost are snapshotted at sale
// time so later catalog changes never rewrite past sales. Refund sales
// carry lines with negative Quantity and Subtotal.
type SaleLine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity  int       `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	UnitCost  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	// RefundForLineID links a refund line back to the line it compensates,
	// so cumulative refunded quantity per line can be bounded.
	RefundForLineID *uuid.UUID `gorm:"type:uuid;index"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

// KnownPaymentMethod reports whether m is an accepted payment method.
func KnownPaymentMethod(m string) bool {
	return m == PaymentCash || m == PaymentCard || m == PaymentTransfer
}

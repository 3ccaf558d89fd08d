package repository

import (
	"context"
	"time"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	// FindByIDTx re-reads the sale under SELECT ... FOR UPDATE so the
	// caller's status checks hold until its transaction commits.
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	NextSaleNumberTx(tx *gorm.DB) (int, error)
	// MarkVoidedTx flips a completed sale to voided and records who/why/
	// when, in tx. Returns gorm.ErrRecordNotFound when the sale is missing
	// or no longer in completed status, so a concurrent void loses cleanly.
	MarkVoidedTx(tx *gorm.DB, id uuid.UUID, actorID uuid.UUID, reason string, at time.Time) error
	// RefundedQuantitiesTx sums refunded quantity per original line across
	// all compensating sales that reference saleID. Quantities come back
	// positive.
	RefundedQuantitiesTx(tx *gorm.DB, saleID uuid.UUID) (map[uuid.UUID]int, error)
	// SumByPaymentMethod aggregates non-voided sale totals for a location
	// and operating date, grouped by payment method. Refund sales carry
	// negative totals and reduce the day's takings.
	SumByPaymentMethod(ctx context.Context, locationID uuid.UUID, date time.Time) (map[string]decimal.Decimal, error)
	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Preload("Lines.Product").First(&s, "id = ?", id).Error
	return &s, err
}

func (r *saleRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").First(&s, "id = ?", id).Error
	return &s, err
}

func (r *saleRepo) NextSaleNumberTx(tx *gorm.DB) (int, error) {
	// Postgres sequence keeps numbers gap-tolerant but collision-free
	// under concurrent checkouts.
	var num int
	err := tx.Raw("SELECT nextval('sales_number_seq')").Scan(&num).Error
	return num, err
}

func (r *saleRepo) MarkVoidedTx(tx *gorm.DB, id uuid.UUID, actorID uuid.UUID, reason string, at time.Time) error {
	res := tx.Model(&model.Sale{}).
		Where("id = ? AND status = ?", id, model.SaleCompleted).
		Updates(map[string]interface{}{
			"status":      model.SaleVoided,
			"voided_by":   actorID,
			"void_reason": reason,
			"voided_at":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *saleRepo) RefundedQuantitiesTx(tx *gorm.DB, saleID uuid.UUID) (map[uuid.UUID]int, error) {
	type row struct {
		RefundForLineID uuid.UUID
		Quantity        int64
	}
	var rows []row
	err := tx.Model(&model.SaleLine{}).
		Select("sale_lines.refund_for_line_id, COALESCE(SUM(-sale_lines.quantity), 0) AS quantity").
		Joins("JOIN sales ON sales.id = sale_lines.sale_id").
		Where("sales.refund_for_id = ? AND sale_lines.refund_for_line_id IS NOT NULL", saleID).
		Group("sale_lines.refund_for_line_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		out[r.RefundForLineID] = int(r.Quantity)
	}
	return out, nil
}

func (r *saleRepo) SumByPaymentMethod(ctx context.Context, locationID uuid.UUID, date time.Time) (map[string]decimal.Decimal, error) {
	type row struct {
		PaymentMethod string
		Total         decimal.Decimal
	}
	// An explicit UTC window instead of DATE(created_at): the cast would
	// follow the session time zone and shift sales near midnight onto the
	// wrong operating date.
	day := date.UTC()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var rows []row
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("payment_method, COALESCE(SUM(total), 0) AS total").
		Where("location_id = ? AND created_at >= ? AND created_at < ? AND status <> ?",
			locationID, dayStart, dayEnd, model.SaleVoided).
		Group("payment_method").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := map[string]decimal.Decimal{
		model.PaymentCash:     decimal.Zero,
		model.PaymentCard:     decimal.Zero,
		model.PaymentTransfer: decimal.Zero,
	}
	for _, r := range rows {
		sums[r.PaymentMethod] = r.Total
	}
	return sums, nil
}

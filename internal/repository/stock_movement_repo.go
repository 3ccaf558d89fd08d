package repository

import (
	"context"
	"time"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/dto"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementFilter narrows the movement history query. Date bounds are UTC
// day boundaries resolved by FilterFromDTO; comparing timestamps directly
// keeps the query independent of the database session time zone.
type MovementFilter struct {
	ProductID  *uuid.UUID
	LocationID *uuid.UUID
	Kind       string
	From       *time.Time // inclusive UTC day start
	To         *time.Time // exclusive UTC end of the requested day
	Page       int
	Limit      int
}

// StockMovementRepository owns the append-only side of the ledger store.
// There is deliberately no Update or Delete: the log is the audit
// authority and current quantities must always be rederivable from it.
type StockMovementRepository interface {
	// CreateTx must run in the same transaction as the StockLevel update
	// that produced the delta.
	CreateTx(tx *gorm.DB, m *model.StockMovement) error
	List(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error)
	// SumDeltas replays the log for one pair; used by reconciliation checks.
	SumDeltas(ctx context.Context, productID, locationID uuid.UUID) (int64, error)
}

type stockMovementRepo struct{ db *gorm.DB }

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db: db}
}

func (r *stockMovementRepo) CreateTx(tx *gorm.DB, m *model.StockMovement) error {
	return tx.Create(m).Error
}

func (r *stockMovementRepo) List(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockMovement{})

	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.LocationID != nil {
		q = q.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var movements []model.StockMovement
	err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&movements).Error
	return movements, total, err
}

func (r *stockMovementRepo) SumDeltas(ctx context.Context, productID, locationID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		Select("COALESCE(SUM(delta), 0)").Scan(&sum).Error
	return sum, err
}

// FilterFromDTO converts the HTTP-facing filter into the repository one.
// Dates arrive as YYYY-MM-DD and are interpreted as UTC days; "to" becomes
// an exclusive bound at the following midnight so the day stays inclusive.
func FilterFromDTO(f dto.MovementFilter) (MovementFilter, error) {
	out := MovementFilter{Kind: f.Kind, Page: f.Page, Limit: f.Limit}
	if f.ProductID != "" {
		id, err := uuid.Parse(f.ProductID)
		if err != nil {
			return out, err
		}
		out.ProductID = &id
	}
	if f.LocationID != "" {
		id, err := uuid.Parse(f.LocationID)
		if err != nil {
			return out, err
		}
		out.LocationID = &id
	}
	if f.From != "" {
		from, err := time.Parse("2006-01-02", f.From)
		if err != nil {
			return out, err
		}
		out.From = &from
	}
	if f.To != "" {
		to, err := time.Parse("2006-01-02", f.To)
		if err != nil {
			return out, err
		}
		end := to.Add(24 * time.Hour)
		out.To = &end
	}
	return out, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockLevelRepository owns the mutable side of the ledger store: one row
// per (product, location). Every mutation must go through LockForUpdateTx
// first — the negative-stock check is not commutative with the write, so
// check-then-write has to happen under the row lock.
type StockLevelRepository interface {
	Get(ctx context.Context, productID, locationID uuid.UUID) (*model.StockLevel, error)
	// LockForUpdateTx acquires SELECT ... FOR UPDATE on the pair's row for
	// the remainder of tx. Returns gorm.ErrRecordNotFound when the pair has
	// no row yet.
	LockForUpdateTx(tx *gorm.DB, productID, locationID uuid.UUID) (*model.StockLevel, error)
	// GetOrCreateLockedTx creates the zero row when absent, then locks it.
	// Idempotent: a concurrent insert of the same pair resolves to the
	// existing row via the unique index.
	GetOrCreateLockedTx(tx *gorm.DB, productID, locationID uuid.UUID) (*model.StockLevel, error)
	UpdateQuantityTx(tx *gorm.DB, id uuid.UUID, quantity int) error
	UpdateReservedTx(tx *gorm.DB, id uuid.UUID, reserved int) error
	DB() *gorm.DB
}

type stockLevelRepo struct{ db *gorm.DB }

func NewStockLevelRepository(db *gorm.DB) StockLevelRepository { return &stockLevelRepo{db: db} }

func (r *stockLevelRepo) DB() *gorm.DB { return r.db }

func (r *stockLevelRepo) Get(ctx context.Context, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	var lvl model.StockLevel
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&lvl).Error
	return &lvl, err
}

func (r *stockLevelRepo) LockForUpdateTx(tx *gorm.DB, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	var lvl model.StockLevel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&lvl).Error
	return &lvl, err
}

func (r *stockLevelRepo) GetOrCreateLockedTx(tx *gorm.DB, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	lvl, err := r.LockForUpdateTx(tx, productID, locationID)
	if err == nil {
		return lvl, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	// Lazily create the zero row. ON CONFLICT DO NOTHING resolves the race
	// where two transactions create the same pair; the locked re-read then
	// serializes them.
	fresh := &model.StockLevel{ProductID: productID, LocationID: locationID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fresh).Error; err != nil {
		return nil, err
	}
	return r.LockForUpdateTx(tx, productID, locationID)
}

func (r *stockLevelRepo) UpdateQuantityTx(tx *gorm.DB, id uuid.UUID, quantity int) error {
	return tx.Model(&model.StockLevel{}).Where("id = ?", id).
		Update("quantity", quantity).Error
}

func (r *stockLevelRepo) UpdateReservedTx(tx *gorm.DB, id uuid.UUID, reserved int) error {
	return tx.Model(&model.StockLevel{}).Where("id = ?", id).
		Update("reserved", reserved).Error
}

package repository

import (
	"context"
	"time"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TillRepository interface {
	Create(ctx context.Context, t *model.TillRecord) error
	FindByLocationAndDate(ctx context.Context, locationID uuid.UUID, date time.Time) (*model.TillRecord, error)
	Update(ctx context.Context, t *model.TillRecord) error
}

type tillRepo struct{ db *gorm.DB }

func NewTillRepository(db *gorm.DB) TillRepository { return &tillRepo{db: db} }

func (r *tillRepo) Create(ctx context.Context, t *model.TillRecord) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *tillRepo) FindByLocationAndDate(ctx context.Context, locationID uuid.UUID, date time.Time) (*model.TillRecord, error) {
	var t model.TillRecord
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND date = ?", locationID, date.Format("2006-01-02")).
		First(&t).Error
	return &t, err
}

func (r *tillRepo) Update(ctx context.Context, t *model.TillRecord) error {
	return r.db.WithContext(ctx).Save(t).Error
}

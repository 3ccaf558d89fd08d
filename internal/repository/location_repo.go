package repository

import (
	"context"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocationRepository reads the branch registry (a consumed collaborator).
type LocationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error)
	List(ctx context.Context) ([]model.Location, error)
}

type locationRepo struct{ db *gorm.DB }

func NewLocationRepository(db *gorm.DB) LocationRepository { return &locationRepo{db: db} }

func (r *locationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	var l model.Location
	err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error
	return &l, err
}

func (r *locationRepo) List(ctx context.Context) ([]model.Location, error) {
	var locations []model.Location
	err := r.db.WithContext(ctx).Where("active = true").Order("code ASC").Find(&locations).Error
	return locations, err
}

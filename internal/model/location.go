package model

import (
	"time"

	"github.com/google/uuid"
)

// Location is a store/branch holding inventory. Supplied by the branch
// registry; read-only here.
type Location struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

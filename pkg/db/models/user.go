package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aquafindr/aquafindr-backend/pkg/enums"
)

// User is a platform account. Authentication lives outside this service;
// the row exists so bookings and notifications can reference a stable id.
type User struct {
	ID    uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name  string          `gorm:"column:name;not null"`
	Email string          `gorm:"column:email;uniqueIndex"`
	Phone string          `gorm:"column:phone"`
	Role  enums.ActorRole `gorm:"column:role;type:text;not null;default:'customer'"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

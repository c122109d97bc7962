package models

import (
	"time"

	"github.com/google/uuid"
)

// Order groups the committed lines and payments of one checkout.
type Order struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID  uuid.UUID  `gorm:"column:session_id;type:uuid;not null;index"`
	LocationID uuid.UUID  `gorm:"column:location_id;type:uuid;not null"`
	ClientID   *uuid.UUID `gorm:"column:client_id;type:uuid"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`

	Lines    []OrderLine `gorm:"foreignKey:OrderID"`
	Payments []Payment   `gorm:"foreignKey:OrderID"`
}

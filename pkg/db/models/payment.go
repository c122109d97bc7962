package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/registrapos/backend/pkg/enums"
)

// Payment is one immutable cash-flow event inside a terminal session.
// OrderID is set only for order-linked payments.
type Payment struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID uuid.UUID              `gorm:"column:session_id;type:uuid;not null;index"`
	OrderID   *uuid.UUID             `gorm:"column:order_id;type:uuid;index"`
	Method    enums.PaymentMethod    `gorm:"column:method;type:payment_method;not null"`
	Direction enums.PaymentDirection `gorm:"column:direction;type:payment_direction;not null"`
	Type      enums.PaymentType      `gorm:"column:type;type:payment_type;not null"`
	Amount    decimal.Decimal        `gorm:"column:amount;type:decimal(12,2);not null"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

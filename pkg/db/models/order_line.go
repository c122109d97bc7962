package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/registrapos/backend/pkg/enums"
)

// OrderLine is one committed sale line bound to a specific lot. Lines are
// never deleted: a removal inserts a negated twin (ReversalOfID points at
// the original) and flips both statuses to cancelled, so any total computed
// over all lines nets a cancelled group to zero.
type OrderLine struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID        uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	PresentationID   uuid.UUID             `gorm:"column:presentation_id;type:uuid;not null"`
	LotID            uuid.UUID             `gorm:"column:lot_id;type:uuid;not null"`
	StockID          uuid.UUID             `gorm:"column:stock_id;type:uuid;not null"`
	Quantity         decimal.Decimal       `gorm:"column:quantity;type:decimal(20,4);not null"`
	OverSellQuantity decimal.Decimal       `gorm:"column:over_sell_quantity;type:decimal(20,4);not null;default:0"`
	UnitPrice        decimal.Decimal       `gorm:"column:unit_price;type:decimal(12,2);not null"`
	Subtotal         decimal.Decimal       `gorm:"column:subtotal;type:decimal(12,2);not null"`
	Total            decimal.Decimal       `gorm:"column:total;type:decimal(12,2);not null"`
	Status           enums.OrderLineStatus `gorm:"column:status;type:order_line_status;not null;default:'pending'"`
	ReversalOfID     *uuid.UUID            `gorm:"column:reversal_of_id;type:uuid"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
}

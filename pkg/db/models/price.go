package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/registrapos/backend/pkg/enums"
)

// Price is one tier of a presentation's price list. QtyPerPrice is the
// quantity threshold at which the tier starts to apply.
type Price struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PresentationID uuid.UUID           `gorm:"column:presentation_id;type:uuid;not null;index"`
	LocationID     uuid.UUID           `gorm:"column:location_id;type:uuid;not null;index"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:decimal(12,2);not null"`
	QtyPerPrice    decimal.Decimal     `gorm:"column:qty_per_price;type:decimal(20,4);not null"`
	TierType       enums.PriceTierType `gorm:"column:tier_type;type:price_tier_type;not null;default:'retail'"`
	LogicType      enums.PriceLogic    `gorm:"column:logic_type;type:price_logic;not null;default:'flat'"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}

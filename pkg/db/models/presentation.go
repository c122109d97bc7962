package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/registrapos/backend/pkg/enums"
)

// Presentation is one sellable packaging of a product (box of 12, loose by
// weight). BulkQuantityEquivalence is the ratio of this presentation to the
// product's base unit and converts quantities between presentations of the
// same product.
type Presentation struct {
	ID                      uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID               uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name                    string          `gorm:"column:name;not null"`
	SellUnit                enums.SellUnit  `gorm:"column:sell_unit;type:sell_unit;not null"`
	BulkQuantityEquivalence decimal.Decimal `gorm:"column:bulk_quantity_equivalence;type:decimal(20,4);not null;default:1"`
	CreatedAt               time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Prices []Price `gorm:"foreignKey:PresentationID"`
	Lots   []Lot   `gorm:"foreignKey:PresentationID"`
}

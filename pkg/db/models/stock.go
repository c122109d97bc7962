package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock is the quantity of one lot held at one location. The reservation
// counters are maintained by the inventory collaborator; this core only
// reads them to compute availability.
type Stock struct {
	ID                         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LotID                      uuid.UUID       `gorm:"column:lot_id;type:uuid;not null;index"`
	LocationID                 uuid.UUID       `gorm:"column:location_id;type:uuid;not null;index"`
	Quantity                   decimal.Decimal `gorm:"column:quantity;type:decimal(20,4);not null"`
	ReservedForSellingQty      decimal.Decimal `gorm:"column:reserved_for_selling_quantity;type:decimal(20,4);not null;default:0"`
	ReservedForTransferringQty decimal.Decimal `gorm:"column:reserved_for_transferring_quantity;type:decimal(20,4);not null;default:0"`
	UpdatedAt                  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Available is quantity minus both reservation counters.
func (s Stock) Available() decimal.Decimal {
	return s.Quantity.Sub(s.ReservedForSellingQty).Sub(s.ReservedForTransferringQty)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Lot is one inventory batch of a presentation. CreatedAt is the FIFO
// ordering key the allocator consumes lots by.
type Lot struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PresentationID uuid.UUID `gorm:"column:presentation_id;type:uuid;not null;index"`
	Code           string    `gorm:"column:code;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime;index"`

	Stocks []Stock `gorm:"foreignKey:LotID"`
}

// StockAt returns the lot's stock row for one location, or nil.
func (l *Lot) StockAt(locationID uuid.UUID) *Stock {
	for i := range l.Stocks {
		if l.Stocks[i].LocationID == locationID {
			return &l.Stocks[i]
		}
	}
	return nil
}

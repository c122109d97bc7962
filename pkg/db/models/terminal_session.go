package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/registrapos/backend/pkg/enums"
)

// TerminalSession is one cash-register shift. ExpectedCash and Difference
// are derived at close time and stored with the closure record only.
type TerminalSession struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TerminalID     uuid.UUID           `gorm:"column:terminal_id;type:uuid;not null;index"`
	LocationID     uuid.UUID           `gorm:"column:location_id;type:uuid;not null"`
	OpeningBalance decimal.Decimal     `gorm:"column:opening_balance;type:decimal(12,2);not null"`
	ClosingBalance *decimal.Decimal    `gorm:"column:closing_balance;type:decimal(12,2)"`
	ExpectedCash   *decimal.Decimal    `gorm:"column:expected_cash;type:decimal(12,2)"`
	Difference     *decimal.Decimal    `gorm:"column:difference;type:decimal(12,2)"`
	Status         enums.SessionStatus `gorm:"column:status;type:session_status;not null;default:'open'"`
	OpenedAt       time.Time           `gorm:"column:opened_at;autoCreateTime"`
	ClosedAt       *time.Time          `gorm:"column:closed_at"`
}

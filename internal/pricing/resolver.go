package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/registrapos/backend/pkg/db/models"
	"github.com/registrapos/backend/pkg/enums"
)

// Resolution is the outcome of tier selection for one requested quantity.
// TierID is nil when no tier list exists or a manual price was taken; the
// caller must require a manual price before committing when Manual is false
// and TierID is nil.
type Resolution struct {
	UnitPrice decimal.Decimal
	TierID    *uuid.UUID
	Manual    bool
}

// Resolve picks the unit price for a requested quantity from a tiered price
// list. A flat-logic entry wins outright regardless of quantity. Among
// quantity-discount tiers the greatest threshold not exceeding the quantity
// wins; below every threshold the smallest-threshold tier applies. A manual
// price, when supplied, wins over everything so the register can keep an
// operator-entered price stable across re-resolutions at the same quantity.
func Resolve(quantity decimal.Decimal, tiers []models.Price, manual *decimal.Decimal) Resolution {
	if manual != nil {
		return Resolution{UnitPrice: *manual, Manual: true}
	}
	if len(tiers) == 0 {
		return Resolution{UnitPrice: decimal.Zero}
	}

	for i := range tiers {
		if tiers[i].LogicType == enums.PriceLogicFlat {
			tierID := tiers[i].ID
			return Resolution{UnitPrice: tiers[i].Amount, TierID: &tierID}
		}
	}

	selected := selectTier(quantity, tiers)
	tierID := selected.ID
	return Resolution{UnitPrice: selected.Amount, TierID: &tierID}
}

func selectTier(quantity decimal.Decimal, tiers []models.Price) models.Price {
	var applicable *models.Price
	for i := range tiers {
		tier := &tiers[i]
		if tier.QtyPerPrice.LessThanOrEqual(quantity) {
			if applicable == nil || tier.QtyPerPrice.GreaterThan(applicable.QtyPerPrice) {
				applicable = tier
			}
		}
	}
	if applicable != nil {
		return *applicable
	}

	lowest := &tiers[0]
	for i := range tiers[1:] {
		tier := &tiers[i+1]
		if tier.QtyPerPrice.LessThan(lowest.QtyPerPrice) {
			lowest = tier
		}
	}
	return *lowest
}

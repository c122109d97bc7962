package allocation

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/registrapos/backend/pkg/db/models"
	"github.com/registrapos/backend/pkg/enums"
	pkgerrors "github.com/registrapos/backend/pkg/errors"
	"github.com/registrapos/backend/pkg/types"
)

// Request describes one allocation: N units of a presentation at a location,
// spread over the presentation's lots.
type Request struct {
	Product          types.ProductRef
	Lots             []models.Lot
	Quantity         decimal.Decimal
	LocationID       uuid.UUID
	UnitPrice        decimal.Decimal
	AllowOverselling bool
	Mode             enums.AllocationMode

	// PerLot carries the operator-chosen distribution in per-lot mode.
	PerLot []LotQuantity

	// AlreadyAllocated projects quantity the current cart has already taken
	// from each lot, keyed by lot id, so repeated adds of the same
	// presentation do not double-spend a lot.
	AlreadyAllocated map[uuid.UUID]decimal.Decimal
}

// LotQuantity is one operator-chosen (lot, quantity) pair.
type LotQuantity struct {
	LotID    uuid.UUID
	Quantity decimal.Decimal
}

// Allocate turns a requested quantity into order lines bound to specific
// lots. Unified mode consumes lots oldest first; per-lot mode validates the
// caller's distribution without redistributing. The returned lines carry no
// order id; the committer assigns it.
//
// When stock runs out and overselling is disallowed the whole request is
// rejected: the allocator never partially commits.
func Allocate(req Request) ([]models.OrderLine, error) {
	if !req.Product.HasProduct() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product reference required")
	}
	if req.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id required")
	}
	if req.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	switch req.Mode {
	case enums.AllocationModeUnified:
		return allocateUnified(req)
	case enums.AllocationModePerLot:
		return allocatePerLot(req)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid allocation mode")
	}
}

// TotalAvailable sums the available stock of every lot at the location,
// minus what the current cart already holds. Callers use it for the same
// pre-check the allocator applies, so a rejected add can be disabled before
// commit is ever attempted.
func TotalAvailable(lots []models.Lot, locationID uuid.UUID, alreadyAllocated map[uuid.UUID]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for i := range lots {
		available := lotAvailable(&lots[i], locationID, alreadyAllocated)
		if available.IsPositive() {
			total = total.Add(available)
		}
	}
	return total
}

func allocateUnified(req Request) ([]models.OrderLine, error) {
	if req.Quantity.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if req.Quantity.IsZero() {
		return nil, nil
	}

	lots := sortedByCreation(req.Lots)
	remaining := req.Quantity
	var lines []models.OrderLine

	for i := range lots {
		if remaining.IsZero() {
			break
		}
		lot := &lots[i]
		stock := lot.StockAt(req.LocationID)
		if stock == nil {
			continue
		}
		available := lotAvailable(lot, req.LocationID, req.AlreadyAllocated)
		if !available.IsPositive() {
			continue
		}

		take := decimal.Min(remaining, available)
		lines = append(lines, buildLine(req, lot.ID, stock.ID, take))
		remaining = remaining.Sub(take)
	}

	if remaining.IsPositive() {
		if !req.AllowOverselling {
			return nil, insufficientStock(req.Quantity, req.Quantity.Sub(remaining))
		}
		if len(lines) > 0 {
			attachOversell(&lines[len(lines)-1], remaining, req.UnitPrice)
			return lines, nil
		}
		// nothing was available anywhere: the remainder rides on a
		// zero-quantity line referencing the first lot that has a stock
		// row at the location
		for i := range lots {
			stock := lots[i].StockAt(req.LocationID)
			if stock == nil {
				continue
			}
			line := buildLine(req, lots[i].ID, stock.ID, decimal.Zero)
			attachOversell(&line, remaining, req.UnitPrice)
			return []models.OrderLine{line}, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no lot carries stock at this location")
	}

	return lines, nil
}

func allocatePerLot(req Request) ([]models.OrderLine, error) {
	if len(req.PerLot) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "per-lot distribution required")
	}

	byID := make(map[uuid.UUID]*models.Lot, len(req.Lots))
	for i := range req.Lots {
		byID[req.Lots[i].ID] = &req.Lots[i]
	}

	// taken accumulates consumption across entries so repeated entries for
	// the same lot see what earlier entries already took
	taken := make(map[uuid.UUID]decimal.Decimal, len(req.AlreadyAllocated))
	for lotID, qty := range req.AlreadyAllocated {
		taken[lotID] = qty
	}

	var lines []models.OrderLine
	for _, entry := range req.PerLot {
		if entry.Quantity.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "per-lot quantity cannot be negative")
		}
		if entry.Quantity.IsZero() {
			continue
		}
		lot, ok := byID[entry.LotID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lot not found for presentation")
		}
		stock := lot.StockAt(req.LocationID)
		if stock == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "lot carries no stock at this location")
		}

		available := lotAvailable(lot, req.LocationID, taken)
		if available.IsNegative() {
			available = decimal.Zero
		}
		if entry.Quantity.GreaterThan(available) {
			if !req.AllowOverselling {
				return nil, insufficientStock(entry.Quantity, available)
			}
			line := buildLine(req, lot.ID, stock.ID, available)
			attachOversell(&line, entry.Quantity.Sub(available), req.UnitPrice)
			lines = append(lines, line)
			taken[lot.ID] = taken[lot.ID].Add(available)
			continue
		}

		lines = append(lines, buildLine(req, lot.ID, stock.ID, entry.Quantity))
		taken[lot.ID] = taken[lot.ID].Add(entry.Quantity)
	}

	return lines, nil
}

func buildLine(req Request, lotID, stockID uuid.UUID, quantity decimal.Decimal) models.OrderLine {
	subtotal := quantity.Mul(req.UnitPrice)
	return models.OrderLine{
		ProductID:        req.Product.ProductID,
		PresentationID:   req.Product.PresentationID,
		LotID:            lotID,
		StockID:          stockID,
		Quantity:         quantity,
		OverSellQuantity: decimal.Zero,
		UnitPrice:        req.UnitPrice,
		Subtotal:         subtotal,
		Total:            subtotal,
		Status:           enums.OrderLineStatusPending,
	}
}

// attachOversell pins an unfillable remainder onto a line. The customer pays
// for the remainder, so the billed subtotal covers it, but it never reduces
// any stock projection.
func attachOversell(line *models.OrderLine, remainder, unitPrice decimal.Decimal) {
	line.OverSellQuantity = remainder
	line.Subtotal = line.Quantity.Add(remainder).Mul(unitPrice)
	line.Total = line.Subtotal
}

func lotAvailable(lot *models.Lot, locationID uuid.UUID, alreadyAllocated map[uuid.UUID]decimal.Decimal) decimal.Decimal {
	stock := lot.StockAt(locationID)
	if stock == nil {
		return decimal.Zero
	}
	available := stock.Available()
	if taken, ok := alreadyAllocated[lot.ID]; ok {
		available = available.Sub(taken)
	}
	return available
}

func sortedByCreation(lots []models.Lot) []models.Lot {
	sorted := make([]models.Lot, len(lots))
	copy(sorted, lots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

func insufficientStock(requested, available decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
		WithDetails(map[string]any{
			"requested": requested.String(),
			"available": available.String(),
		})
}

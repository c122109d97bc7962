package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/registrapos/backend/pkg/db/models"
	"github.com/registrapos/backend/pkg/enums"
	pkgerrors "github.com/registrapos/backend/pkg/errors"
)

// Journal is an append-only sequence of order lines. Lines are identified by
// pointer, not by value: two lines with identical quantity and price are
// still distinct entries and reversing one must not touch the other.
//
// The journal never removes a line. Reversal inserts a negated twin right
// after the original and flips both to cancelled, so every total computed
// over all lines nets a cancelled pair to zero without special-casing.
type Journal struct {
	lines []*models.OrderLine
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Commit appends lines in the order produced by allocation. Only pending and
// completed lines may enter through commit; cancelled lines only ever appear
// via Reverse.
func (j *Journal) Commit(lines ...*models.OrderLine) error {
	for _, line := range lines {
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "nil order line")
		}
		if line.Status == enums.OrderLineStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot commit a cancelled line")
		}
	}
	j.lines = append(j.lines, lines...)
	return nil
}

// Reverse cancels each target line by inserting its twin immediately after it
// and flipping the original's status. The original's numeric fields stay
// untouched. Targets must be pointers previously passed to Commit; reversing
// a line that is already cancelled is a state conflict.
func (j *Journal) Reverse(targets ...*models.OrderLine) ([]*models.OrderLine, error) {
	for _, target := range targets {
		if j.indexOf(target) < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line is not part of this journal")
		}
		if target.Status == enums.OrderLineStatusCancelled {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "line is already cancelled")
		}
	}

	twins := make([]*models.OrderLine, 0, len(targets))
	for _, target := range targets {
		twin := BuildReversalTwin(target)
		idx := j.indexOf(target)
		j.lines = append(j.lines, nil)
		copy(j.lines[idx+2:], j.lines[idx+1:])
		j.lines[idx+1] = &twin

		target.Status = enums.OrderLineStatusCancelled
		twins = append(twins, &twin)
	}
	return twins, nil
}

// Lines returns the journal sequence in commit order, twins interleaved.
func (j *Journal) Lines() []*models.OrderLine {
	out := make([]*models.OrderLine, len(j.lines))
	copy(out, j.lines)
	return out
}

// Totals sums subtotal and total over every line regardless of status.
type Totals struct {
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

func (j *Journal) Totals() Totals {
	totals := Totals{Subtotal: decimal.Zero, Total: decimal.Zero}
	for _, line := range j.lines {
		totals.Subtotal = totals.Subtotal.Add(line.Subtotal)
		totals.Total = totals.Total.Add(line.Total)
	}
	return totals
}

// GroupKey identifies one display group.
type GroupKey struct {
	ProductID      uuid.UUID
	PresentationID uuid.UUID
}

// DisplayGroup separates the lines the register shows as live from the ones
// it shows struck through. Cancelled twins (negative quantity) are hidden so
// a removed line renders once, not as a confusing pair. This split is for
// presentation only; totals always come from Totals.
type DisplayGroup struct {
	Key       GroupKey
	Active    []*models.OrderLine
	Cancelled []*models.OrderLine
}

// DisplayGroups groups lines by product and presentation, in first-seen
// order.
func (j *Journal) DisplayGroups() []DisplayGroup {
	byKey := map[GroupKey]int{}
	var groups []DisplayGroup

	for _, line := range j.lines {
		key := GroupKey{ProductID: line.ProductID, PresentationID: line.PresentationID}
		idx, ok := byKey[key]
		if !ok {
			idx = len(groups)
			byKey[key] = idx
			groups = append(groups, DisplayGroup{Key: key})
		}

		switch {
		case line.Status != enums.OrderLineStatusCancelled:
			groups[idx].Active = append(groups[idx].Active, line)
		case line.Quantity.IsPositive():
			groups[idx].Cancelled = append(groups[idx].Cancelled, line)
		}
	}
	return groups
}

func (j *Journal) indexOf(target *models.OrderLine) int {
	for i, line := range j.lines {
		if line == target {
			return i
		}
	}
	return -1
}

// BuildReversalTwin produces the compensating line for an original: same
// unit price and references, negated quantity, oversell, subtotal and total,
// status cancelled, linked back through ReversalOfID. The caller is
// responsible for flipping the original's status when applying the twin.
func BuildReversalTwin(original *models.OrderLine) models.OrderLine {
	originalID := original.ID
	return models.OrderLine{
		ID:               uuid.New(),
		OrderID:          original.OrderID,
		ProductID:        original.ProductID,
		PresentationID:   original.PresentationID,
		LotID:            original.LotID,
		StockID:          original.StockID,
		Quantity:         original.Quantity.Neg(),
		OverSellQuantity: original.OverSellQuantity.Neg(),
		UnitPrice:        original.UnitPrice,
		Subtotal:         original.Subtotal.Neg(),
		Total:            original.Total.Neg(),
		Status:           enums.OrderLineStatusCancelled,
		ReversalOfID:     &originalID,
	}
}

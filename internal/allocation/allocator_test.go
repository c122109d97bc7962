package allocation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/registrapos/backend/pkg/db/models"
	"github.com/registrapos/backend/pkg/enums"
	pkgerrors "github.com/registrapos/backend/pkg/errors"
	"github.com/registrapos/backend/pkg/types"
)

type lotFixture struct {
	lot   models.Lot
	stock models.Stock
}

func newLot(locationID uuid.UUID, createdAt time.Time, quantity int64) lotFixture {
	lotID := uuid.New()
	stock := models.Stock{
		ID:         uuid.New(),
		LotID:      lotID,
		LocationID: locationID,
		Quantity:   decimal.NewFromInt(quantity),
	}
	return lotFixture{
		lot: models.Lot{
			ID:        lotID,
			Code:      "L-" + lotID.String()[:8],
			CreatedAt: createdAt,
			Stocks:    []models.Stock{stock},
		},
		stock: stock,
	}
}

func baseRequest(locationID uuid.UUID, lots []models.Lot, quantity int64) Request {
	return Request{
		Product:    types.NewProductRef(uuid.New(), uuid.New()),
		Lots:       lots,
		Quantity:   decimal.NewFromInt(quantity),
		LocationID: locationID,
		UnitPrice:  decimal.NewFromInt(50),
		Mode:       enums.AllocationModeUnified,
	}
}

func TestAllocateUnifiedConsumesOldestFirst(t *testing.T) {
	t.Parallel()

	location := uuid.New()
	now := time.Now()
	older := newLot(location, now.Add(-2*time.Hour), 5)
	newer := newLot(location, now.Add(-time.Hour), 3)

	// deliberately pass lots newest first; the allocator must reorder
	lines, err := Allocate(baseRequest(location, []models.Lot{newer.lot, older.lot}, 6))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].LotID != older.lot.ID || !lines[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("first line should drain the oldest lot: %+v", lines[0])
	}
	if lines[1].LotID != newer.lot.ID || !lines[1].Quantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("second line should take the remainder from the newer lot: %+v", lines[1])
	}
	for _, line := range lines {
		if !line.OverSellQuantity.IsZero() {
			t.Fatalf("no oversell expected: %+v", line)
		}
		if !line.Subtotal.Equal(line.Quantity.Mul(decimal.NewFromInt(50))) {
			t.Fatalf("subtotal mismatch: %+v", line)
		}
	}
}

func TestAllocateUnifiedConservation(t *testing.T) {
	t.Parallel()

	location := uuid.New()
	now := time.Now()
	fixtures := []lotFixture{
		newLot(location, now.Add(-3*time.Hour), 4),
		newLot(location, now.Add(-2*time.Hour), 7),
		newLot(location, now.Add(-time.Hour), 2),
	}
	lots := make([]models.Lot, 0, len(fixtures))
	availableByStock := map[uuid.UUID]decimal.Decimal{}
	for _, f := range fixtures {
		lots = append(lots, f.lot)
		availableByStock[f.stock.ID] = f.stock.Quantity
	}

	lines, err := Allocate(baseRequest(location, lots, 11))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Quantity)
		if line.Quantity.GreaterThan(availableByStock[line.StockID]) {
			t.Fatalf("line exceeds its lot's stock: %+v", line)
		}
	}
	if !sum.Equal(decimal.NewFromInt(11)) {
		t.Fatalf("allotted %s, requested 11", sum)
	}
}

func TestAllocateOversellRemainderOnLastLine(t *testing.T) {
	t.Parallel()

	location := uuid.New()
	now := time.Now()
	a := newLot(location, now.Add(-2*time.Hour), 5)
	b := newLot(location, now.Add(-time.Hour), 3)

	req := baseRequest(location, []models.Lot{a.lot, b.lot}, 10)
	req.AllowOverselling = true
	lines, err := Allocate(req)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !lines[0].Quantity.Equal(decimal.NewFromInt(5)) || !lines[0].OverSellQuantity.IsZero() {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if !lines[1].Quantity.Equal(decimal.NewFromInt(3)) || !lines[1].OverSellQuantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("remainder must ride on the last line: %+v", lines[1])
	}
	// tracked quantity equals total availability; remainder only in oversell
	tracked := lines[0].Quantity.Add(lines[1].Quantity)
	if !tracked.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("tracked quantity %s, want 8", tracked)
	}
	if !lines[1].Subtotal.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("oversold line should bill quantity plus remainder: %+v", lines[1])
	}
}

func TestAllocateOversellWithNoStockAnywhere(t *testing.T) {
	t.Parallel()

	location := uuid.New()
	empty := newLot(location, time.Now().Add(-time.Hour), 0)

	req := baseRequest(location, []models.Lot{empty.lot}, 4)
	req.AllowOverselling = true
	lines, err := Allocate(req)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected a single carrier line, got %d", len(lines))
	}
	if !lines[0].Quantity.IsZero() || !lines[0].OverSellQuantity.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected zero-quantity carrier with full oversell: %+v", lines[0])
	}
	if lines[0].LotID != empty.lot.ID {
		t.Fatal("carrier line must reference the first lot")
	}
}

func TestAllocateInsufficientStockRejectsWhole(t *testing.T) {
	t.Parallel()

	location := uuid.New()
	now := time.Now()
	a := newLot(location, now.Add(-2*time.Hour), 5)
	b := newLot(location, now.Add(-time.Hour), 3)

	lines, err := Allocate(baseRequest(location, []models.Lot{a.lot, b.lot}, 10))
	if err == nil {
		t.Fatalf("expected insufficient stock, got %d lines", len(lines))
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected error: %v", err)
	}
	if lines != nil {
		t.Fatal("no partial allocation on failure")
	}
}

func TestAllocateZeroQuantityIsNoop(t *testing.T) {
	t.Parallel()

	location := uuid.New()
	a := newLot(location, time.Now(), 5)
	lines, err := Allocate(baseRequest(location, []models.Lot{a.lot}, 0))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(lines))
	}
}

func TestAllocateRespectsReservationsAndCart(t *testing.T) {
	t.Parallel()

	location := uuid.New()
	f := newLot(location, time.Now().Add(-time.Hour), 10)
	f.lot.Stocks[0].ReservedForSellingQty = decimal.NewFromInt(2)
	f.lot.Stocks[0].ReservedForTransferringQty = decimal.NewFromInt(1)

	req := baseRequest(location, []models.Lot{f.lot}, 6)
	req.AlreadyAllocated = map[uuid.UUID]decimal.Decimal{f.lot.ID: decimal.NewFromInt(2)}

	// 10 - 2 - 1 reserved - 2 in cart = 5 available
	_, err := Allocate(req)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	req.Quantity = decimal.NewFromInt(5)
	lines, err := Allocate(req)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(lines) != 1 || !lines[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected the remaining 5 units, got %+v", lines)
	}
}

func TestAllocatePerLotValidatesWithoutRedistribution(t *testing.T) {
	t.Parallel()

	location := uuid.New()
	now := time.Now()
	a := newLot(location, now.Add(-2*time.Hour), 5)
	b := newLot(location, now.Add(-time.Hour), 3)

	req := baseRequest(location, []models.Lot{a.lot, b.lot}, 0)
	req.Mode = enums.AllocationModePerLot
	req.PerLot = []LotQuantity{
		{LotID: b.lot.ID, Quantity: decimal.NewFromInt(3)},
		{LotID: a.lot.ID, Quantity: decimal.NewFromInt(2)},
	}

	lines, err := Allocate(req)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	// operator order preserved, no redistribution onto the older lot
	if lines[0].LotID != b.lot.ID || !lines[0].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].LotID != a.lot.ID || !lines[1].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
}

func TestAllocatePerLotOversellRule(t *testing.T) {
	t.Parallel()

	location := uuid.New()
	a := newLot(location, time.Now(), 2)

	req := baseRequest(location, []models.Lot{a.lot}, 0)
	req.Mode = enums.AllocationModePerLot
	req.PerLot = []LotQuantity{{LotID: a.lot.ID, Quantity: decimal.NewFromInt(5)}}

	if _, err := Allocate(req); !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	req.AllowOverselling = true
	lines, err := Allocate(req)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if !lines[0].Quantity.Equal(decimal.NewFromInt(2)) || !lines[0].OverSellQuantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected oversell split: %+v", lines[0])
	}
}

func TestAllocatePerLotRepeatedLotSharesAvailability(t *testing.T) {
	t.Parallel()

	location := uuid.New()
	a := newLot(location, time.Now(), 3)

	req := baseRequest(location, []models.Lot{a.lot}, 0)
	req.Mode = enums.AllocationModePerLot
	req.PerLot = []LotQuantity{
		{LotID: a.lot.ID, Quantity: decimal.NewFromInt(3)},
		{LotID: a.lot.ID, Quantity: decimal.NewFromInt(3)},
	}

	// the second entry sees the lot drained by the first
	lines, err := Allocate(req)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if lines != nil {
		t.Fatal("no partial allocation on failure")
	}

	req.AllowOverselling = true
	lines, err = Allocate(req)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	tracked := decimal.Zero
	oversold := decimal.Zero
	for _, line := range lines {
		tracked = tracked.Add(line.Quantity)
		oversold = oversold.Add(line.OverSellQuantity)
	}
	if !tracked.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("tracked quantity %s exceeds the lot's 3 units", tracked)
	}
	if !oversold.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected the second entry oversold in full, got %s", oversold)
	}
}

func TestAllocateRequiresProductRef(t *testing.T) {
	t.Parallel()

	location := uuid.New()
	a := newLot(location, time.Now(), 5)
	req := baseRequest(location, []models.Lot{a.lot}, 1)
	req.Product = types.ProductRef{}

	if _, err := Allocate(req); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

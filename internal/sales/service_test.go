package sales

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/registrapos/backend/internal/catalog"
	"github.com/registrapos/backend/internal/shift"
	"github.com/registrapos/backend/pkg/db"
	"github.com/registrapos/backend/pkg/db/models"
	"github.com/registrapos/backend/pkg/enums"
	pkgerrors "github.com/registrapos/backend/pkg/errors"
	"github.com/registrapos/backend/pkg/logger"
)

func setupSalesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive and private
	sqlDB.SetMaxOpenConns(1)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS presentations (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sell_unit TEXT NOT NULL,
  bulk_quantity_equivalence NUMERIC NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS prices (
  id TEXT PRIMARY KEY,
  presentation_id TEXT NOT NULL,
  location_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  qty_per_price NUMERIC NOT NULL,
  tier_type TEXT NOT NULL DEFAULT 'retail',
  logic_type TEXT NOT NULL DEFAULT 'flat',
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS lots (
  id TEXT PRIMARY KEY,
  presentation_id TEXT NOT NULL,
  code TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS stocks (
  id TEXT PRIMARY KEY,
  lot_id TEXT NOT NULL,
  location_id TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  reserved_for_selling_quantity NUMERIC NOT NULL DEFAULT 0,
  reserved_for_transferring_quantity NUMERIC NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  location_id TEXT NOT NULL,
  client_id TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  presentation_id TEXT NOT NULL,
  lot_id TEXT NOT NULL,
  stock_id TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  over_sell_quantity NUMERIC NOT NULL DEFAULT 0,
  unit_price NUMERIC NOT NULL,
  subtotal NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  reversal_of_id TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS terminal_sessions (
  id TEXT PRIMARY KEY,
  terminal_id TEXT NOT NULL,
  location_id TEXT NOT NULL,
  opening_balance NUMERIC NOT NULL,
  closing_balance NUMERIC,
  expected_cash NUMERIC,
  difference NUMERIC,
  status TEXT NOT NULL DEFAULT 'open',
  opened_at DATETIME,
  closed_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  order_id TEXT,
  method TEXT NOT NULL,
  direction TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type salesFixture struct {
	conn           *gorm.DB
	svc            Service
	sessionID      uuid.UUID
	locationID     uuid.UUID
	productID      uuid.UUID
	presentationID uuid.UUID
	lotA           uuid.UUID
	lotB           uuid.UUID
	stockA         uuid.UUID
	stockB         uuid.UUID
}

// newSalesFixture seeds an open session and one presentation with a two-tier
// retail price list and two lots (stock 5 and 3, oldest first).
func newSalesFixture(t *testing.T) *salesFixture {
	t.Helper()

	conn := setupSalesTestDB(t)
	client, err := db.NewFromGorm(conn)
	require.NoError(t, err)
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})

	catalogRepo := catalog.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), catalogRepo, catalogRepo, shift.NewRepository(conn), client, logg, nil)
	require.NoError(t, err)

	f := &salesFixture{
		conn:           conn,
		svc:            svc,
		sessionID:      uuid.New(),
		locationID:     uuid.New(),
		productID:      uuid.New(),
		presentationID: uuid.New(),
		lotA:           uuid.New(),
		lotB:           uuid.New(),
		stockA:         uuid.New(),
		stockB:         uuid.New(),
	}

	require.NoError(t, conn.Create(&models.TerminalSession{
		ID: f.sessionID, TerminalID: uuid.New(), LocationID: f.locationID,
		OpeningBalance: decimal.NewFromInt(1000), Status: enums.SessionStatusOpen,
	}).Error)
	require.NoError(t, conn.Create(&models.Presentation{
		ID: f.presentationID, ProductID: f.productID, Name: "box of 12",
		SellUnit: enums.SellUnitUnit, BulkQuantityEquivalence: decimal.NewFromInt(12),
	}).Error)
	require.NoError(t, conn.Create(&models.Price{
		ID: uuid.New(), PresentationID: f.presentationID, LocationID: f.locationID,
		Amount: decimal.NewFromInt(100), QtyPerPrice: decimal.NewFromInt(1),
		TierType: enums.PriceTierTypeRetail, LogicType: enums.PriceLogicQuantityDiscount,
	}).Error)
	require.NoError(t, conn.Create(&models.Price{
		ID: uuid.New(), PresentationID: f.presentationID, LocationID: f.locationID,
		Amount: decimal.NewFromInt(90), QtyPerPrice: decimal.NewFromInt(10),
		TierType: enums.PriceTierTypeRetail, LogicType: enums.PriceLogicQuantityDiscount,
	}).Error)

	base := time.Now().Add(-48 * time.Hour)
	require.NoError(t, conn.Create(&models.Lot{
		ID: f.lotA, PresentationID: f.presentationID, Code: "A", CreatedAt: base,
	}).Error)
	require.NoError(t, conn.Create(&models.Lot{
		ID: f.lotB, PresentationID: f.presentationID, Code: "B", CreatedAt: base.Add(time.Hour),
	}).Error)
	require.NoError(t, conn.Create(&models.Stock{
		ID: f.stockA, LotID: f.lotA, LocationID: f.locationID, Quantity: decimal.NewFromInt(5),
	}).Error)
	require.NoError(t, conn.Create(&models.Stock{
		ID: f.stockB, LotID: f.lotB, LocationID: f.locationID, Quantity: decimal.NewFromInt(3),
	}).Error)
	return f
}

func (f *salesFixture) stockQuantity(t *testing.T, stockID uuid.UUID) decimal.Decimal {
	t.Helper()
	var stock models.Stock
	require.NoError(t, f.conn.First(&stock, "id = ?", stockID).Error)
	return stock.Quantity
}

func TestRepository_DecrementStockRespectsReservations(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	repo := NewRepository(f.conn)

	// 5 on hand, 3 reserved: only 2 are spendable
	require.NoError(t, f.conn.Model(&models.Stock{}).
		Where("id = ?", f.stockA).
		Update("reserved_for_selling_quantity", decimal.NewFromInt(3)).Error)

	err := repo.DecrementStock(ctx, f.stockA, decimal.NewFromInt(4))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assert.True(t, f.stockQuantity(t, f.stockA).Equal(decimal.NewFromInt(5)), "reserved units must stay untouched")

	require.NoError(t, repo.DecrementStock(ctx, f.stockA, decimal.NewFromInt(2)))
	assert.True(t, f.stockQuantity(t, f.stockA).Equal(decimal.NewFromInt(3)))
}

func TestService_QuoteResolvesPriceAndAvailability(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()

	quote, err := f.svc.Quote(ctx, QuoteInput{
		ProductID:      f.productID,
		PresentationID: f.presentationID,
		LocationID:     f.locationID,
		Quantity:       decimal.NewFromInt(6),
	})
	require.NoError(t, err)
	assert.True(t, quote.UnitPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, quote.Available.Equal(decimal.NewFromInt(8)))
	assert.True(t, quote.CanFulfill)
	assert.False(t, quote.RequiresManualPrice)

	quote, err = f.svc.Quote(ctx, QuoteInput{
		ProductID:      f.productID,
		PresentationID: f.presentationID,
		LocationID:     f.locationID,
		Quantity:       decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.True(t, quote.UnitPrice.Equal(decimal.NewFromInt(90)), "threshold 10 tier must apply")
	assert.False(t, quote.CanFulfill, "only 8 units available")
}

func TestService_QuoteFlagsMissingPriceList(t *testing.T) {
	f := newSalesFixture(t)

	otherLocation := uuid.New()
	require.NoError(t, f.conn.Create(&models.Stock{
		ID: uuid.New(), LotID: f.lotA, LocationID: otherLocation, Quantity: decimal.NewFromInt(2),
	}).Error)

	quote, err := f.svc.Quote(context.Background(), QuoteInput{
		ProductID:      f.productID,
		PresentationID: f.presentationID,
		LocationID:     otherLocation,
		Quantity:       decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	assert.True(t, quote.RequiresManualPrice)
	assert.True(t, quote.UnitPrice.IsZero())
}

func TestService_CheckoutCommitsLinesPaymentsAndStock(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()

	result, err := f.svc.Checkout(ctx, CheckoutInput{
		SessionID:  f.sessionID,
		LocationID: f.locationID,
		Items: []CheckoutItem{{
			ProductID:      f.productID,
			PresentationID: f.presentationID,
			Quantity:       decimal.NewFromInt(6),
		}},
		Payments: []PaymentInput{{Method: enums.PaymentMethodCash, Amount: decimal.NewFromInt(600)}},
	})
	require.NoError(t, err)
	require.Len(t, result.Lines, 2)

	assert.Equal(t, f.lotA, result.Lines[0].LotID)
	assert.True(t, result.Lines[0].Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, f.lotB, result.Lines[1].LotID)
	assert.True(t, result.Lines[1].Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, result.Total.Equal(decimal.NewFromInt(600)))

	assert.True(t, f.stockQuantity(t, f.stockA).IsZero())
	assert.True(t, f.stockQuantity(t, f.stockB).Equal(decimal.NewFromInt(2)))

	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, "session_id = ?", f.sessionID).Error)
	require.NotNil(t, payment.OrderID)
	assert.Equal(t, result.Order.ID, *payment.OrderID)
	assert.Equal(t, enums.PaymentTypeOrder, payment.Type)
	assert.Equal(t, enums.PaymentDirectionIn, payment.Direction)
}

func TestService_CheckoutOversellDoesNotTouchStock(t *testing.T) {
	f := newSalesFixture(t)

	result, err := f.svc.Checkout(context.Background(), CheckoutInput{
		SessionID:  f.sessionID,
		LocationID: f.locationID,
		Items: []CheckoutItem{{
			ProductID:        f.productID,
			PresentationID:   f.presentationID,
			Quantity:         decimal.NewFromInt(10),
			AllowOverselling: true,
		}},
	})
	require.NoError(t, err)
	require.Len(t, result.Lines, 2)
	assert.True(t, result.Lines[1].OverSellQuantity.Equal(decimal.NewFromInt(2)))

	// both lots drained, nothing below zero
	assert.True(t, f.stockQuantity(t, f.stockA).IsZero())
	assert.True(t, f.stockQuantity(t, f.stockB).IsZero())
}

func TestService_CheckoutInsufficientStockLeavesNothing(t *testing.T) {
	f := newSalesFixture(t)

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		SessionID:  f.sessionID,
		LocationID: f.locationID,
		Items: []CheckoutItem{{
			ProductID:      f.productID,
			PresentationID: f.presentationID,
			Quantity:       decimal.NewFromInt(10),
		}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	var orders, lines int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, f.conn.Model(&models.OrderLine{}).Count(&lines).Error)
	assert.Zero(t, orders)
	assert.Zero(t, lines)
	assert.True(t, f.stockQuantity(t, f.stockA).Equal(decimal.NewFromInt(5)))
}

func TestService_CheckoutProjectsInCartConsumption(t *testing.T) {
	f := newSalesFixture(t)

	// two cart entries of the same presentation must not double-spend lots
	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		SessionID:  f.sessionID,
		LocationID: f.locationID,
		Items: []CheckoutItem{
			{ProductID: f.productID, PresentationID: f.presentationID, Quantity: decimal.NewFromInt(5)},
			{ProductID: f.productID, PresentationID: f.presentationID, Quantity: decimal.NewFromInt(5)},
		},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
}

func TestService_CheckoutRejectsClosedSession(t *testing.T) {
	f := newSalesFixture(t)
	require.NoError(t, f.conn.Model(&models.TerminalSession{}).
		Where("id = ?", f.sessionID).
		Update("status", enums.SessionStatusClosed).Error)

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		SessionID:  f.sessionID,
		LocationID: f.locationID,
		Items: []CheckoutItem{{
			ProductID:      f.productID,
			PresentationID: f.presentationID,
			Quantity:       decimal.NewFromInt(1),
		}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestService_CheckoutRequiresPriceOrManual(t *testing.T) {
	f := newSalesFixture(t)
	require.NoError(t, f.conn.Where("presentation_id = ?", f.presentationID).Delete(&models.Price{}).Error)

	input := CheckoutInput{
		SessionID:  f.sessionID,
		LocationID: f.locationID,
		Items: []CheckoutItem{{
			ProductID:      f.productID,
			PresentationID: f.presentationID,
			Quantity:       decimal.NewFromInt(2),
		}},
	}
	_, err := f.svc.Checkout(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	manual := decimal.NewFromInt(42)
	input.Items[0].ManualUnitPrice = &manual
	result, err := f.svc.Checkout(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, result.Lines[0].UnitPrice.Equal(manual))
}

func TestService_ReverseLinesInsertsTwinAndRestoresStock(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()

	result, err := f.svc.Checkout(ctx, CheckoutInput{
		SessionID:  f.sessionID,
		LocationID: f.locationID,
		Items: []CheckoutItem{{
			ProductID:      f.productID,
			PresentationID: f.presentationID,
			Quantity:       decimal.NewFromInt(2),
		}},
	})
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	original := result.Lines[0]

	twins, err := f.svc.ReverseLines(ctx, ReverseLinesInput{
		OrderID: result.Order.ID,
		LineIDs: []uuid.UUID{original.ID},
	})
	require.NoError(t, err)
	require.Len(t, twins, 1)

	twin := twins[0]
	assert.True(t, twin.Quantity.Equal(decimal.NewFromInt(-2)))
	assert.True(t, twin.Total.Equal(decimal.NewFromInt(-200)))
	assert.True(t, twin.UnitPrice.Equal(original.UnitPrice))
	assert.Equal(t, enums.OrderLineStatusCancelled, twin.Status)
	require.NotNil(t, twin.ReversalOfID)
	assert.Equal(t, original.ID, *twin.ReversalOfID)

	var reloaded models.OrderLine
	require.NoError(t, f.conn.First(&reloaded, "id = ?", original.ID).Error)
	assert.Equal(t, enums.OrderLineStatusCancelled, reloaded.Status)
	assert.True(t, reloaded.Quantity.Equal(decimal.NewFromInt(2)), "original numbers untouched")

	// stock back where it started
	assert.True(t, f.stockQuantity(t, f.stockA).Equal(decimal.NewFromInt(5)))

	// any total over all lines nets the cancelled pair to zero
	var lines []models.OrderLine
	require.NoError(t, f.conn.Where("order_id = ?", result.Order.ID).Find(&lines).Error)
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Total)
	}
	assert.True(t, sum.IsZero())
}

func TestService_ReverseCancelledLineIsStateConflict(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()

	result, err := f.svc.Checkout(ctx, CheckoutInput{
		SessionID:  f.sessionID,
		LocationID: f.locationID,
		Items: []CheckoutItem{{
			ProductID:      f.productID,
			PresentationID: f.presentationID,
			Quantity:       decimal.NewFromInt(2),
		}},
	})
	require.NoError(t, err)
	lineID := result.Lines[0].ID

	_, err = f.svc.ReverseLines(ctx, ReverseLinesInput{OrderID: result.Order.ID, LineIDs: []uuid.UUID{lineID}})
	require.NoError(t, err)

	_, err = f.svc.ReverseLines(ctx, ReverseLinesInput{OrderID: result.Order.ID, LineIDs: []uuid.UUID{lineID}})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var count int64
	require.NoError(t, f.conn.Model(&models.OrderLine{}).Where("order_id = ?", result.Order.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count, "no second twin")
}

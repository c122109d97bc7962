package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/registrapos/backend/internal/allocation"
	"github.com/registrapos/backend/internal/catalog"
	"github.com/registrapos/backend/internal/ledger"
	"github.com/registrapos/backend/internal/pricing"
	"github.com/registrapos/backend/internal/shift"
	"github.com/registrapos/backend/pkg/db"
	"github.com/registrapos/backend/pkg/db/models"
	"github.com/registrapos/backend/pkg/enums"
	pkgerrors "github.com/registrapos/backend/pkg/errors"
	"github.com/registrapos/backend/pkg/logger"
	"github.com/registrapos/backend/pkg/metrics"
	"github.com/registrapos/backend/pkg/types"
)

// Service orchestrates the register's money path: quoting an add-to-cart,
// committing a checkout and reversing committed lines. Pricing and
// allocation stay pure; this service owns the transaction boundary.
type Service interface {
	Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error)
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	ReverseLines(ctx context.Context, input ReverseLinesInput) ([]models.OrderLine, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tiers   pricing.TierSource
	shifts  shift.Repository
	client  *db.Client
	logg    *logger.Logger
	metrics *metrics.RegisterMetrics
}

// QuoteInput asks for the price and availability of one prospective item.
type QuoteInput struct {
	ProductID       uuid.UUID           `json:"product_id"`
	PresentationID  uuid.UUID           `json:"presentation_id"`
	LocationID      uuid.UUID           `json:"location_id"`
	Quantity        decimal.Decimal     `json:"quantity"`
	TierType        enums.PriceTierType `json:"tier_type"`
	ManualUnitPrice *decimal.Decimal    `json:"manual_unit_price"`

	// InCart projects quantity already allocated per lot by the current
	// uncommitted cart, so a second add of the same presentation quotes
	// against what is actually left.
	InCart map[uuid.UUID]decimal.Decimal `json:"-"`
}

// QuoteResult is the inline "can this be added" answer the register shows
// before anything is committed.
type QuoteResult struct {
	UnitPrice           decimal.Decimal `json:"unit_price"`
	TierID              *uuid.UUID      `json:"tier_id"`
	Manual              bool            `json:"manual"`
	RequiresManualPrice bool            `json:"requires_manual_price"`
	Available           decimal.Decimal `json:"available"`
	CanFulfill          bool            `json:"can_fulfill"`
	Subtotal            decimal.Decimal `json:"subtotal"`
}

// CheckoutItem is one cart entry at commit time.
type CheckoutItem struct {
	ProductID        uuid.UUID                `json:"product_id"`
	PresentationID   uuid.UUID                `json:"presentation_id"`
	Quantity         decimal.Decimal          `json:"quantity"`
	TierType         enums.PriceTierType      `json:"tier_type"`
	ManualUnitPrice  *decimal.Decimal         `json:"manual_unit_price"`
	AllowOverselling bool                     `json:"allow_overselling"`
	Mode             enums.AllocationMode     `json:"mode"`
	PerLot           []allocation.LotQuantity `json:"per_lot"`
}

// PaymentInput is one payment tendered at checkout.
type PaymentInput struct {
	Method enums.PaymentMethod `json:"method"`
	Amount decimal.Decimal     `json:"amount"`
}

// CheckoutInput commits a cart against an open session.
type CheckoutInput struct {
	SessionID  uuid.UUID      `json:"session_id"`
	LocationID uuid.UUID      `json:"location_id"`
	ClientID   *uuid.UUID     `json:"client_id"`
	Items      []CheckoutItem `json:"items"`
	Payments   []PaymentInput `json:"payments"`
}

// CheckoutResult reports the committed order.
type CheckoutResult struct {
	Order    *models.Order      `json:"order"`
	Lines    []models.OrderLine `json:"lines"`
	Payments []models.Payment   `json:"payments"`
	Total    decimal.Decimal    `json:"total"`
}

// ReverseLinesInput cancels committed lines of one order.
type ReverseLinesInput struct {
	OrderID uuid.UUID   `json:"order_id"`
	LineIDs []uuid.UUID `json:"line_ids"`
}

// NewService wires the sales service with its collaborators.
func NewService(repo Repository, catalogRepo catalog.Repository, tiers pricing.TierSource, shifts shift.Repository, client *db.Client, logg *logger.Logger, m *metrics.RegisterMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tiers == nil {
		return nil, fmt.Errorf("tier source required")
	}
	if shifts == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		catalog: catalogRepo,
		tiers:   tiers,
		shifts:  shifts,
		client:  client,
		logg:    logg,
		metrics: m,
	}, nil
}

// Quote resolves the unit price and checks availability without committing
// anything. A false CanFulfill is how the register disables the add action
// before checkout is ever attempted.
func (s *service) Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error) {
	ref := types.NewProductRef(input.ProductID, input.PresentationID)
	if !ref.HasProduct() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product and presentation ids are required")
	}
	if input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if input.Quantity.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	tierType := input.TierType
	if tierType == "" {
		tierType = enums.PriceTierTypeRetail
	}
	if !tierType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tier type %q", tierType))
	}

	presentation, err := s.catalog.FindPresentation(ctx, input.PresentationID)
	if err != nil {
		return nil, err
	}
	if presentation.ProductID != input.ProductID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "presentation does not belong to product")
	}

	tiersList, err := s.tiers.ListPriceTiers(ctx, input.PresentationID, input.LocationID, tierType)
	if err != nil {
		return nil, err
	}
	resolution := pricing.Resolve(input.Quantity, tiersList, input.ManualUnitPrice)

	lots, err := s.catalog.ListLotsFIFO(ctx, input.PresentationID, input.LocationID)
	if err != nil {
		return nil, err
	}
	available := allocation.TotalAvailable(lots, input.LocationID, input.InCart)

	return &QuoteResult{
		UnitPrice:           resolution.UnitPrice,
		TierID:              resolution.TierID,
		Manual:              resolution.Manual,
		RequiresManualPrice: !resolution.Manual && resolution.TierID == nil,
		Available:           available,
		CanFulfill:          input.Quantity.LessThanOrEqual(available),
		Subtotal:            input.Quantity.Mul(resolution.UnitPrice),
	}, nil
}

// Checkout allocates every cart item, then persists the order, its lines,
// its payments and the implied stock decrements in a single transaction. A
// failure anywhere leaves nothing behind.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	started := time.Now()

	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one item")
	}
	for _, p := range input.Payments {
		if !p.Method.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", p.Method))
		}
		if !p.Amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
		}
	}

	lines, mode, err := s.allocateItems(ctx, input)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		SessionID:  input.SessionID,
		LocationID: input.LocationID,
		ClientID:   input.ClientID,
	}
	var payments []models.Payment

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		shifts := s.shifts.WithTx(tx)

		session, err := shifts.GetSession(ctx, input.SessionID)
		if err != nil {
			return err
		}
		if session.Status != enums.SessionStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "session is closed")
		}

		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = order.ID
		}
		if err := repo.CreateLines(ctx, lines); err != nil {
			return err
		}

		// oversell quantity never reduces tracked stock
		for _, line := range lines {
			if err := repo.DecrementStock(ctx, line.StockID, line.Quantity); err != nil {
				return err
			}
		}

		for _, p := range input.Payments {
			orderID := order.ID
			payment := models.Payment{
				SessionID: session.ID,
				OrderID:   &orderID,
				Method:    p.Method,
				Direction: enums.PaymentDirectionIn,
				Type:      enums.PaymentTypeOrder,
				Amount:    p.Amount,
			}
			if err := shifts.CreatePayment(ctx, &payment); err != nil {
				return err
			}
			payments = append(payments, payment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Total)
		if line.OverSellQuantity.IsPositive() {
			s.metrics.IncOversellLine()
		}
	}
	s.metrics.IncSaleCommitted(mode)
	s.metrics.ObserveCheckout(mode, time.Since(started))
	s.logg.Info(s.logg.WithSessionID(ctx, input.SessionID.String()), "checkout committed")

	return &CheckoutResult{Order: order, Lines: lines, Payments: payments, Total: total}, nil
}

// allocateItems resolves and allocates every cart item, threading the
// running per-lot consumption through so two items of the same presentation
// cannot both claim the same units.
func (s *service) allocateItems(ctx context.Context, input CheckoutInput) ([]models.OrderLine, string, error) {
	inCart := map[uuid.UUID]decimal.Decimal{}
	mode := enums.AllocationModeUnified.String()
	var lines []models.OrderLine

	for _, item := range input.Items {
		ref := types.NewProductRef(item.ProductID, item.PresentationID)
		if !ref.HasProduct() {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "product and presentation ids are required")
		}

		presentation, err := s.catalog.FindPresentation(ctx, item.PresentationID)
		if err != nil {
			return nil, "", err
		}
		if presentation.ProductID != item.ProductID {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "presentation does not belong to product")
		}
		if presentation.SellUnit == enums.SellUnitUnit && !item.Quantity.IsInteger() {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "unit-sold presentations require whole quantities")
		}

		tierType := item.TierType
		if tierType == "" {
			tierType = enums.PriceTierTypeRetail
		}
		tiersList, err := s.tiers.ListPriceTiers(ctx, item.PresentationID, input.LocationID, tierType)
		if err != nil {
			return nil, "", err
		}
		resolution := pricing.Resolve(item.Quantity, tiersList, item.ManualUnitPrice)
		if !resolution.Manual && resolution.TierID == nil {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "presentation has no price list; a manual price is required")
		}

		lots, err := s.catalog.ListLotsFIFO(ctx, item.PresentationID, input.LocationID)
		if err != nil {
			return nil, "", err
		}

		itemMode := item.Mode
		if itemMode == "" {
			itemMode = enums.AllocationModeUnified
		}
		if itemMode == enums.AllocationModePerLot {
			mode = enums.AllocationModePerLot.String()
		}

		allocated, err := allocation.Allocate(allocation.Request{
			Product:          ref,
			Lots:             lots,
			Quantity:         item.Quantity,
			LocationID:       input.LocationID,
			UnitPrice:        resolution.UnitPrice,
			AllowOverselling: item.AllowOverselling,
			Mode:             itemMode,
			PerLot:           item.PerLot,
			AlreadyAllocated: inCart,
		})
		if err != nil {
			return nil, "", err
		}

		for _, line := range allocated {
			taken, ok := inCart[line.LotID]
			if !ok {
				taken = decimal.Zero
			}
			inCart[line.LotID] = taken.Add(line.Quantity)
		}
		lines = append(lines, allocated...)
	}
	return lines, mode, nil
}

// ReverseLines cancels committed lines by inserting their negation twins,
// flipping the originals and restoring stock, all in one transaction.
// Already cancelled lines are rejected before anything is written.
func (s *service) ReverseLines(ctx context.Context, input ReverseLinesInput) ([]models.OrderLine, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if len(input.LineIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line id is required")
	}

	var twins []models.OrderLine
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.GetOrder(ctx, input.OrderID); err != nil {
			return err
		}
		lines, err := repo.FindLines(ctx, input.OrderID, input.LineIDs)
		if err != nil {
			return err
		}
		if len(lines) != len(input.LineIDs) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "one or more lines not found on order")
		}
		for _, line := range lines {
			if line.Status == enums.OrderLineStatusCancelled {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "line is already cancelled").
					WithDetails(map[string]any{"line_id": line.ID})
			}
		}

		for i := range lines {
			twin := ledger.BuildReversalTwin(&lines[i])
			twin.OrderID = lines[i].OrderID
			if err := repo.CreateLine(ctx, &twin); err != nil {
				return err
			}
			if err := repo.MarkLineCancelled(ctx, lines[i].ID); err != nil {
				return err
			}
			// restore only what was actually taken from stock
			if err := repo.IncrementStock(ctx, lines[i].StockID, lines[i].Quantity); err != nil {
				return err
			}
			twins = append(twins, twin)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddLinesReversed(len(twins))
	s.logg.Info(ctx, "order lines reversed")
	return twins, nil
}

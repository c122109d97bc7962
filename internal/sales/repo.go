package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/registrapos/backend/pkg/db/models"
	"github.com/registrapos/backend/pkg/enums"
	pkgerrors "github.com/registrapos/backend/pkg/errors"
)

// Repository persists orders and their lines, and applies the stock
// movements a commit or reversal implies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateLines(ctx context.Context, lines []models.OrderLine) error
	CreateLine(ctx context.Context, line *models.OrderLine) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error)
	FindLines(ctx context.Context, orderID uuid.UUID, lineIDs []uuid.UUID) ([]models.OrderLine, error)
	MarkLineCancelled(ctx context.Context, lineID uuid.UUID) error
	DecrementStock(ctx context.Context, stockID uuid.UUID, quantity decimal.Decimal) error
	IncrementStock(ctx context.Context, stockID uuid.UUID, quantity decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sales repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Lines", "Payments").Create(order).Error
}

func (r *repository) CreateLines(ctx context.Context, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *repository) CreateLine(ctx context.Context, line *models.OrderLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetOrderLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) FindLines(ctx context.Context, orderID uuid.UUID, lineIDs []uuid.UUID) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND id IN ?", orderID, lineIDs).
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) MarkLineCancelled(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ?", lineID).
		Update("status", enums.OrderLineStatusCancelled).Error
}

// DecrementStock subtracts quantity from a stock row. The guard uses the
// same availability formula as allocation (quantity minus both reservation
// counters), so a commit can never dip into reserved units. Zero rows
// affected means another terminal drained the lot between allocation and
// commit.
func (r *repository) DecrementStock(ctx context.Context, stockID uuid.UUID, quantity decimal.Decimal) error {
	if quantity.IsZero() {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where(
			"id = ? AND quantity - reserved_for_selling_quantity - reserved_for_transferring_quantity >= CAST(? AS NUMERIC)",
			stockID, quantity,
		).
		Update("quantity", gorm.Expr("quantity - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "stock changed since allocation").
			WithDetails(map[string]any{"stock_id": stockID})
	}
	return nil
}

func (r *repository) IncrementStock(ctx context.Context, stockID uuid.UUID, quantity decimal.Decimal) error {
	if quantity.IsZero() {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("id = ?", stockID).
		Update("quantity", gorm.Expr("quantity + ?", quantity)).Error
}

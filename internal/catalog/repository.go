package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/registrapos/backend/pkg/db/models"
	"github.com/registrapos/backend/pkg/enums"
	pkgerrors "github.com/registrapos/backend/pkg/errors"
)

// Repository is the read-only catalog surface: presentations, price tiers
// and FIFO-ordered lots. Catalog data is managed by an external system; the
// register never writes it.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPresentation(ctx context.Context, id uuid.UUID) (*models.Presentation, error)
	ListPriceTiers(ctx context.Context, presentationID, locationID uuid.UUID, tierType enums.PriceTierType) ([]models.Price, error)
	ListLotsFIFO(ctx context.Context, presentationID, locationID uuid.UUID) ([]models.Lot, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPresentation(ctx context.Context, id uuid.UUID) (*models.Presentation, error) {
	var presentation models.Presentation
	if err := r.db.WithContext(ctx).First(&presentation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "presentation not found")
		}
		return nil, err
	}
	return &presentation, nil
}

func (r *repository) ListPriceTiers(ctx context.Context, presentationID, locationID uuid.UUID, tierType enums.PriceTierType) ([]models.Price, error) {
	var tiers []models.Price
	if err := r.db.WithContext(ctx).
		Where("presentation_id = ? AND location_id = ? AND tier_type = ?", presentationID, locationID, tierType).
		Order("qty_per_price ASC").
		Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// ListLotsFIFO returns the presentation's lots oldest first, each with its
// stock row for the location preloaded.
func (r *repository) ListLotsFIFO(ctx context.Context, presentationID, locationID uuid.UUID) ([]models.Lot, error) {
	var lots []models.Lot
	if err := r.db.WithContext(ctx).
		Where("presentation_id = ?", presentationID).
		Order("created_at ASC").
		Preload("Stocks", "location_id = ?", locationID).
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rma/plugin/internal/domain/rma"
	"github.com/rma/plugin/internal/domain/shared"
)

// GormReturnOrderRepository implements ReturnOrderRepository using GORM.
// Return orders are owned by the host application, so this repository only
// reads.
type GormReturnOrderRepository struct {
	db *gorm.DB
}

// NewGormReturnOrderRepository creates a new GormReturnOrderRepository
func NewGormReturnOrderRepository(db *gorm.DB) *GormReturnOrderRepository {
	return &GormReturnOrderRepository{db: db}
}

// FindByID finds a return order with its lines preloaded
func (r *GormReturnOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*rma.ReturnOrder, error) {
	var order rma.ReturnOrder
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Lines.StockItem").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindLineByID finds a single return order line
func (r *GormReturnOrderRepository) FindLineByID(ctx context.Context, lineID uuid.UUID) (*rma.ReturnOrderLine, error) {
	var line rma.ReturnOrderLine
	if err := r.db.WithContext(ctx).
		Preload("StockItem").
		First(&line, "id = ?", lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// FindLinesByOrder finds all lines for a return order with stock item detail
func (r *GormReturnOrderRepository) FindLinesByOrder(ctx context.Context, orderID uuid.UUID) ([]rma.ReturnOrderLine, error) {
	var lines []rma.ReturnOrderLine
	if err := r.db.WithContext(ctx).
		Preload("StockItem").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Ensure GormReturnOrderRepository implements the repository interface
var _ rma.ReturnOrderRepository = (*GormReturnOrderRepository)(nil)

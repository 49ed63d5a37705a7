package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rma/plugin/internal/domain/rma"
	"github.com/rma/plugin/internal/domain/shared"
)

// GormRepairAllocationRepository implements RepairAllocationRepository using GORM
type GormRepairAllocationRepository struct {
	db *gorm.DB
}

// NewGormRepairAllocationRepository creates a new GormRepairAllocationRepository
func NewGormRepairAllocationRepository(db *gorm.DB) *GormRepairAllocationRepository {
	return &GormRepairAllocationRepository{db: db}
}

// FindByID finds an allocation by its ID
func (r *GormRepairAllocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*rma.RepairAllocation, error) {
	var allocation rma.RepairAllocation
	if err := r.db.WithContext(ctx).
		Preload("Line").
		Preload("StockItem").
		First(&allocation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &allocation, nil
}

// FindByOrder finds allocations whose line belongs to the given return order
func (r *GormRepairAllocationRepository) FindByOrder(ctx context.Context, orderID uuid.UUID, consumed *bool, filter shared.Filter) ([]rma.RepairAllocation, error) {
	var allocations []rma.RepairAllocation
	query := r.byOrder(ctx, orderID, consumed).
		Preload("Line").
		Preload("StockItem").
		Order("repair_allocations.created_at DESC").
		Limit(filter.PageSize).
		Offset(filter.Offset())
	if err := query.Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindByLine finds allocations for a single return order line
func (r *GormRepairAllocationRepository) FindByLine(ctx context.Context, lineID uuid.UUID, consumed *bool, filter shared.Filter) ([]rma.RepairAllocation, error) {
	query := r.db.WithContext(ctx).
		Where("return_order_line_id = ?", lineID)
	if consumed != nil {
		query = query.Where("consumed = ?", *consumed)
	}

	var allocations []rma.RepairAllocation
	if err := query.
		Preload("StockItem").
		Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(filter.Offset()).
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindUnconsumedByOrder finds all unconsumed allocations for an order
func (r *GormRepairAllocationRepository) FindUnconsumedByOrder(ctx context.Context, orderID uuid.UUID) ([]rma.RepairAllocation, error) {
	unconsumed := false
	var allocations []rma.RepairAllocation
	if err := r.byOrder(ctx, orderID, &unconsumed).
		Order("repair_allocations.created_at ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// SumUnconsumedByStockItem sums unconsumed allocated quantity against a stock
// item, excluding the given allocation ID
func (r *GormRepairAllocationRepository) SumUnconsumedByStockItem(ctx context.Context, stockItemID, excludeID uuid.UUID) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&rma.RepairAllocation{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("stock_item_id = ? AND consumed = FALSE", stockItemID)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var sum decimal.Decimal
	if err := query.Row().Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// CountByOrder counts allocations for a return order
func (r *GormRepairAllocationRepository) CountByOrder(ctx context.Context, orderID uuid.UUID, consumed *bool) (int64, error) {
	var count int64
	if err := r.byOrder(ctx, orderID, consumed).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByLine counts allocations for a return order line
func (r *GormRepairAllocationRepository) CountByLine(ctx context.Context, lineID uuid.UUID, consumed *bool) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&rma.RepairAllocation{}).
		Where("return_order_line_id = ?", lineID)
	if consumed != nil {
		query = query.Where("consumed = ?", *consumed)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an allocation
func (r *GormRepairAllocationRepository) Save(ctx context.Context, allocation *rma.RepairAllocation) error {
	return r.db.WithContext(ctx).Omit("Line", "StockItem").Save(allocation).Error
}

// Delete removes an allocation
func (r *GormRepairAllocationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&rma.RepairAllocation{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormRepairAllocationRepository) byOrder(ctx context.Context, orderID uuid.UUID, consumed *bool) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&rma.RepairAllocation{}).
		Joins("JOIN return_order_lines ON return_order_lines.id = repair_allocations.return_order_line_id").
		Where("return_order_lines.order_id = ?", orderID)
	if consumed != nil {
		query = query.Where("repair_allocations.consumed = ?", *consumed)
	}
	return query
}

// Ensure GormRepairAllocationRepository implements the repository interface
var _ rma.RepairAllocationRepository = (*GormRepairAllocationRepository)(nil)

package rma

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rma/plugin/internal/domain/rma"
	"github.com/rma/plugin/internal/domain/shared"
)

// CreateAllocationRequest is the input for allocating a repair part
type CreateAllocationRequest struct {
	LineID      uuid.UUID
	StockItemID uuid.UUID
	Quantity    decimal.Decimal
	Notes       string
}

// ListAllocationsQuery filters the allocation listing. OrderID is required,
// LineID and Consumed narrow the result.
type ListAllocationsQuery struct {
	OrderID  uuid.UUID
	LineID   *uuid.UUID
	Consumed *bool
	Filter   shared.Filter
}

// AllocationService manages repair part allocations against return order
// lines and exposes the stock and order reads the allocation screens need.
type AllocationService struct {
	allocations rma.RepairAllocationRepository
	orders      rma.ReturnOrderRepository
	stock       rma.StockItemRepository
	logger      *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	allocations rma.RepairAllocationRepository,
	orders rma.ReturnOrderRepository,
	stock rma.StockItemRepository,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		allocations: allocations,
		orders:      orders,
		stock:       stock,
		logger:      logger,
	}
}

// Create allocates a quantity of a stock item to a return order line.
// The line's order must still be open, the part must differ from the item
// being returned on the line, and the quantity must fit inside the item's
// unallocated balance.
func (s *AllocationService) Create(ctx context.Context, req CreateAllocationRequest) (*rma.RepairAllocation, error) {
	line, err := s.orders.FindLineByID(ctx, req.LineID)
	if err != nil {
		return nil, fmt.Errorf("find return order line: %w", err)
	}

	order, err := s.orders.FindByID(ctx, line.OrderID)
	if err != nil {
		return nil, fmt.Errorf("find return order: %w", err)
	}
	if order.IsComplete() {
		return nil, shared.NewDomainError("ORDER_COMPLETE", "Cannot allocate parts to a completed return order")
	}

	item, err := s.stock.FindByID(ctx, req.StockItemID)
	if err != nil {
		return nil, fmt.Errorf("find stock item: %w", err)
	}
	if line.StockItemID != nil && *line.StockItemID == item.ID {
		return nil, shared.NewDomainError("SELF_ALLOCATION", "Cannot allocate the item being returned as its own repair part")
	}

	available, err := s.availableQuantity(ctx, item, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if available.LessThan(req.Quantity) {
		return nil, shared.ErrInsufficientStock
	}

	allocation, err := rma.NewRepairAllocation(req.LineID, req.StockItemID, req.Quantity, req.Notes)
	if err != nil {
		return nil, err
	}

	if err := s.allocations.Save(ctx, allocation); err != nil {
		return nil, fmt.Errorf("save allocation: %w", err)
	}

	s.logger.Info("repair allocation created",
		zap.String("allocation_id", allocation.ID.String()),
		zap.String("line_id", req.LineID.String()),
		zap.String("stock_item_id", req.StockItemID.String()),
		zap.String("quantity", req.Quantity.String()),
	)
	return allocation, nil
}

// Get returns a single allocation with its line and stock item detail
func (s *AllocationService) Get(ctx context.Context, id uuid.UUID) (*rma.RepairAllocation, error) {
	return s.allocations.FindByID(ctx, id)
}

// List returns a page of allocations for an order, optionally narrowed to a
// single line or to a consumption state
func (s *AllocationService) List(ctx context.Context, query ListAllocationsQuery) (shared.Paginated[rma.RepairAllocation], error) {
	var empty shared.Paginated[rma.RepairAllocation]
	if query.OrderID == uuid.Nil {
		return empty, shared.NewDomainError("INVALID_ORDER", "Order ID is required")
	}

	var (
		items []rma.RepairAllocation
		total int64
		err   error
	)
	if query.LineID != nil {
		items, err = s.allocations.FindByLine(ctx, *query.LineID, query.Consumed, query.Filter)
		if err != nil {
			return empty, err
		}
		total, err = s.allocations.CountByLine(ctx, *query.LineID, query.Consumed)
	} else {
		items, err = s.allocations.FindByOrder(ctx, query.OrderID, query.Consumed, query.Filter)
		if err != nil {
			return empty, err
		}
		total, err = s.allocations.CountByOrder(ctx, query.OrderID, query.Consumed)
	}
	if err != nil {
		return empty, err
	}

	return shared.NewPaginated(items, total, query.Filter.Page, query.Filter.PageSize), nil
}

// Delete removes an unconsumed allocation. Consumed allocations are part of
// the stock history and cannot be removed.
func (s *AllocationService) Delete(ctx context.Context, id uuid.UUID) error {
	allocation, err := s.allocations.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !allocation.CanDelete() {
		return shared.ErrAlreadyConsumed
	}
	if err := s.allocations.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}

	s.logger.Info("repair allocation deleted",
		zap.String("allocation_id", id.String()),
	)
	return nil
}

// AvailableQuantity returns the stock item's on-hand quantity minus every
// unconsumed allocation against it
func (s *AllocationService) AvailableQuantity(ctx context.Context, stockItemID uuid.UUID) (decimal.Decimal, error) {
	item, err := s.stock.FindByID(ctx, stockItemID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.availableQuantity(ctx, item, uuid.Nil)
}

func (s *AllocationService) availableQuantity(ctx context.Context, item *rma.StockItem, excludeID uuid.UUID) (decimal.Decimal, error) {
	allocated, err := s.allocations.SumUnconsumedByStockItem(ctx, item.ID, excludeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum allocations: %w", err)
	}
	return item.Quantity.Sub(allocated), nil
}

// SearchStock finds stock items by part name or serial for the part picker
func (s *AllocationService) SearchStock(ctx context.Context, query string, filter shared.Filter) ([]rma.StockItem, error) {
	return s.stock.Search(ctx, query, filter)
}

// GetOrderLines returns a return order's lines with stock item detail
func (s *AllocationService) GetOrderLines(ctx context.Context, orderID uuid.UUID) ([]rma.ReturnOrderLine, error) {
	return s.orders.FindLinesByOrder(ctx, orderID)
}

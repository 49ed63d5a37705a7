package rma

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rma/plugin/internal/domain/shared"
)

// RepairAllocationRepository defines persistence for the plugin's allocations
type RepairAllocationRepository interface {
	// FindByID finds an allocation by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*RepairAllocation, error)

	// FindByOrder finds allocations whose line belongs to the given return
	// order, joined with line and stock item detail. A nil consumed filter
	// returns both consumed and unconsumed rows.
	FindByOrder(ctx context.Context, orderID uuid.UUID, consumed *bool, filter shared.Filter) ([]RepairAllocation, error)

	// FindByLine finds allocations for a single return order line
	FindByLine(ctx context.Context, lineID uuid.UUID, consumed *bool, filter shared.Filter) ([]RepairAllocation, error)

	// FindUnconsumedByOrder finds all unconsumed allocations for an order,
	// used by completion processing
	FindUnconsumedByOrder(ctx context.Context, orderID uuid.UUID) ([]RepairAllocation, error)

	// SumUnconsumedByStockItem sums unconsumed allocated quantity against a
	// stock item, excluding the given allocation ID (uuid.Nil to exclude none)
	SumUnconsumedByStockItem(ctx context.Context, stockItemID, excludeID uuid.UUID) (decimal.Decimal, error)

	// CountByOrder counts allocations for a return order
	CountByOrder(ctx context.Context, orderID uuid.UUID, consumed *bool) (int64, error)

	// CountByLine counts allocations for a return order line
	CountByLine(ctx context.Context, lineID uuid.UUID, consumed *bool) (int64, error)

	// Save creates or updates an allocation
	Save(ctx context.Context, allocation *RepairAllocation) error

	// Delete removes an allocation
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReturnOrderRepository defines read access to host-owned return orders
type ReturnOrderRepository interface {
	// FindByID finds a return order with its lines preloaded
	FindByID(ctx context.Context, id uuid.UUID) (*ReturnOrder, error)

	// FindLineByID finds a single return order line
	FindLineByID(ctx context.Context, lineID uuid.UUID) (*ReturnOrderLine, error)

	// FindLinesByOrder finds all lines for a return order with stock item detail
	FindLinesByOrder(ctx context.Context, orderID uuid.UUID) ([]ReturnOrderLine, error)
}

// StockItemRepository defines the mutation port onto host-owned stock items:
// status, customer and quantity updates plus the append-only tracking log.
type StockItemRepository interface {
	// FindByID finds a stock item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockItem, error)

	// FindByIDForUpdate finds a stock item and takes a row-level lock on it
	// for the duration of the surrounding transaction, so two consumptions
	// cannot race on the same item's quantity
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*StockItem, error)

	// Search finds in-stock items by part name or serial, for the panel's
	// part picker
	Search(ctx context.Context, query string, filter shared.Filter) ([]StockItem, error)

	// Save persists stock item field changes
	Save(ctx context.Context, item *StockItem) error

	// AddTrackingEntry appends a history entry to a stock item
	AddTrackingEntry(ctx context.Context, entry *StockTrackingEntry) error
}

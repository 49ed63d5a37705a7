package rma

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rma/plugin/internal/domain/shared"
)

// RepairAllocation reserves a quantity of a stock item (a replacement part)
// against a return order line. It is the only aggregate this plugin owns.
//
// Lifecycle: created while the order is open, deletable while unconsumed,
// consumed exactly once at order completion. The unconsumed -> consumed
// transition is terminal and never reversed.
type RepairAllocation struct {
	shared.BaseAggregateRoot
	ReturnOrderLineID uuid.UUID       `gorm:"type:uuid;not null;index"`
	StockItemID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity          decimal.Decimal `gorm:"type:decimal(15,5);not null;default:1"`
	Consumed          bool            `gorm:"not null;default:false;index"`
	Notes             string          `gorm:"size:500"`

	Line      *ReturnOrderLine `gorm:"foreignKey:ReturnOrderLineID;references:ID"`
	StockItem *StockItem       `gorm:"foreignKey:StockItemID;references:ID"`
}

// TableName returns the table name for GORM
func (RepairAllocation) TableName() string {
	return "repair_allocations"
}

// NewRepairAllocation creates a new unconsumed allocation
func NewRepairAllocation(lineID, stockItemID uuid.UUID, quantity decimal.Decimal, notes string) (*RepairAllocation, error) {
	if lineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LINE", "Return order line ID cannot be empty")
	}
	if stockItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STOCK_ITEM", "Stock item ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Allocation quantity must be positive")
	}

	return &RepairAllocation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReturnOrderLineID: lineID,
		StockItemID:       stockItemID,
		Quantity:          quantity,
		Consumed:          false,
		Notes:             notes,
	}, nil
}

// Consume marks the allocation as consumed. Consumption is one-way: a second
// call fails rather than silently re-consuming.
func (a *RepairAllocation) Consume() error {
	if a.Consumed {
		return shared.ErrAlreadyConsumed
	}
	a.Consumed = true
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	a.AddDomainEvent(NewRepairAllocationConsumedEvent(a))
	return nil
}

// CanDelete returns true while the allocation has not been consumed
func (a *RepairAllocation) CanDelete() bool {
	return !a.Consumed
}

package rma

import (
	"github.com/google/uuid"

	"github.com/rma/plugin/internal/domain/shared"
)

// ReturnOrderStatus is the lifecycle state of a return order
type ReturnOrderStatus string

// Return order lifecycle states
const (
	ReturnOrderInProgress ReturnOrderStatus = "in_progress"
	ReturnOrderComplete   ReturnOrderStatus = "complete"
	ReturnOrderCancelled  ReturnOrderStatus = "cancelled"
)

// ReturnOrder is a return merchandise authorization owned by the host
// application. The plugin only reads it: lines drive completion processing
// and the customer reference drives reassignment.
type ReturnOrder struct {
	shared.BaseEntity
	Reference  string            `gorm:"size:100;not null;uniqueIndex"`
	CustomerID *uuid.UUID        `gorm:"type:uuid;index"`
	Status     ReturnOrderStatus `gorm:"size:20;not null;default:in_progress"`

	Lines []ReturnOrderLine `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (ReturnOrder) TableName() string {
	return "return_orders"
}

// IsComplete returns true once the order has been completed
func (o *ReturnOrder) IsComplete() bool {
	return o.Status == ReturnOrderComplete
}

// GetLine returns the line with the given ID, or nil
func (o *ReturnOrder) GetLine(lineID uuid.UUID) *ReturnOrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

// ReturnOrderLine is a single line item on a return order: the stock item
// being returned and the outcome decided for it.
type ReturnOrderLine struct {
	shared.BaseEntity
	OrderID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	StockItemID *uuid.UUID `gorm:"type:uuid;index"`
	Outcome     Outcome    `gorm:"not null;default:10"`
	Notes       string     `gorm:"size:500"`

	StockItem *StockItem `gorm:"foreignKey:StockItemID;references:ID"`
}

// TableName returns the table name for GORM
func (ReturnOrderLine) TableName() string {
	return "return_order_lines"
}

// HasStockItem returns true if the line references a stock item
func (l *ReturnOrderLine) HasStockItem() bool {
	return l.StockItemID != nil
}

package rma

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rma/plugin/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeReturnOrder      = "ReturnOrder"
	AggregateTypeRepairAllocation = "RepairAllocation"
)

// Event type constants
const (
	EventTypeReturnOrderCompleted     = "ReturnOrderCompleted"
	EventTypeRepairAllocationConsumed = "RepairAllocationConsumed"
)

// ReturnOrderCompletedEvent is raised when the host marks a return order as
// complete. It carries only the order identity; the handler re-reads the
// order and its lines so processing always sees current state.
type ReturnOrderCompletedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID  `json:"order_id"`
	Reference  string     `json:"reference"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
}

// NewReturnOrderCompletedEvent creates a new ReturnOrderCompletedEvent
func NewReturnOrderCompletedEvent(orderID uuid.UUID, reference string, customerID *uuid.UUID) *ReturnOrderCompletedEvent {
	return &ReturnOrderCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnOrderCompleted, AggregateTypeReturnOrder, orderID),
		OrderID:         orderID,
		Reference:       reference,
		CustomerID:      customerID,
	}
}

// EventType returns the event type name
func (e *ReturnOrderCompletedEvent) EventType() string {
	return EventTypeReturnOrderCompleted
}

// RepairAllocationConsumedEvent is raised when an allocation is consumed
type RepairAllocationConsumedEvent struct {
	shared.BaseDomainEvent
	AllocationID      uuid.UUID       `json:"allocation_id"`
	ReturnOrderLineID uuid.UUID       `json:"return_order_line_id"`
	StockItemID       uuid.UUID       `json:"stock_item_id"`
	Quantity          decimal.Decimal `json:"quantity"`
}

// NewRepairAllocationConsumedEvent creates a new RepairAllocationConsumedEvent
func NewRepairAllocationConsumedEvent(a *RepairAllocation) *RepairAllocationConsumedEvent {
	return &RepairAllocationConsumedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeRepairAllocationConsumed, AggregateTypeRepairAllocation, a.ID),
		AllocationID:      a.ID,
		ReturnOrderLineID: a.ReturnOrderLineID,
		StockItemID:       a.StockItemID,
		Quantity:          a.Quantity,
	}
}

// EventType returns the event type name
func (e *RepairAllocationConsumedEvent) EventType() string {
	return EventTypeRepairAllocationConsumed
}

package rma

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rma/plugin/internal/domain/rma"
	"github.com/rma/plugin/internal/domain/shared"
)

// CompletionHandler handles ReturnOrderCompletedEvent. For each dispositioned
// line it applies the configured stock status, optionally reassigns the item
// to the ordering customer, and writes a tracking note. Afterwards it consumes
// the order's unconsumed repair allocations.
//
// Processing is best-effort per line and per allocation: a failure on one is
// logged and the rest still run. The last error is returned so the bus can
// record the partial failure.
type CompletionHandler struct {
	orders      rma.ReturnOrderRepository
	allocations rma.RepairAllocationRepository
	scope       TransactionScope
	eventBus    shared.EventPublisher
	settings    Settings
	logger      *zap.Logger
}

// NewCompletionHandler creates a new handler for return order completed events
func NewCompletionHandler(
	orders rma.ReturnOrderRepository,
	allocations rma.RepairAllocationRepository,
	scope TransactionScope,
	eventBus shared.EventPublisher,
	settings Settings,
	logger *zap.Logger,
) *CompletionHandler {
	return &CompletionHandler{
		orders:      orders,
		allocations: allocations,
		scope:       scope,
		eventBus:    eventBus,
		settings:    settings,
		logger:      logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *CompletionHandler) EventTypes() []string {
	return []string{rma.EventTypeReturnOrderCompleted}
}

// Handle processes a ReturnOrderCompletedEvent
func (h *CompletionHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completedEvent, ok := event.(*rma.ReturnOrderCompletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", rma.EventTypeReturnOrderCompleted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			rma.EventTypeReturnOrderCompleted, event.EventType())
	}

	// Re-read the order so processing sees current lines, not the payload
	order, err := h.orders.FindByID(ctx, completedEvent.OrderID)
	if err != nil {
		h.logger.Error("failed to load return order",
			zap.String("order_id", completedEvent.OrderID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("load return order %s: %w", completedEvent.OrderID, err)
	}

	h.logger.Info("processing return order completion",
		zap.String("order_id", order.ID.String()),
		zap.String("reference", order.Reference),
		zap.Int("lines_count", len(order.Lines)),
	)

	var lastErr error
	successCount := 0

	for i := range order.Lines {
		line := &order.Lines[i]
		if !line.HasStockItem() {
			h.logger.Debug("line has no stock item, skipping",
				zap.String("line_id", line.ID.String()),
			)
			continue
		}

		if err := h.processLine(ctx, order, line); err != nil {
			h.logger.Error("failed to process return order line",
				zap.String("order_id", order.ID.String()),
				zap.String("line_id", line.ID.String()),
				zap.String("stock_item_id", line.StockItemID.String()),
				zap.String("outcome", line.Outcome.String()),
				zap.Error(err),
			)
			lastErr = err
			// Keep processing the remaining lines
			continue
		}
		successCount++
	}

	consumedCount := 0
	if h.settings.ConsumeRepairParts {
		var consumeErr error
		consumedCount, consumeErr = h.consumeAllocations(ctx, order)
		if consumeErr != nil {
			lastErr = consumeErr
		}
	}

	h.logger.Info("return order completion processed",
		zap.String("order_id", order.ID.String()),
		zap.String("reference", order.Reference),
		zap.Int("total_lines", len(order.Lines)),
		zap.Int("lines_processed", successCount),
		zap.Int("allocations_consumed", consumedCount),
		zap.Bool("has_errors", lastErr != nil),
	)

	if lastErr != nil {
		return fmt.Errorf("return order %s completion partially failed: %w", order.Reference, lastErr)
	}
	return nil
}

// processLine applies the status mapping and customer reassignment to the
// line's stock item and records a tracking note for the status edit.
func (h *CompletionHandler) processLine(ctx context.Context, order *rma.ReturnOrder, line *rma.ReturnOrderLine) error {
	var target rma.StockStatus
	mapped := false
	if h.settings.AutoStatusChange {
		target, mapped = h.settings.Mapping.Resolve(line.Outcome)
	}

	// Only items actually returned or repaired go back to the customer
	reassign := h.settings.CustomerReassign &&
		order.CustomerID != nil &&
		(line.Outcome == rma.OutcomeReturn || line.Outcome == rma.OutcomeRepair)

	if !mapped && !reassign {
		return nil
	}

	return h.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.StockRepo().FindByID(ctx, *line.StockItemID)
		if err != nil {
			return fmt.Errorf("load stock item: %w", err)
		}

		statusChanged := mapped && item.SetStatus(target)

		customerChanged := false
		if reassign && (item.CustomerID == nil || *item.CustomerID != *order.CustomerID) {
			item.AssignToCustomer(*order.CustomerID)
			customerChanged = true
		}

		if !statusChanged && !customerChanged {
			return nil
		}

		if err := repos.StockRepo().Save(ctx, item); err != nil {
			return fmt.Errorf("save stock item: %w", err)
		}

		if h.settings.TrackingNotes && statusChanged {
			notes := fmt.Sprintf("%s: %s → %s", order.Reference, line.Outcome, target)
			if line.Notes != "" {
				notes += "\n" + line.Notes
			}
			deltas := map[string]string{"status": target.String()}
			entry := rma.NewStockTrackingEntry(item.ID, rma.TrackingCodeEdited, notes, deltas)
			if err := repos.StockRepo().AddTrackingEntry(ctx, entry); err != nil {
				return fmt.Errorf("add tracking entry: %w", err)
			}
		}
		return nil
	})
}

// consumeAllocations consumes every unconsumed repair allocation on the
// order, each in its own transaction. An allocation whose stock item lacks
// the quantity is skipped with a warning rather than failing the order.
func (h *CompletionHandler) consumeAllocations(ctx context.Context, order *rma.ReturnOrder) (int, error) {
	allocations, err := h.allocations.FindUnconsumedByOrder(ctx, order.ID)
	if err != nil {
		return 0, fmt.Errorf("load repair allocations: %w", err)
	}

	var lastErr error
	consumed := 0

	for i := range allocations {
		allocationID := allocations[i].ID
		var processed *rma.RepairAllocation

		err := h.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			allocation, err := repos.AllocationRepo().FindByID(ctx, allocationID)
			if err != nil {
				return fmt.Errorf("load allocation: %w", err)
			}
			if allocation.Consumed {
				// Consumed by a concurrent delivery of the same event
				return nil
			}

			// Row lock so parallel consumptions cannot over-subtract
			item, err := repos.StockRepo().FindByIDForUpdate(ctx, allocation.StockItemID)
			if err != nil {
				return fmt.Errorf("load stock item: %w", err)
			}

			if err := item.ConsumeQuantity(allocation.Quantity); err != nil {
				if errors.Is(err, shared.ErrInsufficientStock) {
					h.logger.Warn("insufficient stock to consume repair allocation, skipping",
						zap.String("allocation_id", allocation.ID.String()),
						zap.String("stock_item_id", item.ID.String()),
						zap.String("part_name", item.PartName),
						zap.String("requested", allocation.Quantity.String()),
						zap.String("on_hand", item.Quantity.String()),
					)
					return nil
				}
				return err
			}

			if err := repos.StockRepo().Save(ctx, item); err != nil {
				return fmt.Errorf("save stock item: %w", err)
			}
			if err := allocation.Consume(); err != nil {
				return err
			}
			if err := repos.AllocationRepo().Save(ctx, allocation); err != nil {
				return fmt.Errorf("save allocation: %w", err)
			}

			if h.settings.TrackingNotes {
				notes := fmt.Sprintf("Consumed %s × %s for repair on %s",
					allocation.Quantity, item.PartName, order.Reference)
				deltas := map[string]string{"removed": allocation.Quantity.String()}
				entry := rma.NewStockTrackingEntry(item.ID, rma.TrackingCodeEdited, notes, deltas)
				if err := repos.StockRepo().AddTrackingEntry(ctx, entry); err != nil {
					return fmt.Errorf("add tracking entry: %w", err)
				}
			}

			processed = allocation
			return nil
		})
		if err != nil {
			h.logger.Error("failed to consume repair allocation",
				zap.String("order_id", order.ID.String()),
				zap.String("allocation_id", allocationID.String()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		if processed != nil {
			consumed++
			h.publishEvents(ctx, processed)
		}
	}

	return consumed, lastErr
}

// publishEvents publishes the aggregate's pending events and clears them.
// Publish failures are logged, not propagated: the consumption is committed.
func (h *CompletionHandler) publishEvents(ctx context.Context, allocation *rma.RepairAllocation) {
	if h.eventBus == nil {
		return
	}
	for _, event := range allocation.GetDomainEvents() {
		if err := h.eventBus.Publish(ctx, event); err != nil {
			h.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Error(err),
			)
		}
	}
	allocation.ClearDomainEvents()
}

// Ensure CompletionHandler implements shared.EventHandler
var _ shared.EventHandler = (*CompletionHandler)(nil)

package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rma/plugin/internal/domain/rma"
	"github.com/rma/plugin/internal/domain/shared"
)

// EventHandler receives host webhooks and republishes them on the internal
// event bus
type EventHandler struct {
	BaseHandler
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(publisher shared.EventPublisher, logger *zap.Logger) *EventHandler {
	return &EventHandler{publisher: publisher, logger: logger}
}

// RegisterRoutes registers the webhook routes
func (h *EventHandler) RegisterRoutes(rg *gin.RouterGroup) {
	events := rg.Group("/events")
	{
		events.POST("/order-completed", h.OrderCompleted)
	}
}

// OrderCompletedRequest is the host's notification that a return order
// reached its final state
type OrderCompletedRequest struct {
	OrderID    string `json:"order_id" binding:"required,uuid"`
	Reference  string `json:"reference"`
	CustomerID string `json:"customer_id" binding:"omitempty,uuid"`
}

// OrderCompleted accepts a completion notification and dispatches it to the
// subscribed handlers. Dispatch is synchronous but the 202 only acknowledges
// acceptance; per-line failures are logged and retried by re-sending the event.
func (h *EventHandler) OrderCompleted(c *gin.Context) {
	var req OrderCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var customerID *uuid.UUID
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			h.BadRequest(c, "Invalid customer ID format")
			return
		}
		customerID = &id
	}

	event := rma.NewReturnOrderCompletedEvent(orderID, req.Reference, customerID)
	if err := h.publisher.Publish(c.Request.Context(), event); err != nil {
		h.logger.Error("order completed event dispatch failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, gin.H{
		"order_id": orderID.String(),
		"event_id": event.EventID().String(),
	})
}

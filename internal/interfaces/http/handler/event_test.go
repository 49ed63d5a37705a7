package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rma/plugin/internal/domain/rma"
	"github.com/rma/plugin/internal/domain/shared"
)

type capturingPublisher struct {
	events []shared.DomainEvent
	err    error
}

func (p *capturingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

var _ shared.EventPublisher = (*capturingPublisher)(nil)

func setupEventTestRouter(publisher shared.EventPublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewEventHandler(publisher, zap.NewNop()).RegisterRoutes(router.Group("/"))
	return router
}

func TestEventHandler_OrderCompleted(t *testing.T) {
	t.Run("should publish completion event", func(t *testing.T) {
		publisher := &capturingPublisher{}
		router := setupEventTestRouter(publisher)

		orderID := uuid.New()
		customerID := uuid.New()

		w := performRequest(router, http.MethodPost, "/events/order-completed", OrderCompletedRequest{
			OrderID:    orderID.String(),
			Reference:  "RMA-0042",
			CustomerID: customerID.String(),
		})

		assert.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, publisher.events, 1)

		event, ok := publisher.events[0].(*rma.ReturnOrderCompletedEvent)
		require.True(t, ok)
		assert.Equal(t, orderID, event.OrderID)
		assert.Equal(t, "RMA-0042", event.Reference)
		require.NotNil(t, event.CustomerID)
		assert.Equal(t, customerID, *event.CustomerID)
	})

	t.Run("should publish without customer", func(t *testing.T) {
		publisher := &capturingPublisher{}
		router := setupEventTestRouter(publisher)

		w := performRequest(router, http.MethodPost, "/events/order-completed", OrderCompletedRequest{
			OrderID:   uuid.New().String(),
			Reference: "RMA-0043",
		})

		assert.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, publisher.events, 1)
		assert.Nil(t, publisher.events[0].(*rma.ReturnOrderCompletedEvent).CustomerID)
	})

	t.Run("should reject missing order ID", func(t *testing.T) {
		publisher := &capturingPublisher{}
		router := setupEventTestRouter(publisher)

		w := performRequest(router, http.MethodPost, "/events/order-completed", gin.H{
			"reference": "RMA-0044",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, publisher.events)
	})

	t.Run("should reject malformed customer ID", func(t *testing.T) {
		publisher := &capturingPublisher{}
		router := setupEventTestRouter(publisher)

		w := performRequest(router, http.MethodPost, "/events/order-completed", gin.H{
			"order_id":    uuid.New().String(),
			"customer_id": "not-a-uuid",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, publisher.events)
	})

	t.Run("should surface handler failure", func(t *testing.T) {
		publisher := &capturingPublisher{err: errors.New("handler exploded")}
		router := setupEventTestRouter(publisher)

		w := performRequest(router, http.MethodPost, "/events/order-completed", OrderCompletedRequest{
			OrderID: uuid.New().String(),
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

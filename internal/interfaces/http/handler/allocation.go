package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apprma "github.com/rma/plugin/internal/application/rma"
	"github.com/rma/plugin/internal/domain/rma"
	"github.com/rma/plugin/internal/domain/shared"
	"github.com/rma/plugin/internal/interfaces/http/dto"
)

// AllocationHandler handles repair allocation endpoints and the stock and
// order line reads the allocation screens need
type AllocationHandler struct {
	BaseHandler
	service *apprma.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(service *apprma.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: service}
}

// RegisterRoutes registers all allocation routes
func (h *AllocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	allocations := rg.Group("/allocations")
	{
		allocations.GET("", h.List)
		allocations.POST("", h.Create)
		allocations.GET("/:id", h.Get)
		allocations.DELETE("/:id", h.Delete)
	}
	stock := rg.Group("/stock")
	{
		stock.GET("", h.SearchStock)
		stock.GET("/:id/available", h.Available)
	}
	rg.GET("/orders/:id/lines", h.OrderLines)
}

// CreateAllocationRequest represents a request to allocate a repair part
type CreateAllocationRequest struct {
	LineID      string  `json:"line_id" binding:"required,uuid"`
	StockItemID string  `json:"stock_item_id" binding:"required,uuid"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	Notes       string  `json:"notes" binding:"max=500"`
}

// ListAllocationsRequest represents allocation list query parameters
type ListAllocationsRequest struct {
	dto.ListRequest
	OrderID  string `form:"order_id" binding:"required,uuid"`
	LineID   string `form:"line_id" binding:"omitempty,uuid"`
	Consumed *bool  `form:"consumed"`
}

// AllocationResponse represents an allocation in API responses
type AllocationResponse struct {
	ID          string    `json:"id"`
	LineID      string    `json:"line_id"`
	StockItemID string    `json:"stock_item_id"`
	PartName    string    `json:"part_name,omitempty"`
	Serial      string    `json:"serial,omitempty"`
	Quantity    string    `json:"quantity"`
	Consumed    bool      `json:"consumed"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StockItemResponse represents a stock item in API responses
type StockItemResponse struct {
	ID          string `json:"id"`
	PartName    string `json:"part_name"`
	Serial      string `json:"serial,omitempty"`
	Batch       string `json:"batch,omitempty"`
	Location    string `json:"location,omitempty"`
	Status      int    `json:"status"`
	StatusLabel string `json:"status_label"`
	Quantity    string `json:"quantity"`
}

// OrderLineResponse represents a return order line in API responses
type OrderLineResponse struct {
	ID           string `json:"id"`
	OrderID      string `json:"order_id"`
	StockItemID  string `json:"stock_item_id,omitempty"`
	PartName     string `json:"part_name,omitempty"`
	Serial       string `json:"serial,omitempty"`
	Outcome      int    `json:"outcome"`
	OutcomeLabel string `json:"outcome_label"`
	Notes        string `json:"notes,omitempty"`
}

// Create allocates a repair part to a return order line
func (h *AllocationHandler) Create(c *gin.Context) {
	var req CreateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	lineID, err := uuid.Parse(req.LineID)
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return
	}
	stockItemID, err := uuid.Parse(req.StockItemID)
	if err != nil {
		h.BadRequest(c, "Invalid stock item ID format")
		return
	}

	allocation, err := h.service.Create(c.Request.Context(), apprma.CreateAllocationRequest{
		LineID:      lineID,
		StockItemID: stockItemID,
		Quantity:    decimal.NewFromFloat(req.Quantity),
		Notes:       req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toAllocationResponse(allocation))
}

// Get returns a single allocation
func (h *AllocationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid allocation ID format")
		return
	}

	allocation, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAllocationResponse(allocation))
}

// List returns a page of allocations for an order
func (h *AllocationHandler) List(c *gin.Context) {
	var req ListAllocationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	query := apprma.ListAllocationsQuery{
		OrderID:  orderID,
		Consumed: req.Consumed,
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
		},
	}
	if req.LineID != "" {
		lineID, err := uuid.Parse(req.LineID)
		if err != nil {
			h.BadRequest(c, "Invalid line ID format")
			return
		}
		query.LineID = &lineID
	}

	page, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]AllocationResponse, len(page.Items))
	for i := range page.Items {
		responses[i] = toAllocationResponse(&page.Items[i])
	}
	h.SuccessWithMeta(c, responses, page.Total, page.Page, page.PageSize)
}

// Delete removes an unconsumed allocation
func (h *AllocationHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid allocation ID format")
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// SearchStock finds in-stock items by part name or serial
func (h *AllocationHandler) SearchStock(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	items, err := h.service.SearchStock(c.Request.Context(), req.Search, shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]StockItemResponse, len(items))
	for i := range items {
		responses[i] = toStockItemResponse(&items[i])
	}
	h.Success(c, responses)
}

// Available returns the stock item's quantity net of unconsumed allocations
func (h *AllocationHandler) Available(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock item ID format")
		return
	}

	available, err := h.service.AvailableQuantity(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"stock_item_id": id.String(),
		"available":     available.String(),
	})
}

// OrderLines returns a return order's lines
func (h *AllocationHandler) OrderLines(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	lines, err := h.service.GetOrderLines(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]OrderLineResponse, len(lines))
	for i := range lines {
		responses[i] = toOrderLineResponse(&lines[i])
	}
	h.Success(c, responses)
}

func toAllocationResponse(a *rma.RepairAllocation) AllocationResponse {
	resp := AllocationResponse{
		ID:          a.ID.String(),
		LineID:      a.ReturnOrderLineID.String(),
		StockItemID: a.StockItemID.String(),
		Quantity:    a.Quantity.String(),
		Consumed:    a.Consumed,
		Notes:       a.Notes,
		CreatedAt:   a.CreatedAt,
	}
	if a.StockItem != nil {
		resp.PartName = a.StockItem.PartName
		resp.Serial = a.StockItem.Serial
	}
	return resp
}

func toStockItemResponse(item *rma.StockItem) StockItemResponse {
	return StockItemResponse{
		ID:          item.ID.String(),
		PartName:    item.PartName,
		Serial:      item.Serial,
		Batch:       item.Batch,
		Location:    item.Location,
		Status:      int(item.Status),
		StatusLabel: item.Status.String(),
		Quantity:    item.Quantity.String(),
	}
}

func toOrderLineResponse(line *rma.ReturnOrderLine) OrderLineResponse {
	resp := OrderLineResponse{
		ID:           line.ID.String(),
		OrderID:      line.OrderID.String(),
		Outcome:      int(line.Outcome),
		OutcomeLabel: line.Outcome.String(),
		Notes:        line.Notes,
	}
	if line.StockItemID != nil {
		resp.StockItemID = line.StockItemID.String()
	}
	if line.StockItem != nil {
		resp.PartName = line.StockItem.PartName
		resp.Serial = line.StockItem.Serial
	}
	return resp
}

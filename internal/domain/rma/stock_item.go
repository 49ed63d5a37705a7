package rma

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rma/plugin/internal/domain/shared"
)

// StockItem is a physical stock record owned by the host application.
// The plugin reads it for allocation validation and mutates status, customer
// and quantity during completion processing.
type StockItem struct {
	shared.BaseEntity
	PartID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartName   string          `gorm:"size:255;not null"`
	Serial     string          `gorm:"size:100"`
	Batch      string          `gorm:"size:100"`
	Location   string          `gorm:"size:255"`
	Status     StockStatus     `gorm:"not null;default:10"`
	Quantity   decimal.Decimal `gorm:"type:decimal(15,5);not null;default:0"`
	CustomerID *uuid.UUID      `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (StockItem) TableName() string {
	return "stock_items"
}

// SetStatus changes the stock item status. A no-op when the status is
// already the target value, so completion re-delivery leaves no trace.
func (s *StockItem) SetStatus(status StockStatus) bool {
	if s.Status == status {
		return false
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return true
}

// AssignToCustomer reassigns the stock item to a customer
func (s *StockItem) AssignToCustomer(customerID uuid.UUID) {
	s.CustomerID = &customerID
	s.UpdatedAt = time.Now()
}

// ConsumeQuantity reduces the on-hand quantity by the given amount
func (s *StockItem) ConsumeQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Consumed quantity must be positive")
	}
	if s.Quantity.LessThan(quantity) {
		return shared.ErrInsufficientStock
	}
	s.Quantity = s.Quantity.Sub(quantity)
	s.UpdatedAt = time.Now()
	return nil
}

// Tracking entry codes, mirroring the host's stock history codes
const (
	TrackingCodeEdited = "edited"
)

// StockTrackingEntry is an append-only history row on a stock item.
// Deltas records the fields changed by the entry (status, removed quantity).
type StockTrackingEntry struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	StockItemID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Code        string            `gorm:"size:50;not null"`
	Notes       string            `gorm:"size:1000"`
	Deltas      map[string]string `gorm:"serializer:json"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (StockTrackingEntry) TableName() string {
	return "stock_tracking_entries"
}

// NewStockTrackingEntry creates a tracking entry for a stock item
func NewStockTrackingEntry(stockItemID uuid.UUID, code, notes string, deltas map[string]string) *StockTrackingEntry {
	return &StockTrackingEntry{
		ID:          uuid.New(),
		StockItemID: stockItemID,
		Code:        code,
		Notes:       notes,
		Deltas:      deltas,
		CreatedAt:   time.Now(),
	}
}

package rma

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rma/plugin/internal/domain/rma"
	"github.com/rma/plugin/internal/domain/shared"
)

// ==================== In-memory fakes ====================

type fakeOrderRepo struct {
	orders map[uuid.UUID]*rma.ReturnOrder
}

func newFakeOrderRepo(orders ...*rma.ReturnOrder) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[uuid.UUID]*rma.ReturnOrder)}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (f *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*rma.ReturnOrder, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeOrderRepo) FindLineByID(_ context.Context, lineID uuid.UUID) (*rma.ReturnOrderLine, error) {
	for _, o := range f.orders {
		if l := o.GetLine(lineID); l != nil {
			return l, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeOrderRepo) FindLinesByOrder(_ context.Context, orderID uuid.UUID) ([]rma.ReturnOrderLine, error) {
	if o, ok := f.orders[orderID]; ok {
		return o.Lines, nil
	}
	return nil, shared.ErrNotFound
}

type fakeStockRepo struct {
	items   map[uuid.UUID]*rma.StockItem
	entries []*rma.StockTrackingEntry
	saves   int
}

func newFakeStockRepo(items ...*rma.StockItem) *fakeStockRepo {
	repo := &fakeStockRepo{items: make(map[uuid.UUID]*rma.StockItem)}
	for _, it := range items {
		repo.items[it.ID] = it
	}
	return repo
}

func (f *fakeStockRepo) FindByID(_ context.Context, id uuid.UUID) (*rma.StockItem, error) {
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeStockRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*rma.StockItem, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeStockRepo) Search(_ context.Context, query string, _ shared.Filter) ([]rma.StockItem, error) {
	var out []rma.StockItem
	for _, it := range f.items {
		if strings.Contains(strings.ToLower(it.PartName), strings.ToLower(query)) {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (f *fakeStockRepo) Save(_ context.Context, item *rma.StockItem) error {
	f.items[item.ID] = item
	f.saves++
	return nil
}

func (f *fakeStockRepo) AddTrackingEntry(_ context.Context, entry *rma.StockTrackingEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStockRepo) entriesFor(id uuid.UUID) []*rma.StockTrackingEntry {
	var out []*rma.StockTrackingEntry
	for _, e := range f.entries {
		if e.StockItemID == id {
			out = append(out, e)
		}
	}
	return out
}

type fakeAllocationRepo struct {
	allocations map[uuid.UUID]*rma.RepairAllocation
	lineOrders  map[uuid.UUID]uuid.UUID // line ID -> order ID
}

func newFakeAllocationRepo(order *rma.ReturnOrder) *fakeAllocationRepo {
	repo := &fakeAllocationRepo{
		allocations: make(map[uuid.UUID]*rma.RepairAllocation),
		lineOrders:  make(map[uuid.UUID]uuid.UUID),
	}
	if order != nil {
		for i := range order.Lines {
			repo.lineOrders[order.Lines[i].ID] = order.ID
		}
	}
	return repo
}

func (f *fakeAllocationRepo) FindByID(_ context.Context, id uuid.UUID) (*rma.RepairAllocation, error) {
	if a, ok := f.allocations[id]; ok {
		return a, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeAllocationRepo) FindByOrder(_ context.Context, orderID uuid.UUID, consumed *bool, _ shared.Filter) ([]rma.RepairAllocation, error) {
	var out []rma.RepairAllocation
	for _, a := range f.allocations {
		if f.lineOrders[a.ReturnOrderLineID] != orderID {
			continue
		}
		if consumed != nil && a.Consumed != *consumed {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAllocationRepo) FindByLine(_ context.Context, lineID uuid.UUID, consumed *bool, _ shared.Filter) ([]rma.RepairAllocation, error) {
	var out []rma.RepairAllocation
	for _, a := range f.allocations {
		if a.ReturnOrderLineID != lineID {
			continue
		}
		if consumed != nil && a.Consumed != *consumed {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAllocationRepo) FindUnconsumedByOrder(ctx context.Context, orderID uuid.UUID) ([]rma.RepairAllocation, error) {
	unconsumed := false
	return f.FindByOrder(ctx, orderID, &unconsumed, shared.DefaultFilter())
}

func (f *fakeAllocationRepo) SumUnconsumedByStockItem(_ context.Context, stockItemID, excludeID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, a := range f.allocations {
		if a.StockItemID == stockItemID && !a.Consumed && a.ID != excludeID {
			sum = sum.Add(a.Quantity)
		}
	}
	return sum, nil
}

func (f *fakeAllocationRepo) CountByOrder(ctx context.Context, orderID uuid.UUID, consumed *bool) (int64, error) {
	items, _ := f.FindByOrder(ctx, orderID, consumed, shared.DefaultFilter())
	return int64(len(items)), nil
}

func (f *fakeAllocationRepo) CountByLine(ctx context.Context, lineID uuid.UUID, consumed *bool) (int64, error) {
	items, _ := f.FindByLine(ctx, lineID, consumed, shared.DefaultFilter())
	return int64(len(items)), nil
}

func (f *fakeAllocationRepo) Save(_ context.Context, allocation *rma.RepairAllocation) error {
	f.allocations[allocation.ID] = allocation
	return nil
}

func (f *fakeAllocationRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.allocations[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.allocations, id)
	return nil
}

var (
	_ rma.ReturnOrderRepository      = (*fakeOrderRepo)(nil)
	_ rma.StockItemRepository        = (*fakeStockRepo)(nil)
	_ rma.RepairAllocationRepository = (*fakeAllocationRepo)(nil)
)

// ==================== Test fixtures ====================

type handlerFixture struct {
	handler     *CompletionHandler
	order       *rma.ReturnOrder
	orderRepo   *fakeOrderRepo
	stockRepo   *fakeStockRepo
	allocations *fakeAllocationRepo
}

func newStockItem(name string, status rma.StockStatus, qty int64) *rma.StockItem {
	return &rma.StockItem{
		BaseEntity: shared.NewBaseEntity(),
		PartID:     uuid.New(),
		PartName:   name,
		Status:     status,
		Quantity:   decimal.NewFromInt(qty),
	}
}

func newOrder(reference string, customerID *uuid.UUID, lines ...rma.ReturnOrderLine) *rma.ReturnOrder {
	order := &rma.ReturnOrder{
		BaseEntity: shared.NewBaseEntity(),
		Reference:  reference,
		CustomerID: customerID,
		Status:     rma.ReturnOrderComplete,
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	order.Lines = lines
	return order
}

func newLine(item *rma.StockItem, outcome rma.Outcome, notes string) rma.ReturnOrderLine {
	return rma.ReturnOrderLine{
		BaseEntity:  shared.NewBaseEntity(),
		StockItemID: &item.ID,
		Outcome:     outcome,
		Notes:       notes,
	}
}

func newFixture(t *testing.T, settings Settings, order *rma.ReturnOrder, items ...*rma.StockItem) *handlerFixture {
	t.Helper()
	orderRepo := newFakeOrderRepo(order)
	stockRepo := newFakeStockRepo(items...)
	allocations := newFakeAllocationRepo(order)
	scope := NewNoOpTransactionScope(allocations, stockRepo)
	handler := NewCompletionHandler(orderRepo, allocations, scope, nil, settings, zap.NewNop())
	return &handlerFixture{
		handler:     handler,
		order:       order,
		orderRepo:   orderRepo,
		stockRepo:   stockRepo,
		allocations: allocations,
	}
}

func completedEvent(order *rma.ReturnOrder) *rma.ReturnOrderCompletedEvent {
	return rma.NewReturnOrderCompletedEvent(order.ID, order.Reference, order.CustomerID)
}

func allSettings() Settings {
	s := DefaultSettings()
	s.CustomerReassign = true
	return s
}

// ==================== Tests ====================

func TestCompletionHandler_EventTypes(t *testing.T) {
	handler := NewCompletionHandler(nil, nil, nil, nil, DefaultSettings(), zap.NewNop())
	assert.Equal(t, []string{rma.EventTypeReturnOrderCompleted}, handler.EventTypes())
}

func TestCompletionHandler_Handle_FullScenario(t *testing.T) {
	customerID := uuid.New()
	returned := newStockItem("Amplifier", rma.StockStatusQuarantined, 1)
	part := newStockItem("Fuse 2A", rma.StockStatusOK, 10)
	order := newOrder("RMA-0001", &customerID, newLine(returned, rma.OutcomeRepair, "cracked case"))

	f := newFixture(t, allSettings(), order, returned, part)

	allocation, err := rma.NewRepairAllocation(order.Lines[0].ID, part.ID, decimal.NewFromInt(2), "")
	require.NoError(t, err)
	require.NoError(t, f.allocations.Save(context.Background(), allocation))

	err = f.handler.Handle(context.Background(), completedEvent(order))
	require.NoError(t, err)

	// Status mapping applied
	assert.Equal(t, rma.StockStatusOK, returned.Status)

	// Item handed back to the customer
	require.NotNil(t, returned.CustomerID)
	assert.Equal(t, customerID, *returned.CustomerID)

	// Tracking note records the transition and carries the line notes
	entries := f.stockRepo.entriesFor(returned.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, rma.TrackingCodeEdited, entries[0].Code)
	assert.Equal(t, "RMA-0001: Repair → OK\ncracked case", entries[0].Notes)
	assert.Equal(t, "OK", entries[0].Deltas["status"])

	// Repair part consumed
	assert.Equal(t, "8", part.Quantity.String())
	stored, err := f.allocations.FindByID(context.Background(), allocation.ID)
	require.NoError(t, err)
	assert.True(t, stored.Consumed)

	partEntries := f.stockRepo.entriesFor(part.ID)
	require.Len(t, partEntries, 1)
	assert.Equal(t, "2", partEntries[0].Deltas["removed"])
	assert.Contains(t, partEntries[0].Notes, "RMA-0001")
}

func TestCompletionHandler_Handle_Redelivery(t *testing.T) {
	customerID := uuid.New()
	returned := newStockItem("Amplifier", rma.StockStatusQuarantined, 1)
	part := newStockItem("Fuse 2A", rma.StockStatusOK, 10)
	order := newOrder("RMA-0002", &customerID, newLine(returned, rma.OutcomeReturn, ""))

	f := newFixture(t, allSettings(), order, returned, part)
	allocation, _ := rma.NewRepairAllocation(order.Lines[0].ID, part.ID, decimal.NewFromInt(2), "")
	require.NoError(t, f.allocations.Save(context.Background(), allocation))

	require.NoError(t, f.handler.Handle(context.Background(), completedEvent(order)))
	require.NoError(t, f.handler.Handle(context.Background(), completedEvent(order)))

	// Second delivery changes nothing: status already set, allocation consumed
	assert.Equal(t, "8", part.Quantity.String())
	assert.Len(t, f.stockRepo.entriesFor(returned.ID), 1)
	assert.Len(t, f.stockRepo.entriesFor(part.ID), 1)
}

func TestCompletionHandler_Handle_RejectDoesNotReassign(t *testing.T) {
	customerID := uuid.New()
	returned := newStockItem("Amplifier", rma.StockStatusQuarantined, 1)
	order := newOrder("RMA-0003", &customerID, newLine(returned, rma.OutcomeReject, ""))

	f := newFixture(t, allSettings(), order, returned)
	require.NoError(t, f.handler.Handle(context.Background(), completedEvent(order)))

	assert.Equal(t, rma.StockStatusRejected, returned.Status)
	assert.Nil(t, returned.CustomerID)
}

func TestCompletionHandler_Handle_InsufficientStockSkips(t *testing.T) {
	returned := newStockItem("Amplifier", rma.StockStatusQuarantined, 1)
	part := newStockItem("Fuse 2A", rma.StockStatusOK, 3)
	order := newOrder("RMA-0004", nil, newLine(returned, rma.OutcomeRepair, ""))

	f := newFixture(t, DefaultSettings(), order, returned, part)
	allocation, _ := rma.NewRepairAllocation(order.Lines[0].ID, part.ID, decimal.NewFromInt(5), "")
	require.NoError(t, f.allocations.Save(context.Background(), allocation))

	err := f.handler.Handle(context.Background(), completedEvent(order))
	require.NoError(t, err)

	// Consumption skipped: quantity untouched, allocation left unconsumed
	assert.Equal(t, "3", part.Quantity.String())
	stored, _ := f.allocations.FindByID(context.Background(), allocation.ID)
	assert.False(t, stored.Consumed)
	assert.Empty(t, f.stockRepo.entriesFor(part.ID))
}

func TestCompletionHandler_Handle_StatusChangeDisabled(t *testing.T) {
	returned := newStockItem("Amplifier", rma.StockStatusQuarantined, 1)
	part := newStockItem("Fuse 2A", rma.StockStatusOK, 10)
	order := newOrder("RMA-0005", nil, newLine(returned, rma.OutcomeRepair, ""))

	settings := DefaultSettings()
	settings.AutoStatusChange = false

	f := newFixture(t, settings, order, returned, part)
	allocation, _ := rma.NewRepairAllocation(order.Lines[0].ID, part.ID, decimal.NewFromInt(1), "")
	require.NoError(t, f.allocations.Save(context.Background(), allocation))

	require.NoError(t, f.handler.Handle(context.Background(), completedEvent(order)))

	// Status untouched but parts still consumed
	assert.Equal(t, rma.StockStatusQuarantined, returned.Status)
	assert.Empty(t, f.stockRepo.entriesFor(returned.ID))
	assert.Equal(t, "9", part.Quantity.String())
}

func TestCompletionHandler_Handle_PendingLineSkipped(t *testing.T) {
	returned := newStockItem("Amplifier", rma.StockStatusQuarantined, 1)
	order := newOrder("RMA-0006", nil, newLine(returned, rma.OutcomePending, ""))

	f := newFixture(t, DefaultSettings(), order, returned)
	require.NoError(t, f.handler.Handle(context.Background(), completedEvent(order)))

	assert.Equal(t, rma.StockStatusQuarantined, returned.Status)
	assert.Empty(t, f.stockRepo.entries)
}

func TestCompletionHandler_Handle_LineWithoutStockItem(t *testing.T) {
	order := newOrder("RMA-0007", nil, rma.ReturnOrderLine{
		BaseEntity: shared.NewBaseEntity(),
		Outcome:    rma.OutcomeReturn,
	})

	f := newFixture(t, DefaultSettings(), order)
	assert.NoError(t, f.handler.Handle(context.Background(), completedEvent(order)))
}

func TestCompletionHandler_Handle_UnexpectedEventType(t *testing.T) {
	f := newFixture(t, DefaultSettings(), newOrder("RMA-0008", nil))

	event := rma.NewRepairAllocationConsumedEvent(&rma.RepairAllocation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
	})
	err := f.handler.Handle(context.Background(), event)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected event type")
}

func TestCompletionHandler_Handle_OrderNotFound(t *testing.T) {
	f := newFixture(t, DefaultSettings(), newOrder("RMA-0009", nil))

	event := rma.NewReturnOrderCompletedEvent(uuid.New(), "RMA-MISSING", nil)
	err := f.handler.Handle(context.Background(), event)
	assert.Error(t, err)
}

func TestCompletionHandler_Handle_MissingStockItemContinues(t *testing.T) {
	returned := newStockItem("Amplifier", rma.StockStatusQuarantined, 1)
	ghostID := uuid.New()
	order := newOrder("RMA-0010", nil,
		rma.ReturnOrderLine{BaseEntity: shared.NewBaseEntity(), StockItemID: &ghostID, Outcome: rma.OutcomeReturn},
		newLine(returned, rma.OutcomeReturn, ""),
	)

	f := newFixture(t, DefaultSettings(), order, returned)
	err := f.handler.Handle(context.Background(), completedEvent(order))

	// The missing item fails its line but the other line is still processed
	assert.Error(t, err)
	assert.Equal(t, rma.StockStatusOK, returned.Status)
}

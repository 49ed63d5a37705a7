package rma

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rma/plugin/internal/domain/rma"
	"github.com/rma/plugin/internal/domain/shared"
)

type serviceFixture struct {
	service     *AllocationService
	order       *rma.ReturnOrder
	returned    *rma.StockItem
	part        *rma.StockItem
	allocations *fakeAllocationRepo
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	returned := newStockItem("Amplifier", rma.StockStatusQuarantined, 1)
	part := newStockItem("Fuse 2A", rma.StockStatusOK, 10)
	order := newOrder("RMA-1001", nil, newLine(returned, rma.OutcomeRepair, ""))
	order.Status = rma.ReturnOrderInProgress

	allocations := newFakeAllocationRepo(order)
	service := NewAllocationService(
		allocations,
		newFakeOrderRepo(order),
		newFakeStockRepo(returned, part),
		zap.NewNop(),
	)
	return &serviceFixture{
		service:     service,
		order:       order,
		returned:    returned,
		part:        part,
		allocations: allocations,
	}
}

func TestAllocationService_Create(t *testing.T) {
	t.Run("creates allocation", func(t *testing.T) {
		f := newServiceFixture(t)

		a, err := f.service.Create(context.Background(), CreateAllocationRequest{
			LineID:      f.order.Lines[0].ID,
			StockItemID: f.part.ID,
			Quantity:    decimal.NewFromInt(2),
			Notes:       "replacement fuse",
		})
		require.NoError(t, err)
		assert.False(t, a.Consumed)
		assert.Equal(t, "replacement fuse", a.Notes)

		stored, err := f.allocations.FindByID(context.Background(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, stored.ID)
	})

	t.Run("fails for unknown line", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Create(context.Background(), CreateAllocationRequest{
			LineID:      uuid.New(),
			StockItemID: f.part.ID,
			Quantity:    decimal.NewFromInt(1),
		})
		assert.Error(t, err)
	})

	t.Run("fails on completed order", func(t *testing.T) {
		f := newServiceFixture(t)
		f.order.Status = rma.ReturnOrderComplete

		_, err := f.service.Create(context.Background(), CreateAllocationRequest{
			LineID:      f.order.Lines[0].ID,
			StockItemID: f.part.ID,
			Quantity:    decimal.NewFromInt(1),
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "completed")
	})

	t.Run("fails when allocating the returned item to itself", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Create(context.Background(), CreateAllocationRequest{
			LineID:      f.order.Lines[0].ID,
			StockItemID: f.returned.ID,
			Quantity:    decimal.NewFromInt(1),
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "own repair part")
	})

	t.Run("fails when quantity exceeds unallocated balance", func(t *testing.T) {
		f := newServiceFixture(t)

		// 7 of 10 already promised elsewhere
		existing, _ := rma.NewRepairAllocation(f.order.Lines[0].ID, f.part.ID, decimal.NewFromInt(7), "")
		require.NoError(t, f.allocations.Save(context.Background(), existing))

		_, err := f.service.Create(context.Background(), CreateAllocationRequest{
			LineID:      f.order.Lines[0].ID,
			StockItemID: f.part.ID,
			Quantity:    decimal.NewFromInt(4),
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	t.Run("consumed allocations do not count against the balance", func(t *testing.T) {
		f := newServiceFixture(t)

		existing, _ := rma.NewRepairAllocation(f.order.Lines[0].ID, f.part.ID, decimal.NewFromInt(7), "")
		require.NoError(t, existing.Consume())
		require.NoError(t, f.allocations.Save(context.Background(), existing))

		_, err := f.service.Create(context.Background(), CreateAllocationRequest{
			LineID:      f.order.Lines[0].ID,
			StockItemID: f.part.ID,
			Quantity:    decimal.NewFromInt(4),
		})
		assert.NoError(t, err)
	})

	t.Run("fails with non-positive quantity", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Create(context.Background(), CreateAllocationRequest{
			LineID:      f.order.Lines[0].ID,
			StockItemID: f.part.ID,
			Quantity:    decimal.Zero,
		})
		assert.Error(t, err)
	})
}

func TestAllocationService_Delete(t *testing.T) {
	t.Run("deletes unconsumed allocation", func(t *testing.T) {
		f := newServiceFixture(t)
		a, err := f.service.Create(context.Background(), CreateAllocationRequest{
			LineID:      f.order.Lines[0].ID,
			StockItemID: f.part.ID,
			Quantity:    decimal.NewFromInt(1),
		})
		require.NoError(t, err)

		require.NoError(t, f.service.Delete(context.Background(), a.ID))

		_, err = f.service.Get(context.Background(), a.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("refuses to delete consumed allocation", func(t *testing.T) {
		f := newServiceFixture(t)
		a, _ := rma.NewRepairAllocation(f.order.Lines[0].ID, f.part.ID, decimal.NewFromInt(1), "")
		require.NoError(t, a.Consume())
		require.NoError(t, f.allocations.Save(context.Background(), a))

		err := f.service.Delete(context.Background(), a.ID)
		assert.ErrorIs(t, err, shared.ErrAlreadyConsumed)
	})

	t.Run("fails for unknown allocation", func(t *testing.T) {
		f := newServiceFixture(t)
		err := f.service.Delete(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestAllocationService_List(t *testing.T) {
	t.Run("lists allocations for an order", func(t *testing.T) {
		f := newServiceFixture(t)
		for i := 0; i < 3; i++ {
			_, err := f.service.Create(context.Background(), CreateAllocationRequest{
				LineID:      f.order.Lines[0].ID,
				StockItemID: f.part.ID,
				Quantity:    decimal.NewFromInt(1),
			})
			require.NoError(t, err)
		}

		page, err := f.service.List(context.Background(), ListAllocationsQuery{
			OrderID: f.order.ID,
			Filter:  shared.DefaultFilter(),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Len(t, page.Items, 3)
	})

	t.Run("filters by consumption state", func(t *testing.T) {
		f := newServiceFixture(t)
		a, _ := rma.NewRepairAllocation(f.order.Lines[0].ID, f.part.ID, decimal.NewFromInt(1), "")
		require.NoError(t, a.Consume())
		require.NoError(t, f.allocations.Save(context.Background(), a))

		b, _ := rma.NewRepairAllocation(f.order.Lines[0].ID, f.part.ID, decimal.NewFromInt(1), "")
		require.NoError(t, f.allocations.Save(context.Background(), b))

		consumed := true
		page, err := f.service.List(context.Background(), ListAllocationsQuery{
			OrderID:  f.order.ID,
			Consumed: &consumed,
			Filter:   shared.DefaultFilter(),
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, a.ID, page.Items[0].ID)
	})

	t.Run("requires an order ID", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.List(context.Background(), ListAllocationsQuery{Filter: shared.DefaultFilter()})
		assert.Error(t, err)
	})
}

func TestAllocationService_AvailableQuantity(t *testing.T) {
	f := newServiceFixture(t)

	a, _ := rma.NewRepairAllocation(f.order.Lines[0].ID, f.part.ID, decimal.NewFromInt(4), "")
	require.NoError(t, f.allocations.Save(context.Background(), a))

	available, err := f.service.AvailableQuantity(context.Background(), f.part.ID)
	require.NoError(t, err)
	assert.Equal(t, "6", available.String())
}

package rma

import (
	"context"

	"github.com/rma/plugin/internal/domain/rma"
)

// TransactionScope provides transactional access to the repositories mutated
// during completion processing. All repository operations inside Execute are
// part of the same database transaction and commit or roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories within a
// transaction. All repositories returned share the same underlying database
// transaction.
type TransactionalRepositories interface {
	// AllocationRepo returns the repair allocation repository scoped to the
	// current transaction
	AllocationRepo() rma.RepairAllocationRepository
	// StockRepo returns the stock item repository scoped to the current
	// transaction
	StockRepo() rma.StockItemRepository
}

// NoOpTransactionScope runs functions without a real transaction. Useful for
// tests.
type NoOpTransactionScope struct {
	allocationRepo rma.RepairAllocationRepository
	stockRepo      rma.StockItemRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(
	allocationRepo rma.RepairAllocationRepository,
	stockRepo rma.StockItemRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		allocationRepo: allocationRepo,
		stockRepo:      stockRepo,
	}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// AllocationRepo returns the repair allocation repository
func (s *NoOpTransactionScope) AllocationRepo() rma.RepairAllocationRepository {
	return s.allocationRepo
}

// StockRepo returns the stock item repository
func (s *NoOpTransactionScope) StockRepo() rma.StockItemRepository {
	return s.stockRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

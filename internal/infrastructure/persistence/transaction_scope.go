package persistence

import (
	"context"

	"gorm.io/gorm"

	apprma "github.com/rma/plugin/internal/application/rma"
	"github.com/rma/plugin/internal/domain/rma"
)

// GormTransactionScope implements TransactionScope using GORM transactions
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apprma.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// AllocationRepo returns the repair allocation repository scoped to the current transaction
func (r *gormTransactionalRepositories) AllocationRepo() rma.RepairAllocationRepository {
	return NewGormRepairAllocationRepository(r.tx)
}

// StockRepo returns the stock item repository scoped to the current transaction
func (r *gormTransactionalRepositories) StockRepo() rma.StockItemRepository {
	return NewGormStockItemRepository(r.tx)
}

var _ apprma.TransactionScope = (*GormTransactionScope)(nil)
var _ apprma.TransactionalRepositories = (*gormTransactionalRepositories)(nil)

package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rma/plugin/internal/domain/rma"
	"github.com/rma/plugin/internal/domain/shared"
)

// GormStockItemRepository implements StockItemRepository using GORM
type GormStockItemRepository struct {
	db *gorm.DB
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(db *gorm.DB) *GormStockItemRepository {
	return &GormStockItemRepository{db: db}
}

// FindByID finds a stock item by its ID
func (r *GormStockItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*rma.StockItem, error) {
	var item rma.StockItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByIDForUpdate finds a stock item with a FOR UPDATE row lock. Only
// meaningful inside a transaction scope.
func (r *GormStockItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*rma.StockItem, error) {
	var item rma.StockItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Search finds in-stock items by part name or serial
func (r *GormStockItemRepository) Search(ctx context.Context, query string, filter shared.Filter) ([]rma.StockItem, error) {
	var items []rma.StockItem
	q := r.db.WithContext(ctx).Where("quantity > 0")
	if query != "" {
		pattern := "%" + query + "%"
		q = q.Where("part_name ILIKE ? OR serial ILIKE ?", pattern, pattern)
	}
	if err := q.
		Order("part_name ASC").
		Limit(filter.PageSize).
		Offset(filter.Offset()).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save persists stock item field changes
func (r *GormStockItemRepository) Save(ctx context.Context, item *rma.StockItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// AddTrackingEntry appends a history entry to a stock item
func (r *GormStockItemRepository) AddTrackingEntry(ctx context.Context, entry *rma.StockTrackingEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Ensure GormStockItemRepository implements the repository interface
var _ rma.StockItemRepository = (*GormStockItemRepository)(nil)

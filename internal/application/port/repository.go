package port

import (
	"context"

	"github.com/rxledger/billscan/internal/domain/entity"
)

// BatchRepository defines persistence operations for InventoryBatch.
type BatchRepository interface {
	// FindByStoreAndName returns every batch in the store whose name
	// matches case-insensitively (the item's name family).
	FindByStoreAndName(ctx context.Context, storeID, name string) ([]*entity.InventoryBatch, error)
	Create(ctx context.Context, batch *entity.InventoryBatch) error
	Update(ctx context.Context, batch *entity.InventoryBatch) error
	ListByStore(ctx context.Context, storeID string, limit, offset int) ([]*entity.InventoryBatch, error)
}

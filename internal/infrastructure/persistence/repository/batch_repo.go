package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rxledger/billscan/internal/application/port"
	"github.com/rxledger/billscan/internal/domain/entity"
)

const batchColumns = `id, store_id, sku, name, batch_number, quantity, expiry_date,
	mrp, cost_price, selling_price, manufacturer, category, unit, reorder_level,
	created_at, updated_at`

// BatchRepository implements port.BatchRepository on SQLite.
type BatchRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBatchRepository creates a new inventory batch repository.
func NewBatchRepository(db *sql.DB, logger *zap.Logger) port.BatchRepository {
	return &BatchRepository{
		db:     db,
		logger: logger,
	}
}

// FindByStoreAndName returns the store's name family for a medicine,
// matching the name case-insensitively.
func (r *BatchRepository) FindByStoreAndName(ctx context.Context, storeID, name string) ([]*entity.InventoryBatch, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM inventory_batches
		WHERE store_id = ? AND LOWER(name) = LOWER(?)
		ORDER BY id
	`, batchColumns)

	rows, err := r.db.QueryContext(ctx, query, storeID, name)
	if err != nil {
		r.logger.Error("Failed to query name family", zap.Error(err))
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	return scanBatches(rows)
}

// Create inserts a new batch and sets its generated ID.
func (r *BatchRepository) Create(ctx context.Context, batch *entity.InventoryBatch) error {
	query := `
		INSERT INTO inventory_batches (
			store_id, sku, name, batch_number, quantity, expiry_date,
			mrp, cost_price, selling_price, manufacturer, category, unit,
			reorder_level, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		batch.StoreID,
		batch.SKU,
		batch.Name,
		batch.BatchNumber,
		batch.Quantity,
		nullableTime(batch.ExpiryDate),
		batch.MRP,
		batch.CostPrice,
		batch.SellingPrice,
		batch.Manufacturer,
		batch.Category,
		batch.Unit,
		batch.ReorderLevel,
		batch.CreatedAt,
		batch.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create batch", zap.String("sku", batch.SKU), zap.Error(err))
		return fmt.Errorf("failed to create batch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	batch.ID = id
	return nil
}

// Update writes the batch's mutable fields back.
func (r *BatchRepository) Update(ctx context.Context, batch *entity.InventoryBatch) error {
	query := `
		UPDATE inventory_batches SET
			batch_number = ?, quantity = ?, expiry_date = ?, mrp = ?,
			cost_price = ?, selling_price = ?, manufacturer = ?,
			category = ?, unit = ?, reorder_level = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		batch.BatchNumber,
		batch.Quantity,
		nullableTime(batch.ExpiryDate),
		batch.MRP,
		batch.CostPrice,
		batch.SellingPrice,
		batch.Manufacturer,
		batch.Category,
		batch.Unit,
		batch.ReorderLevel,
		batch.UpdatedAt,
		batch.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update batch", zap.Int64("id", batch.ID), zap.Error(err))
		return fmt.Errorf("failed to update batch: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("batch %d not found", batch.ID)
	}
	return nil
}

// ListByStore pages through a store's batches in insertion order.
func (r *BatchRepository) ListByStore(ctx context.Context, storeID string, limit, offset int) ([]*entity.InventoryBatch, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM inventory_batches
		WHERE store_id = ?
		ORDER BY id
		LIMIT ? OFFSET ?
	`, batchColumns)

	rows, err := r.db.QueryContext(ctx, query, storeID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list batches", zap.Error(err))
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	return scanBatches(rows)
}

func scanBatches(rows *sql.Rows) ([]*entity.InventoryBatch, error) {
	var batches []*entity.InventoryBatch
	for rows.Next() {
		var batch entity.InventoryBatch
		var expiry sql.NullTime

		if err := rows.Scan(
			&batch.ID,
			&batch.StoreID,
			&batch.SKU,
			&batch.Name,
			&batch.BatchNumber,
			&batch.Quantity,
			&expiry,
			&batch.MRP,
			&batch.CostPrice,
			&batch.SellingPrice,
			&batch.Manufacturer,
			&batch.Category,
			&batch.Unit,
			&batch.ReorderLevel,
			&batch.CreatedAt,
			&batch.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}

		if expiry.Valid {
			t := expiry.Time
			batch.ExpiryDate = &t
		}
		batches = append(batches, &batch)
	}
	return batches, rows.Err()
}

// nullableTime maps a nil expiry to SQL NULL.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

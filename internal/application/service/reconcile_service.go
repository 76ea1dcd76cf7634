package service

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/rxledger/billscan/internal/application/port"
	"github.com/rxledger/billscan/internal/domain/entity"
)

// ReconcileResult tallies what one reconciliation run did to the store's
// inventory.
type ReconcileResult struct {
	Created int
	Updated int
}

// ReconciliationError reports a persistence failure partway through a
// run. Items processed before the failure stay applied; there is no
// rollback.
type ReconciliationError struct {
	ItemsProcessed int
	Err            error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation aborted after %d item(s): %v", e.ItemsProcessed, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// Reconciler merges extracted bill items into a store's inventory. For
// each item it either updates the one existing batch with the same
// (name, batch number) identity or creates a new batch. Items are
// processed strictly in input order; the first persistence failure
// aborts the rest of the run.
type Reconciler struct {
	batches port.BatchRepository
	logger  *zap.Logger
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewReconciler creates a reconciler with a wall clock and a seeded
// random source for SKU suffixes.
func NewReconciler(batches port.BatchRepository, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		batches: batches,
		logger:  logger,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock pins the clock; used by tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// WithRandSource pins the SKU suffix source; used by tests.
func (r *Reconciler) WithRandSource(rng *rand.Rand) *Reconciler {
	r.rng = rng
	return r
}

// Reconcile applies the items to the store's inventory and returns the
// created/updated tallies. On error the returned result covers only the
// items applied before the failure.
func (r *Reconciler) Reconcile(ctx context.Context, storeID string, items []entity.NormalizedItem) (*ReconcileResult, error) {
	result := &ReconcileResult{}

	for i, item := range items {
		if item.MedicineName == "" {
			r.logger.Warn("Skipping item with empty name", zap.Int("position", i))
			continue
		}

		family, err := r.batches.FindByStoreAndName(ctx, storeID, item.MedicineName)
		if err != nil {
			return result, &ReconciliationError{ItemsProcessed: i, Err: err}
		}

		if existing := exactBatchMatch(family, item.BatchNumber); existing != nil {
			if err := r.updateBatch(ctx, existing, item); err != nil {
				return result, &ReconciliationError{ItemsProcessed: i, Err: err}
			}
			result.Updated++
			continue
		}

		if err := r.createBatch(ctx, storeID, family, item); err != nil {
			return result, &ReconciliationError{ItemsProcessed: i, Err: err}
		}
		result.Created++
	}

	r.logger.Info("Reconciliation complete",
		zap.String("store_id", storeID),
		zap.Int("items", len(items)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated))

	return result, nil
}

// exactBatchMatch finds the family member whose batch number equals the
// item's exactly. Two empty batch numbers are the same batch.
func exactBatchMatch(family []*entity.InventoryBatch, batchNumber string) *entity.InventoryBatch {
	for _, b := range family {
		if b.BatchNumber == batchNumber {
			return b
		}
	}
	return nil
}

// updateBatch applies the additive-quantity and fill-only rules. Once a
// batch's price is recorded a later import of the same batch must not
// overwrite it.
func (r *Reconciler) updateBatch(ctx context.Context, batch *entity.InventoryBatch, item entity.NormalizedItem) error {
	batch.Quantity += item.Quantity

	if batch.MRP <= 0 {
		batch.MRP = item.MRP
	}
	if batch.CostPrice <= 0 {
		batch.CostPrice = item.CostRate
	}
	if batch.SellingPrice <= 0 {
		batch.SellingPrice = item.MRP
	}
	if batch.BatchNumber == "" {
		batch.BatchNumber = item.BatchNumber
	}
	if batch.ExpiryDate == nil {
		batch.ExpiryDate = item.ExpiryDate
	}
	if batch.Manufacturer == "" {
		batch.Manufacturer = item.SupplierName
	}
	batch.UpdatedAt = r.now()

	return r.batches.Update(ctx, batch)
}

// createBatch creates a new lot, inheriting category/unit/reorder level
// from an arbitrary existing batch of the same name (the blueprint) when
// one exists.
func (r *Reconciler) createBatch(ctx context.Context, storeID string, family []*entity.InventoryBatch, item entity.NormalizedItem) error {
	batch := &entity.InventoryBatch{
		StoreID:      storeID,
		SKU:          r.generateSKU(item.MedicineName, item.BatchNumber),
		Name:         item.MedicineName,
		BatchNumber:  item.BatchNumber,
		Quantity:     item.Quantity,
		ExpiryDate:   item.ExpiryDate,
		MRP:          item.MRP,
		CostPrice:    item.CostRate,
		SellingPrice: item.MRP, // selling price starts at MRP, never at cost
		Manufacturer: item.SupplierName,
		Category:     entity.DefaultCategory,
		Unit:         entity.DefaultUnit,
		ReorderLevel: entity.DefaultReorderLevel,
		CreatedAt:    r.now(),
		UpdatedAt:    r.now(),
	}

	if len(family) > 0 {
		blueprint := family[0]
		batch.Category = blueprint.Category
		batch.Unit = blueprint.Unit
		batch.ReorderLevel = blueprint.ReorderLevel
	}

	return r.batches.Create(ctx, batch)
}

// generateSKU builds a human-scannable batch identifier: a three-letter
// name prefix, the alphanumeric form of the batch number (or a
// time-derived stand-in when the bill carried none), and a bounded
// random suffix. Collisions are unlikely, not impossible.
func (r *Reconciler) generateSKU(name, batchNumber string) string {
	prefix := letterPrefix(name, 3)

	mid := alphanumeric(batchNumber)
	if mid == "" {
		mid = strings.ToUpper(strconv.FormatInt(r.now().UnixMilli(), 36))
	}

	r.mu.Lock()
	suffix := r.rng.Intn(1000)
	r.mu.Unlock()

	return fmt.Sprintf("%s-%s-%03d", prefix, mid, suffix)
}

func letterPrefix(name string, n int) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() >= n {
				break
			}
		}
	}
	for b.Len() < n {
		b.WriteByte('X')
	}
	return b.String()
}

func alphanumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

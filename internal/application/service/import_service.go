package service

import (
	"context"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rxledger/billscan/internal/application/port"
	"github.com/rxledger/billscan/internal/domain/entity"
	"github.com/rxledger/billscan/internal/extraction"
)

// ReportWriter persists a human-readable summary of a finished import.
type ReportWriter interface {
	Write(result *entity.ImportResult, items []entity.NormalizedItem) (string, error)
}

// ImportService drives one bill document through the pipeline: rasterize
// to page images, extract and parse each page in order, normalize the
// collected items, then reconcile them into the store's inventory.
// Pages are processed sequentially; every page is a blocking model round
// trip and nothing here is CPU-bound.
type ImportService struct {
	rasterizer port.Rasterizer
	extractor  port.TextExtractor
	parser     port.BillParser
	normalizer port.Normalizer
	reconciler *Reconciler
	reports    ReportWriter // optional
	logger     *zap.Logger

	// storeLocks serializes reconciliation per store so two concurrent
	// imports of the same new (name, batch) pair cannot both take the
	// create path. In-process only; a second server instance can still
	// duplicate.
	storeLocks sync.Map
}

// NewImportService wires the pipeline stages together. reports may be
// nil to disable summary workbooks.
func NewImportService(
	rasterizer port.Rasterizer,
	extractor port.TextExtractor,
	parser port.BillParser,
	normalizer port.Normalizer,
	reconciler *Reconciler,
	reports ReportWriter,
	logger *zap.Logger,
) *ImportService {
	return &ImportService{
		rasterizer: rasterizer,
		extractor:  extractor,
		parser:     parser,
		normalizer: normalizer,
		reconciler: reconciler,
		reports:    reports,
		logger:     logger,
	}
}

// ImportDocument runs the full pipeline for one uploaded document and
// returns the caller-facing result. Extraction failures abort the run
// with nothing applied; reconciliation failures abort mid-run and leave
// already-applied changes in place.
func (s *ImportService) ImportDocument(ctx context.Context, storeID, documentPath string) (*entity.ImportResult, error) {
	importID := uuid.NewString()
	s.logger.Info("Starting bill import",
		zap.String("import_id", importID),
		zap.String("store_id", storeID),
		zap.String("document", documentPath))

	pages, err := s.rasterizer.Pages(documentPath)
	if err != nil {
		return nil, err
	}

	var (
		items    []entity.ExtractedItem
		meta     entity.ParsedBill
		metaSet  bool
		degraded int
	)

	for i, page := range pages {
		text, err := s.extractor.ExtractText(ctx, page)
		if err != nil {
			s.removePages(pages[i:], documentPath)
			return nil, tagPage(err, i+1)
		}

		bill, pageDegraded, err := s.parser.Parse(ctx, text)
		if err != nil {
			s.removePages(pages[i:], documentPath)
			return nil, tagPage(err, i+1)
		}

		if pageDegraded {
			degraded++
			s.logger.Warn("Page degraded to empty item list",
				zap.String("import_id", importID),
				zap.Int("page", i+1))
		}

		items = append(items, bill.Items...)

		// Invoice metadata comes from the first page that supplies any;
		// later pages never overwrite or merge.
		if !metaSet && bill.HasMetadata() {
			meta = *bill
			metaSet = true
		}

		// Page images rendered from a PDF are intermediates; release
		// them as soon as the model has consumed them.
		if page != documentPath {
			if err := os.Remove(page); err != nil {
				s.logger.Warn("Failed to remove page image", zap.String("path", page), zap.Error(err))
			}
		}
	}

	normalized := s.normalizeItems(items, meta.SupplierName)

	result := &entity.ImportResult{
		ImportID:       importID,
		ItemCount:      len(normalized),
		PagesProcessed: len(pages),
		PagesDegraded:  degraded,
		InvoiceNumber:  meta.InvoiceNumber,
		SupplierName:   meta.SupplierName,
		TotalAmount:    meta.TotalAmount,
	}

	unlock := s.lockStore(storeID)
	tally, err := s.reconciler.Reconcile(ctx, storeID, normalized)
	unlock()

	if tally != nil {
		result.CreatedCount = tally.Created
		result.UpdatedCount = tally.Updated
	}
	if err != nil {
		return result, err
	}

	if s.reports != nil {
		path, err := s.reports.Write(result, normalized)
		if err != nil {
			s.logger.Warn("Failed to write import report",
				zap.String("import_id", importID),
				zap.Error(err))
		} else {
			result.ReportPath = path
		}
	}

	s.logger.Info("Bill import finished",
		zap.String("import_id", importID),
		zap.Int("created", result.CreatedCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("pages_degraded", result.PagesDegraded))

	return result, nil
}

// normalizeItems canonicalizes names and interprets expiry strings. The
// original bill spelling travels alongside the canonical name for audit.
func (s *ImportService) normalizeItems(items []entity.ExtractedItem, supplierName string) []entity.NormalizedItem {
	normalized := make([]entity.NormalizedItem, 0, len(items))
	for _, item := range items {
		normalized = append(normalized, entity.NormalizedItem{
			MedicineName: s.normalizer.Normalize(item.MedicineName),
			OriginalName: item.MedicineName,
			Quantity:     item.Quantity,
			BatchNumber:  item.BatchNumber,
			ExpiryDate:   extraction.ParseExpiry(item.ExpiryDateText),
			MRP:          item.MRP,
			CostRate:     item.CostRate,
			SupplierName: supplierName,
		})
	}
	return normalized
}

func (s *ImportService) lockStore(storeID string) func() {
	v, _ := s.storeLocks.LoadOrStore(storeID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// removePages deletes remaining intermediate page images after an abort.
func (s *ImportService) removePages(pages []string, documentPath string) {
	for _, page := range pages {
		if page != documentPath {
			_ = os.Remove(page)
		}
	}
}

// tagPage attaches the page number to an extraction error that does not
// carry one yet.
func tagPage(err error, page int) error {
	if extErr, ok := err.(*extraction.Error); ok && extErr.Page == 0 {
		extErr.Page = page
	}
	return err
}

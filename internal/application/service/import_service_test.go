package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rxledger/billscan/internal/domain/entity"
	"github.com/rxledger/billscan/internal/extraction"
)

type fakeRasterizer struct {
	pages []string
	err   error
}

func (f *fakeRasterizer) Pages(string) ([]string, error) {
	return f.pages, f.err
}

// fakeExtractor returns one canned text per page path.
type fakeExtractor struct {
	texts map[string]string
	err   error
}

func (f *fakeExtractor) ExtractText(_ context.Context, imagePath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.texts[imagePath], nil
}

// fakeParser maps page text to canned bills keyed by the text itself.
type fakeParser struct {
	bills    map[string]*entity.ParsedBill
	degraded map[string]bool
	err      error
}

func (f *fakeParser) Parse(_ context.Context, rawText string) (*entity.ParsedBill, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if bill, ok := f.bills[rawText]; ok {
		return bill, f.degraded[rawText], nil
	}
	return &entity.ParsedBill{}, true, nil
}

type passthroughNormalizer struct{}

func (passthroughNormalizer) Normalize(rawName string) string { return rawName }

func makePages(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	pages := make([]string, n)
	for i := range pages {
		pages[i] = filepath.Join(dir, fmt.Sprintf("page_%d.jpg", i+1))
		require.NoError(t, os.WriteFile(pages[i], []byte("img"), 0644))
	}
	return pages
}

func TestImportDocumentMultiPage(t *testing.T) {
	pages := makePages(t, 3)

	extractorTexts := map[string]string{
		pages[0]: "page one text",
		pages[1]: "page two text",
		pages[2]: "page three text",
	}
	parserBills := map[string]*entity.ParsedBill{
		"page one text": {
			Items: []entity.ExtractedItem{{MedicineName: "DOLO 650MG", Quantity: 10, BatchNumber: "D42", MRP: 33, CostRate: 24}},
		},
		"page two text": {
			// Metadata on a later page only: this page supplies it first.
			InvoiceNumber: "INV-9",
			SupplierName:  "Apex Pharma",
			TotalAmount:   500,
			Items:         []entity.ExtractedItem{{MedicineName: "CROCIN", Quantity: 5, MRP: 30, CostRate: 21}},
		},
		"page three text": {
			// Must not overwrite page two's metadata.
			InvoiceNumber: "WRONG",
			SupplierName:  "Someone Else",
			Items:         []entity.ExtractedItem{{MedicineName: "OMEZ 20", Quantity: 2, BatchNumber: "OM7", MRP: 55, CostRate: 40}},
		},
	}

	repo := newFakeBatchRepository()
	svc := NewImportService(
		&fakeRasterizer{pages: pages},
		&fakeExtractor{texts: extractorTexts},
		&fakeParser{bills: parserBills},
		passthroughNormalizer{},
		newTestReconciler(repo),
		nil,
		zap.NewNop(),
	)

	result, err := svc.ImportDocument(context.Background(), "store-1", "/uploads/bill.pdf")
	require.NoError(t, err)

	assert.Equal(t, 3, result.PagesProcessed)
	assert.Equal(t, 0, result.PagesDegraded)
	assert.Equal(t, 3, result.ItemCount)
	assert.Equal(t, 3, result.CreatedCount)
	assert.Equal(t, 0, result.UpdatedCount)
	assert.Equal(t, "INV-9", result.InvoiceNumber, "first page with metadata wins")
	assert.Equal(t, "Apex Pharma", result.SupplierName)
	assert.Equal(t, 500.0, result.TotalAmount)

	// Manufacturer flows from the retained supplier name.
	for _, b := range repo.batches {
		assert.Equal(t, "Apex Pharma", b.Manufacturer)
	}

	// Intermediate page images were released.
	for _, page := range pages {
		_, statErr := os.Stat(page)
		assert.True(t, os.IsNotExist(statErr), "page %s should be removed", page)
	}
}

func TestImportDocumentDegradedPageContinues(t *testing.T) {
	pages := makePages(t, 2)

	extractorTexts := map[string]string{
		pages[0]: "parseable page",
		pages[1]: "garbage page",
	}
	parserBills := map[string]*entity.ParsedBill{
		"parseable page": {
			Items: []entity.ExtractedItem{{MedicineName: "DOLO 650MG", Quantity: 10, MRP: 33, CostRate: 24}},
		},
		// "garbage page" is absent: the fake parser degrades it.
	}

	repo := newFakeBatchRepository()
	svc := NewImportService(
		&fakeRasterizer{pages: pages},
		&fakeExtractor{texts: extractorTexts},
		&fakeParser{bills: parserBills},
		passthroughNormalizer{},
		newTestReconciler(repo),
		nil,
		zap.NewNop(),
	)

	result, err := svc.ImportDocument(context.Background(), "store-1", "/uploads/bill.pdf")
	require.NoError(t, err, "a degraded page must not abort the import")
	assert.Equal(t, 1, result.PagesDegraded)
	assert.Equal(t, 1, result.CreatedCount)
}

func TestImportDocumentExtractionFailureAborts(t *testing.T) {
	pages := makePages(t, 2)

	repo := newFakeBatchRepository()
	svc := NewImportService(
		&fakeRasterizer{pages: pages},
		&fakeExtractor{err: &extraction.Error{Stage: extraction.StageVision, Err: errors.New("model unreachable")}},
		&fakeParser{},
		passthroughNormalizer{},
		newTestReconciler(repo),
		nil,
		zap.NewNop(),
	)

	result, err := svc.ImportDocument(context.Background(), "store-1", "/uploads/bill.pdf")
	require.Error(t, err)
	assert.Nil(t, result, "no partial result on extraction failure")
	assert.Empty(t, repo.batches, "nothing was written")

	var extErr *extraction.Error
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, 1, extErr.Page)
}

func TestImportDocumentSingleImagePassthroughNotDeleted(t *testing.T) {
	pages := makePages(t, 1)
	imagePath := pages[0]

	repo := newFakeBatchRepository()
	svc := NewImportService(
		&fakeRasterizer{pages: []string{imagePath}},
		&fakeExtractor{texts: map[string]string{imagePath: "text"}},
		&fakeParser{bills: map[string]*entity.ParsedBill{
			"text": {Items: []entity.ExtractedItem{{MedicineName: "CROCIN", Quantity: 1, MRP: 30, CostRate: 21}}},
		}},
		passthroughNormalizer{},
		newTestReconciler(repo),
		nil,
		zap.NewNop(),
	)

	// The uploaded file itself doubles as the only page; the import must
	// not delete it (upload cleanup is the caller's job).
	_, err := svc.ImportDocument(context.Background(), "store-1", imagePath)
	require.NoError(t, err)

	_, statErr := os.Stat(imagePath)
	assert.NoError(t, statErr)
}

func TestImportDocumentReconciliationFailureReturnsPartialCounts(t *testing.T) {
	pages := makePages(t, 1)

	repo := newFakeBatchRepository()
	repo.failCreateAfter = 2

	svc := NewImportService(
		&fakeRasterizer{pages: pages},
		&fakeExtractor{texts: map[string]string{pages[0]: "text"}},
		&fakeParser{bills: map[string]*entity.ParsedBill{
			"text": {Items: []entity.ExtractedItem{
				{MedicineName: "MED A", BatchNumber: "A1", Quantity: 1, MRP: 10, CostRate: 7},
				{MedicineName: "MED B", BatchNumber: "B1", Quantity: 2, MRP: 20, CostRate: 14},
			}},
		}},
		passthroughNormalizer{},
		newTestReconciler(repo),
		nil,
		zap.NewNop(),
	)

	result, err := svc.ImportDocument(context.Background(), "store-1", "/uploads/bill.pdf")
	require.Error(t, err)

	var recErr *ReconciliationError
	require.ErrorAs(t, err, &recErr)

	require.NotNil(t, result, "counts before the failure are reported")
	assert.Equal(t, 1, result.CreatedCount)
}

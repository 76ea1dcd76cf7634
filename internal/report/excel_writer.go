// Package report renders an import-summary workbook so pharmacy staff
// can eyeball what a bill import actually did before trusting the stock
// numbers.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/rxledger/billscan/internal/domain/entity"
)

const sheetName = "Import Summary"

// ExcelWriter writes one workbook per import under outputDir.
type ExcelWriter struct {
	outputDir string
	logger    *zap.Logger
}

// NewExcelWriter creates a report writer, ensuring outputDir exists.
func NewExcelWriter(outputDir string, logger *zap.Logger) (*ExcelWriter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &ExcelWriter{
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// Write renders the result and its line items and returns the workbook path.
func (w *ExcelWriter) Write(result *entity.ImportResult, items []entity.NormalizedItem) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("failed to remove default sheet: %w", err)
	}

	w.setCell(f, "A1", "Import ID")
	w.setCell(f, "B1", result.ImportID)
	w.setCell(f, "A2", "Invoice Number")
	w.setCell(f, "B2", result.InvoiceNumber)
	w.setCell(f, "A3", "Supplier")
	w.setCell(f, "B3", result.SupplierName)
	w.setCell(f, "A4", "Total Amount")
	w.setCell(f, "B4", result.TotalAmount)
	w.setCell(f, "A5", "Batches Created")
	w.setCell(f, "B5", result.CreatedCount)
	w.setCell(f, "A6", "Batches Updated")
	w.setCell(f, "B6", result.UpdatedCount)
	w.setCell(f, "A7", "Pages Degraded")
	w.setCell(f, "B7", result.PagesDegraded)

	headers := []string{"Medicine", "Bill Name", "Qty", "Batch", "Expiry", "MRP", "Rate"}
	headerRow := 9
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, headerRow)
		w.setCell(f, cell, h)
	}

	for i, item := range items {
		row := headerRow + 1 + i
		expiry := ""
		if item.ExpiryDate != nil {
			expiry = item.ExpiryDate.Format("2006-01-02")
		}
		values := []interface{}{
			item.MedicineName,
			item.OriginalName,
			item.Quantity,
			item.BatchNumber,
			expiry,
			item.MRP,
			item.CostRate,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			w.setCell(f, cell, v)
		}
	}

	path := filepath.Join(w.outputDir, fmt.Sprintf("import_%s.xlsx", result.ImportID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	w.logger.Info("Import report written", zap.String("path", path))
	return path, nil
}

func (w *ExcelWriter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		w.logger.Warn("Failed to set report cell", zap.String("cell", cell), zap.Error(err))
	}
}

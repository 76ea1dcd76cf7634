// Package document turns an uploaded bill document into page images the
// vision model can read. PDFs are rasterized page by page with mupdf;
// plain image uploads pass through untouched.
package document

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/rxledger/billscan/internal/extraction"
)

// jpegQuality balances OCR legibility against request size.
const jpegQuality = 85

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// Rasterizer converts documents into sequences of page image files.
type Rasterizer struct {
	workDir string
	logger  *zap.Logger
}

// NewRasterizer creates a rasterizer writing page images under workDir.
func NewRasterizer(workDir string, logger *zap.Logger) *Rasterizer {
	return &Rasterizer{
		workDir: workDir,
		logger:  logger,
	}
}

// Pages returns the page image paths for the document, in page order.
// For image uploads the single returned path is the document itself;
// for PDFs each page is written as a temporary JPEG that the caller owns
// and is expected to remove once consumed.
func (r *Rasterizer) Pages(documentPath string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(documentPath))

	if imageExtensions[ext] {
		return []string{documentPath}, nil
	}

	if ext != ".pdf" {
		return nil, &extraction.Error{
			Stage: extraction.StageRasterize,
			Err:   fmt.Errorf("unsupported document type: %s", ext),
		}
	}

	doc, err := fitz.New(documentPath)
	if err != nil {
		return nil, &extraction.Error{
			Stage: extraction.StageRasterize,
			Err:   fmt.Errorf("failed to open PDF: %w", err),
		}
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	r.logger.Debug("Rasterizing PDF",
		zap.String("path", documentPath),
		zap.Int("pages", pageCount))

	var pages []string
	cleanup := func() {
		for _, p := range pages {
			_ = os.Remove(p)
		}
	}

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			cleanup()
			return nil, &extraction.Error{
				Stage: extraction.StageRasterize,
				Page:  pageNum + 1,
				Err:   fmt.Errorf("failed to render page: %w", err),
			}
		}

		file, err := os.CreateTemp(r.workDir, "bill_page_*.jpg")
		if err != nil {
			cleanup()
			return nil, &extraction.Error{
				Stage: extraction.StageRasterize,
				Page:  pageNum + 1,
				Err:   fmt.Errorf("failed to create page file: %w", err),
			}
		}

		if err := jpeg.Encode(file, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			file.Close()
			_ = os.Remove(file.Name())
			cleanup()
			return nil, &extraction.Error{
				Stage: extraction.StageRasterize,
				Page:  pageNum + 1,
				Err:   fmt.Errorf("failed to encode page: %w", err),
			}
		}
		file.Close()

		pages = append(pages, file.Name())
	}

	if len(pages) == 0 {
		return nil, &extraction.Error{
			Stage: extraction.StageRasterize,
			Err:   fmt.Errorf("no pages extracted from %s", filepath.Base(documentPath)),
		}
	}

	return pages, nil
}

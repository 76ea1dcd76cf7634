package port

import (
	"context"

	"github.com/rxledger/billscan/internal/domain/entity"
)

// TextExtractor reads one page image and returns its raw text content,
// layout preserved, no interpretation.
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// BillParser turns raw page text into a structured bill. Malformed model
// output degrades to an empty bill; only transport failures return errors.
type BillParser interface {
	Parse(ctx context.Context, rawText string) (*entity.ParsedBill, bool, error)
}

// Rasterizer converts an uploaded document into a sequence of page image
// files the vision model can consume. Image uploads pass through as a
// single page.
type Rasterizer interface {
	Pages(documentPath string) ([]string, error)
}

// Normalizer maps a raw medicine name to its canonical form. Pure, no
// side effects.
type Normalizer interface {
	Normalize(rawName string) string
}

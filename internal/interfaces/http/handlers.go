// Package http is a thin adapter that translates upload requests into
// import pipeline calls.
package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rxledger/billscan/internal/application/port"
	"github.com/rxledger/billscan/internal/application/service"
	"github.com/rxledger/billscan/internal/domain/entity"
	"github.com/rxledger/billscan/internal/extraction"
)

// BillImporter runs one uploaded document through the import pipeline.
type BillImporter interface {
	ImportDocument(ctx context.Context, storeID, documentPath string) (*entity.ImportResult, error)
}

// acceptedUploadExtensions are the document types the pipeline can read.
var acceptedUploadExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// Handlers contains all HTTP request handlers.
type Handlers struct {
	importService BillImporter
	batches       port.BatchRepository
	uploadDir     string
	maxUploadSize int64
	logger        *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	importService BillImporter,
	batches port.BatchRepository,
	uploadDir string,
	maxUploadSizeMB int64,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		importService: importService,
		batches:       batches,
		uploadDir:     uploadDir,
		maxUploadSize: maxUploadSizeMB * 1024 * 1024,
		logger:        logger,
	}
}

// Response represents a standard JSON response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ImportBill handles POST /api/v1/stores/:store_id/import. The uploaded
// document runs through the whole pipeline synchronously; the upload
// file is removed once the run finishes either way.
func (h *Handlers) ImportBill(c *gin.Context) {
	storeID := c.Param("store_id")

	fileHeader, err := c.FormFile("bill")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "missing 'bill' file field"})
		return
	}

	if fileHeader.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "file too large"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !acceptedUploadExtensions[ext] {
		c.JSON(http.StatusUnsupportedMediaType, Response{Success: false, Error: "unsupported file type"})
		return
	}

	uploadPath := filepath.Join(h.uploadDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(fileHeader, uploadPath); err != nil {
		h.logger.Error("Failed to save upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to save upload"})
		return
	}
	defer func() {
		if err := os.Remove(uploadPath); err != nil {
			h.logger.Warn("Failed to remove upload", zap.String("path", uploadPath), zap.Error(err))
		}
	}()

	result, err := h.importService.ImportDocument(c.Request.Context(), storeID, uploadPath)
	if err != nil {
		h.respondImportError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// respondImportError keeps failure reporting coarse: the caller learns
// which stage failed, not which items survived.
func (h *Handlers) respondImportError(c *gin.Context, err error) {
	var extErr *extraction.Error
	if errors.As(err, &extErr) {
		h.logger.Error("Bill extraction failed", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   "could not process this document",
		})
		return
	}

	var recErr *service.ReconciliationError
	if errors.As(err, &recErr) {
		h.logger.Error("Inventory reconciliation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to save inventory",
		})
		return
	}

	h.logger.Error("Bill import failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "import failed"})
}

// ListBatches handles GET /api/v1/stores/:store_id/batches.
func (h *Handlers) ListBatches(c *gin.Context) {
	storeID := c.Param("store_id")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	batches, err := h.batches.ListByStore(c.Request.Context(), storeID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list batches", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list batches"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: batches})
}

// Command import-bill runs a single supplier bill through the full
// extraction and reconciliation pipeline against a local database.
// Useful for trying new bill layouts without standing up the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/rxledger/billscan/internal/application/service"
	"github.com/rxledger/billscan/internal/document"
	"github.com/rxledger/billscan/internal/extraction"
	"github.com/rxledger/billscan/internal/infrastructure/persistence/repository"
	"github.com/rxledger/billscan/internal/normalize"
	"github.com/rxledger/billscan/internal/report"
	"github.com/rxledger/billscan/pkg/database"
)

func main() {
	apiKey := flag.String("key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	storeID := flag.String("store", "default", "Store the inventory belongs to")
	dbPath := flag.String("db", "data/billscan.db", "SQLite database path")
	migrationsDir := flag.String("migrations", "migrations", "Directory with schema migrations")
	visionModel := flag.String("vision-model", "gpt-4o", "Model for page transcription")
	parseModel := flag.String("parse-model", "gpt-4o-mini", "Model for structured parsing")
	reportDir := flag.String("report-dir", "", "Write an import summary workbook here (empty disables)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall import timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: import-bill [flags] <bill.pdf|bill.jpg>\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	documentPath := flag.Arg(0)

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	gotenv.Load()
	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if *apiKey == "" {
		fmt.Fprintf(os.Stderr, "ERROR: OPENAI_API_KEY not set and no --key flag provided\n")
		os.Exit(1)
	}

	if _, err := os.Stat(documentPath); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Bill not found: %s\n", documentPath)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to create database directory: %v\n", err)
		os.Exit(1)
	}

	db, err := database.New(database.Config{
		Path:            *dbPath,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.NewMigrator(db, logger).Run(*migrationsDir); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	client := openai.NewClient(*apiKey)
	batchRepo := repository.NewBatchRepository(db.DB, logger)

	var reports service.ReportWriter
	if *reportDir != "" {
		writer, err := report.NewExcelWriter(*reportDir, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to prepare report directory: %v\n", err)
			os.Exit(1)
		}
		reports = writer
	}

	importService := service.NewImportService(
		document.NewRasterizer(os.TempDir(), logger),
		extraction.NewVisionExtractor(client, *visionModel, logger),
		extraction.NewBillParser(client, *parseModel, logger),
		normalize.NewMedicineNormalizer(),
		service.NewReconciler(batchRepo, logger),
		reports,
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("Importing %s into store %q...\n", documentPath, *storeID)
	start := time.Now()

	result, err := importService.ImportDocument(ctx, *storeID, documentPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  Import ID:       %s\n", result.ImportID)
	fmt.Printf("  Pages processed: %d (degraded: %d)\n", result.PagesProcessed, result.PagesDegraded)
	fmt.Printf("  Line items:      %d\n", result.ItemCount)
	fmt.Printf("  Batches created: %d, updated: %d\n", result.CreatedCount, result.UpdatedCount)
	if result.InvoiceNumber != "" {
		fmt.Printf("  Invoice:         %s (%s)\n", result.InvoiceNumber, result.SupplierName)
	}
	if result.TotalAmount > 0 {
		fmt.Printf("  Total amount:    %.2f\n", result.TotalAmount)
	}
	if result.ReportPath != "" {
		fmt.Printf("  Report:          %s\n", result.ReportPath)
	}
}

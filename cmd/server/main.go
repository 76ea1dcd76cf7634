package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sashabaranov/go-openai"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/rxledger/billscan/internal/application/service"
	"github.com/rxledger/billscan/internal/config"
	"github.com/rxledger/billscan/internal/document"
	"github.com/rxledger/billscan/internal/extraction"
	"github.com/rxledger/billscan/internal/infrastructure/persistence/repository"
	httpapi "github.com/rxledger/billscan/internal/interfaces/http"
	"github.com/rxledger/billscan/internal/normalize"
	"github.com/rxledger/billscan/internal/report"
	"github.com/rxledger/billscan/pkg/database"
	"github.com/rxledger/billscan/pkg/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting bill import service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	for _, dir := range []string{filepath.Dir(cfg.Database.Path), cfg.Upload.Dir, cfg.Report.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	batchRepo := repository.NewBatchRepository(db.DB, logger)

	// One client shared by both model stages.
	client := openai.NewClient(cfg.OpenAI.APIKey)
	extractor := extraction.NewVisionExtractor(client, cfg.OpenAI.VisionModel, logger)
	parser := extraction.NewBillParser(client, cfg.OpenAI.ParseModel, logger)

	rasterizer := document.NewRasterizer(cfg.Upload.Dir, logger)
	normalizer := normalize.NewMedicineNormalizer()
	reconciler := service.NewReconciler(batchRepo, logger)

	var reports service.ReportWriter
	if cfg.Report.Enabled {
		writer, err := report.NewExcelWriter(cfg.Report.OutputDir, logger)
		if err != nil {
			logger.Fatal("Failed to initialize report writer", zap.Error(err))
		}
		reports = writer
	}

	importService := service.NewImportService(
		rasterizer,
		extractor,
		parser,
		normalizer,
		reconciler,
		reports,
		logger,
	)

	handlers := httpapi.NewHandlers(importService, batchRepo, cfg.Upload.Dir, cfg.Upload.MaxSizeMB, logger)
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

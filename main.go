package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"os"

	"github.com/patrickmn/go-cache"
	"github.com/yuanv4/aibookkeeping/src/config"
	"github.com/yuanv4/aibookkeeping/src/database"
	"github.com/yuanv4/aibookkeeping/src/extractor"
	"github.com/yuanv4/aibookkeeping/src/importer"
	"github.com/yuanv4/aibookkeeping/src/logger"
	"github.com/yuanv4/aibookkeeping/src/pipeline"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Statement ingestion service starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	if err := database.InitDB(config.Cfg.DatabasePath); err != nil {
		stdlog.Fatalf("failed to initialize database: %v", err)
	}
	if err := database.RunMigrations(config.Cfg.DatabasePath, "db/migrations"); err != nil {
		stdlog.Fatalf("failed to run migrations: %v", err)
	}

	if err := os.MkdirAll(config.Cfg.StagingDir, 0o755); err != nil {
		stdlog.Fatalf("failed to create staging dir: %v", err)
	}

	summaryCache := cache.New(pipeline.DefaultCacheExpiration, pipeline.CacheCleanupInterval)

	registry := extractor.DefaultRegistry()
	logger.L.Info("Extractor registry initialized", "issuers", registry.Codes())

	imp := importer.New(database.DB)
	p := pipeline.New(registry, imp, pipeline.Config{
		StagingDir:       config.Cfg.StagingDir,
		ArchiveDir:       config.Cfg.ArchiveDir,
		MaxFileSizeBytes: config.Cfg.MaxFileSizeBytes,
		MaxRowsPerFile:   config.Cfg.MaxRowsPerFile,
		FileTimeout:      config.Cfg.FileTimeout,
	}, summaryCache)

	summary, err := p.Run(context.Background())
	if err != nil {
		stdlog.Fatalf("ingestion run failed: %v", err)
	}

	// The run summary is the contract with upstream collaborators; print
	// it as JSON for whatever triggered the scan.
	out, _ := json.MarshalIndent(summary, "", "  ")
	os.Stdout.Write(append(out, '\n'))

	accounts, err := imp.Accounts(context.Background())
	if err != nil {
		logger.L.Error("Failed to read account overview", "error", err)
		return
	}
	for _, acc := range accounts {
		logger.L.Info("Account on record", "number", acc.Number, "name", acc.Name, "currency", acc.Currency)
	}
}

// Package pipeline drives one ingestion pass over the staging directory:
// discover -> detect -> extract -> validate -> import -> archive, and
// aggregates the run summary consumed by external collaborators. This is
// the only component that mutates the filesystem beyond reading.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/yuanv4/aibookkeeping/src/extractor"
	"github.com/yuanv4/aibookkeeping/src/importer"
	"github.com/yuanv4/aibookkeeping/src/logger"
)

const (
	latestSummaryCacheKey  = "latest_run_summary"
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute

	archiveTimestampLayout = "20060102150405"
)

// statementExtensions are the file types picked up from staging.
var statementExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

// Config carries the filesystem locations and per-file ceilings.
type Config struct {
	StagingDir       string
	ArchiveDir       string
	MaxFileSizeBytes int64
	MaxRowsPerFile   int
	FileTimeout      time.Duration
}

// Pipeline orchestrates statement ingestion runs.
type Pipeline struct {
	registry     *extractor.Registry
	importer     *importer.Importer
	cfg          Config
	summaryCache *cache.Cache
}

// New wires a pipeline from its collaborators.
func New(registry *extractor.Registry, imp *importer.Importer, cfg Config, summaryCache *cache.Cache) *Pipeline {
	return &Pipeline{
		registry:     registry,
		importer:     imp,
		cfg:          cfg,
		summaryCache: summaryCache,
	}
}

// FileResult is the per-file entry of a run summary.
type FileResult struct {
	File    string `json:"file"`
	Bank    string `json:"bank"`
	Records int    `json:"record_count"`
}

// FileFailure records why a file was left in staging.
type FileFailure struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// BankTotal aggregates per-bank counts across one run.
type BankTotal struct {
	Files   int `json:"files"`
	Records int `json:"records"`
}

// RunSummary is the structured result of one ingestion pass. It always
// comes back to the caller, distinguishing "zero files processed" from
// "N processed, M imported".
type RunSummary struct {
	RunID         string               `json:"run_id"`
	StartedAt     time.Time            `json:"started_at"`
	Processed     []FileResult         `json:"processed"`
	TotalRecords  int                  `json:"total_records"`
	PerBankTotals map[string]BankTotal `json:"per_bank_totals"`
	Failures      []FileFailure        `json:"failures"`
	Skipped       []string             `json:"skipped"` // duplicate uploads, detected before extraction
}

// Run executes one ingestion pass over the staging directory. Per-file
// problems are recorded in the summary and never escape as errors; only a
// broken staging location fails the run itself.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:         uuid.NewString(),
		StartedAt:     time.Now(),
		PerBankTotals: make(map[string]BankTotal),
	}

	files, err := p.listStagingFiles()
	if err != nil {
		return nil, err
	}
	logger.L.Info("Ingestion run started", "runID", summary.RunID, "candidates", len(files))

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ingestion run canceled: %w", err)
		}

		if p.isDuplicateUpload(name) {
			logger.L.Info("Skipping file already archived", "file", name)
			summary.Skipped = append(summary.Skipped, name)
			continue
		}

		result, err := p.processFile(ctx, name)
		if err != nil {
			logger.L.Warn("File left in staging", "file", name, "reason", err.Error())
			summary.Failures = append(summary.Failures, FileFailure{File: name, Reason: err.Error()})
			continue
		}

		summary.Processed = append(summary.Processed, FileResult{
			File:    name,
			Bank:    result.BankCode,
			Records: result.Imported,
		})
		summary.TotalRecords += result.Imported
		totals := summary.PerBankTotals[result.BankCode]
		totals.Files++
		totals.Records += result.Imported
		summary.PerBankTotals[result.BankCode] = totals
	}

	if p.summaryCache != nil {
		p.summaryCache.Set(latestSummaryCacheKey, summary, cache.DefaultExpiration)
	}
	logger.L.Info("Ingestion run finished",
		"runID", summary.RunID,
		"processed", len(summary.Processed),
		"imported", summary.TotalRecords,
		"failures", len(summary.Failures),
		"skipped", len(summary.Skipped))
	return summary, nil
}

// LatestSummary returns the cached summary of the most recent run, if any.
func (p *Pipeline) LatestSummary() (*RunSummary, bool) {
	if p.summaryCache == nil {
		return nil, false
	}
	if cached, found := p.summaryCache.Get(latestSummaryCacheKey); found {
		return cached.(*RunSummary), true
	}
	return nil, false
}

// processFile runs the full detect/extract/validate/import/archive chain
// for one staged file under the per-file timeout.
func (p *Pipeline) processFile(ctx context.Context, name string) (*importer.Result, error) {
	path := filepath.Join(p.cfg.StagingDir, name)

	grid, err := extractor.LoadGrid(path, p.cfg.MaxFileSizeBytes, p.cfg.MaxRowsPerFile)
	if err != nil {
		return nil, err
	}

	fileCtx := ctx
	if p.cfg.FileTimeout > 0 {
		var cancel context.CancelFunc
		fileCtx, cancel = context.WithTimeout(ctx, p.cfg.FileTimeout)
		defer cancel()
	}

	ex := p.registry.AutoDetect(grid)
	if ex == nil {
		return nil, errors.New("no registered extractor recognizes the file layout")
	}

	batch, err := ex.Extract(fileCtx, grid)
	if err != nil {
		return nil, err
	}
	if err := extractor.ValidateBatch(batch); err != nil {
		return nil, err
	}

	result, err := p.importer.ImportBatch(fileCtx, batch)
	if err != nil {
		return nil, err
	}

	if err := p.archive(name); err != nil {
		// The import succeeded; the file stays in staging and the
		// duplicate-upload guard protects the next run.
		logger.L.Error("Failed to archive processed file", "file", name, "error", err)
	}

	logger.L.Info("File imported",
		"file", name,
		"bank", result.BankCode,
		"account", result.AccountNumber,
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"failed", result.Failed,
		"droppedRows", batch.DroppedRows)
	return result, nil
}

// listStagingFiles returns the candidate statement files in staging,
// filtered by extension, in directory order.
func (p *Pipeline) listStagingFiles() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.StagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading staging dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !statementExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}

// isDuplicateUpload reports whether a file with the same original name was
// archived before. Archive names are "<timestamp>_<original>", so the
// check is a suffix match.
func (p *Pipeline) isDuplicateUpload(name string) bool {
	entries, err := os.ReadDir(p.cfg.ArchiveDir)
	if err != nil {
		return false
	}
	suffix := "_" + name
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			return true
		}
	}
	return false
}

// archive moves a processed file out of staging under a timestamp-prefixed
// name. An existing target (two runs inside one clock second) gets a uuid
// suffix on the prefix instead of being overwritten.
func (p *Pipeline) archive(name string) error {
	if err := os.MkdirAll(p.cfg.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}

	prefix := time.Now().Format(archiveTimestampLayout)
	dst := filepath.Join(p.cfg.ArchiveDir, prefix+"_"+name)
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(p.cfg.ArchiveDir, prefix+"-"+uuid.NewString()[:8]+"_"+name)
	}

	src := filepath.Join(p.cfg.StagingDir, name)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to archive: %w", name, err)
	}
	return nil
}

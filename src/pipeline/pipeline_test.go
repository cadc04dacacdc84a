package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/yuanv4/aibookkeeping/src/database"
	"github.com/yuanv4/aibookkeeping/src/extractor"
	"github.com/yuanv4/aibookkeeping/src/importer"
	"github.com/yuanv4/aibookkeeping/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

type testEnv struct {
	pipeline *Pipeline
	staging  string
	archive  string
	db       *sql.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "pipeline_test.db")
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, dbPath, filepath.Join("..", "..", "db", "migrations")))

	env := &testEnv{
		staging: t.TempDir(),
		archive: t.TempDir(),
		db:      db,
	}
	env.pipeline = New(
		extractor.DefaultRegistry(),
		importer.New(db),
		Config{
			StagingDir:  env.staging,
			ArchiveDir:  env.archive,
			FileTimeout: 30 * time.Second,
		},
		cache.New(DefaultCacheExpiration, CacheCleanupInterval),
	)
	return env
}

func (e *testEnv) stage(t *testing.T, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.staging, name), data, 0o644))
}

func (e *testEnv) stagingNames(t *testing.T) []string {
	t.Helper()
	return dirNames(t, e.staging)
}

func (e *testEnv) archiveNames(t *testing.T) []string {
	t.Helper()
	return dirNames(t, e.archive)
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func (e *testEnv) transactionCount(t *testing.T) int {
	t.Helper()
	var count int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(1) FROM transactions`).Scan(&count))
	return count
}

// cmbCSV builds a CMB-shaped statement file around the given data rows.
func cmbCSV(rows ...string) []byte {
	var b strings.Builder
	b.WriteString("招商银行交易流水\n")
	b.WriteString("户名：张三,,账号：6214830100123456\n")
	b.WriteString("交易日期,币种,交易金额,联机余额,交易摘要,对手信息\n")
	for _, row := range rows {
		b.WriteString(row)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func bocXLSX(t *testing.T, dataRows ...[]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]string{
		{"中国银行交易流水明细清单"},
		{"客户姓名：王五"},
		{"借记卡号：6217001234567890123"},
		{"记账日期", "交易金额", "账户余额", "对方账户名", "业务摘要", "币别"},
		{"", "(元)", "(元)", "", "", ""},
	}
	rows = append(rows, dataRows...)

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "statement.xlsx")
	require.NoError(t, f.SaveAs(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestRun_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.stage(t, "cmb_jan.csv", cmbCSV(
		"2023-01-03,人民币,-100.00,900.00,消费,某商户",
		"2023-01-04,人民币,5000.00,5900.00,工资,某公司",
		"N/A,人民币,-1.00,,坏行,",
		"2023-01-05,人民币,-42.00,5858.00,转账,李四",
	))
	env.stage(t, "boc_mar.xlsx", bocXLSX(t,
		[]string{"2023-03-01", "-88.00", "5,000.00", "某商户", "消费", "人民币"},
	))

	summary, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Processed, 2)
	assert.Empty(t, summary.Failures)
	assert.Empty(t, summary.Skipped)
	assert.Equal(t, 4, summary.TotalRecords)
	assert.Equal(t, BankTotal{Files: 1, Records: 3}, summary.PerBankTotals["CMB"])
	assert.Equal(t, BankTotal{Files: 1, Records: 1}, summary.PerBankTotals["BOC"])

	assert.Equal(t, 4, env.transactionCount(t))

	// Both files moved out of staging into timestamp-prefixed archives.
	assert.Empty(t, env.stagingNames(t))
	archived := env.archiveNames(t)
	require.Len(t, archived, 2)
	for _, name := range archived {
		assert.Regexp(t, `^\d{14}(-[0-9a-f]{8})?_`, name)
	}
}

func TestRun_OverlappingStatements(t *testing.T) {
	env := newTestEnv(t)
	env.stage(t, "cmb_week1.csv", cmbCSV(
		"2023-01-03,人民币,-100.00,900.00,消费,某商户",
		"2023-01-04,人民币,-5.00,895.00,消费,某商户",
	))

	first, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, first.TotalRecords)

	// The next export overlaps on one row and adds one new row.
	env.stage(t, "cmb_week2.csv", cmbCSV(
		"2023-01-04,人民币,-5.00,895.00,消费,某商户",
		"2023-01-05,人民币,-6.00,889.00,消费,某商户",
	))

	second, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalRecords)
	assert.Equal(t, 3, env.transactionCount(t))
}

func TestRun_TwoRunOverlapAtScale(t *testing.T) {
	env := newTestEnv(t)

	row := func(day, amount int) string {
		return fmt.Sprintf("2023-01-%02d,人民币,-%d.00,%d.00,消费,某商户", day%28+1, amount, 100000-amount)
	}

	// 50 rows, 3 of them malformed.
	var first []string
	for i := 0; i < 47; i++ {
		first = append(first, row(i, i+1))
	}
	first = append(first,
		"N/A,人民币,-1.00,,坏日期,",
		"2023-01-09,人民币,abc,,坏金额,",
		"2023-01-10,人民币,0.00,,零金额,")
	env.stage(t, "cmb_a.csv", cmbCSV(first...))

	run1, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 47, run1.TotalRecords)
	assert.Equal(t, 47, env.transactionCount(t))

	// Second file shares 10 rows with the first and adds 5 new ones.
	var second []string
	for i := 0; i < 10; i++ {
		second = append(second, row(i, i+1))
	}
	for i := 47; i < 52; i++ {
		second = append(second, row(i, i+1))
	}
	env.stage(t, "cmb_b.csv", cmbCSV(second...))

	run2, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, run2.TotalRecords)
	assert.Equal(t, 52, env.transactionCount(t))
}

func TestRun_NoHeaderRowRecorded(t *testing.T) {
	env := newTestEnv(t)
	// Account identity resolves (so detection claims the file) but no row
	// ever looks like a field-label header.
	env.stage(t, "headless.csv", []byte(
		"户名：张三,,账号：6214830100123456\n随便,一些,内容\n"))

	summary, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, summary.Processed)
	require.Len(t, summary.Failures, 1)
	assert.Contains(t, summary.Failures[0].Reason, "no header row")
	assert.Equal(t, []string{"headless.csv"}, env.stagingNames(t))
	assert.Equal(t, 0, env.transactionCount(t))
}

func TestArchive_NeverOverwrites(t *testing.T) {
	env := newTestEnv(t)

	env.stage(t, "same.csv", []byte("first"))
	require.NoError(t, env.pipeline.archive("same.csv"))

	// Same name archived again inside the same clock second must land
	// under a distinct name.
	env.stage(t, "same.csv", []byte("second"))
	require.NoError(t, env.pipeline.archive("same.csv"))

	archived := env.archiveNames(t)
	assert.Len(t, archived, 2)
}

func TestRun_DuplicateUploadSkipped(t *testing.T) {
	env := newTestEnv(t)
	env.stage(t, "cmb_jan.csv", cmbCSV("2023-01-03,人民币,-100.00,900.00,消费,某商户"))

	first, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Processed, 1)

	// The same file name staged again is recognized from the archive and
	// never re-extracted.
	env.stage(t, "cmb_jan.csv", cmbCSV("2023-01-03,人民币,-100.00,900.00,消费,某商户"))

	second, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Processed)
	assert.Equal(t, []string{"cmb_jan.csv"}, second.Skipped)
	assert.Equal(t, 1, env.transactionCount(t))
}

func TestRun_UnrecognizedFileLeftInStaging(t *testing.T) {
	env := newTestEnv(t)
	env.stage(t, "unknown.csv", []byte("持卡人,流水号\n张三,123456\n"))

	summary, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, summary.Processed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "unknown.csv", summary.Failures[0].File)
	assert.Contains(t, summary.Failures[0].Reason, "no registered extractor")

	assert.Equal(t, []string{"unknown.csv"}, env.stagingNames(t))
	assert.Empty(t, env.archiveNames(t))
}

func TestRun_EmptyBatchLeftInStaging(t *testing.T) {
	env := newTestEnv(t)
	// Valid identity and header but zero data rows: nothing to import,
	// so the file must not be archived as processed.
	env.stage(t, "empty.csv", cmbCSV())

	summary, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, summary.Processed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, []string{"empty.csv"}, env.stagingNames(t))
}

func TestRun_OversizedFileLeftInStaging(t *testing.T) {
	env := newTestEnv(t)
	env.pipeline.cfg.MaxFileSizeBytes = 16
	env.stage(t, "big.csv", cmbCSV("2023-01-03,人民币,-100.00,900.00,消费,某商户"))

	summary, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, []string{"big.csv"}, env.stagingNames(t))
}

func TestRun_IgnoresNonStatementEntries(t *testing.T) {
	env := newTestEnv(t)
	env.stage(t, "readme.txt", []byte("not a statement"))
	require.NoError(t, os.Mkdir(filepath.Join(env.staging, "nested.csv"), 0o755))

	summary, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Processed)
	assert.Empty(t, summary.Failures)
	assert.Empty(t, summary.Skipped)
}

func TestRun_MissingStagingDir(t *testing.T) {
	env := newTestEnv(t)
	env.pipeline.cfg.StagingDir = filepath.Join(env.staging, "does-not-exist")

	summary, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Processed)
}

func TestRun_CanceledContext(t *testing.T) {
	env := newTestEnv(t)
	env.stage(t, "cmb_jan.csv", cmbCSV("2023-01-03,人民币,-100.00,900.00,消费,某商户"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.pipeline.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLatestSummary(t *testing.T) {
	env := newTestEnv(t)

	_, found := env.pipeline.LatestSummary()
	assert.False(t, found)

	env.stage(t, "cmb_jan.csv", cmbCSV("2023-01-03,人民币,-100.00,900.00,消费,某商户"))
	summary, err := env.pipeline.Run(context.Background())
	require.NoError(t, err)

	cached, found := env.pipeline.LatestSummary()
	require.True(t, found)
	assert.Equal(t, summary.RunID, cached.RunID)
	assert.Equal(t, summary.TotalRecords, cached.TotalRecords)
}

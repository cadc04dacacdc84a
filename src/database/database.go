package database

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/yuanv4/aibookkeeping/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// Open opens a SQLite database with the pragmas the importer relies on
// (WAL, busy_timeout, foreign_keys) and a single connection to avoid
// locking issues. Used directly by tests; InitDB wires the global handle.
func Open(databasePath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", databasePath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", databasePath, err)
	}
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// InitDB opens the application database and stores the global handle.
func InitDB(databasePath string) error {
	db, err := Open(databasePath)
	if err != nil {
		return err
	}
	DB = db
	logger.L.Info("Database connection established with WAL mode, busy_timeout, and foreign_keys enabled.")
	return nil
}

// Migrate applies all pending migrations from migrationsDir to db.
func Migrate(db *sql.DB, databasePath, migrationsDir string) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite migration driver: %w", err)
	}

	abs, err := filepath.Abs(migrationsDir)
	if err != nil {
		return fmt.Errorf("resolving migrations dir: %w", err)
	}
	sourceURL := fmt.Sprintf("file://%s", filepath.ToSlash(abs))

	m, err := migrate.NewWithDatabaseInstance(sourceURL, databasePath, driver)
	if err != nil {
		return fmt.Errorf("creating migration instance from %s: %w", sourceURL, err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// RunMigrations applies migrations against the global handle.
func RunMigrations(databasePath, migrationsDir string) error {
	if DB == nil {
		return errors.New("database connection is not initialized")
	}
	logger.L.Info("Applying database migrations...", "dir", migrationsDir)
	if err := Migrate(DB, databasePath, migrationsDir); err != nil {
		return err
	}
	logger.L.Info("Database migrations up to date.")
	return nil
}

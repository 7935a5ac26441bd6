// Package cache is the album art store: a SQLite index over a directory of
// content addressed image files.
package cache

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

// DefaultDBPath is the default path for the art database.
const DefaultDBPath = "data/coverart.db"

//go:embed migrations/*.sql
var migrations embed.FS

// gooseMu serializes goose's package-level configuration.
var gooseMu sync.Mutex

// DB represents the SQLite art database.
type DB struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewDB creates a new database instance.
func NewDB(path string) *DB {
	if path == "" {
		path = DefaultDBPath
	}
	return &DB{
		path: path,
	}
}

// Open opens the database and runs pending migrations.
func (d *DB) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", d.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open art database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := migrate(db); err != nil {
		db.Close()
		return err
	}

	d.db = db
	log.Info().Str("path", d.path).Msg("Art database opened")
	return nil
}

func migrate(db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (d *DB) SchemaVersion() (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return 0, fmt.Errorf("database not open")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()
	return goose.GetDBVersion(d.db)
}

// Close closes the database connection.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}

// DB returns the underlying sql.DB, or nil when closed.
func (d *DB) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

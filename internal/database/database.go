package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// notifyChannel is the PostgreSQL channel used to fan writes out to other processes
const notifyChannel = "applytrack_docs"

// Document is one stored entity. Data holds the entity's own fields as a JSON object;
// ID, UserID and CreatedAt are assigned by the store.
type Document struct {
	ID        string
	UserID    string
	CreatedAt *time.Time
	Data      json.RawMessage
}

// Store is the document-store collaborator consumed by the gateway
type Store interface {
	Subscribe(ctx context.Context, collection, ownerID string) (*Subscription, error)
	Create(ctx context.Context, collection, ownerID string, data json.RawMessage) (Document, error)
	Update(ctx context.Context, collection, ownerID, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, ownerID, id string) error
	Close() error
}

// Options selects and configures the backing database
type Options struct {
	Driver string
	// DSN is a file path for sqlite and a connection URL for postgres
	DSN string
	Log *slog.Logger
}

type dialect struct {
	driverName  string
	placeholder sq.PlaceholderFormat
	schema      []string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		driverName:  "sqlite3",
		placeholder: sq.Question,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				collection TEXT NOT NULL,
				user_id TEXT NOT NULL,
				data TEXT NOT NULL,
				created_at DATETIME,
				updated_at DATETIME
			)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(collection, user_id)`,
		},
	},
	DriverPostgres: {
		driverName:  "pgx",
		placeholder: sq.Dollar,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				collection TEXT NOT NULL,
				user_id TEXT NOT NULL,
				data TEXT NOT NULL,
				created_at TIMESTAMPTZ,
				updated_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(collection, user_id)`,
		},
	},
}

// SQLStore implements Store on top of database/sql
type SQLStore struct {
	db      *sql.DB
	driver  string
	dialect dialect
	broker  *broker
	log     *slog.Logger
	now     func() time.Time

	stopListener context.CancelFunc
}

// Open connects to the configured database, runs migrations and, for postgres,
// starts the change listener.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	d, ok := dialects[opts.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported store driver: %s", opts.Driver)
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	dsn := opts.DSN
	if opts.Driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// Open with DSN options for SQLite pragmas
		dsn = fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", dsn)
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(ctx, db, opts.Driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &SQLStore{
		db:      db,
		driver:  opts.Driver,
		dialect: d,
		broker:  newBroker(),
		log:     log.With("component", "store", "driver", opts.Driver),
		now:     time.Now,
	}

	if opts.Driver == DriverPostgres {
		lctx, cancel := context.WithCancel(context.Background())
		s.stopListener = cancel
		if err := s.startListener(lctx, opts.DSN); err != nil {
			cancel()
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

// RunMigrations creates the documents table for the given driver
func RunMigrations(ctx context.Context, db *sql.DB, driver string) error {
	d, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("unsupported store driver: %s", driver)
	}
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the listener and closes the database
func (s *SQLStore) Close() error {
	if s.stopListener != nil {
		s.stopListener()
	}
	s.broker.closeAll()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

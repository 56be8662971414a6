package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite opens the local SQLite database and creates the schemas for
// save slots and the event history.
func InitSQLite(dbPath string) (*sql.DB, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One session writes at a time; a single connection also keeps an
	// in-memory database alive across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS save_slots (
			slot_id TEXT PRIMARY KEY,
			signal REAL NOT NULL,
			intel INTEGER NOT NULL,
			shards INTEGER NOT NULL,
			total_generated REAL NOT NULL,
			manual_power REAL NOT NULL,
			global_bonus REAL NOT NULL,
			saved_at_wall REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS slot_generators (
			slot_id TEXT NOT NULL,
			generator_key TEXT NOT NULL,
			owned_count INTEGER NOT NULL,
			bonus REAL NOT NULL,
			PRIMARY KEY (slot_id, generator_key),
			FOREIGN KEY (slot_id) REFERENCES save_slots(slot_id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS slot_upgrades (
			slot_id TEXT NOT NULL,
			upgrade_key TEXT NOT NULL,
			purchased BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (slot_id, upgrade_key),
			FOREIGN KEY (slot_id) REFERENCES save_slots(slot_id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS slot_momentum (
			slot_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			bonus REAL NOT NULL,
			expiry_wall REAL NOT NULL,
			PRIMARY KEY (slot_id, position),
			FOREIGN KEY (slot_id) REFERENCES save_slots(slot_id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			slot_id TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			message TEXT NOT NULL,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_slot_id ON events(slot_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_event_type ON events(event_type);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

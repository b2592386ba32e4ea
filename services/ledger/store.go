// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ledger owns all durable state: the SQLite-backed store for
// users, nodes, messages, threat records and audit entries, plus the
// accrual engine that is the sole mutator of the shared pool row.
package ledger

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// initialPoolSeed is the total the pool row is created with the first
// time the store boots on an empty database.
const initialPoolSeed = 100000

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store provides SQLite-backed persistence for the mesh ledger.
type Store struct {
	sqlDB *sql.DB
}

// DB returns the underlying sql.DB instance.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Open opens the ledger store at the provided path, creating the schema
// and seeding the singleton pool row if the database is new.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.createSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if err := store.seedPool(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("seed pool: %w", err)
	}

	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) createSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	created_at    INTEGER NOT NULL,
	last_login    INTEGER
);
CREATE TABLE IF NOT EXISTS nodes (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	node_id       TEXT UNIQUE NOT NULL,
	ip_address    TEXT NOT NULL,
	device_type   TEXT,
	status        TEXT NOT NULL DEFAULT 'active',
	owner_id      INTEGER,
	registered_at INTEGER NOT NULL,
	last_seen     INTEGER
);
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	from_node  TEXT NOT NULL,
	to_node    TEXT,
	content    TEXT NOT NULL,
	encrypted  INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	delivered  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS threat_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	threat_id      TEXT NOT NULL,
	threat_type    TEXT NOT NULL,
	threat_name    TEXT NOT NULL,
	source_id      TEXT,
	severity       TEXT,
	action_taken   TEXT,
	monetary_value REAL NOT NULL DEFAULT 0,
	detected_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS pool (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	total_pool   REAL NOT NULL DEFAULT 0,
	distributed  REAL NOT NULL DEFAULT 0,
	last_updated INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS distributions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	recipient_id   INTEGER NOT NULL,
	amount         REAL NOT NULL,
	source         TEXT,
	distributed_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS employees (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     INTEGER NOT NULL,
	name        TEXT NOT NULL,
	role        TEXT,
	industry    TEXT,
	country     TEXT NOT NULL DEFAULT 'US',
	hourly_rate REAL NOT NULL,
	status      TEXT NOT NULL DEFAULT 'active'
);
CREATE TABLE IF NOT EXISTS time_records (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	employee_id  INTEGER NOT NULL,
	clock_in     INTEGER NOT NULL,
	clock_out    INTEGER,
	hours_worked REAL,
	gross_pay    REAL,
	tax_withheld REAL,
	net_pay      REAL
);
CREATE TABLE IF NOT EXISTS family_members (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	member_name    TEXT NOT NULL,
	relation       TEXT NOT NULL,
	owner_id       INTEGER NOT NULL,
	custody_status TEXT,
	support_amount REAL NOT NULL DEFAULT 0,
	notes          TEXT,
	added_at       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS vaults (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	vault_name     TEXT NOT NULL,
	vault_type     TEXT NOT NULL DEFAULT 'standard',
	owner_id       INTEGER NOT NULL,
	security_level INTEGER NOT NULL DEFAULT 1,
	created_at     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER,
	action     TEXT NOT NULL,
	details    TEXT,
	source_ip  TEXT,
	created_at INTEGER NOT NULL
);
`
	if _, err := s.sqlDB.Exec(schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

// seedPool inserts the singleton pool row on first boot. The row is
// created exactly once and never destroyed afterwards.
func (s *Store) seedPool() error {
	_, err := s.sqlDB.Exec(
		`INSERT OR IGNORE INTO pool (id, total_pool, distributed, last_updated) VALUES (1, ?, 0, ?)`,
		initialPoolSeed, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert pool row: %w", err)
	}
	return nil
}

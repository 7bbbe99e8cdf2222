// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

// Package database provides the DuckDB persistence layer for Labboard:
// the behavior event ledger, the item similarity index, the stored
// recommendation log and the catalog tables the strategies read.
//
// All methods take a context and bound their queries with an internal
// timeout. Errors wrap the failing operation so callers can log one
// line and know which query failed.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/labboard/labboard/internal/config"
	"github.com/labboard/labboard/internal/logging"
	"github.com/labboard/labboard/internal/metrics"
)

// queryTimeout bounds individual queries.
const queryTimeout = 30 * time.Second

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the database, configures the connection pool and creates
// the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	connStr, err := buildConnString(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configureConnectionPool()

	if err := db.Ping(context.Background()); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.createSchema(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Msg("database ready")

	return db, nil
}

// buildConnString assembles the DuckDB connection string. An in-memory
// database uses the driver default; a file-backed one gets tuning
// options and its parent directory created.
func buildConnString(cfg *config.DatabaseConfig) (string, error) {
	if cfg.Path == "" || cfg.Path == ":memory:" {
		return "", nil
	}

	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return "", fmt.Errorf("create database directory %s: %w", dbDir, err)
		}
	}

	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	return fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, maxMemory), nil
}

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// withTimeout derives the per-query context.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// track records query metrics for one completed operation.
func track(operation, table string, start time.Time, err error) {
	metrics.ObserveDBQuery(operation, table, time.Since(start), err)
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Debug().Err(err).Msg("close database connection")
	}
}

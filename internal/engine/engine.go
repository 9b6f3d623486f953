// Package engine hosts the in-process relational engine behind the embedded
// task store: an in-memory SQLite database reached through GORM, together
// with the schema migration and the snapshot persistence that make its state
// survive restarts.
package engine

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Result reports the outcome of a mutating statement.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Engine wraps one in-memory SQLite database. The pool is pinned to a
// single connection: every caller sees the same database and
// last_insert_rowid() refers to the statement that just ran.
type Engine struct {
	db *gorm.DB
}

// Open creates a fresh, empty in-memory engine.
func Open() (*Engine, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("engine pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	return &Engine{db: db}, nil
}

// DB exposes the underlying handle for typed queries.
func (e *Engine) DB() *gorm.DB { return e.db }

// Execute runs a mutating statement with positionally bound parameters.
func (e *Engine) Execute(ctx context.Context, stmt string, args ...any) (Result, error) {
	tx := e.db.WithContext(ctx).Exec(stmt, args...)
	if tx.Error != nil {
		return Result{}, fmt.Errorf("execute: %w", tx.Error)
	}
	var lastID int64
	if err := e.db.WithContext(ctx).Raw("SELECT last_insert_rowid()").Scan(&lastID).Error; err != nil {
		return Result{}, fmt.Errorf("last insert id: %w", err)
	}
	return Result{RowsAffected: tx.RowsAffected, LastInsertID: lastID}, nil
}

// Query runs a read statement and returns the rows as column-name keyed maps.
func (e *Engine) Query(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	var rows []map[string]any
	if err := e.db.WithContext(ctx).Raw(stmt, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

// Close releases the engine's connection; the in-memory state is gone after this.
func (e *Engine) Close() error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

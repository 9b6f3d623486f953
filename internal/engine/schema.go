package engine

import (
	"context"
	"fmt"
)

// AUTOINCREMENT keeps the rowid sequence monotonic: an id handed out once
// is never handed out again, even after the row is deleted.
const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	priority TEXT NOT NULL DEFAULT 'medium',
	user_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

const createTasksUserIndex = `CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id)`

// EnsureSchema idempotently creates the tasks table and its defaults.
func (e *Engine) EnsureSchema(ctx context.Context) error {
	if _, err := e.Execute(ctx, createTasksTable); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	if _, err := e.Execute(ctx, createTasksUserIndex); err != nil {
		return fmt.Errorf("create tasks index: %w", err)
	}
	return nil
}

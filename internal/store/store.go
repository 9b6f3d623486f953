// Package store implements the task repository contract twice: over the
// embedded snapshot-persisted engine and over a server-side SQLite file.
// Both backends share validation, ordering and idempotency rules so they
// are interchangeable behind TaskStore.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskboard/internal/model"
)

// ErrNotFound is returned when an id-addressed task does not exist.
var ErrNotFound = errors.New("task not found")

// ErrSnapshotFailed marks a durability write that failed after the
// in-memory mutation already took effect. It is attached to an otherwise
// successful result: the returned task is valid and the mutation stands,
// only the snapshot behind it is stale.
var ErrSnapshotFailed = errors.New("snapshot write failed")

// ValidationError rejects malformed input before any engine call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CreateTaskInput carries the caller-supplied fields of a new task.
// Status is not settable at creation; every task starts pending.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
	UserID      string
}

// TaskStore is the repository contract shared by both backends.
type TaskStore interface {
	Create(ctx context.Context, in CreateTaskInput) (*model.Task, error)
	GetAll(ctx context.Context, userID string) ([]model.Task, error)
	GetByID(ctx context.Context, id uint) (*model.Task, error)
	Update(ctx context.Context, id uint, fields map[string]any) (*model.Task, error)
	Delete(ctx context.Context, id uint) error
	GetByStatus(ctx context.Context, status, userID string) ([]model.Task, error)
	GetByPriority(ctx context.Context, priority, userID string) ([]model.Task, error)
}

// listOrder makes listings deterministic: newest first, ids breaking
// created_at ties so repeated calls agree even at equal timestamps.
const listOrder = "created_at DESC, id DESC"

// validateCreate checks the input and fills the priority default.
func validateCreate(in CreateTaskInput) (CreateTaskInput, error) {
	if strings.TrimSpace(in.Title) == "" {
		return in, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Description) == "" {
		return in, &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if in.Priority == "" {
		in.Priority = string(model.PriorityMedium)
	}
	if !model.Priority(in.Priority).Valid() {
		return in, &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", in.Priority)}
	}
	return in, nil
}

// normalizeUpdate keeps only the settable columns, validates them and
// drops everything else. An invalid value aborts the whole update; an
// unrecognized key is silently ignored.
func normalizeUpdate(fields map[string]any) (map[string]any, error) {
	updates := make(map[string]any, len(fields))
	for key, raw := range fields {
		switch key {
		case "title", "description":
			text, ok := raw.(string)
			if !ok || strings.TrimSpace(text) == "" {
				return nil, &ValidationError{Field: key, Reason: "must be a non-empty string"}
			}
			updates[key] = text
		case "status":
			text, ok := raw.(string)
			if !ok || !model.Status(text).Valid() {
				return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %v", raw)}
			}
			updates[key] = text
		case "priority":
			text, ok := raw.(string)
			if !ok || !model.Priority(text).Valid() {
				return nil, &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %v", raw)}
			}
			updates[key] = text
		}
	}
	return updates, nil
}

func validStatusFilter(status string) error {
	if !model.Status(status).Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", status)}
	}
	return nil
}

func validPriorityFilter(priority string) error {
	if !model.Priority(priority).Valid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", priority)}
	}
	return nil
}

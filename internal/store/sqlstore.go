package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// SQL is the server-backed TaskStore over a file-backed SQLite database.
// The file is already durable, so there is no snapshotting here; every
// other observable rule matches the embedded backend exactly.
type SQL struct {
	db *gorm.DB
}

// NewSQL wraps an already-migrated database handle.
func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db}
}

// Create validates, inserts and returns the row re-read by its new id.
func (s *SQL) Create(ctx context.Context, in CreateTaskInput) (*model.Task, error) {
	in, err := validateCreate(in)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	task := model.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      model.StatusPending,
		Priority:    model.Priority(in.Priority),
		UserID:      in.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return s.GetByID(ctx, task.ID)
}

// GetAll lists every task owned by userID, newest first.
func (s *SQL) GetAll(ctx context.Context, userID string) ([]model.Task, error) {
	return s.list(ctx, "user_id = ?", userID)
}

// GetByID returns one task or ErrNotFound, without any ownership check.
func (s *SQL) GetByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := s.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// Update applies only the recognized fields and refreshes updated_at.
func (s *SQL) Update(ctx context.Context, id uint, fields map[string]any) (*model.Task, error) {
	updates, err := normalizeUpdate(fields)
	if err != nil {
		return nil, err
	}
	updates["updated_at"] = time.Now().UTC()
	tx := s.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return nil, fmt.Errorf("update task: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// Delete removes the row if present; a missing id is a no-op success.
func (s *SQL) Delete(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&model.Task{}, id).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// GetByStatus lists the user's tasks in the given status, newest first.
func (s *SQL) GetByStatus(ctx context.Context, status, userID string) ([]model.Task, error) {
	if err := validStatusFilter(status); err != nil {
		return nil, err
	}
	return s.list(ctx, "user_id = ? AND status = ?", userID, status)
}

// GetByPriority lists the user's tasks at the given priority, newest first.
func (s *SQL) GetByPriority(ctx context.Context, priority, userID string) ([]model.Task, error) {
	if err := validPriorityFilter(priority); err != nil {
		return nil, err
	}
	return s.list(ctx, "user_id = ? AND priority = ?", userID, priority)
}

func (s *SQL) list(ctx context.Context, cond string, args ...any) ([]model.Task, error) {
	var tasks []model.Task
	if err := s.db.WithContext(ctx).Where(cond, args...).Order(listOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

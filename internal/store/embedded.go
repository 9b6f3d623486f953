package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/engine"
	"taskboard/internal/kvslot"
	"taskboard/internal/model"
)

// Embedded is the client-resident TaskStore: an in-memory relational
// engine whose whole state is re-serialized into a durable slot after
// every mutation. It owns exactly one engine instance; the mutex
// serializes all calls because the engine is single-writer.
type Embedded struct {
	slot kvslot.Slot

	initOnce sync.Once
	initErr  error

	mu   sync.Mutex
	eng  *engine.Engine
	snap *engine.Snapshotter
}

// NewEmbedded returns a store persisting into slot. Initialization is
// lazy; call Init to fail fast at startup instead of on the first use.
func NewEmbedded(slot kvslot.Slot) *Embedded {
	return &Embedded{slot: slot}
}

// Init runs the one-time initialization eagerly.
func (s *Embedded) Init(ctx context.Context) error { return s.ready(ctx) }

// ready runs initialization exactly once. Concurrent first callers all
// block inside the Once until the single run finishes, then reuse its
// outcome. The error is sticky: a corrupt snapshot leaves the store
// permanently failed rather than silently starting empty over live data.
func (s *Embedded) ready(ctx context.Context) error {
	s.initOnce.Do(func() { s.initErr = s.initialize(ctx) })
	return s.initErr
}

func (s *Embedded) initialize(ctx context.Context) error {
	eng, err := engine.Open()
	if err != nil {
		return err
	}
	snap := engine.NewSnapshotter(eng, s.slot)
	found, err := snap.Load(ctx)
	if err != nil {
		eng.Close()
		return fmt.Errorf("initialize from snapshot: %w", err)
	}
	if !found {
		if err := eng.EnsureSchema(ctx); err != nil {
			eng.Close()
			return err
		}
	}
	s.eng = eng
	s.snap = snap
	return nil
}

// Create validates the input, inserts the row, persists a snapshot and
// returns the row re-read by its engine-assigned id so every generated
// field is authoritative. A failed snapshot write comes back wrapped in
// ErrSnapshotFailed next to the still-valid task.
func (s *Embedded) Create(ctx context.Context, in CreateTaskInput) (*model.Task, error) {
	in, err := validateCreate(in)
	if err != nil {
		return nil, err
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.eng.Execute(ctx,
		`INSERT INTO tasks (title, description, status, priority, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, string(model.StatusPending), in.Priority, in.UserID, now, now)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	saveErr := s.snap.Save(ctx)

	task, err := s.getByID(ctx, uint(res.LastInsertID))
	if err != nil {
		return nil, err
	}
	if saveErr != nil {
		return task, fmt.Errorf("%w: %v", ErrSnapshotFailed, saveErr)
	}
	return task, nil
}

// GetAll lists every task owned by userID, newest first.
func (s *Embedded) GetAll(ctx context.Context, userID string) ([]model.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx, "user_id = ?", userID)
}

// GetByID returns one task or ErrNotFound. Ownership is the caller's
// concern; this lookup is unscoped on purpose.
func (s *Embedded) GetByID(ctx context.Context, id uint) (*model.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getByID(ctx, id)
}

// Update applies the recognized fields, refreshes updated_at and
// persists. Unknown keys are ignored; an invalid enum value aborts the
// whole update before anything is written.
func (s *Embedded) Update(ctx context.Context, id uint, fields map[string]any) (*model.Task, error) {
	updates, err := normalizeUpdate(fields)
	if err != nil {
		return nil, err
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	updates["updated_at"] = time.Now().UTC()
	tx := s.eng.DB().WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return nil, fmt.Errorf("update task: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	saveErr := s.snap.Save(ctx)

	task, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if saveErr != nil {
		return task, fmt.Errorf("%w: %v", ErrSnapshotFailed, saveErr)
	}
	return task, nil
}

// Delete removes the row if present. A missing id is a no-op success,
// and no snapshot is written since nothing changed.
func (s *Embedded) Delete(ctx context.Context, id uint) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.eng.Execute(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.RowsAffected == 0 {
		return nil
	}
	if err := s.snap.Save(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotFailed, err)
	}
	return nil
}

// GetByStatus lists the user's tasks in the given status, newest first.
func (s *Embedded) GetByStatus(ctx context.Context, status, userID string) ([]model.Task, error) {
	if err := validStatusFilter(status); err != nil {
		return nil, err
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx, "user_id = ? AND status = ?", userID, status)
}

// GetByPriority lists the user's tasks at the given priority, newest first.
func (s *Embedded) GetByPriority(ctx context.Context, priority, userID string) ([]model.Task, error) {
	if err := validPriorityFilter(priority); err != nil {
		return nil, err
	}
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx, "user_id = ? AND priority = ?", userID, priority)
}

// Close releases the engine. The durable slot keeps the last snapshot.
func (s *Embedded) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng == nil {
		return nil
	}
	return s.eng.Close()
}

func (s *Embedded) getByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := s.eng.DB().WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

func (s *Embedded) list(ctx context.Context, cond string, args ...any) ([]model.Task, error) {
	var tasks []model.Task
	if err := s.eng.DB().WithContext(ctx).Where(cond, args...).Order(listOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}
